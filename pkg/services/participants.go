package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// ParticipantService handles participant registration, reads, and
// termination.
type ParticipantService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewParticipantService creates a participant service.
func NewParticipantService(st *store.Store) *ParticipantService {
	return &ParticipantService{
		store:  st,
		logger: slog.Default().With("service", "participant"),
	}
}

// CreateParticipantInput is the registration request after HTTP binding.
// LimitTokens and Lambda default to the competition's values when zero.
type CreateParticipantInput struct {
	Name        string
	LLMEndpoint string
	LLMKey      string
	LimitTokens int
	Lambda      int
}

// CreateParticipant registers a participant in a competition with a full
// token budget.
func (s *ParticipantService) CreateParticipant(ctx context.Context, competitionID string, in CreateParticipantInput) (*models.Participant, error) {
	if in.Name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}

	comp, err := s.store.GetCompetition(ctx, competitionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	limit := in.LimitTokens
	if limit <= 0 {
		limit = comp.MaxTokensPerParticipant
	}
	lambda := in.Lambda
	if lambda == 0 {
		lambda = comp.Rules.Lambda
	}

	p := &models.Participant{
		ID:              uuid.NewString(),
		CompetitionID:   competitionID,
		Name:            in.Name,
		LLMEndpoint:     in.LLMEndpoint,
		LLMKey:          in.LLMKey,
		LimitTokens:     limit,
		RemainingTokens: limit,
		LambdaValue:     lambda,
		IsRunning:       true,
	}
	p.Score = p.ComputeScore()

	if err := s.store.CreateParticipant(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("Participant registered",
		"participant_id", p.ID,
		"competition_id", competitionID,
		"name", p.Name,
		"limit_tokens", limit)
	return p, nil
}

// GetParticipant returns one participant, verifying it belongs to the given
// competition. When includeSolved is set the distinct solved-problem IDs are
// attached.
func (s *ParticipantService) GetParticipant(ctx context.Context, competitionID, participantID string, includeSolved bool) (*models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.CompetitionID != competitionID {
		return nil, ErrNotFound
	}

	p.Score = p.ComputeScore()

	if includeSolved {
		solved, err := s.store.SolvedProblemIDs(ctx, participantID)
		if err != nil {
			return nil, err
		}
		p.SolvedProblems = solved
	}
	return p, nil
}

// TerminateParticipant stops a participant with the given reason. Used by the
// operator endpoint and by agent drivers (terminate action, parse failures,
// wall-time overruns).
func (s *ParticipantService) TerminateParticipant(ctx context.Context, competitionID, participantID string, reason models.TerminationReason) (*models.Participant, error) {
	p, err := s.GetParticipant(ctx, competitionID, participantID, false)
	if err != nil {
		return nil, err
	}

	if err := s.store.TerminateParticipant(ctx, participantID, reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("Participant terminated",
		"participant_id", participantID,
		"competition_id", competitionID,
		"reason", reason,
		"was_running", p.IsRunning)
	return s.GetParticipant(ctx, competitionID, participantID, false)
}

// requireRunning loads a participant and rejects terminated ones.
func (s *ParticipantService) requireRunning(ctx context.Context, competitionID, participantID string) (*models.Participant, error) {
	p, err := s.GetParticipant(ctx, competitionID, participantID, false)
	if err != nil {
		return nil, err
	}
	if !p.IsRunning {
		return nil, terminatedError(string(p.TerminationReason))
	}
	return p, nil
}
