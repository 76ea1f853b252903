package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codearena/arena/pkg/dataset"
	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// CompetitionService creates and reads competitions, resolving problem IDs
// against the configured dataset.
type CompetitionService struct {
	store    *store.Store
	problems *dataset.Loader
	logger   *slog.Logger
}

// NewCompetitionService creates a competition service.
func NewCompetitionService(st *store.Store, problems *dataset.Loader) *CompetitionService {
	return &CompetitionService{
		store:    st,
		problems: problems,
		logger:   slog.Default().With("service", "competition"),
	}
}

// CreateCompetitionInput is the create request after HTTP binding.
type CreateCompetitionInput struct {
	Title       string
	Description string
	ProblemIDs  []string
	MaxTokens   int
	Rules       *models.Rules
}

// CreateCompetition resolves the requested problems against the dataset and
// creates the competition. Problem IDs missing from the dataset are reported
// back; a request in which no problem resolves fails. An empty problem list
// selects the whole dataset.
func (s *CompetitionService) CreateCompetition(ctx context.Context, in CreateCompetitionInput) (*models.Competition, []string, error) {
	if in.Title == "" {
		return nil, nil, NewValidationError("title", "must not be empty")
	}
	if in.MaxTokens <= 0 {
		return nil, nil, NewValidationError("max_tokens", "must be positive, got %d", in.MaxTokens)
	}

	ids := in.ProblemIDs
	if len(ids) == 0 {
		ids = s.problems.ProblemIDs("")
	}

	comp := &models.Competition{
		ID:                      uuid.NewString(),
		Title:                   in.Title,
		Description:             in.Description,
		StartTime:               time.Now(),
		MaxTokensPerParticipant: in.MaxTokens,
		Rules:                   in.Rules,
		IsActive:                true,
	}
	if comp.Rules == nil {
		comp.Rules = models.DefaultRules()
	}

	var (
		problems []*models.Problem
		missing  []string
	)
	for _, id := range ids {
		p, err := s.problems.LoadProblem(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		p.CompetitionID = comp.ID
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		return nil, missing, NewValidationError("problem_ids", "none of the requested problems exist in the dataset")
	}

	if err := s.store.CreateCompetition(ctx, comp, problems); err != nil {
		return nil, nil, err
	}
	comp.ProblemCount = len(problems)

	s.logger.Info("Competition created",
		"competition_id", comp.ID,
		"title", comp.Title,
		"problems", len(problems),
		"missing", len(missing))
	return comp, missing, nil
}

// CompetitionDetails is a competition with its related collections attached.
type CompetitionDetails struct {
	Competition  *models.Competition
	Participants []*models.Participant
	Problems     []*models.Problem
	Rankings     []models.RankingEntry
}

// GetCompetition returns one competition, optionally hydrated with
// participants, problems, and rankings.
func (s *CompetitionService) GetCompetition(ctx context.Context, id string, includeDetails bool) (*CompetitionDetails, error) {
	comp, err := s.store.GetCompetition(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	details := &CompetitionDetails{Competition: comp}
	if !includeDetails {
		return details, nil
	}

	if details.Participants, err = s.store.ListParticipants(ctx, id); err != nil {
		return nil, err
	}
	if details.Problems, err = s.store.CompetitionProblems(ctx, id); err != nil {
		return nil, err
	}
	if details.Rankings, err = s.store.Rankings(ctx, id); err != nil {
		return nil, err
	}
	return details, nil
}

// GetProblem returns one problem of a competition, samples included.
func (s *CompetitionService) GetProblem(ctx context.Context, competitionID, problemID string) (*models.Problem, error) {
	p, err := s.store.GetProblem(ctx, competitionID, problemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListCompetitions returns all competitions, optionally only active ones.
func (s *CompetitionService) ListCompetitions(ctx context.Context, activeOnly bool) ([]*models.Competition, error) {
	return s.store.ListCompetitions(ctx, activeOnly)
}
