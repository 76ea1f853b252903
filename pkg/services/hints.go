package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// Hint content limits.
const (
	textbookSections = 3
	similarProblems  = 2
	sectionMaxChars  = 300
	solutionMaxChars = 500
	similarDescChars = 300
)

// HintService sells hints at five escalating levels, debiting the cost after
// the hint content is produced.
type HintService struct {
	store        *store.Store
	participants *ParticipantService
	knowledge    *Knowledge
	logger       *slog.Logger
}

// NewHintService creates a hint service.
func NewHintService(st *store.Store, participants *ParticipantService, knowledge *Knowledge) *HintService {
	return &HintService{
		store:        st,
		participants: participants,
		knowledge:    knowledge,
		logger:       slog.Default().With("service", "hint"),
	}
}

// HintRequest is the hint endpoint's input after HTTP binding.
type HintRequest struct {
	Level             int
	ProblemID         string
	HintKnowledge     string
	ProblemDifficulty string
}

// GetHint produces a hint for a running participant and debits its cost.
//
// Levels: 0 strategy document, 1 textbook by extracted keywords, 2 textbook
// by caller query, 3 similar problems with solutions, 4 guide concept lookup.
func (s *HintService) GetHint(ctx context.Context, competitionID, participantID string, req HintRequest) (*models.Hint, error) {
	if req.Level < 0 || req.Level > 4 {
		return nil, NewValidationError("level", "must be 0-4, got %d", req.Level)
	}

	p, err := s.participants.requireRunning(ctx, competitionID, participantID)
	if err != nil {
		return nil, err
	}

	comp, err := s.store.GetCompetition(ctx, competitionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cost := comp.Rules.HintCost(req.Level)
	if cost > p.RemainingTokens {
		return nil, fmt.Errorf("%w: hint level %d costs %d, %d remaining",
			ErrInsufficientTokens, req.Level, cost, p.RemainingTokens)
	}

	hint := &models.Hint{Level: req.Level, Cost: cost}
	switch req.Level {
	case 0:
		hint.Strategy = s.knowledge.Strategy
	case 1:
		if err := s.textbookHint(ctx, competitionID, req.ProblemID, hint); err != nil {
			return nil, err
		}
	case 2:
		if req.HintKnowledge == "" {
			return nil, NewValidationError("hint_knowledge", "required for level 2")
		}
		hint.Sections = s.searchTextbook(req.HintKnowledge)
	case 3:
		if err := s.similarHint(ctx, competitionID, req.ProblemID, hint); err != nil {
			return nil, err
		}
	case 4:
		if req.HintKnowledge == "" {
			return nil, NewValidationError("hint_knowledge", "required for level 4")
		}
		if !models.ValidGuideDifficulty(req.ProblemDifficulty) {
			return nil, NewValidationError("problem_difficulty",
				"must be one of bronze/silver/gold/platinum/advanced, got %q", req.ProblemDifficulty)
		}
		hint.Guide = s.guideHint(req.ProblemDifficulty, req.HintKnowledge)
	}

	updated, err := s.store.ApplyDebit(ctx, participantID, store.BucketHint, cost)
	if errors.Is(err, store.ErrAlreadyTerminated) {
		// Terminated between the running check and the debit.
		latest, gerr := s.store.GetParticipant(ctx, participantID)
		if gerr == nil {
			return nil, terminatedError(string(latest.TerminationReason))
		}
		return nil, terminatedError("")
	}
	if err != nil {
		return nil, err
	}
	hint.RemainingTokens = updated.RemainingTokens

	s.logger.Info("Hint issued",
		"participant_id", participantID,
		"level", req.Level,
		"cost", cost,
		"remaining_tokens", updated.RemainingTokens)
	return hint, nil
}

// textbookHint builds a level-1 hint: keywords extracted from the problem
// description query the textbook.
func (s *HintService) textbookHint(ctx context.Context, competitionID, problemID string, hint *models.Hint) error {
	if problemID == "" {
		return NewValidationError("problem_id", "required for level 1")
	}
	problem, err := s.store.GetProblem(ctx, competitionID, problemID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	hint.Sections = s.searchTextbook(extractKeywords(problem.Description))
	return nil
}

func (s *HintService) searchTextbook(query string) []models.HintSection {
	results := s.knowledge.textbookIndex.Search(query, textbookSections)
	sections := make([]models.HintSection, 0, len(results))
	for _, r := range results {
		article, ok := s.knowledge.Article(r.ID)
		if !ok {
			continue
		}
		sections = append(sections, models.HintSection{
			Title:   article.Title,
			Content: truncate(article.Content, sectionMaxChars),
			Score:   r.Score,
		})
	}
	return sections
}

// similarHint builds a level-3 hint: the top similar dataset problems,
// excluding everything in the asking competition, with solution snippets.
func (s *HintService) similarHint(ctx context.Context, competitionID, problemID string, hint *models.Hint) error {
	if problemID == "" {
		return NewValidationError("problem_id", "required for level 3")
	}

	inCompetition, err := s.store.CompetitionProblems(ctx, competitionID)
	if err != nil {
		return err
	}
	exclude := make(map[string]bool, len(inCompetition))
	for _, p := range inCompetition {
		exclude[p.ID] = true
	}

	results := s.knowledge.problemIndex.Similar(problemID, similarProblems, exclude)
	for _, r := range results {
		p, err := s.knowledge.problems.LoadProblem(r.ID)
		if err != nil {
			continue
		}
		item := models.SimilarItem{
			ProblemID:   r.ID,
			Title:       p.Title,
			Description: truncate(p.Description, similarDescChars),
			Score:       r.Score,
		}
		if solution, err := s.knowledge.problems.LoadSolution(r.ID); err == nil {
			item.Solution = truncate(solution, solutionMaxChars)
		}
		hint.Similar = append(hint.Similar, item)
	}
	return nil
}

// guideHint returns the best-matching concept entry under a difficulty tier.
func (s *HintService) guideHint(difficulty, query string) *models.GuideEntry {
	index, ok := s.knowledge.guideIndices[difficulty]
	if !ok {
		return nil
	}
	results := index.Search(query, 1)
	if len(results) == 0 {
		return nil
	}
	concept, ok := s.knowledge.GuideConcept(difficulty, results[0].ID)
	if !ok {
		return nil
	}
	return &models.GuideEntry{
		Difficulty:  difficulty,
		Concept:     concept.Concept,
		Explanation: concept.Explanation,
	}
}
