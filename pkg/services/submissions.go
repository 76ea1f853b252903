package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codearena/arena/pkg/dataset"
	"github.com/codearena/arena/pkg/judge"
	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// Evaluator judges a submission against its test cases. Satisfied by
// *judge.Client.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, language models.Language, problem *models.Problem, cases []models.Case) *judge.Result
}

// SubmissionService runs the submit pipeline: validate, judge against the
// sandbox, then record score and token effects in one store transaction. The
// sandbox call happens outside any transaction.
type SubmissionService struct {
	store        *store.Store
	participants *ParticipantService
	evaluator    Evaluator
	problems     *dataset.Loader
	logger       *slog.Logger
}

// NewSubmissionService creates a submission service.
func NewSubmissionService(st *store.Store, participants *ParticipantService, evaluator Evaluator, problems *dataset.Loader) *SubmissionService {
	return &SubmissionService{
		store:        st,
		participants: participants,
		evaluator:    evaluator,
		problems:     problems,
		logger:       slog.Default().With("service", "submission"),
	}
}

// SubmissionResult is what the submit endpoint returns to the agent.
type SubmissionResult struct {
	Submission *models.Submission
	Passed     int
	Total      int
	FirstAC    bool
	ScoreDelta int
	AllSolved  bool
	Remaining  int
	Feedback   string
}

// Submit judges code for a problem and records the outcome.
func (s *SubmissionService) Submit(ctx context.Context, competitionID, participantID, problemID, code string, language models.Language) (*SubmissionResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, NewValidationError("code", "must not be empty")
	}
	if !models.ValidLanguage(language) {
		return nil, NewValidationError("language", "unsupported language %q", language)
	}

	if _, err := s.participants.requireRunning(ctx, competitionID, participantID); err != nil {
		return nil, err
	}

	comp, err := s.store.GetCompetition(ctx, competitionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	problem, err := s.store.GetProblem(ctx, competitionID, problemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cases, err := s.problems.LoadTestCases(problemID)
	if err != nil {
		s.logger.Warn("Test cases unavailable, falling back to samples",
			"problem_id", problemID, "error", err)
		cases = problem.Samples
	}

	sub := &models.Submission{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		ParticipantID: participantID,
		ProblemID:     problemID,
		Code:          code,
		Language:      language,
		SubmittedAt:   time.Now(),
		Status:        models.VerdictPending,
	}

	// Judge outside any transaction; the sandbox can take seconds per case.
	verdict := s.evaluator.Evaluate(ctx, code, language, problem, cases)
	sub.Status = verdict.Verdict
	sub.TestResults = verdict.TestResults

	outcome, err := s.store.RecordSubmission(ctx, sub, comp.Rules)
	if errors.Is(err, store.ErrAlreadyTerminated) {
		// Terminated between the running check and the commit.
		latest, gerr := s.store.GetParticipant(ctx, participantID)
		if gerr == nil {
			return nil, terminatedError(string(latest.TerminationReason))
		}
		return nil, terminatedError("")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submission recorded",
		"submission_id", sub.ID,
		"participant_id", participantID,
		"problem_id", problemID,
		"verdict", sub.Status,
		"passed", verdict.Passed,
		"total", verdict.Total,
		"first_ac", outcome.FirstAC,
		"remaining_tokens", outcome.Participant.RemainingTokens)

	return &SubmissionResult{
		Submission: sub,
		Passed:     verdict.Passed,
		Total:      verdict.Total,
		FirstAC:    outcome.FirstAC,
		ScoreDelta: outcome.ScoreDelta,
		AllSolved:  outcome.AllSolved,
		Remaining:  outcome.Participant.RemainingTokens,
		Feedback:   buildFeedback(sub, verdict, outcome),
	}, nil
}

// ListSubmissions returns a participant's submissions, optionally filtered by
// problem.
func (s *SubmissionService) ListSubmissions(ctx context.Context, participantID, problemID string) ([]*models.Submission, error) {
	return s.store.ListSubmissions(ctx, participantID, problemID)
}

// buildFeedback summarizes the outcome for the agent prompt: the verdict, the
// case counts, and for rejections the first failing case with a stderr
// excerpt.
func buildFeedback(sub *models.Submission, verdict *judge.Result, outcome *store.SubmissionOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d test cases passed.", sub.Status, verdict.Passed, verdict.Total)

	if sub.Status == models.VerdictAC {
		fmt.Fprintf(&b, " Earned %d points.", sub.PassScore)
		if outcome.FirstAC {
			b.WriteString(" First to solve this problem!")
		}
		if outcome.AllSolved {
			b.WriteString(" All problems solved; participant finished.")
		}
		return b.String()
	}

	fmt.Fprintf(&b, " Penalty %d.", sub.Penalty)
	for i, tr := range verdict.TestResults {
		if tr.Verdict == models.VerdictAC {
			continue
		}
		fmt.Fprintf(&b, " First failure at case %d (%s)", i+1, tr.Verdict)
		if tr.Error != "" {
			fmt.Fprintf(&b, ": %s", truncate(tr.Error, 200))
		}
		b.WriteString(".")
		break
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
