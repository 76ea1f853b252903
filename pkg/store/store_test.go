package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCompetition(t *testing.T, s *Store, problemIDs ...string) *models.Competition {
	t.Helper()
	comp := &models.Competition{
		ID:                      uuid.NewString(),
		Title:                   "Test Cup",
		StartTime:               time.Now(),
		MaxTokensPerParticipant: 10000,
		Rules:                   models.DefaultRules(),
		IsActive:                true,
	}
	var problems []*models.Problem
	for _, id := range problemIDs {
		problems = append(problems, &models.Problem{
			ID:            id,
			CompetitionID: comp.ID,
			Title:         "Problem " + id,
			Level:         models.LevelBronze,
			TimeLimitMs:   1000,
			MemoryLimitMB: 256,
			Samples:       []models.Case{{ID: id + "-sample-1", Input: "1\n", Expected: "1\n"}},
		})
	}
	require.NoError(t, s.CreateCompetition(context.Background(), comp, problems))
	return comp
}

func seedParticipant(t *testing.T, s *Store, comp *models.Competition, name string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:              uuid.NewString(),
		CompetitionID:   comp.ID,
		Name:            name,
		LimitTokens:     comp.MaxTokensPerParticipant,
		RemainingTokens: comp.MaxTokensPerParticipant,
		LambdaValue:     comp.Rules.Lambda,
		IsRunning:       true,
	}
	require.NoError(t, s.CreateParticipant(context.Background(), p))
	return p
}

func acSubmission(comp *models.Competition, p *models.Participant, problemID string) *models.Submission {
	return &models.Submission{
		ID:            uuid.NewString(),
		CompetitionID: comp.ID,
		ParticipantID: p.ID,
		ProblemID:     problemID,
		Code:          "int main() {}",
		Language:      models.LanguageCPP,
		SubmittedAt:   time.Now(),
		Status:        models.VerdictAC,
		TestResults:   []models.TestResult{{CaseID: "c1", Verdict: models.VerdictAC}},
	}
}

func TestStore_Competitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		comp := seedCompetition(t, s, "p1", "p2")

		got, err := s.GetCompetition(ctx, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, comp.Title, got.Title)
		assert.Equal(t, 2, got.ProblemCount)
		assert.Equal(t, 0, got.ParticipantCount)
		assert.Equal(t, 100, got.Rules.BaseScore(models.LevelBronze))

		problems, err := s.CompetitionProblems(ctx, comp.ID)
		require.NoError(t, err)
		require.Len(t, problems, 2)
		assert.Equal(t, "p1", problems[0].ID)
		require.Len(t, problems[0].Samples, 1)

		p, err := s.GetProblem(ctx, comp.ID, "p2")
		require.NoError(t, err)
		assert.Empty(t, p.FirstToSolve)
	})

	t.Run("zero problems rejected", func(t *testing.T) {
		err := s.CreateCompetition(ctx, &models.Competition{ID: "empty", Rules: models.DefaultRules()}, nil)
		assert.Error(t, err)
	})

	t.Run("missing competition is ErrNotFound", func(t *testing.T) {
		_, err := s.GetCompetition(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("active filter", func(t *testing.T) {
		comps, err := s.ListCompetitions(ctx, true)
		require.NoError(t, err)
		for _, c := range comps {
			assert.True(t, c.IsActive)
		}
	})
}

func TestStore_Participants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	comp := seedCompetition(t, s, "p1")

	t.Run("create bumps participant count", func(t *testing.T) {
		seedParticipant(t, s, comp, "alice")
		got, err := s.GetCompetition(ctx, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ParticipantCount)
	})

	t.Run("create for missing competition fails", func(t *testing.T) {
		err := s.CreateParticipant(ctx, &models.Participant{
			ID: uuid.NewString(), CompetitionID: "nope", Name: "ghost",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("initial score includes full lambda bonus", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "bob")
		got, err := s.GetParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.InDelta(t, float64(comp.Rules.Lambda), got.Score, 1e-9)
		assert.True(t, got.IsRunning)
	})

	t.Run("terminate is idempotent and keeps the first reason", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "carol")
		require.NoError(t, s.TerminateParticipant(ctx, p.ID, models.ReasonManualTermination))
		require.NoError(t, s.TerminateParticipant(ctx, p.ID, models.ReasonTimeout))

		got, err := s.GetParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRunning)
		assert.Equal(t, models.ReasonManualTermination, got.TerminationReason)
	})

	t.Run("terminate missing participant", func(t *testing.T) {
		err := s.TerminateParticipant(ctx, "nope", models.ReasonError)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ApplyDebit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	comp := seedCompetition(t, s, "p1")

	t.Run("debits land in the right bucket", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "alice")

		got, err := s.ApplyDebit(ctx, p.ID, BucketLLM, 300)
		require.NoError(t, err)
		assert.Equal(t, 300, got.LLMTokens)
		assert.Equal(t, 9700, got.RemainingTokens)

		got, err = s.ApplyDebit(ctx, p.ID, BucketHint, 500)
		require.NoError(t, err)
		assert.Equal(t, 500, got.HintTokens)
		assert.Equal(t, 9200, got.RemainingTokens)
		assert.True(t, got.IsRunning)
	})

	t.Run("exhausting the budget clamps and terminates", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "bob")

		got, err := s.ApplyDebit(ctx, p.ID, BucketLLM, p.LimitTokens+999)
		require.NoError(t, err)
		assert.Equal(t, 0, got.RemainingTokens)
		assert.False(t, got.IsRunning)
		assert.Equal(t, models.ReasonOutOfTokens, got.TerminationReason)

		stored, err := s.GetParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsRunning)
		assert.Equal(t, models.ReasonOutOfTokens, stored.TerminationReason)
	})

	t.Run("terminated participant is frozen", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "eve")
		require.NoError(t, s.TerminateParticipant(ctx, p.ID, models.ReasonManualTermination))

		_, err := s.ApplyDebit(ctx, p.ID, BucketLLM, 500)
		assert.ErrorIs(t, err, ErrAlreadyTerminated)

		stored, err := s.GetParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.LLMTokens)
		assert.Equal(t, p.LimitTokens, stored.RemainingTokens)
	})

	t.Run("zero-token debit is allowed", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "carol")
		got, err := s.ApplyDebit(ctx, p.ID, BucketSubmission, 0)
		require.NoError(t, err)
		assert.Equal(t, p.LimitTokens, got.RemainingTokens)
	})

	t.Run("negative debit rejected", func(t *testing.T) {
		p := seedParticipant(t, s, comp, "dave")
		_, err := s.ApplyDebit(ctx, p.ID, BucketLLM, -1)
		assert.Error(t, err)
	})
}

func TestStore_RecordSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("first AC gets base score plus bonus", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1", "p2")
		p := seedParticipant(t, s, comp, "alice")

		outcome, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		require.NoError(t, err)
		assert.True(t, outcome.FirstAC)
		assert.Equal(t, 200, outcome.ScoreDelta) // 100 base + 100 bonus
		assert.Equal(t, 200, outcome.Participant.ProblemPassScore)
		assert.Equal(t, 1, outcome.Participant.AcceptedCount)
		assert.Equal(t, 100, outcome.Participant.SubmissionTokens)
		assert.False(t, outcome.AllSolved)

		problem, err := s.GetProblem(ctx, comp.ID, "p1")
		require.NoError(t, err)
		assert.Equal(t, p.ID, problem.FirstToSolve)
	})

	t.Run("second solver gets base score only", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1", "p2")
		first := seedParticipant(t, s, comp, "alice")
		second := seedParticipant(t, s, comp, "bob")

		_, err := s.RecordSubmission(ctx, acSubmission(comp, first, "p1"), comp.Rules)
		require.NoError(t, err)

		outcome, err := s.RecordSubmission(ctx, acSubmission(comp, second, "p1"), comp.Rules)
		require.NoError(t, err)
		assert.False(t, outcome.FirstAC)
		assert.Equal(t, 100, outcome.ScoreDelta)
	})

	t.Run("repeat AC on the same problem credits nothing", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1", "p2")
		p := seedParticipant(t, s, comp, "alice")

		_, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		require.NoError(t, err)

		outcome, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ScoreDelta)
		assert.Equal(t, 200, outcome.Participant.ProblemPassScore)
		assert.Equal(t, 2, outcome.Participant.AcceptedCount)
	})

	t.Run("rejected submission applies penalty and cost", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1")
		p := seedParticipant(t, s, comp, "alice")

		sub := acSubmission(comp, p, "p1")
		sub.Status = models.VerdictWA
		outcome, err := s.RecordSubmission(ctx, sub, comp.Rules)
		require.NoError(t, err)
		assert.Equal(t, 10, outcome.Participant.SubmissionPenalty)
		assert.Equal(t, 0, outcome.Participant.ProblemPassScore)
		assert.Equal(t, 1, outcome.Participant.SubmissionCount)
		assert.Equal(t, 0, outcome.Participant.AcceptedCount)
		assert.Equal(t, 9900, outcome.Participant.RemainingTokens)

		problem, err := s.GetProblem(ctx, comp.ID, "p1")
		require.NoError(t, err)
		assert.Empty(t, problem.FirstToSolve)
	})

	t.Run("submission cost can exhaust the budget", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1")
		p := seedParticipant(t, s, comp, "alice")

		// Burn down to less than one submission's cost.
		_, err := s.ApplyDebit(ctx, p.ID, BucketLLM, p.LimitTokens-50)
		require.NoError(t, err)

		sub := acSubmission(comp, p, "p1")
		sub.Status = models.VerdictWA
		outcome, err := s.RecordSubmission(ctx, sub, comp.Rules)
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.Participant.RemainingTokens)
		assert.False(t, outcome.Participant.IsRunning)
		assert.Equal(t, models.ReasonOutOfTokens, outcome.Participant.TerminationReason)
	})

	t.Run("solving every problem terminates the participant", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1", "p2")
		p := seedParticipant(t, s, comp, "alice")

		_, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		require.NoError(t, err)

		outcome, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p2"), comp.Rules)
		require.NoError(t, err)
		assert.True(t, outcome.AllSolved)

		got, err := s.GetParticipant(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRunning)
		assert.Equal(t, models.ReasonAllProblemsSolved, got.TerminationReason)

		solved, err := s.SolvedProblemIDs(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2"}, solved)
	})

	t.Run("terminated participant cannot submit", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1")
		p := seedParticipant(t, s, comp, "alice")
		require.NoError(t, s.TerminateParticipant(ctx, p.ID, models.ReasonManualTermination))

		_, err := s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		assert.ErrorIs(t, err, ErrAlreadyTerminated)
	})

	t.Run("pending verdict rejected", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1")
		p := seedParticipant(t, s, comp, "alice")

		sub := acSubmission(comp, p, "p1")
		sub.Status = models.VerdictPending
		_, err := s.RecordSubmission(ctx, sub, comp.Rules)
		assert.Error(t, err)
	})

	t.Run("list submissions newest first with problem filter", func(t *testing.T) {
		s := openTestStore(t)
		comp := seedCompetition(t, s, "p1", "p2")
		p := seedParticipant(t, s, comp, "alice")

		older := acSubmission(comp, p, "p1")
		older.SubmittedAt = time.Now().Add(-time.Minute)
		older.Status = models.VerdictWA
		_, err := s.RecordSubmission(ctx, older, comp.Rules)
		require.NoError(t, err)
		_, err = s.RecordSubmission(ctx, acSubmission(comp, p, "p1"), comp.Rules)
		require.NoError(t, err)
		_, err = s.RecordSubmission(ctx, acSubmission(comp, p, "p2"), comp.Rules)
		require.NoError(t, err)

		subs, err := s.ListSubmissions(ctx, p.ID, "p1")
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, models.VerdictAC, subs[0].Status)
		assert.Equal(t, models.VerdictWA, subs[1].Status)

		all, err := s.ListSubmissions(ctx, p.ID, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStore_Rankings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	comp := seedCompetition(t, s, "p1", "p2", "p3")

	alice := seedParticipant(t, s, comp, "alice")
	bob := seedParticipant(t, s, comp, "bob")
	carol := seedParticipant(t, s, comp, "carol")

	// alice solves p1 first; bob solves p1 second; carol never submits.
	_, err := s.RecordSubmission(ctx, acSubmission(comp, alice, "p1"), comp.Rules)
	require.NoError(t, err)
	_, err = s.RecordSubmission(ctx, acSubmission(comp, bob, "p1"), comp.Rules)
	require.NoError(t, err)

	entries, err := s.Rankings(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "alice", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "bob", entries[1].Name)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "carol", entries[2].Name)
	assert.Equal(t, carol.ID, entries[2].ParticipantID)
	assert.Equal(t, 3, entries[2].Rank)
	assert.Greater(t, entries[0].Score, entries[1].Score)
}

func TestStore_RankingsDenseRank(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	comp := seedCompetition(t, s, "p1")

	// Two untouched participants tie at the full lambda bonus.
	seedParticipant(t, s, comp, "alice")
	seedParticipant(t, s, comp, "bob")

	entries, err := s.Rankings(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1, entries[1].Rank)
}
