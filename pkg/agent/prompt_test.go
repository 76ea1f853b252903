package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/models"
)

func TestBuildStatePrompt(t *testing.T) {
	comp := &api.CompetitionResponse{
		Competition: &models.Competition{Title: "Test Cup", Rules: models.DefaultRules()},
		Problems: []*models.Problem{
			{ID: "sum-pairs", Title: "Sum of Pairs", Level: models.LevelBronze},
			{ID: "graph-flow", Title: "Graph Flow", Level: models.LevelSilver},
		},
	}
	p := &models.Participant{
		LimitTokens: 10000, RemainingTokens: 8200, Score: 282.0,
		ProblemPassScore: 200, SubmissionCount: 2, AcceptedCount: 1,
		SolvedProblems: []string{"sum-pairs"},
	}

	prompt := buildStatePrompt(comp, p, "AC: 2/2 test cases passed.")

	assert.Contains(t, prompt, "## Competition: Test Cup")
	assert.Contains(t, prompt, "[x] sum-pairs")
	assert.Contains(t, prompt, "[ ] graph-flow")
	assert.Contains(t, prompt, "Remaining tokens: 8200 / 10000")
	assert.Contains(t, prompt, "## Last action result\nAC: 2/2 test cases passed.")
}

func TestRenderRankings(t *testing.T) {
	out := renderRankings(&api.RankingsResponse{
		Rankings: []models.RankingEntry{
			{Rank: 1, Name: "alice", Score: 299.5, AcceptedCount: 2, RemainingTokens: 9500},
			{Rank: 2, Name: "bob", Score: 100, AcceptedCount: 0, RemainingTokens: 10000},
		},
	})

	assert.Contains(t, out, "1. alice: score 299.50, solved 2, tokens left 9500")
	assert.Contains(t, out, "2. bob: score 100.00, solved 0, tokens left 10000")
	// Conversation text stays plain ASCII for every provider tokenizer.
	for _, r := range out {
		assert.Less(t, r, rune(128), "non-ASCII rune in rankings output")
	}
}
