package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena/pkg/models"
)

func TestParseAction_DirectJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Action
	}{
		{
			name:  "view problem",
			input: `{"action": "view_problem", "problem_id": "sum-pairs"}`,
			want:  models.Action{Type: models.ActionViewProblem, ProblemID: "sum-pairs"},
		},
		{
			name:  "get hint with knowledge query",
			input: `{"action": "get_hint", "hint_level": 2, "hint_knowledge": "binary search"}`,
			want:  models.Action{Type: models.ActionGetHint, HintLevel: 2, HintKnowledge: "binary search"},
		},
		{
			name:  "submit solution",
			input: `{"action": "submit_solution", "problem_id": "sum-pairs", "language": "cpp", "code": "int main() {}"}`,
			want: models.Action{
				Type: models.ActionSubmitSolution, ProblemID: "sum-pairs",
				Language: models.LanguageCPP, Code: "int main() {}",
			},
		},
		{
			name:  "terminate",
			input: `{"action": "terminate"}`,
			want:  models.Action{Type: models.ActionTerminate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *action)
		})
	}
}

func TestParseAction_CodeFence(t *testing.T) {
	input := "I'll look at the first problem.\n\n```json\n{\"action\": \"view_problem\", \"problem_id\": \"tree-paths\"}\n```\n"
	action, err := ParseAction(input)
	require.NoError(t, err)
	assert.Equal(t, models.ActionViewProblem, action.Type)
	assert.Equal(t, "tree-paths", action.ProblemID)
}

func TestParseAction_BareFence(t *testing.T) {
	input := "```\n{\"action\": \"view_rankings\"}\n```"
	action, err := ParseAction(input)
	require.NoError(t, err)
	assert.Equal(t, models.ActionViewRankings, action.Type)
}

func TestParseAction_EmbeddedObject(t *testing.T) {
	input := `Based on my analysis {"note": "not an action"} I will proceed:
{"action": "get_hint", "hint_level": 0} and that is my final answer.`
	action, err := ParseAction(input)
	require.NoError(t, err)
	assert.Equal(t, models.ActionGetHint, action.Type)
	assert.Equal(t, 0, action.HintLevel)
}

func TestParseAction_BracesInsideStrings(t *testing.T) {
	input := `Here: {"action": "submit_solution", "problem_id": "p1", "language": "cpp", "code": "int main() { if (x) { return 1; } }"}`
	action, err := ParseAction(input)
	require.NoError(t, err)
	assert.Equal(t, models.ActionSubmitSolution, action.Type)
	assert.Contains(t, action.Code, "return 1")
}

func TestParseAction_RegexFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.Action
	}{
		{
			name:  "view problem",
			input: "Let me view_problem: sum-pairs first.",
			want:  models.Action{Type: models.ActionViewProblem, ProblemID: "sum-pairs"},
		},
		{
			name:  "get hint",
			input: "I want to get hint: level 3 for this one.",
			want:  models.Action{Type: models.ActionGetHint, HintLevel: 3},
		},
		{
			name:  "view rankings",
			input: "Time to view rankings and see where I stand.",
			want:  models.Action{Type: models.ActionViewRankings},
		},
		{
			name:  "view status",
			input: "I should check my budget; view status.",
			want:  models.Action{Type: models.ActionViewStatus},
		},
		{
			name:  "terminate",
			input: "Nothing left to do, I terminate.",
			want:  models.Action{Type: models.ActionTerminate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *action)
		})
	}
}

func TestParseAction_NoSubmitFallback(t *testing.T) {
	// Free-text submissions are rejected: code extraction needs JSON.
	_, err := ParseAction("submit_solution for sum-pairs with code int main() {}")
	assert.Error(t, err)
}

func TestParseAction_Garbage(t *testing.T) {
	for _, input := range []string{"", "   ", "I am thinking about the problem.", `{"action": "dance"}`} {
		_, err := ParseAction(input)
		assert.Error(t, err, "input %q", input)
	}
}
