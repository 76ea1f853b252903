package agent

import (
	"fmt"
	"strings"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/models"
)

// systemPrompt frames the game once per conversation; the per-turn state
// travels in user messages.
const systemPrompt = `You are a competitor in a programming contest arena.
You act by replying with exactly one JSON object, no other text:

  {"action": "view_problem", "problem_id": "<id>"}
  {"action": "get_hint", "hint_level": <0-4>, "problem_id": "<id>", "hint_knowledge": "<query>", "problem_difficulty": "<tier>"}
  {"action": "submit_solution", "problem_id": "<id>", "language": "cpp|py12|java21", "code": "<full source>"}
  {"action": "view_rankings"}
  {"action": "view_status"}
  {"action": "terminate"}

Every action costs tokens from a shared budget. Running out of tokens ends
your run. Solve problems to score; wrong submissions carry penalties; unused
tokens earn a bonus. Spend wisely.`

// buildStatePrompt renders the current competition state, the participant's
// counters, and the last action's result into one user message.
func buildStatePrompt(comp *api.CompetitionResponse, p *models.Participant, lastResult string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Competition: %s\n", comp.Competition.Title)
	fmt.Fprintf(&b, "Problems (%d):\n", len(comp.Problems))
	solved := map[string]bool{}
	for _, id := range p.SolvedProblems {
		solved[id] = true
	}
	for _, problem := range comp.Problems {
		marker := " "
		if solved[problem.ID] {
			marker = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s (%s, %s)\n", marker, problem.ID, problem.Title, problem.Level)
	}

	rules := comp.Competition.Rules
	if rules != nil {
		b.WriteString("\n## Rules\n")
		fmt.Fprintf(&b, "Base scores: bronze=%d silver=%d gold=%d platinum=%d, first-AC bonus=%d\n",
			rules.BaseScore(models.LevelBronze), rules.BaseScore(models.LevelSilver),
			rules.BaseScore(models.LevelGold), rules.BaseScore(models.LevelPlatinum),
			rules.BonusForFirstAC)
		fmt.Fprintf(&b, "Wrong-submission penalty: %d points. Submission cost: %d tokens. Hint costs: %v\n",
			rules.Penalty(models.VerdictWA), rules.SubmissionCost(models.VerdictWA), rules.HintTokens)
	}

	b.WriteString("\n## Your status\n")
	fmt.Fprintf(&b, "Remaining tokens: %d / %d\n", p.RemainingTokens, p.LimitTokens)
	fmt.Fprintf(&b, "Score: %.2f (pass score %d, penalty %d)\n", p.Score, p.ProblemPassScore, p.SubmissionPenalty)
	fmt.Fprintf(&b, "Submissions: %d (%d accepted). Solved: %d/%d\n",
		p.SubmissionCount, p.AcceptedCount, len(p.SolvedProblems), len(comp.Problems))

	if lastResult != "" {
		b.WriteString("\n## Last action result\n")
		b.WriteString(lastResult)
		b.WriteString("\n")
	}

	b.WriteString("\nReply with your next action as a single JSON object.")
	return b.String()
}

// renderProblem formats a problem statement for the conversation.
func renderProblem(p *models.Problem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem %s: %s (%s)\n", p.ID, p.Title, p.Level)
	fmt.Fprintf(&b, "Time limit: %d ms, memory limit: %d MB\n\n", p.TimeLimitMs, p.MemoryLimitMB)
	b.WriteString(p.Description)
	for i, c := range p.Samples {
		fmt.Fprintf(&b, "\n\nSample %d input:\n%s\nSample %d output:\n%s", i+1, c.Input, i+1, c.Expected)
	}
	return b.String()
}

// renderHint formats a hint response for the conversation.
func renderHint(h *models.Hint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hint (level %d, cost %d tokens, %d remaining):\n", h.Level, h.Cost, h.RemainingTokens)
	if h.Strategy != "" {
		b.WriteString(h.Strategy)
	}
	for _, s := range h.Sections {
		fmt.Fprintf(&b, "\n### %s\n%s\n", s.Title, s.Content)
	}
	for _, sim := range h.Similar {
		fmt.Fprintf(&b, "\n### Similar problem: %s\n%s\nSolution:\n%s\n", sim.Title, sim.Description, sim.Solution)
	}
	if h.Guide != nil {
		fmt.Fprintf(&b, "\n### %s (%s)\n%s\n", h.Guide.Concept, h.Guide.Difficulty, h.Guide.Explanation)
	}
	return b.String()
}

// renderRankings formats the scoreboard for the conversation.
func renderRankings(r *api.RankingsResponse) string {
	var b strings.Builder
	b.WriteString("Current rankings:\n")
	for _, e := range r.Rankings {
		fmt.Fprintf(&b, "%d. %s: score %.2f, solved %d, tokens left %d\n",
			e.Rank, e.Name, e.Score, e.AcceptedCount, e.RemainingTokens)
	}
	return b.String()
}
