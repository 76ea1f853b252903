package models

// ActionType discriminates agent actions.
type ActionType string

// Agent action vocabulary.
const (
	ActionViewProblem    ActionType = "view_problem"
	ActionGetHint        ActionType = "get_hint"
	ActionSubmitSolution ActionType = "submit_solution"
	ActionViewRankings   ActionType = "view_rankings"
	ActionViewStatus     ActionType = "view_status"
	ActionTerminate      ActionType = "terminate"
)

// Action is the tagged variant an agent's LLM output parses into. Exactly the
// fields for the chosen Type are populated.
type Action struct {
	Type ActionType `json:"action"`

	// view_problem, get_hint, submit_solution
	ProblemID string `json:"problem_id,omitempty"`

	// submit_solution
	Code     string   `json:"code,omitempty"`
	Language Language `json:"language,omitempty"`

	// get_hint
	HintLevel         int    `json:"hint_level,omitempty"`
	HintKnowledge     string `json:"hint_knowledge,omitempty"`
	ProblemDifficulty string `json:"problem_difficulty,omitempty"`
}

// ValidActionType reports whether t is a known action type.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionViewProblem, ActionGetHint, ActionSubmitSolution,
		ActionViewRankings, ActionViewStatus, ActionTerminate:
		return true
	}
	return false
}
