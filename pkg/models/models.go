// Package models holds the arena domain types shared by the store, the
// service layer, and the HTTP surface. Entities reference each other by ID
// only; the database is the join.
package models

import "time"

// Competition is a single contest: a problem set, a rule set, and a shared
// per-participant token budget.
type Competition struct {
	ID                      string     `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	StartTime               time.Time  `json:"start_time"`
	EndTime                 *time.Time `json:"end_time,omitempty"`
	MaxTokensPerParticipant int        `json:"max_tokens_per_participant"`
	Rules                   *Rules     `json:"rules"`
	IsActive                bool       `json:"is_active"`
	ParticipantCount        int        `json:"participant_count"`
	ProblemCount            int        `json:"problem_count"`
}

// Problem belongs to exactly one competition (composite key problem_id +
// competition_id). Sample cases are stored with the problem; full test cases
// are loaded from the dataset on demand and never persisted.
type Problem struct {
	ID            string `json:"id"`
	CompetitionID string `json:"competition_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Level         Level  `json:"level"`
	TimeLimitMs   int    `json:"time_limit_ms"`
	MemoryLimitMB int    `json:"memory_limit_mb"`
	// FirstToSolve is the participant ID of the first AC, set at most once.
	FirstToSolve string `json:"first_to_solve,omitempty"`
	Samples      []Case `json:"samples"`
}

// Case is a single input/expected-output pair. Sample cases are shown to
// agents; full test cases are used only by the judge.
type Case struct {
	ID       string `json:"id"`
	Input    string `json:"input"`
	Expected string `json:"expected_output"`
}

// Participant is one agent registered in a competition. Token counters obey
// llm + hint + submission + remaining = limit (remaining clamped at 0).
type Participant struct {
	ID            string `json:"id"`
	CompetitionID string `json:"competition_id"`
	Name          string `json:"name"`

	// LLM endpoint and key are opaque to the arena; the proxy forwards to them.
	LLMEndpoint string `json:"llm_endpoint,omitempty"`
	LLMKey      string `json:"-"`

	LimitTokens     int `json:"limit_tokens"`
	RemainingTokens int `json:"remaining_tokens"`
	LambdaValue     int `json:"lambda_value"`

	LLMTokens        int `json:"llm_tokens"`
	HintTokens       int `json:"hint_tokens"`
	SubmissionTokens int `json:"submission_tokens"`

	SubmissionCount   int     `json:"submission_count"`
	AcceptedCount     int     `json:"accepted_count"`
	SubmissionPenalty int     `json:"submission_penalty"`
	ProblemPassScore  int     `json:"problem_pass_score"`
	Score             float64 `json:"score"`

	IsRunning         bool              `json:"is_running"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`

	// SolvedProblems is the distinct set of problems with an AC submission.
	// Populated only on detail reads.
	SolvedProblems []string `json:"solved_problems,omitempty"`
}

// ComputeScore returns the derived score:
// problem_pass_score − submission_penalty + lambda × remaining / limit.
func (p *Participant) ComputeScore() float64 {
	if p.LimitTokens <= 0 {
		return float64(p.ProblemPassScore - p.SubmissionPenalty)
	}
	return float64(p.ProblemPassScore-p.SubmissionPenalty) +
		float64(p.LambdaValue)*float64(p.RemainingTokens)/float64(p.LimitTokens)
}

// Submission is one judged attempt. Append-only; the verdict transitions
// PENDING → final exactly once.
type Submission struct {
	ID               string       `json:"id"`
	CompetitionID    string       `json:"competition_id"`
	ParticipantID    string       `json:"participant_id"`
	ProblemID        string       `json:"problem_id"`
	Code             string       `json:"code"`
	Language         Language     `json:"language"`
	SubmittedAt      time.Time    `json:"submitted_at"`
	Status           Verdict      `json:"status"`
	PassScore        int          `json:"pass_score"`
	Penalty          int          `json:"penalty"`
	SubmissionTokens int          `json:"submission_tokens"`
	TestResults      []TestResult `json:"test_results"`
}

// TestResult records the outcome of one test case.
type TestResult struct {
	CaseID    string  `json:"case_id"`
	Verdict   Verdict `json:"verdict"`
	RuntimeMs int     `json:"runtime_ms"`
	MemoryKB  int     `json:"memory_kb"`
	Stdout    string  `json:"stdout,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RankingEntry is one row of the competition scoreboard, ordered by score
// desc then problem_pass_score desc, with dense rank.
type RankingEntry struct {
	Rank             int     `json:"rank"`
	ParticipantID    string  `json:"participant_id"`
	Name             string  `json:"name"`
	Score            float64 `json:"score"`
	ProblemPassScore int     `json:"problem_pass_score"`
	AcceptedCount    int     `json:"accepted_count"`
	SubmissionCount  int     `json:"submission_count"`
	RemainingTokens  int     `json:"remaining_tokens"`
	IsRunning        bool    `json:"is_running"`
}

// Hint is the structured response to a hint request.
type Hint struct {
	Level           int           `json:"level"`
	Cost            int           `json:"cost"`
	RemainingTokens int           `json:"remaining_tokens"`
	Strategy        string        `json:"strategy,omitempty"`
	Sections        []HintSection `json:"sections,omitempty"`
	Similar         []SimilarItem `json:"similar_problems,omitempty"`
	Guide           *GuideEntry   `json:"guide,omitempty"`
}

// HintSection is a truncated textbook section returned by hint levels 1 and 2.
type HintSection struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SimilarItem is a retrieved similar problem returned by hint level 3.
type SimilarItem struct {
	ProblemID   string  `json:"problem_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Solution    string  `json:"solution,omitempty"`
	Score       float64 `json:"score"`
}

// GuideEntry is the best-matching example-problems entry for hint level 4.
type GuideEntry struct {
	Difficulty  string `json:"difficulty"`
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}
