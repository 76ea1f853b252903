package api

import (
	"encoding/json"

	"github.com/codearena/arena/pkg/models"
)

// CreateCompetitionResponse is returned by POST /competitions/create.
type CreateCompetitionResponse struct {
	Competition *models.Competition `json:"competition"`
	MissingIDs  []string            `json:"missing_problem_ids,omitempty"`
}

// CompetitionResponse is returned by GET /competitions/:id.
type CompetitionResponse struct {
	Competition  *models.Competition   `json:"competition"`
	Participants []*models.Participant `json:"participants,omitempty"`
	Problems     []*models.Problem     `json:"problems,omitempty"`
	Rankings     []models.RankingEntry `json:"rankings,omitempty"`
}

// SubmissionResponse is returned by POST /submissions/create/....
type SubmissionResponse struct {
	SubmissionID    string  `json:"submission_id"`
	Verdict         string  `json:"verdict"`
	PassScore       int     `json:"pass_score"`
	Penalty         int     `json:"penalty"`
	Passed          int     `json:"tests_passed"`
	Total           int     `json:"tests_total"`
	FirstAC         bool    `json:"first_ac"`
	AllSolved       bool    `json:"all_solved"`
	RemainingTokens int     `json:"remaining_tokens"`
	Feedback        string  `json:"feedback"`
}

// RankingsResponse is returned by GET /rankings/get/:competition_id.
type RankingsResponse struct {
	CompetitionID string                `json:"competition_id"`
	Rankings      []models.RankingEntry `json:"rankings"`
}

// AgentCallResponse is returned by POST /agent/call/....
type AgentCallResponse struct {
	Responses       []json.RawMessage `json:"responses"`
	TokensUsed      int               `json:"tokens_used"`
	RemainingTokens int               `json:"remaining_tokens"`
	Terminated      bool              `json:"terminated"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Checks   map[string]HealthCheck `json:"checks"`
	Problems int                    `json:"problems"`
}

// HealthCheck is one component's health verdict.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
