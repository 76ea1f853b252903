package api

import "github.com/codearena/arena/pkg/models"

// CreateCompetitionRequest is the body of POST /competitions/create.
type CreateCompetitionRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ProblemIDs  []string      `json:"problem_ids"`
	MaxTokens   int           `json:"max_tokens"`
	Rules       *models.Rules `json:"rules,omitempty"`
}

// CreateParticipantRequest is the body of POST /participants/create/:competition_id.
type CreateParticipantRequest struct {
	Name        string `json:"name"`
	LLMEndpoint string `json:"llm_endpoint"`
	LLMKey      string `json:"llm_key"`
	LimitTokens int    `json:"limit_tokens"`
	Lambda      int    `json:"lambda"`
}

// CreateSubmissionRequest is the body of POST /submissions/create/....
type CreateSubmissionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// HintRequest is the body of POST /hints/get/....
type HintRequest struct {
	Level             int    `json:"level"`
	ProblemID         string `json:"problem_id,omitempty"`
	HintKnowledge     string `json:"hint_knowledge,omitempty"`
	ProblemDifficulty string `json:"problem_difficulty,omitempty"`
}

// TerminateRequest is the body of POST /participants/terminate/....
type TerminateRequest struct {
	Reason string `json:"reason"`
}
