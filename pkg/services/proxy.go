package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// maxLLMResponseBytes bounds how much of a provider response is read.
const maxLLMResponseBytes = 16 << 20

// ProxyService forwards agent chat requests to the participant's own LLM
// provider, meters the real tokens consumed, applies the competition's
// per-model multipliers, and debits the budget.
type ProxyService struct {
	store        *store.Store
	participants *ParticipantService
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewProxyService creates an LLM proxy. timeout is the per-call ceiling;
// provider calls can legitimately run for minutes.
func NewProxyService(st *store.Store, participants *ParticipantService, timeout time.Duration) *ProxyService {
	return &ProxyService{
		store:        st,
		participants: participants,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       slog.Default().With("service", "llm_proxy"),
	}
}

// ProxyResult carries the provider response and the post-debit token state.
type ProxyResult struct {
	// Responses holds the provider body verbatim as a one-element array.
	Responses []json.RawMessage
	// TokensUsed is the multiplied arena-token debit for this call.
	TokensUsed int
	Remaining  int
	Terminated bool
}

// llmUsage mirrors the usage block of a chat-completions response.
type llmUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	Details          struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

// Call forwards the chat-completions body to the participant's provider and
// debits the metered tokens. The paid-for response is returned even when the
// debit exhausts the budget and terminates the participant; a transport or
// parse failure debits nothing.
func (s *ProxyService) Call(ctx context.Context, competitionID, participantID string, body []byte) (*ProxyResult, error) {
	p, err := s.participants.requireRunning(ctx, competitionID, participantID)
	if err != nil {
		return nil, err
	}
	if p.LLMEndpoint == "" {
		return nil, NewValidationError("llm_endpoint", "participant has no LLM endpoint configured")
	}

	comp, err := s.store.GetCompetition(ctx, competitionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var inbound struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &inbound); err != nil {
		return nil, NewValidationError("body", "not valid JSON: %v", err)
	}

	respBody, err := s.forward(ctx, p, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamLLM, err)
	}

	var parsed struct {
		Usage llmUsage `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: provider returned non-JSON body", ErrUpstreamLLM)
	}

	debit := meterTokens(parsed.Usage, inbound.Model, comp.Rules)

	updated, err := s.store.ApplyDebit(ctx, participantID, store.BucketLLM, debit)
	if errors.Is(err, store.ErrAlreadyTerminated) {
		// Terminated while the provider call was in flight; the frozen
		// participant is never debited.
		latest, gerr := s.store.GetParticipant(ctx, participantID)
		if gerr == nil {
			return nil, terminatedError(string(latest.TerminationReason))
		}
		return nil, terminatedError("")
	}
	if err != nil {
		return nil, err
	}

	terminated := !updated.IsRunning
	if terminated {
		s.logger.Info("LLM call exhausted the budget",
			"participant_id", participantID,
			"tokens_used", debit)
	}

	return &ProxyResult{
		Responses:  []json.RawMessage{json.RawMessage(respBody)},
		TokensUsed: debit,
		Remaining:  updated.RemainingTokens,
		Terminated: terminated,
	}, nil
}

// meterTokens converts real provider usage to arena tokens: reasoning folds
// into completion, per-model multipliers apply, rounding toward zero.
func meterTokens(usage llmUsage, model string, rules *models.Rules) int {
	prompt := float64(usage.PromptTokens) * rules.InputMultiplier(model)
	completion := float64(usage.CompletionTokens+usage.Details.ReasoningTokens) * rules.OutputMultiplier(model)
	return int(prompt) + int(completion)
}

// forward POSTs the body to the participant's endpoint with its key.
func (s *ProxyService) forward(ctx context.Context, p *models.Participant, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.LLMEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.LLMKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.LLMKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider at %s: %w", p.LLMEndpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLLMResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, truncate(string(data), 300))
	}
	return data, nil
}
