// Package agent runs one LLM-driven competitor: it perceives arena state over
// the action HTTP protocol, asks the participant's LLM what to do next,
// parses the reply into an action, and executes it. Drivers share nothing in
// process; the arena service is the only channel between them.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/models"
)

// ArenaClient is the driver's HTTP access to the arena service.
type ArenaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewArenaClient creates a client for the arena at baseURL. llmTimeout bounds
// the proxied LLM call, which dominates every other request by orders of
// magnitude.
func NewArenaClient(baseURL string, llmTimeout time.Duration) *ArenaClient {
	return &ArenaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: llmTimeout},
	}
}

// CreateCompetition creates a competition. Organizer-side.
func (c *ArenaClient) CreateCompetition(ctx context.Context, req api.CreateCompetitionRequest) (*api.CreateCompetitionResponse, error) {
	var resp api.CreateCompetitionResponse
	if err := c.post(ctx, "/competitions/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateParticipant registers a participant in a competition. Organizer-side.
func (c *ArenaClient) CreateParticipant(ctx context.Context, competitionID string, req api.CreateParticipantRequest) (*models.Participant, error) {
	var p models.Participant
	path := fmt.Sprintf("/participants/create/%s", competitionID)
	if err := c.post(ctx, path, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Participant fetches a participant's current state with solved problems.
func (c *ArenaClient) Participant(ctx context.Context, competitionID, participantID string) (*models.Participant, error) {
	var p models.Participant
	path := fmt.Sprintf("/participants/%s/%s?include_solved=true", competitionID, participantID)
	if err := c.get(ctx, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Competition fetches a competition with its problem list.
func (c *ArenaClient) Competition(ctx context.Context, competitionID string) (*api.CompetitionResponse, error) {
	var resp api.CompetitionResponse
	path := fmt.Sprintf("/competitions/%s?include_details=true", competitionID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Problem fetches one problem statement with samples.
func (c *ArenaClient) Problem(ctx context.Context, competitionID, problemID string) (*models.Problem, error) {
	var p models.Problem
	path := fmt.Sprintf("/problems/%s/%s", competitionID, problemID)
	if err := c.get(ctx, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Submit sends a solution for judging.
func (c *ArenaClient) Submit(ctx context.Context, competitionID, participantID, problemID, code string, language models.Language) (*api.SubmissionResponse, error) {
	var resp api.SubmissionResponse
	path := fmt.Sprintf("/submissions/create/%s/%s/%s", competitionID, participantID, problemID)
	err := c.post(ctx, path, api.CreateSubmissionRequest{Code: code, Language: string(language)}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Hint buys a hint.
func (c *ArenaClient) Hint(ctx context.Context, competitionID, participantID string, req api.HintRequest) (*models.Hint, error) {
	var hint models.Hint
	path := fmt.Sprintf("/hints/get/%s/%s", competitionID, participantID)
	if err := c.post(ctx, path, req, &hint); err != nil {
		return nil, err
	}
	return &hint, nil
}

// Rankings fetches the scoreboard.
func (c *ArenaClient) Rankings(ctx context.Context, competitionID string) (*api.RankingsResponse, error) {
	var resp api.RankingsResponse
	path := fmt.Sprintf("/rankings/get/%s", competitionID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Terminate stops the participant with the given reason.
func (c *ArenaClient) Terminate(ctx context.Context, competitionID, participantID string, reason models.TerminationReason) error {
	path := fmt.Sprintf("/participants/terminate/%s/%s", competitionID, participantID)
	return c.post(ctx, path, api.TerminateRequest{Reason: string(reason)}, nil)
}

// CallLLM proxies a chat-completions request through the arena.
func (c *ArenaClient) CallLLM(ctx context.Context, competitionID, participantID string, body any) (*api.AgentCallResponse, error) {
	var resp api.AgentCallResponse
	path := fmt.Sprintf("/agent/call/%s/%s", competitionID, participantID)
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ArenaClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *ArenaClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *ArenaClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call arena at %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read arena response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp api.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Message != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Message}
		}
		return &APIError{Status: resp.StatusCode, Message: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode arena response: %w", err)
	}
	return nil
}

// APIError is a non-2xx arena response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arena returned HTTP %d: %s", e.Status, e.Message)
}
