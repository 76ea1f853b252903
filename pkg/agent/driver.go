package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/models"
)

// chatMessage is one turn of the LLM conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranscriptEntry records one executed action for the results document.
type TranscriptEntry struct {
	Turn   int    `json:"turn"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
	Result string `json:"result,omitempty"`
}

// Driver runs one participant's perceive-act loop against the arena.
type Driver struct {
	client        *ArenaClient
	competitionID string
	participantID string
	model         string

	maxTurns        int
	maxParseRetries int
	wallTime        time.Duration

	history    []chatMessage
	transcript []TranscriptEntry
	logger     *slog.Logger
}

// Options bounds a driver run.
type Options struct {
	// Model names the provider model in proxied chat requests.
	Model string
	// MaxTurns caps perceive-act iterations; it also sizes the history
	// window (MaxTurns × 2 messages plus the system prompt).
	MaxTurns int
	// MaxParseRetries bounds consecutive unparseable LLM replies before the
	// participant is terminated with reason error.
	MaxParseRetries int
	// WallTime is the wall-clock budget; exceeding it terminates the
	// participant with reason timeout.
	WallTime time.Duration
}

// NewDriver creates a driver for one participant.
func NewDriver(client *ArenaClient, competitionID, participantID string, opts Options) *Driver {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 30
	}
	if opts.MaxParseRetries <= 0 {
		opts.MaxParseRetries = 3
	}
	return &Driver{
		client:          client,
		competitionID:   competitionID,
		participantID:   participantID,
		model:           opts.Model,
		maxTurns:        opts.MaxTurns,
		maxParseRetries: opts.MaxParseRetries,
		wallTime:        opts.WallTime,
		logger: slog.Default().With(
			"component", "driver",
			"participant_id", participantID),
	}
}

// Transcript returns the executed actions so far.
func (d *Driver) Transcript() []TranscriptEntry {
	return d.transcript
}

// Run drives the participant until it stops running, the turn cap is hit, or
// the wall-time budget expires. The returned error covers driver-side
// failures only; a participant losing (out of tokens etc.) is a normal exit.
func (d *Driver) Run(ctx context.Context) error {
	start := time.Now()
	parseFailures := 0
	lastResult := ""

	for turn := 1; turn <= d.maxTurns; turn++ {
		if d.wallTime > 0 && time.Since(start) > d.wallTime {
			d.logger.Warn("Wall-time budget exceeded", "elapsed", time.Since(start))
			return d.terminate(ctx, models.ReasonTimeout)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := d.client.Participant(ctx, d.competitionID, d.participantID)
		if err != nil {
			return fmt.Errorf("fetch participant state: %w", err)
		}
		if !p.IsRunning {
			d.logger.Info("Participant no longer running", "reason", p.TerminationReason)
			return nil
		}

		comp, err := d.client.Competition(ctx, d.competitionID)
		if err != nil {
			return fmt.Errorf("fetch competition state: %w", err)
		}

		reply, err := d.callLLM(ctx, buildStatePrompt(comp, p, lastResult))
		if err != nil {
			// Terminated mid-call (e.g. the call itself exhausted the
			// budget) is a normal exit.
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == 403 {
				return nil
			}
			d.logger.Error("LLM call failed", "error", err)
			return d.terminate(ctx, models.ReasonError)
		}

		action, err := ParseAction(reply)
		if err != nil {
			parseFailures++
			d.logger.Warn("Unparseable LLM reply", "failures", parseFailures, "error", err)
			if parseFailures >= d.maxParseRetries {
				return d.terminate(ctx, models.ReasonError)
			}
			lastResult = "Your reply could not be parsed. Answer with exactly one JSON action object."
			continue
		}
		parseFailures = 0

		lastResult = d.execute(ctx, turn, action)
		if action.Type == models.ActionTerminate {
			return nil
		}
	}

	d.logger.Info("Turn cap reached", "max_turns", d.maxTurns)
	return nil
}

// callLLM sends the capped conversation through the arena proxy and returns
// the assistant's text.
func (d *Driver) callLLM(ctx context.Context, statePrompt string) (string, error) {
	d.history = append(d.history, chatMessage{Role: "user", Content: statePrompt})
	d.trimHistory()

	messages := make([]chatMessage, 0, len(d.history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, d.history...)

	resp, err := d.client.CallLLM(ctx, d.competitionID, d.participantID, map[string]any{
		"model":    d.model,
		"messages": messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("empty proxy response")
	}

	var provider struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Responses[0], &provider); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	if len(provider.Choices) == 0 {
		return "", fmt.Errorf("provider response has no choices")
	}

	content := provider.Choices[0].Message.Content
	d.history = append(d.history, chatMessage{Role: "assistant", Content: content})
	return content, nil
}

// trimHistory keeps the most recent maxTurns×2 user/assistant messages. The
// system prompt is prepended separately on each call.
func (d *Driver) trimHistory() {
	max := d.maxTurns * 2
	if len(d.history) > max {
		d.history = d.history[len(d.history)-max:]
	}
}

// execute performs one parsed action and returns the result text fed back to
// the LLM next turn.
func (d *Driver) execute(ctx context.Context, turn int, action *models.Action) string {
	entry := TranscriptEntry{Turn: turn, Action: string(action.Type), Detail: action.ProblemID}
	defer func() { d.transcript = append(d.transcript, entry) }()

	result := func(format string, args ...any) string {
		entry.Result = fmt.Sprintf(format, args...)
		return entry.Result
	}

	switch action.Type {
	case models.ActionViewProblem:
		p, err := d.client.Problem(ctx, d.competitionID, action.ProblemID)
		if err != nil {
			return result("view_problem failed: %v", err)
		}
		return result("%s", renderProblem(p))

	case models.ActionGetHint:
		hint, err := d.client.Hint(ctx, d.competitionID, d.participantID, hintRequest(action))
		if err != nil {
			return result("get_hint failed: %v", err)
		}
		return result("%s", renderHint(hint))

	case models.ActionSubmitSolution:
		resp, err := d.client.Submit(ctx, d.competitionID, d.participantID,
			action.ProblemID, action.Code, action.Language)
		if err != nil {
			return result("submit_solution failed: %v", err)
		}
		return result("%s", resp.Feedback)

	case models.ActionViewRankings:
		r, err := d.client.Rankings(ctx, d.competitionID)
		if err != nil {
			return result("view_rankings failed: %v", err)
		}
		return result("%s", renderRankings(r))

	case models.ActionViewStatus:
		p, err := d.client.Participant(ctx, d.competitionID, d.participantID)
		if err != nil {
			return result("view_status failed: %v", err)
		}
		return result("Tokens %d/%d, score %.2f, solved %d problems.",
			p.RemainingTokens, p.LimitTokens, p.Score, len(p.SolvedProblems))

	case models.ActionTerminate:
		if err := d.client.Terminate(ctx, d.competitionID, d.participantID, models.ReasonCompetitorTerminated); err != nil {
			return result("terminate failed: %v", err)
		}
		return result("Terminated by own choice.")
	}
	return result("unknown action %q", action.Type)
}

// hintRequest maps a parsed get_hint action onto the wire request.
func hintRequest(action *models.Action) api.HintRequest {
	return api.HintRequest{
		Level:             action.HintLevel,
		ProblemID:         action.ProblemID,
		HintKnowledge:     action.HintKnowledge,
		ProblemDifficulty: action.ProblemDifficulty,
	}
}

// terminate reports a driver-side failure to the arena. Best effort; the
// participant may already be terminated.
func (d *Driver) terminate(ctx context.Context, reason models.TerminationReason) error {
	if err := d.client.Terminate(ctx, d.competitionID, d.participantID, reason); err != nil {
		d.logger.Warn("Failed to terminate participant", "reason", reason, "error", err)
	}
	return nil
}
