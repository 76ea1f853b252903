package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/models"
)

// stubArena fakes the arena's HTTP surface with scripted LLM replies.
type stubArena struct {
	mu sync.Mutex

	participant models.Participant
	competition api.CompetitionResponse
	problem     models.Problem

	replies    []string
	replyIdx   int
	llmCalls   int
	submits    int
	terminated []string

	// afterSubmit mutates participant state once a submission lands,
	// simulating the arena side effects (all-solved, token exhaustion).
	afterSubmit func(*models.Participant)
}

func newStubArena() *stubArena {
	problem := models.Problem{
		ID: "sum-pairs", Title: "Sum of Pairs", Level: models.LevelBronze,
		Description: "Count pairs summing to k.",
	}
	return &stubArena{
		participant: models.Participant{
			ID: "part-1", CompetitionID: "comp-1", Name: "alice",
			LimitTokens: 10000, RemainingTokens: 10000, IsRunning: true,
		},
		competition: api.CompetitionResponse{
			Competition: &models.Competition{
				ID: "comp-1", Title: "Test Cup", Rules: models.DefaultRules(),
			},
			Problems: []*models.Problem{&problem},
		},
		problem: problem,
	}
}

func (a *stubArena) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/participants/"):
			json.NewEncoder(w).Encode(a.participant)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/competitions/"):
			json.NewEncoder(w).Encode(a.competition)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/problems/"):
			json.NewEncoder(w).Encode(a.problem)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/rankings/"):
			json.NewEncoder(w).Encode(api.RankingsResponse{CompetitionID: "comp-1"})

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/submissions/create/"):
			a.submits++
			if a.afterSubmit != nil {
				a.afterSubmit(&a.participant)
			}
			json.NewEncoder(w).Encode(api.SubmissionResponse{
				Verdict: "AC", Passed: 2, Total: 2,
				Feedback: "AC: 2/2 test cases passed.",
			})

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/participants/terminate/"):
			var req api.TerminateRequest
			json.NewDecoder(r.Body).Decode(&req)
			a.terminated = append(a.terminated, req.Reason)
			a.participant.IsRunning = false
			a.participant.TerminationReason = models.TerminationReason(req.Reason)
			json.NewEncoder(w).Encode(a.participant)

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/agent/call/"):
			a.llmCalls++
			reply := "no reply scripted"
			if a.replyIdx < len(a.replies) {
				reply = a.replies[a.replyIdx]
				a.replyIdx++
			}
			provider, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": reply}},
				},
			})
			json.NewEncoder(w).Encode(api.AgentCallResponse{
				Responses:       []json.RawMessage{provider},
				TokensUsed:      100,
				RemainingTokens: a.participant.RemainingTokens,
			})

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(api.ErrorResponse{Status: "error", Message: "not found"})
		}
	})
}

func runDriver(t *testing.T, arena *stubArena, opts Options) *Driver {
	t.Helper()
	srv := httptest.NewServer(arena.handler())
	t.Cleanup(srv.Close)

	client := NewArenaClient(srv.URL, 5*time.Second)
	driver := NewDriver(client, "comp-1", "part-1", opts)
	require.NoError(t, driver.Run(context.Background()))
	return driver
}

func TestDriver_SolvesAndExits(t *testing.T) {
	arena := newStubArena()
	arena.replies = []string{
		`{"action": "view_problem", "problem_id": "sum-pairs"}`,
		`{"action": "submit_solution", "problem_id": "sum-pairs", "language": "cpp", "code": "int main() {}"}`,
	}
	arena.afterSubmit = func(p *models.Participant) {
		p.IsRunning = false
		p.TerminationReason = models.ReasonAllProblemsSolved
	}

	driver := runDriver(t, arena, Options{MaxTurns: 10})

	assert.Equal(t, 2, arena.llmCalls)
	assert.Equal(t, 1, arena.submits)
	assert.Empty(t, arena.terminated, "driver must not terminate a finished participant")

	transcript := driver.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "view_problem", transcript[0].Action)
	assert.Contains(t, transcript[0].Result, "Sum of Pairs")
	assert.Equal(t, "submit_solution", transcript[1].Action)
	assert.Contains(t, transcript[1].Result, "2/2")
}

func TestDriver_ParseFailuresTerminate(t *testing.T) {
	arena := newStubArena()
	arena.replies = []string{"thinking...", "still thinking...", "hmm"}

	runDriver(t, arena, Options{MaxTurns: 10, MaxParseRetries: 2})

	assert.Equal(t, 2, arena.llmCalls)
	require.Len(t, arena.terminated, 1)
	assert.Equal(t, "error", arena.terminated[0])
}

func TestDriver_WallTimeExceeded(t *testing.T) {
	arena := newStubArena()

	runDriver(t, arena, Options{MaxTurns: 10, WallTime: time.Nanosecond})

	assert.Zero(t, arena.llmCalls)
	require.Len(t, arena.terminated, 1)
	assert.Equal(t, "timeout", arena.terminated[0])
}

func TestDriver_VoluntaryTerminate(t *testing.T) {
	arena := newStubArena()
	arena.replies = []string{`{"action": "terminate"}`}

	driver := runDriver(t, arena, Options{MaxTurns: 10})

	require.Len(t, arena.terminated, 1)
	assert.Equal(t, "competitor_terminated", arena.terminated[0])
	transcript := driver.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "terminate", transcript[0].Action)
}

func TestDriver_TurnCap(t *testing.T) {
	arena := newStubArena()
	for i := 0; i < 20; i++ {
		arena.replies = append(arena.replies, `{"action": "view_status"}`)
	}

	driver := runDriver(t, arena, Options{MaxTurns: 3})

	assert.Equal(t, 3, arena.llmCalls)
	assert.Len(t, driver.Transcript(), 3)
}

func TestDriver_TrimHistory(t *testing.T) {
	d := &Driver{maxTurns: 2}
	for i := 0; i < 10; i++ {
		d.history = append(d.history,
			chatMessage{Role: "user", Content: fmt.Sprintf("state %d", i)},
			chatMessage{Role: "assistant", Content: fmt.Sprintf("reply %d", i)})
	}
	d.trimHistory()

	require.Len(t, d.history, 4)
	assert.Equal(t, "state 8", d.history[0].Content)
	assert.Equal(t, "reply 9", d.history[3].Content)
}
