package organizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/config"
	"github.com/codearena/arena/pkg/models"
)

// fakeArena is a minimal in-memory arena. Every LLM call answers with a
// terminate action, so drivers finish after one turn.
type fakeArena struct {
	mu           sync.Mutex
	competitions map[string]*models.Competition
	participants map[string]*models.Participant
	llmCalls     int
}

func newFakeArena() *fakeArena {
	return &fakeArena{
		competitions: map[string]*models.Competition{},
		participants: map[string]*models.Participant{},
	}
}

func (a *fakeArena) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		path := r.URL.Path
		switch {
		case r.Method == http.MethodPost && path == "/competitions/create":
			var req api.CreateCompetitionRequest
			json.NewDecoder(r.Body).Decode(&req)
			comp := &models.Competition{
				ID: uuid.NewString(), Title: req.Title,
				MaxTokensPerParticipant: req.MaxTokens,
				ProblemCount:            1, IsActive: true,
			}
			a.competitions[comp.ID] = comp
			writeJSON(w, http.StatusCreated, api.CreateCompetitionResponse{Competition: comp})

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/participants/create/"):
			var req api.CreateParticipantRequest
			json.NewDecoder(r.Body).Decode(&req)
			p := &models.Participant{
				ID: uuid.NewString(), Name: req.Name,
				LimitTokens: 10000, RemainingTokens: 10000, IsRunning: true,
			}
			a.participants[p.ID] = p
			writeJSON(w, http.StatusCreated, p)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/participants/"):
			id := path[strings.LastIndex(path, "/")+1:]
			p, ok := a.participants[id]
			if !ok {
				writeJSON(w, http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "participant not found"})
				return
			}
			writeJSON(w, http.StatusOK, p)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/competitions/"):
			for _, comp := range a.competitions {
				writeJSON(w, http.StatusOK, api.CompetitionResponse{
					Competition: comp,
					Problems: []*models.Problem{
						{ID: "sum-pairs", Title: "Sum of Pairs", Level: models.LevelBronze},
					},
				})
				return
			}
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "competition not found"})

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/rankings/"):
			resp := api.RankingsResponse{}
			rank := 1
			for _, p := range a.participants {
				resp.Rankings = append(resp.Rankings, models.RankingEntry{
					Rank: rank, ParticipantID: p.ID, Name: p.Name,
					RemainingTokens: p.RemainingTokens,
				})
				rank++
			}
			writeJSON(w, http.StatusOK, resp)

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/participants/terminate/"):
			id := path[strings.LastIndex(path, "/")+1:]
			var req api.TerminateRequest
			json.NewDecoder(r.Body).Decode(&req)
			if p, ok := a.participants[id]; ok {
				p.IsRunning = false
				p.TerminationReason = models.TerminationReason(req.Reason)
				writeJSON(w, http.StatusOK, p)
				return
			}
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "participant not found"})

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/agent/call/"):
			a.llmCalls++
			provider, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": `{"action": "terminate"}`}},
				},
			})
			writeJSON(w, http.StatusOK, api.AgentCallResponse{
				Responses:  []json.RawMessage{provider},
				TokensUsed: 100,
			})

		default:
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "not found"})
		}
	})
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxTurns:        5,
		MaxParseRetries: 3,
		LLMTimeout:      5 * time.Second,
		WallTime:        time.Minute,
	}
}

func TestOrganizer_Run(t *testing.T) {
	arena := newFakeArena()
	srv := httptest.NewServer(arena.handler())
	defer srv.Close()

	org := New(srv.URL, testAgentConfig())
	result, err := org.Run(context.Background(), &Manifest{
		Title:     "Organizer Cup",
		MaxTokens: 10000,
		Participants: []ParticipantSpec{
			{Name: "alice", Model: "gpt-test", LLMEndpoint: "http://llm.test/v1"},
			{Name: "bob", Model: "gpt-test", LLMEndpoint: "http://llm.test/v1"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.CompetitionID)
	assert.Equal(t, "Organizer Cup", result.Title)
	assert.Len(t, result.Rankings, 2)
	require.Len(t, result.Participants, 2)
	assert.Equal(t, 2, arena.llmCalls, "each driver should make exactly one LLM call")

	for _, pr := range result.Participants {
		assert.Empty(t, pr.DriverError)
		require.Len(t, pr.Transcript, 1)
		assert.Equal(t, "terminate", pr.Transcript[0].Action)
		require.NotNil(t, pr.Final)
		assert.False(t, pr.Final.IsRunning)
		assert.Equal(t, models.ReasonCompetitorTerminated, pr.Final.TerminationReason)
	}
	assert.True(t, result.FinishedAt.After(result.StartedAt) || result.FinishedAt.Equal(result.StartedAt))
}

func TestOrganizer_RegistrationFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/competitions/create" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(api.CreateCompetitionResponse{
				Competition: &models.Competition{ID: "comp-1", Title: "t"},
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(api.ErrorResponse{Status: "error", Message: "boom"})
	}))
	defer srv.Close()

	org := New(srv.URL, testAgentConfig())
	_, err := org.Run(context.Background(), &Manifest{
		Title:     "t",
		MaxTokens: 1000,
		Participants: []ParticipantSpec{
			{Name: "alice", LLMEndpoint: "http://llm.test/v1"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `register participant "alice"`)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(dir, "manifest.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := write(t, `{
			"title": "Cup",
			"max_tokens": 10000,
			"problem_ids": ["sum-pairs"],
			"participants": [
				{"name": "alice", "model": "gpt-test", "llm_endpoint": "http://llm.test/v1", "llm_key": "sk-1"}
			]
		}`)
		m, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "Cup", m.Title)
		require.Len(t, m.Participants, 1)
		assert.Equal(t, "alice", m.Participants[0].Name)
	})

	t.Run("missing title", func(t *testing.T) {
		path := write(t, `{"max_tokens": 1000, "participants": [{"name": "a", "llm_endpoint": "x"}]}`)
		_, err := LoadManifest(path)
		assert.ErrorContains(t, err, "title")
	})

	t.Run("no participants", func(t *testing.T) {
		path := write(t, `{"title": "t", "max_tokens": 1000, "participants": []}`)
		_, err := LoadManifest(path)
		assert.ErrorContains(t, err, "participant")
	})

	t.Run("participant without endpoint", func(t *testing.T) {
		path := write(t, `{"title": "t", "max_tokens": 1000, "participants": [{"name": "a"}]}`)
		_, err := LoadManifest(path)
		assert.ErrorContains(t, err, "llm_endpoint")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}

func TestWriteResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteResult(path, &Result{
		CompetitionID: "comp-1",
		Title:         "Cup",
		Rankings:      []models.RankingEntry{{Rank: 1, Name: "alice", Score: 123.4}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "comp-1", decoded.CompetitionID)
	require.Len(t, decoded.Rankings, 1)
	assert.Equal(t, "alice", decoded.Rankings[0].Name)
}
