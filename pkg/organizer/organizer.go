// Package organizer orchestrates a full competition run: create the
// competition, register every participant, run one agent driver per
// participant in parallel, and collect the final results into a single
// document.
package organizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codearena/arena/pkg/agent"
	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/config"
	"github.com/codearena/arena/pkg/models"
)

// ParticipantSpec describes one competitor in the run manifest.
type ParticipantSpec struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	LLMEndpoint string `json:"llm_endpoint"`
	LLMKey      string `json:"llm_key"`
	LimitTokens int    `json:"limit_tokens,omitempty"`
	Lambda      int    `json:"lambda,omitempty"`
}

// Manifest is the organizer's input document.
type Manifest struct {
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	ProblemIDs   []string          `json:"problem_ids,omitempty"`
	MaxTokens    int               `json:"max_tokens"`
	Rules        *models.Rules     `json:"rules,omitempty"`
	Participants []ParticipantSpec `json:"participants"`
}

// LoadManifest reads and validates a run manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Title == "" {
		return nil, fmt.Errorf("manifest: title is required")
	}
	if m.MaxTokens <= 0 {
		return nil, fmt.Errorf("manifest: max_tokens must be positive")
	}
	if len(m.Participants) == 0 {
		return nil, fmt.Errorf("manifest: at least one participant is required")
	}
	for i, p := range m.Participants {
		if p.Name == "" {
			return nil, fmt.Errorf("manifest: participant %d has no name", i)
		}
		if p.LLMEndpoint == "" {
			return nil, fmt.Errorf("manifest: participant %q has no llm_endpoint", p.Name)
		}
	}
	return &m, nil
}

// ParticipantResult is one competitor's final state plus its driver transcript.
type ParticipantResult struct {
	ParticipantID string                  `json:"participant_id"`
	Name          string                  `json:"name"`
	Final         *models.Participant     `json:"final_state"`
	Transcript    []agent.TranscriptEntry `json:"transcript"`
	DriverError   string                  `json:"driver_error,omitempty"`
}

// Result is the final results document the organizer writes.
type Result struct {
	CompetitionID string                `json:"competition_id"`
	Title         string                `json:"title"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Rankings      []models.RankingEntry `json:"rankings"`
	Participants  []ParticipantResult   `json:"participants"`
}

// Organizer runs one competition end to end against an arena service.
type Organizer struct {
	client *agent.ArenaClient
	agent  config.AgentConfig
	logger *slog.Logger
}

// New creates an organizer talking to the arena at baseURL.
func New(baseURL string, agentCfg config.AgentConfig) *Organizer {
	return &Organizer{
		client: agent.NewArenaClient(baseURL, agentCfg.LLMTimeout),
		agent:  agentCfg,
		logger: slog.Default().With("component", "organizer"),
	}
}

// Run executes the manifest: create, register, drive, aggregate.
func (o *Organizer) Run(ctx context.Context, m *Manifest) (*Result, error) {
	started := time.Now()

	comp, err := o.createCompetition(ctx, m)
	if err != nil {
		return nil, err
	}

	participants, err := o.registerParticipants(ctx, comp.ID, m.Participants)
	if err != nil {
		return nil, err
	}

	results := o.runDrivers(ctx, comp.ID, m.Participants, participants)

	rankings, err := o.client.Rankings(ctx, comp.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch final rankings: %w", err)
	}

	for i := range results {
		final, err := o.client.Participant(ctx, comp.ID, results[i].ParticipantID)
		if err != nil {
			o.logger.Warn("Failed to fetch final participant state",
				"participant_id", results[i].ParticipantID, "error", err)
			continue
		}
		results[i].Final = final
	}

	o.logger.Info("Competition finished",
		"competition_id", comp.ID,
		"participants", len(results),
		"duration", time.Since(started))

	return &Result{
		CompetitionID: comp.ID,
		Title:         comp.Title,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Rankings:      rankings.Rankings,
		Participants:  results,
	}, nil
}

func (o *Organizer) createCompetition(ctx context.Context, m *Manifest) (*models.Competition, error) {
	resp, err := o.client.CreateCompetition(ctx, api.CreateCompetitionRequest{
		Title:       m.Title,
		Description: m.Description,
		ProblemIDs:  m.ProblemIDs,
		MaxTokens:   m.MaxTokens,
		Rules:       m.Rules,
	})
	if err != nil {
		return nil, fmt.Errorf("create competition: %w", err)
	}
	if len(resp.MissingIDs) > 0 {
		o.logger.Warn("Some requested problems are missing from the dataset",
			"missing", resp.MissingIDs)
	}
	o.logger.Info("Competition created",
		"competition_id", resp.Competition.ID,
		"problems", resp.Competition.ProblemCount)
	return resp.Competition, nil
}

// registerParticipants registers sequentially and verifies each registration
// with a read-back before moving to the next one.
func (o *Organizer) registerParticipants(ctx context.Context, competitionID string, specs []ParticipantSpec) ([]*models.Participant, error) {
	participants := make([]*models.Participant, 0, len(specs))
	for _, spec := range specs {
		p, err := o.client.CreateParticipant(ctx, competitionID, api.CreateParticipantRequest{
			Name:        spec.Name,
			LLMEndpoint: spec.LLMEndpoint,
			LLMKey:      spec.LLMKey,
			LimitTokens: spec.LimitTokens,
			Lambda:      spec.Lambda,
		})
		if err != nil {
			return nil, fmt.Errorf("register participant %q: %w", spec.Name, err)
		}

		verified, err := o.client.Participant(ctx, competitionID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("verify participant %q: %w", spec.Name, err)
		}
		if !verified.IsRunning {
			return nil, fmt.Errorf("participant %q not running after registration", spec.Name)
		}

		o.logger.Info("Participant registered",
			"participant_id", p.ID,
			"name", p.Name,
			"limit_tokens", verified.LimitTokens)
		participants = append(participants, p)
	}
	return participants, nil
}

// runDrivers runs one driver per participant concurrently and collects their
// transcripts. Driver failures are recorded per participant, not propagated:
// one broken competitor must not sink the whole run.
func (o *Organizer) runDrivers(ctx context.Context, competitionID string, specs []ParticipantSpec, participants []*models.Participant) []ParticipantResult {
	results := make([]ParticipantResult, len(participants))

	g, gctx := errgroup.WithContext(ctx)
	for i := range participants {
		p := participants[i]
		spec := specs[i]
		g.Go(func() error {
			driver := agent.NewDriver(o.client, competitionID, p.ID, agent.Options{
				Model:           spec.Model,
				MaxTurns:        o.agent.MaxTurns,
				MaxParseRetries: o.agent.MaxParseRetries,
				WallTime:        o.agent.WallTime,
			})
			err := driver.Run(gctx)

			results[i] = ParticipantResult{
				ParticipantID: p.ID,
				Name:          p.Name,
				Transcript:    driver.Transcript(),
			}
			if err != nil {
				o.logger.Error("Driver failed", "participant_id", p.ID, "error", err)
				results[i].DriverError = err.Error()
			}
			return nil
		})
	}
	// Goroutines record their own failures; Wait only joins them.
	_ = g.Wait()
	return results
}

// WriteResult writes the results document as indented JSON.
func WriteResult(path string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
