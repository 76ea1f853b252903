package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codearena/arena/pkg/models"
)

// CreateCompetition inserts a competition and its problem rows in one
// transaction. The caller has already resolved the problem list against the
// dataset; a competition is never created with zero problems.
func (s *Store) CreateCompetition(ctx context.Context, comp *models.Competition, problems []*models.Problem) error {
	if len(problems) == 0 {
		return fmt.Errorf("competition %s has no problems", comp.ID)
	}

	rulesJSON, err := json.Marshal(comp.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var endTime any
		if comp.EndTime != nil {
			endTime = formatTime(*comp.EndTime)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO competitions (id, title, description, start_time, end_time,
				max_tokens_per_participant, rules, is_active, participant_count, problem_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			comp.ID, comp.Title, comp.Description, formatTime(comp.StartTime), endTime,
			comp.MaxTokensPerParticipant, string(rulesJSON), boolToInt(comp.IsActive), len(problems),
		)
		if err != nil {
			return fmt.Errorf("failed to insert competition: %w", err)
		}

		for _, p := range problems {
			samplesJSON, err := json.Marshal(p.Samples)
			if err != nil {
				return fmt.Errorf("failed to marshal samples for problem %s: %w", p.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO problems (problem_id, competition_id, title, description,
					level, time_limit_ms, memory_limit_mb, first_to_solve, samples)
				VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
				p.ID, comp.ID, p.Title, p.Description,
				string(p.Level), p.TimeLimitMs, p.MemoryLimitMB, string(samplesJSON),
			)
			if err != nil {
				return fmt.Errorf("failed to insert problem %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetCompetition returns one competition by ID.
func (s *Store) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_time, end_time,
			max_tokens_per_participant, rules, is_active, participant_count, problem_count
		FROM competitions WHERE id = ?`, id)
	return scanCompetition(row)
}

// ListCompetitions returns all competitions, optionally filtered to active
// ones, newest first.
func (s *Store) ListCompetitions(ctx context.Context, activeOnly bool) ([]*models.Competition, error) {
	query := `
		SELECT id, title, description, start_time, end_time,
			max_tokens_per_participant, rules, is_active, participant_count, problem_count
		FROM competitions`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY start_time DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	var comps []*models.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

// GetProblem returns one problem of a competition by its composite key.
func (s *Store) GetProblem(ctx context.Context, competitionID, problemID string) (*models.Problem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT problem_id, competition_id, title, description, level,
			time_limit_ms, memory_limit_mb, first_to_solve, samples
		FROM problems WHERE competition_id = ? AND problem_id = ?`,
		competitionID, problemID)
	return scanProblem(row)
}

// CompetitionProblems returns all problems of a competition ordered by ID.
func (s *Store) CompetitionProblems(ctx context.Context, competitionID string) ([]*models.Problem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT problem_id, competition_id, title, description, level,
			time_limit_ms, memory_limit_mb, first_to_solve, samples
		FROM problems WHERE competition_id = ? ORDER BY problem_id`,
		competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	defer rows.Close()

	var problems []*models.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCompetition(sc scanner) (*models.Competition, error) {
	var (
		c         models.Competition
		startTime string
		endTime   sql.NullString
		rulesJSON string
		isActive  int
	)
	err := sc.Scan(&c.ID, &c.Title, &c.Description, &startTime, &endTime,
		&c.MaxTokensPerParticipant, &rulesJSON, &isActive, &c.ParticipantCount, &c.ProblemCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan competition: %w", err)
	}

	c.StartTime = parseTime(startTime)
	if endTime.Valid {
		t := parseTime(endTime.String)
		c.EndTime = &t
	}
	c.IsActive = isActive != 0

	c.Rules = &models.Rules{}
	if err := json.Unmarshal([]byte(rulesJSON), c.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules for competition %s: %w", c.ID, err)
	}
	return &c, nil
}

func scanProblem(sc scanner) (*models.Problem, error) {
	var (
		p            models.Problem
		level        string
		firstToSolve sql.NullString
		samplesJSON  string
	)
	err := sc.Scan(&p.ID, &p.CompetitionID, &p.Title, &p.Description, &level,
		&p.TimeLimitMs, &p.MemoryLimitMB, &firstToSolve, &samplesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan problem: %w", err)
	}

	p.Level = models.ParseLevel(level)
	p.FirstToSolve = firstToSolve.String
	if err := json.Unmarshal([]byte(samplesJSON), &p.Samples); err != nil {
		return nil, fmt.Errorf("failed to unmarshal samples for problem %s: %w", p.ID, err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
