package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codearena/arena/pkg/models"
)

// TokenBucket names the per-participant spend counter a debit lands in.
type TokenBucket string

// Token buckets. Their sum plus remaining_tokens equals limit_tokens, except
// that remaining is clamped at zero when a final spend overshoots the budget.
const (
	BucketLLM        TokenBucket = "llm"
	BucketHint       TokenBucket = "hint"
	BucketSubmission TokenBucket = "submission"
)

// ErrAlreadyTerminated is returned by mutations that require a running
// participant.
var ErrAlreadyTerminated = errors.New("participant already terminated")

// CreateParticipant inserts the participant and bumps the competition's
// participant count in one transaction.
func (s *Store) CreateParticipant(ctx context.Context, p *models.Participant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE competitions SET participant_count = participant_count + 1 WHERE id = ?`,
			p.CompetitionID)
		if err != nil {
			return fmt.Errorf("failed to bump participant count: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO participants (id, competition_id, name, llm_endpoint, llm_key,
				limit_tokens, remaining_tokens, lambda_value,
				llm_tokens, hint_tokens, submission_tokens,
				submission_count, accepted_count, submission_penalty,
				problem_pass_score, score, is_running, termination_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, ?, 1, NULL)`,
			p.ID, p.CompetitionID, p.Name, p.LLMEndpoint, p.LLMKey,
			p.LimitTokens, p.RemainingTokens, p.LambdaValue, p.ComputeScore(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil
	})
}

// GetParticipant returns one participant by ID.
func (s *Store) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx, participantColumns+` WHERE id = ?`, id)
	return scanParticipant(row)
}

// ListParticipants returns all participants of a competition.
func (s *Store) ListParticipants(ctx context.Context, competitionID string) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		participantColumns+` WHERE competition_id = ? ORDER BY id`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// TerminateParticipant stops a running participant with the given reason.
// Terminating an already-terminated participant is a no-op that preserves the
// original reason.
func (s *Store) TerminateParticipant(ctx context.Context, id string, reason models.TerminationReason) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return terminateInTx(ctx, tx, id, reason)
	})
}

func terminateInTx(ctx context.Context, tx *sql.Tx, id string, reason models.TerminationReason) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE participants SET is_running = 0, termination_reason = ?
		WHERE id = ? AND is_running = 1`,
		string(reason), id)
	if err != nil {
		return fmt.Errorf("failed to terminate participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or already terminated; distinguish for the caller.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participants WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// ApplyDebit atomically spends amount tokens from the participant's budget,
// attributing them to the given bucket. Remaining tokens clamp at zero; a
// debit that exhausts the budget terminates the participant with reason
// out_of_tokens in the same transaction. Returns the updated participant.
func (s *Store) ApplyDebit(ctx context.Context, id string, bucket TokenBucket, amount int) (*models.Participant, error) {
	if amount < 0 {
		return nil, fmt.Errorf("negative debit %d", amount)
	}

	var updated *models.Participant
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getParticipantInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.IsRunning {
			return ErrAlreadyTerminated
		}

		applyDebitToParticipant(p, bucket, amount)

		if err := updateParticipantTokens(ctx, tx, p); err != nil {
			return err
		}
		if !p.IsRunning && p.TerminationReason == models.ReasonOutOfTokens {
			if err := terminateInTx(ctx, tx, id, models.ReasonOutOfTokens); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyDebitToParticipant mutates p in memory: bucket counter up, remaining
// down with clamp, score refreshed, out_of_tokens termination flagged.
func applyDebitToParticipant(p *models.Participant, bucket TokenBucket, amount int) {
	switch bucket {
	case BucketLLM:
		p.LLMTokens += amount
	case BucketHint:
		p.HintTokens += amount
	case BucketSubmission:
		p.SubmissionTokens += amount
	}

	p.RemainingTokens -= amount
	if p.RemainingTokens <= 0 {
		p.RemainingTokens = 0
		if p.IsRunning {
			p.IsRunning = false
			p.TerminationReason = models.ReasonOutOfTokens
		}
	}
	p.Score = p.ComputeScore()
}

func updateParticipantTokens(ctx context.Context, tx *sql.Tx, p *models.Participant) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE participants SET
			remaining_tokens = ?, llm_tokens = ?, hint_tokens = ?, submission_tokens = ?,
			score = ?
		WHERE id = ?`,
		p.RemainingTokens, p.LLMTokens, p.HintTokens, p.SubmissionTokens,
		p.Score, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update participant tokens: %w", err)
	}
	return nil
}

const participantColumns = `
	SELECT id, competition_id, name, llm_endpoint, llm_key,
		limit_tokens, remaining_tokens, lambda_value,
		llm_tokens, hint_tokens, submission_tokens,
		submission_count, accepted_count, submission_penalty,
		problem_pass_score, score, is_running, termination_reason
	FROM participants`

func getParticipantInTx(ctx context.Context, tx *sql.Tx, id string) (*models.Participant, error) {
	return scanParticipant(tx.QueryRowContext(ctx, participantColumns+` WHERE id = ?`, id))
}

func scanParticipant(sc scanner) (*models.Participant, error) {
	var (
		p         models.Participant
		isRunning int
		reason    sql.NullString
	)
	err := sc.Scan(&p.ID, &p.CompetitionID, &p.Name, &p.LLMEndpoint, &p.LLMKey,
		&p.LimitTokens, &p.RemainingTokens, &p.LambdaValue,
		&p.LLMTokens, &p.HintTokens, &p.SubmissionTokens,
		&p.SubmissionCount, &p.AcceptedCount, &p.SubmissionPenalty,
		&p.ProblemPassScore, &p.Score, &isRunning, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	p.IsRunning = isRunning != 0
	p.TerminationReason = models.TerminationReason(reason.String)
	return &p, nil
}
