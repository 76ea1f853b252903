package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codearena/arena/pkg/models"
)

// SubmissionOutcome reports what a recorded submission changed.
type SubmissionOutcome struct {
	Submission  *models.Submission
	Participant *models.Participant

	// FirstAC is true when this submission won the first-to-solve bonus.
	FirstAC bool
	// ScoreDelta is the pass-score improvement credited to the participant
	// (zero when a previous submission already scored at least as high).
	ScoreDelta int
	// AllSolved is true when this AC completed the problem set and
	// terminated the participant.
	AllSolved bool
}

// RecordSubmission persists a judged submission and applies all of its score
// and token effects in one transaction: first-to-solve arbitration, best-of
// pass-score accounting, verdict penalty, counters, the submission-token
// debit, and the two terminal checks (out of tokens, all problems solved).
// The submission's Status and TestResults must already be final.
func (s *Store) RecordSubmission(ctx context.Context, sub *models.Submission, rules *models.Rules) (*SubmissionOutcome, error) {
	if !models.ValidVerdict(sub.Status) {
		return nil, fmt.Errorf("submission %s has non-final verdict %q", sub.ID, sub.Status)
	}

	var outcome *SubmissionOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getParticipantInTx(ctx, tx, sub.ParticipantID)
		if err != nil {
			return err
		}
		if !p.IsRunning {
			return ErrAlreadyTerminated
		}

		problem, err := scanProblem(tx.QueryRowContext(ctx, `
			SELECT problem_id, competition_id, title, description, level,
				time_limit_ms, memory_limit_mb, first_to_solve, samples
			FROM problems WHERE competition_id = ? AND problem_id = ?`,
			sub.CompetitionID, sub.ProblemID))
		if err != nil {
			return err
		}

		o := &SubmissionOutcome{Submission: sub, Participant: p}

		if sub.Status == models.VerdictAC {
			// First-to-solve arbitration. The conditional update decides the
			// winner; concurrent submitters serialize on the row.
			res, err := tx.ExecContext(ctx, `
				UPDATE problems SET first_to_solve = ?
				WHERE competition_id = ? AND problem_id = ? AND first_to_solve IS NULL`,
				p.ID, sub.CompetitionID, sub.ProblemID)
			if err != nil {
				return fmt.Errorf("failed to arbitrate first to solve: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				o.FirstAC = true
			}

			passScore := rules.BaseScore(problem.Level)
			if o.FirstAC {
				passScore += rules.BonusForFirstAC
			}
			sub.PassScore = passScore

			// Only the improvement over this participant's previous best on
			// the problem is credited, so resubmitting an AC never double
			// counts.
			var best int
			err = tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(pass_score), 0) FROM submissions
				WHERE participant_id = ? AND problem_id = ?`,
				p.ID, sub.ProblemID).Scan(&best)
			if err != nil {
				return fmt.Errorf("failed to read best pass score: %w", err)
			}
			if passScore > best {
				o.ScoreDelta = passScore - best
			}

			p.ProblemPassScore += o.ScoreDelta
			p.AcceptedCount++
		}

		sub.Penalty = rules.Penalty(sub.Status)
		sub.SubmissionTokens = rules.SubmissionCost(sub.Status)
		p.SubmissionPenalty += sub.Penalty
		p.SubmissionCount++

		resultsJSON, err := json.Marshal(sub.TestResults)
		if err != nil {
			return fmt.Errorf("failed to marshal test results: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO submissions (id, competition_id, participant_id, problem_id,
				code, language, submitted_at, status, pass_score, penalty,
				submission_tokens, test_results)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, sub.CompetitionID, sub.ParticipantID, sub.ProblemID,
			sub.Code, string(sub.Language), formatTime(sub.SubmittedAt), string(sub.Status),
			sub.PassScore, sub.Penalty, sub.SubmissionTokens, string(resultsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}

		applyDebitToParticipant(p, BucketSubmission, sub.SubmissionTokens)

		_, err = tx.ExecContext(ctx, `
			UPDATE participants SET
				remaining_tokens = ?, llm_tokens = ?, hint_tokens = ?, submission_tokens = ?,
				submission_count = ?, accepted_count = ?, submission_penalty = ?,
				problem_pass_score = ?, score = ?
			WHERE id = ?`,
			p.RemainingTokens, p.LLMTokens, p.HintTokens, p.SubmissionTokens,
			p.SubmissionCount, p.AcceptedCount, p.SubmissionPenalty,
			p.ProblemPassScore, p.Score, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update participant aggregates: %w", err)
		}

		if !p.IsRunning {
			// The submission cost exhausted the budget.
			if err := terminateInTx(ctx, tx, p.ID, models.ReasonOutOfTokens); err != nil {
				return err
			}
		} else if sub.Status == models.VerdictAC {
			solved, err := countSolvedInTx(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			var total int
			err = tx.QueryRowContext(ctx,
				`SELECT problem_count FROM competitions WHERE id = ?`, sub.CompetitionID).Scan(&total)
			if err != nil {
				return fmt.Errorf("failed to read problem count: %w", err)
			}
			if total > 0 && solved >= total {
				if err := terminateInTx(ctx, tx, p.ID, models.ReasonAllProblemsSolved); err != nil {
					return err
				}
				p.IsRunning = false
				p.TerminationReason = models.ReasonAllProblemsSolved
				o.AllSolved = true
			}
		}

		outcome = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// GetSubmission returns one submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	row := s.db.QueryRowContext(ctx, submissionColumns+` WHERE id = ?`, id)
	return scanSubmission(row)
}

// ListSubmissions returns a participant's submissions, newest first,
// optionally filtered by problem.
func (s *Store) ListSubmissions(ctx context.Context, participantID, problemID string) ([]*models.Submission, error) {
	query := submissionColumns + ` WHERE participant_id = ?`
	args := []any{participantID}
	if problemID != "" {
		query += ` AND problem_id = ?`
		args = append(args, problemID)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SolvedProblemIDs returns the distinct problems the participant has an AC
// submission for, ordered by ID.
func (s *Store) SolvedProblemIDs(ctx context.Context, participantID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT problem_id FROM submissions
		WHERE participant_id = ? AND status = 'AC' ORDER BY problem_id`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved problems: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan problem id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func countSolvedInTx(ctx context.Context, tx *sql.Tx, participantID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT problem_id) FROM submissions
		WHERE participant_id = ? AND status = 'AC'`,
		participantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count solved problems: %w", err)
	}
	return n, nil
}

const submissionColumns = `
	SELECT id, competition_id, participant_id, problem_id, code, language,
		submitted_at, status, pass_score, penalty, submission_tokens, test_results
	FROM submissions`

func scanSubmission(sc scanner) (*models.Submission, error) {
	var (
		sub         models.Submission
		language    string
		submittedAt string
		status      string
		resultsJSON string
	)
	err := sc.Scan(&sub.ID, &sub.CompetitionID, &sub.ParticipantID, &sub.ProblemID,
		&sub.Code, &language, &submittedAt, &status,
		&sub.PassScore, &sub.Penalty, &sub.SubmissionTokens, &resultsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	sub.Language = models.Language(language)
	sub.SubmittedAt = parseTime(submittedAt)
	sub.Status = models.Verdict(status)
	if err := json.Unmarshal([]byte(resultsJSON), &sub.TestResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test results for submission %s: %w", sub.ID, err)
	}
	return &sub, nil
}
