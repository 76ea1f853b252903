package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codearena/arena/pkg/models"
)

// Rankings recomputes every participant's derived score in SQL, then returns
// the scoreboard ordered by score descending with problem_pass_score as the
// tie-breaker and dense ranks (equal scores share a rank, the next distinct
// score gets rank+1). Recompute and read share one transaction so the payload
// is self-consistent; the update contends with concurrent debits and rides
// the store's retry loop.
func (s *Store) Rankings(ctx context.Context, competitionID string) ([]models.RankingEntry, error) {
	var entries []models.RankingEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE participants SET score =
				CAST(problem_pass_score - submission_penalty AS REAL) +
				CASE WHEN limit_tokens > 0
					THEN CAST(lambda_value AS REAL) * remaining_tokens / limit_tokens
					ELSE 0 END
			WHERE competition_id = ?`,
			competitionID)
		if err != nil {
			return fmt.Errorf("failed to recompute scores: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, name, score, problem_pass_score, accepted_count,
				submission_count, remaining_tokens, is_running
			FROM participants
			WHERE competition_id = ?
			ORDER BY score DESC, problem_pass_score DESC, id`,
			competitionID)
		if err != nil {
			return fmt.Errorf("failed to query rankings: %w", err)
		}
		defer rows.Close()

		entries = entries[:0]
		var (
			prevScore float64
			prevPass  int
			rank      int
		)
		for rows.Next() {
			var (
				e         models.RankingEntry
				isRunning int
			)
			if err := rows.Scan(&e.ParticipantID, &e.Name, &e.Score, &e.ProblemPassScore,
				&e.AcceptedCount, &e.SubmissionCount, &e.RemainingTokens, &isRunning); err != nil {
				return fmt.Errorf("failed to scan ranking entry: %w", err)
			}
			e.IsRunning = isRunning != 0

			if len(entries) == 0 || e.Score != prevScore || e.ProblemPassScore != prevPass {
				rank++
			}
			e.Rank = rank
			prevScore, prevPass = e.Score, e.ProblemPassScore

			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
