package services

import (
	"context"
	"errors"

	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/store"
)

// RankingService serves the competition scoreboard.
type RankingService struct {
	store *store.Store
}

// NewRankingService creates a ranking service.
func NewRankingService(st *store.Store) *RankingService {
	return &RankingService{store: st}
}

// GetRankings recomputes all derived scores and returns the ordered
// scoreboard for a competition.
func (s *RankingService) GetRankings(ctx context.Context, competitionID string) ([]models.RankingEntry, error) {
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.Rankings(ctx, competitionID)
}
