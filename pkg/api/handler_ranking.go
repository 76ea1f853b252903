package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// getRankingsHandler handles GET /rankings/get/:competition_id.
func (s *Server) getRankingsHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	if competitionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id is required")
	}

	entries, err := s.rankings.GetRankings(c.Request().Context(), competitionID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &RankingsResponse{
		CompetitionID: competitionID,
		Rankings:      entries,
	})
}
