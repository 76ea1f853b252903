package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/services"
)

// getHintHandler handles POST /hints/get/:competition_id/:participant_id.
func (s *Server) getHintHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	participantID := c.Param("participant_id")
	if competitionID == "" || participantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id and participant id are required")
	}

	var req HintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hint, err := s.hints.GetHint(c.Request().Context(), competitionID, participantID, services.HintRequest{
		Level:             req.Level,
		ProblemID:         req.ProblemID,
		HintKnowledge:     req.HintKnowledge,
		ProblemDifficulty: req.ProblemDifficulty,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, hint)
}
