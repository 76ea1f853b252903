package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/models"
	"github.com/codearena/arena/pkg/services"
)

// createParticipantHandler handles POST /participants/create/:competition_id.
func (s *Server) createParticipantHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	if competitionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id is required")
	}

	var req CreateParticipantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := s.participants.CreateParticipant(c.Request().Context(), competitionID, services.CreateParticipantInput{
		Name:        req.Name,
		LLMEndpoint: req.LLMEndpoint,
		LLMKey:      req.LLMKey,
		LimitTokens: req.LimitTokens,
		Lambda:      req.Lambda,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

// getParticipantHandler handles GET /participants/:competition_id/:participant_id.
func (s *Server) getParticipantHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	participantID := c.Param("participant_id")
	if competitionID == "" || participantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id and participant id are required")
	}
	includeSolved := c.QueryParam("include_solved") == "true"

	p, err := s.participants.GetParticipant(c.Request().Context(), competitionID, participantID, includeSolved)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// terminateParticipantHandler handles POST /participants/terminate/....
// Operator-initiated; the reason defaults to manual_termination.
func (s *Server) terminateParticipantHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	participantID := c.Param("participant_id")
	if competitionID == "" || participantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id and participant id are required")
	}

	var req TerminateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reason := models.TerminationReason(req.Reason)
	if reason == "" {
		reason = models.ReasonManualTermination
	}

	p, err := s.participants.TerminateParticipant(c.Request().Context(), competitionID, participantID, reason)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, p)
}
