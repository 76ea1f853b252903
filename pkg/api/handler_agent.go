package api

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// maxAgentBodyBytes bounds an agent's chat-completions request body.
const maxAgentBodyBytes = 4 << 20

// agentCallHandler handles POST /agent/call/:competition_id/:participant_id:
// the LLM proxy. The body is forwarded verbatim to the participant's
// provider.
func (s *Server) agentCallHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	participantID := c.Param("participant_id")
	if competitionID == "" || participantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id and participant id are required")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAgentBodyBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}

	result, err := s.proxy.Call(c.Request().Context(), competitionID, participantID, body)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &AgentCallResponse{
		Responses:       result.Responses,
		TokensUsed:      result.TokensUsed,
		RemainingTokens: result.Remaining,
		Terminated:      result.Terminated,
	})
}
