package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/models"
)

// createSubmissionHandler handles
// POST /submissions/create/:competition_id/:participant_id/:problem_id.
func (s *Server) createSubmissionHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	participantID := c.Param("participant_id")
	problemID := c.Param("problem_id")
	if competitionID == "" || participantID == "" || problemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition, participant, and problem ids are required")
	}

	var req CreateSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.submissions.Submit(c.Request().Context(),
		competitionID, participantID, problemID, req.Code, models.Language(req.Language))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, &SubmissionResponse{
		SubmissionID:    result.Submission.ID,
		Verdict:         string(result.Submission.Status),
		PassScore:       result.Submission.PassScore,
		Penalty:         result.Submission.Penalty,
		Passed:          result.Passed,
		Total:           result.Total,
		FirstAC:         result.FirstAC,
		AllSolved:       result.AllSolved,
		RemainingTokens: result.Remaining,
		Feedback:        result.Feedback,
	})
}

// listSubmissionsHandler handles GET /submissions/:participant_id.
func (s *Server) listSubmissionsHandler(c *echo.Context) error {
	participantID := c.Param("participant_id")
	if participantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "participant id is required")
	}

	subs, err := s.submissions.ListSubmissions(c.Request().Context(), participantID, c.QueryParam("problem_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, subs)
}
