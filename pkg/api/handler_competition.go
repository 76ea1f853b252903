package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/services"
)

// createCompetitionHandler handles POST /competitions/create.
func (s *Server) createCompetitionHandler(c *echo.Context) error {
	var req CreateCompetitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	comp, missing, err := s.competitions.CreateCompetition(c.Request().Context(), services.CreateCompetitionInput{
		Title:       req.Title,
		Description: req.Description,
		ProblemIDs:  req.ProblemIDs,
		MaxTokens:   req.MaxTokens,
		Rules:       req.Rules,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, &CreateCompetitionResponse{
		Competition: comp,
		MissingIDs:  missing,
	})
}

// getCompetitionHandler handles GET /competitions/:id.
func (s *Server) getCompetitionHandler(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id is required")
	}
	includeDetails := c.QueryParam("include_details") == "true"

	details, err := s.competitions.GetCompetition(c.Request().Context(), id, includeDetails)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &CompetitionResponse{
		Competition:  details.Competition,
		Participants: details.Participants,
		Problems:     details.Problems,
		Rankings:     details.Rankings,
	})
}

// getProblemHandler handles GET /problems/:competition_id/:problem_id.
// Returns the problem statement with its sample cases; full test cases are
// never exposed.
func (s *Server) getProblemHandler(c *echo.Context) error {
	competitionID := c.Param("competition_id")
	problemID := c.Param("problem_id")
	if competitionID == "" || problemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "competition id and problem id are required")
	}

	problem, err := s.competitions.GetProblem(c.Request().Context(), competitionID, problemID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, problem)
}

// listCompetitionsHandler handles GET /competitions.
func (s *Server) listCompetitionsHandler(c *echo.Context) error {
	activeOnly := c.QueryParam("is_active") == "true"

	comps, err := s.competitions.ListCompetitions(c.Request().Context(), activeOnly)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, comps)
}
