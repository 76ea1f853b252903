package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. Checks the database and reports how many
// problems the dataset loaded; external services (sandbox, LLM providers) are
// deliberately excluded so their outages cannot fail the arena's own probe.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if err := s.store.Ping(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	problems := 0
	if s.dataset != nil {
		problems = s.dataset.Len()
		if problems == 0 {
			status = healthStatusUnhealthy
			checks["dataset"] = HealthCheck{Status: healthStatusUnhealthy, Message: "no problems loaded"}
		} else {
			checks["dataset"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:   status,
		Checks:   checks,
		Problems: problems,
	})
}
