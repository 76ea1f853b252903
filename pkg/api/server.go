// Package api is the arena's HTTP surface: the action protocol agents play
// through plus operator and health endpoints. Handlers bind input, call the
// service layer, and translate its errors; no business logic lives here.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/dataset"
	"github.com/codearena/arena/pkg/services"
	"github.com/codearena/arena/pkg/store"
)

// Server hosts the action protocol endpoints.
type Server struct {
	competitions *services.CompetitionService
	participants *services.ParticipantService
	submissions  *services.SubmissionService
	hints        *services.HintService
	proxy        *services.ProxyService
	rankings     *services.RankingService
	store        *store.Store
	dataset      *dataset.Loader

	gate   *rateGate
	echo   *echo.Echo
	server *http.Server
	logger *slog.Logger
}

// Deps bundles the services the server fronts.
type Deps struct {
	Competitions *services.CompetitionService
	Participants *services.ParticipantService
	Submissions  *services.SubmissionService
	Hints        *services.HintService
	Proxy        *services.ProxyService
	Rankings     *services.RankingService
	Store        *store.Store
	Dataset      *dataset.Loader
}

// NewServer creates the HTTP server. minInterval is the global rate-limit
// spacing between any two gated requests.
func NewServer(deps Deps, minInterval time.Duration) *Server {
	s := &Server{
		competitions: deps.Competitions,
		participants: deps.Participants,
		submissions:  deps.Submissions,
		hints:        deps.Hints,
		proxy:        deps.Proxy,
		rankings:     deps.Rankings,
		store:        deps.Store,
		dataset:      deps.Dataset,
		gate:         newRateGate(minInterval),
		logger:       slog.Default().With("component", "api"),
	}

	e := echo.New()
	e.HTTPErrorHandler = errorHandler(s.logger)
	e.Use(requestLogger(s.logger))
	e.Use(securityHeaders())
	s.registerRoutes(e)
	s.echo = e
	return s
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/health", s.healthHandler)

	// The rate gate spaces out everything that mutates state or recomputes
	// rankings; plain reads bypass it.
	gated := s.gate.middleware()

	e.POST("/competitions/create", s.createCompetitionHandler, gated)
	e.GET("/competitions", s.listCompetitionsHandler)
	e.GET("/competitions/:id", s.getCompetitionHandler)
	e.GET("/problems/:competition_id/:problem_id", s.getProblemHandler)

	e.POST("/participants/create/:competition_id", s.createParticipantHandler, gated)
	e.GET("/participants/:competition_id/:participant_id", s.getParticipantHandler)
	e.POST("/participants/terminate/:competition_id/:participant_id", s.terminateParticipantHandler, gated)

	e.POST("/submissions/create/:competition_id/:participant_id/:problem_id", s.createSubmissionHandler, gated)
	e.GET("/submissions/:participant_id", s.listSubmissionsHandler)

	e.POST("/hints/get/:competition_id/:participant_id", s.getHintHandler, gated)
	e.GET("/rankings/get/:competition_id", s.getRankingsHandler, gated)
	e.POST("/agent/call/:competition_id/:participant_id", s.agentCallHandler, gated)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server starting", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
