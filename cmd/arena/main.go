// Arena server — hosts the competition HTTP API: competitions, participants,
// submissions judged against the sandbox, hints, rankings, and the metered
// LLM proxy.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codearena/arena/pkg/api"
	"github.com/codearena/arena/pkg/config"
	"github.com/codearena/arena/pkg/dataset"
	"github.com/codearena/arena/pkg/judge"
	"github.com/codearena/arena/pkg/services"
	"github.com/codearena/arena/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupLogging installs the default slog logger per the configuration:
// text handler at the configured level, optionally teeing into a log file.
func setupLogging(cfg config.LoggingConfig) error {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(cfg.Directory, "arena.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		out = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config",
		getEnv("ARENA_CONFIG", ""),
		"Path to configuration file (YAML)")
	port := flag.Int("port", 0,
		"HTTP port (overrides config and environment)")
	dbPath := flag.String("db", "",
		"Database file path (overrides config and environment)")
	problemDataDir := flag.String("problem-data-dir", "",
		"Problem dataset directory (overrides config and environment)")
	judgeEndpoint := flag.String("judge-endpoint", "",
		"Sandbox judge endpoint (overrides config and environment)")
	flag.Parse()

	// Load .env next to the config file (or the working directory)
	envPath := ".env"
	if *configPath != "" {
		envPath = filepath.Join(filepath.Dir(*configPath), ".env")
	}
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("No .env file, continuing with existing environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(*configPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// CLI flags beat environment beats file.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *problemDataDir != "" {
		cfg.DataSources.ProblemDataDir = *problemDataDir
	}
	if *judgeEndpoint != "" {
		cfg.OnlineJudge.Endpoint = *judgeEndpoint
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration after flag overrides", "error", err)
		os.Exit(1)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting arena",
		"addr", cfg.Server.Addr(),
		"config", *configPath,
		"database", cfg.Database.Path)

	// 2. Load the problem dataset. An empty dataset makes every competition
	// creation fail, so treat it as a startup error.
	problemDir := cfg.DataSources.ProblemDataDir
	loader := dataset.NewLoader(problemDir, filepath.Base(problemDir))
	if loader.Len() == 0 {
		slog.Error("Problem dataset is empty", "dict", loader.DictPath())
		os.Exit(1)
	}
	slog.Info("Problem dataset loaded", "problems", loader.Len())

	// 3. Open the store (runs pending migrations)
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Error closing store", "error", err)
		}
	}()
	slog.Info("Store ready", "path", cfg.Database.Path)

	// 4. Build the knowledge corpora for the hint engine. Missing corpora
	// degrade individual hint levels, not the server.
	knowledge := services.NewKnowledge(loader,
		cfg.DataSources.StrategyDataDir,
		cfg.DataSources.TextbookDataDir,
		cfg.DataSources.GuideDataDir)

	// 5. Wire domain services
	sandbox := judge.NewClient(cfg.OnlineJudge.Endpoint)
	participantService := services.NewParticipantService(st)
	deps := api.Deps{
		Competitions: services.NewCompetitionService(st, loader),
		Participants: participantService,
		Submissions:  services.NewSubmissionService(st, participantService, sandbox, loader),
		Hints:        services.NewHintService(st, participantService, knowledge),
		Proxy:        services.NewProxyService(st, participantService, cfg.Agent.LLMTimeout),
		Rankings:     services.NewRankingService(st),
		Store:        st,
		Dataset:      loader,
	}
	slog.Info("Services initialized", "sandbox", cfg.OnlineJudge.Endpoint)

	// 6. Create and start the HTTP server (non-blocking)
	httpServer := api.NewServer(deps, cfg.RateLimiting.Interval())

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
