// Organizer CLI — runs one competition end to end against a live arena:
// creates the competition from a JSON manifest, registers the participants,
// drives every agent in parallel, and writes a final-results document.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/codearena/arena/pkg/config"
	"github.com/codearena/arena/pkg/organizer"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	arenaURL := flag.String("arena",
		getEnv("ARENA_URL", "http://localhost:8080"),
		"Base URL of the arena service")
	manifestPath := flag.String("manifest",
		getEnv("ARENA_MANIFEST", "manifest.json"),
		"Path to the competition manifest (JSON)")
	outputPath := flag.String("output",
		getEnv("ARENA_RESULTS", "results.json"),
		"Path the final-results document is written to")
	configPath := flag.String("config",
		getEnv("ARENA_CONFIG", ""),
		"Path to configuration file (YAML); only the agent section is used")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment")
	}

	cfg, err := config.Initialize(*configPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	manifest, err := organizer.LoadManifest(*manifestPath)
	if err != nil {
		slog.Error("Failed to load manifest", "path", *manifestPath, "error", err)
		os.Exit(1)
	}

	slog.Info("Starting competition run",
		"arena", *arenaURL,
		"title", manifest.Title,
		"participants", len(manifest.Participants))

	org := organizer.New(*arenaURL, cfg.Agent)
	result, err := org.Run(context.Background(), manifest)
	if err != nil {
		slog.Error("Competition run failed", "error", err)
		os.Exit(1)
	}

	if err := organizer.WriteResult(*outputPath, result); err != nil {
		slog.Error("Failed to write results", "path", *outputPath, "error", err)
		os.Exit(1)
	}

	slog.Info("Results written",
		"path", *outputPath,
		"competition_id", result.CompetitionID,
		"rankings", len(result.Rankings))
}
