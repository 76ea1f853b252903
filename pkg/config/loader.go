package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates configuration.
//
// Steps performed:
//  1. Start from built-in defaults
//  2. Load the YAML file at path (optional; missing file keeps defaults)
//  3. Expand {{.VAR}} environment references
//  4. Merge file values over defaults
//  5. Apply ARENA_* environment overrides
//  6. Validate
func Initialize(path string) (*Config, error) {
	log := slog.With("config_path", path)
	log.Info("Initializing configuration")

	cfg := Default()
	cfg.configPath = path

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if fileCfg != nil {
			if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("failed to merge configuration: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"server_addr", cfg.Server.Addr(),
		"database", cfg.Database.Path,
		"judge_endpoint", cfg.OnlineJudge.Endpoint)

	return cfg, nil
}

// loadFile reads and parses the YAML config file. A missing file is not an
// error; the caller falls back to defaults and environment.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Config file not found, using defaults", "path", path)
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// applyEnvOverrides applies ARENA_* environment variables on top of the
// loaded configuration. Environment beats file; CLI flags beat both (applied
// by the caller after Initialize).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARENA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ARENA_LOG_DIR"); v != "" {
		cfg.Logging.Directory = v
	}
	if v := os.Getenv("ARENA_JUDGE_ENDPOINT"); v != "" {
		cfg.OnlineJudge.Endpoint = v
	}
	if v := os.Getenv("ARENA_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ARENA_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ARENA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		} else {
			slog.Warn("Invalid ARENA_PORT, keeping configured value", "value", v)
		}
	}
	if v := os.Getenv("ARENA_MIN_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimiting.MinInterval = f
		} else {
			slog.Warn("Invalid ARENA_MIN_INTERVAL, keeping configured value", "value", v)
		}
	}
	if v := os.Getenv("ARENA_PROBLEM_DATA_DIR"); v != "" {
		cfg.DataSources.ProblemDataDir = v
	}
	if v := os.Getenv("ARENA_TEXTBOOK_DATA_DIR"); v != "" {
		cfg.DataSources.TextbookDataDir = v
	}
	if v := os.Getenv("ARENA_STRATEGY_DATA_DIR"); v != "" {
		cfg.DataSources.StrategyDataDir = v
	}
	if v := os.Getenv("ARENA_GUIDE_DATA_DIR"); v != "" {
		cfg.DataSources.GuideDataDir = v
	}
	if v := os.Getenv("ARENA_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Agent.LLMTimeout = d
		} else {
			slog.Warn("Invalid ARENA_LLM_TIMEOUT, keeping configured value", "value", v)
		}
	}
}
