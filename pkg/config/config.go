// Package config loads and validates arena configuration. Values are layered:
// built-in defaults, then the YAML file, then ARENA_* environment variables,
// then CLI flags applied by the caller.
package config

import (
	"fmt"
	"time"
)

// Config is the umbrella configuration object returned by Initialize().
type Config struct {
	configPath string // Configuration file path (for reference)

	Logging      LoggingConfig      `yaml:"logging"`
	OnlineJudge  OnlineJudgeConfig  `yaml:"online_judge"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Database     DatabaseConfig     `yaml:"database"`
	DataSources  DataSourcesConfig  `yaml:"data_sources"`
	Server       ServerConfig       `yaml:"server"`
	Agent        AgentConfig        `yaml:"agent"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Directory string `yaml:"directory"`
}

// OnlineJudgeConfig points at the external sandbox service.
type OnlineJudgeConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// RateLimitingConfig configures the global request gate.
type RateLimitingConfig struct {
	// MinInterval is the minimum spacing between any two gated requests,
	// in seconds (fractions allowed).
	MinInterval float64 `yaml:"min_interval"`
}

// Interval returns MinInterval as a duration.
func (r RateLimitingConfig) Interval() time.Duration {
	return time.Duration(r.MinInterval * float64(time.Second))
}

// DatabaseConfig locates the embedded database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataSourcesConfig locates the static dataset directories.
type DataSourcesConfig struct {
	ProblemDataDir  string `yaml:"problem_data_dir"`
	TextbookDataDir string `yaml:"textbook_data_dir"`
	StrategyDataDir string `yaml:"strategy_data_dir"`
	GuideDataDir    string `yaml:"guide_data_dir"`
}

// ServerConfig is the HTTP bind address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port bind address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AgentConfig bounds the agent drivers run by the organizer.
type AgentConfig struct {
	// MaxTurns caps the perceive-act iterations per driver.
	MaxTurns int `yaml:"max_turns"`
	// MaxParseRetries bounds consecutive unparseable LLM responses before the
	// participant is terminated with reason "error".
	MaxParseRetries int `yaml:"max_parse_retries"`
	// LLMTimeout is the per-call timeout for proxied LLM requests.
	LLMTimeout time.Duration `yaml:"llm_timeout"`
	// WallTime is the per-driver wall-clock budget; exceeding it terminates
	// the participant with reason "timeout".
	WallTime time.Duration `yaml:"wall_time"`
}

// Default returns the built-in configuration. The loader merges file and
// environment values on top.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		OnlineJudge: OnlineJudgeConfig{
			Endpoint: "http://localhost:9000/judge",
		},
		RateLimiting: RateLimitingConfig{MinInterval: 0.05},
		Database:     DatabaseConfig{Path: "arena.db"},
		DataSources: DataSourcesConfig{
			ProblemDataDir:  "./data/problems",
			TextbookDataDir: "./data/textbook",
			StrategyDataDir: "./data/strategy",
			GuideDataDir:    "./data/guide",
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Agent: AgentConfig{
			MaxTurns:        30,
			MaxParseRetries: 3,
			LLMTimeout:      5 * time.Minute,
			WallTime:        30 * time.Minute,
		},
	}
}

// ConfigPath returns the configuration file path this config was loaded from
// (empty when running on pure defaults).
func (c *Config) ConfigPath() string {
	return c.configPath
}

// Validate checks invariants that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidValue, c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", ErrMissingRequiredField)
	}
	if c.OnlineJudge.Endpoint == "" {
		return fmt.Errorf("%w: online_judge.endpoint", ErrMissingRequiredField)
	}
	if c.RateLimiting.MinInterval < 0 {
		return fmt.Errorf("%w: rate_limiting.min_interval must be non-negative", ErrInvalidValue)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidValue, c.Logging.Level)
	}
	return nil
}
