package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitialize_Defaults(t *testing.T) {
	cfg, err := Initialize("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "arena.db", cfg.Database.Path)
	assert.Equal(t, 50*time.Millisecond, cfg.RateLimiting.Interval())
	assert.Equal(t, 30, cfg.Agent.MaxTurns)
}

func TestInitialize_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
server:
  port: 9090
rate_limiting:
  min_interval: 0.2
database:
  path: /tmp/custom.db
`)
	cfg, err := Initialize(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 200*time.Millisecond, cfg.RateLimiting.Interval())
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	// Untouched sections keep defaults.
	assert.Equal(t, "http://localhost:9000/judge", cfg.OnlineJudge.Endpoint)
	assert.Equal(t, path, cfg.ConfigPath())
}

func TestInitialize_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)
	t.Setenv("ARENA_PORT", "7070")
	t.Setenv("ARENA_JUDGE_ENDPOINT", "http://judge.internal:9000/judge")

	cfg, err := Initialize(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://judge.internal:9000/judge", cfg.OnlineJudge.Endpoint)
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("ARENA_TEST_DATA_ROOT", "/srv/data")
	path := writeConfig(t, `
data_sources:
  problem_data_dir: "{{.ARENA_TEST_DATA_ROOT}}/problems"
`)
	cfg, err := Initialize(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/data/problems", cfg.DataSources.ProblemDataDir)
}

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Initialize(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitialize_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: -1\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"negative interval", "rate_limiting:\n  min_interval: -0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Initialize(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestInitialize_InvalidYAML(t *testing.T) {
	_, err := Initialize(writeConfig(t, "server: [not: a: mapping"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestExpandEnv_PlainYAMLUnchanged(t *testing.T) {
	in := []byte("server:\n  port: 8080\n")
	assert.Equal(t, in, ExpandEnv(in))
}

func TestExpandEnv_MissingVarEmpty(t *testing.T) {
	out := ExpandEnv([]byte(`path: "{{.ARENA_DEFINITELY_UNSET_VAR}}/x"`))
	assert.Equal(t, `path: "/x"`, string(out))
}
