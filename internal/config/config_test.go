package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: t.TempDir(), Env: noEnv})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FromFile(t *testing.T) {
	dir := writeConfig(t, `
log_level: "debug"
journal: path: "journal.db"
http: {
	timeout:    "250ms"
	rate_limit: 2.5
	burst:      4
}
script: timeout: "2s"
`)

	cfg, path, err := Load(context.Background(), LoadOptions{Dir: dir, Env: noEnv})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, FileName), path)
	assert.Equal(t, &Config{
		LogLevel: "debug",
		Journal:  JournalConfig{Path: "journal.db"},
		HTTP:     HTTPConfig{Timeout: 250 * time.Millisecond, RateLimit: 2.5, Burst: 4},
		Script:   ScriptConfig{Timeout: 2 * time.Second},
	}, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, `http: burst: 3`)

	cfg, _, err := Load(context.Background(), LoadOptions{Dir: dir, Env: noEnv})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.HTTP.Burst)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, `http: timeout: "5s"`)

	cfg, _, err := Load(context.Background(), LoadOptions{
		Dir: dir,
		Env: envMap(map[string]string{
			"APPCORE_HTTP_TIMEOUT":    "1m",
			"APPCORE_HTTP_RATE_LIMIT": "10",
			"APPCORE_JOURNAL_PATH":    "/tmp/j.db",
			"APPCORE_LOG_LEVEL":       "warn",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.HTTP.Timeout)
	assert.Equal(t, 10.0, cfg.HTTP.RateLimit)
	assert.Equal(t, "/tmp/j.db", cfg.Journal.Path)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	tests := map[string]string{
		"unknown key":      `colour: "blue"`,
		"bad level":        `log_level: "loud"`,
		"bad duration":     `http: timeout: "soon"`,
		"negative burst":   `http: burst: -1`,
		"syntax error":     `http: {`,
		"unknown sub key":  `script: memory: 10`,
		"wrong value type": `journal: path: 42`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := writeConfig(t, content)
			_, _, err := Load(context.Background(), LoadOptions{Dir: dir, Env: noEnv})
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	_, _, err := Load(context.Background(), LoadOptions{
		Dir: t.TempDir(),
		Env: envMap(map[string]string{"APPCORE_LOG_LEVEL": "loud"}),
	})
	assert.ErrorContains(t, err, `unknown log_level "loud"`)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, _, err := Load(context.Background(), LoadOptions{FilePath: filepath.Join(t.TempDir(), "missing.cue"), Env: noEnv})
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, LoadOptions{Env: noEnv})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "APPCORE_HTTP_RATE_LIMIT", EnvName("http.rate_limit"))
	assert.Equal(t, "APPCORE_LOG_LEVEL", EnvName("log_level"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
