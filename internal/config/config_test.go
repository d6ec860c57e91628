package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jackalope.yaml")
	content := `database: /var/lib/jackalope/repo.db
workspace: staging
busy_timeout_ms: 250
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Database:      "/var/lib/jackalope/repo.db",
		Workspace:     "staging",
		BusyTimeoutMS: 250,
		Log:           LogConfig{Level: "debug", Format: "json"},
	}, cfg)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("database: repo.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "repo.db", cfg.Database)
	assert.Equal(t, DefaultWorkspace, cfg.Workspace)
	assert.Equal(t, DefaultBusyTimeout, cfg.BusyTimeoutMS)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "databse: repo.db\n", "failed to parse YAML"},
		{"unknown nested field", "log:\n  colour: red\n", "failed to parse YAML"},
		{"negative timeout", "busy_timeout_ms: -1\n", "busy_timeout_ms must not be negative"},
		{"bad level", "log:\n  level: loud\n", `unknown level "loud"`},
		{"bad format", "log:\n  format: xml\n", "log.format must be text or json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)
}

func TestNewLogHandler(t *testing.T) {
	ctx := context.Background()
	cfg := Default()

	var buf bytes.Buffer
	h := cfg.NewLogHandler(&buf, false)
	assert.IsType(t, &slog.TextHandler{}, h)
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))

	assert.True(t, cfg.NewLogHandler(&buf, true).Enabled(ctx, slog.LevelDebug))

	cfg.Log.Format = "json"
	h = cfg.NewLogHandler(&buf, false)
	assert.IsType(t, &slog.JSONHandler{}, h)

	slog.New(h).Info("node stored", "path", "/a")
	assert.Contains(t, buf.String(), `"path":"/a"`)
}
