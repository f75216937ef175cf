package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowsql/pkg/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	o, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", o.Driver)
	assert.Equal(t, "", o.DSN)
	assert.Equal(t, "standard", o.Dialect)
	assert.Equal(t, 2, o.IndentSize)
	assert.Equal(t, "info", o.LogLevel)
	assert.False(t, o.Beautify)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
driver: postgres
dsn: postgres://localhost/app
dialect: postgres
beautify: true
indent_size: 4
quote_identifiers: true
log_level: debug
`)

	o, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", o.Driver)
	assert.Equal(t, "postgres://localhost/app", o.DSN)
	assert.Equal(t, "postgres", o.Dialect)
	assert.True(t, o.Beautify)
	assert.Equal(t, 4, o.IndentSize)
	assert.True(t, o.QuoteIdentifiers)
	assert.Equal(t, "debug", o.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "loading config file")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "driver: postgres\ndialect: postgres\n")
	t.Setenv("FLOWSQL_DIALECT", "duckdb")
	t.Setenv("FLOWSQL_LOG_LEVEL", "trace")

	o, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", o.Driver)
	assert.Equal(t, "duckdb", o.Dialect)
	assert.Equal(t, "trace", o.LogLevel)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", engine.LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		o := &Options{LogLevel: tt.in}
		assert.Equal(t, tt.want, o.SlogLevel(), tt.in)
	}
}
