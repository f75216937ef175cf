// Package config loads flowsql engine options from YAML files and
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/flowsql/pkg/engine"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// FLOWSQL_DIALECT=postgres.
const EnvPrefix = "FLOWSQL_"

// Options holds the recognized engine options.
type Options struct {
	// Driver is the stdsql driver name (sqlite, postgres, duckdb, or a
	// custom registration).
	Driver string `koanf:"driver"`
	// DSN is the driver connection string.
	DSN string `koanf:"dsn"`
	// Dialect is the registered dialect name.
	Dialect string `koanf:"dialect"`
	// Beautify and IndentSize control formatted SQL layout.
	Beautify   bool `koanf:"beautify"`
	IndentSize int  `koanf:"indent_size"`
	// QuoteIdentifiers forces quoting of every identifier.
	QuoteIdentifiers bool `koanf:"quote_identifiers"`
	// UppercaseSQL renders keywords in upper case.
	UppercaseSQL bool `koanf:"uppercase_sql"`
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"driver":      "sqlite",
		"dsn":         "",
		"dialect":     "standard",
		"indent_size": 2,
		"log_level":   "info",
	}
}

// Load reads options from defaults, then the given YAML file (skipped
// when path is empty), then FLOWSQL_* environment variables, in
// ascending precedence.
func Load(path string) (*Options, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var o Options
	if err := k.Unmarshal("", &o); err != nil {
		return nil, fmt.Errorf("unmarshaling options: %w", err)
	}
	return &o, nil
}

// SlogLevel maps the configured log level to a slog level. Unknown
// values fall back to info.
func (o *Options) SlogLevel() slog.Level {
	switch strings.ToLower(o.LogLevel) {
	case "trace":
		return engine.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
