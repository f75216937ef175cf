// Package engine provides the flowsql execution core.
//
// A Database turns structured SQL expressions into executed statements:
// it formats an expression through the configured formatter, acquires a
// connection (joining the ambient transaction when one is active), binds
// parameters, executes, and streams result rows as detached snapshots.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/flowsql/pkg/dialect"
	"github.com/leapstack-labs/flowsql/pkg/driver"
	"github.com/leapstack-labs/flowsql/pkg/expr"
)

// LevelTrace is the log level used for bound parameter values. It is
// more verbose than Debug because parameter values may be sensitive.
const LevelTrace = slog.Level(-8)

// FormatOptions are passed to the formatter on every execution.
type FormatOptions struct {
	// Dialect supplies quoting, normalization and placeholder rules.
	Dialect *dialect.Dialect
	// Beautify enables multi-line output with indentation.
	Beautify bool
	// IndentSize is the indent width used when Beautify is set.
	IndentSize int
	// QuoteIdentifiers forces quoting of every identifier.
	QuoteIdentifiers bool
	// UppercaseSQL renders keywords in upper case.
	UppercaseSQL bool
}

// Formatter renders an expression tree into SQL text plus its ordered
// parameter list. Formatting must be deterministic for identical input;
// batch uniformity checking depends on it.
type Formatter interface {
	Format(e expr.Expression, opts FormatOptions) (*expr.SQLStatement, error)
}

// Config holds database configuration. Every field except
// ConnectionFactory and Formatter is optional and independently
// substitutable.
type Config struct {
	// ConnectionFactory supplies physical connections.
	ConnectionFactory driver.ConnectionFactory
	// Formatter renders expressions to SQL.
	Formatter Formatter
	// TransactionManager coordinates the ambient transaction. Defaults
	// to the context-based manager.
	TransactionManager TransactionManager
	// Dialect configures quoting and placeholders. Defaults to
	// dialect.Standard.
	Dialect *dialect.Dialect
	// Logger is the structured logger (uses discard if nil).
	Logger *slog.Logger
	// TranslateError, when set, is applied to driver-level errors
	// before they propagate.
	TranslateError func(error) error
	// Beautify and IndentSize control formatted SQL layout.
	Beautify   bool
	IndentSize int
	// QuoteIdentifiers forces quoting of every identifier.
	QuoteIdentifiers bool
	// UppercaseSQL renders keywords in upper case.
	UppercaseSQL bool
	// Metrics, when set, records execution and transaction counters.
	Metrics *Metrics
}

// Database is the execution engine. It holds only read-only
// configuration fixed at construction; concurrent call chains share it
// freely, each carrying its own transaction context.
type Database struct {
	factory    driver.ConnectionFactory
	formatter  Formatter
	txm        TransactionManager
	dialect    *dialect.Dialect
	logger     *slog.Logger
	translate  func(error) error
	formatOpts FormatOptions
	metrics    *Metrics
}

// New creates a Database from the given configuration.
func New(cfg Config) (*Database, error) {
	if cfg.ConnectionFactory == nil {
		return nil, fmt.Errorf("connection factory is required")
	}
	if cfg.Formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := cfg.Dialect
	if d == nil {
		d = dialect.Standard
	}

	indent := cfg.IndentSize
	if indent <= 0 {
		indent = 2
	}

	txm := cfg.TransactionManager
	if txm == nil {
		txm = NewContextTransactionManager(cfg.ConnectionFactory)
	}

	logger.Debug("initializing database", "dialect", d.Name)

	return &Database{
		factory:   cfg.ConnectionFactory,
		formatter: cfg.Formatter,
		txm:       txm,
		dialect:   d,
		logger:    logger,
		translate: cfg.TranslateError,
		formatOpts: FormatOptions{
			Dialect:          d,
			Beautify:         cfg.Beautify,
			IndentSize:       indent,
			QuoteIdentifiers: cfg.QuoteIdentifiers,
			UppercaseSQL:     cfg.UppercaseSQL,
		},
		metrics: cfg.Metrics,
	}, nil
}

// Dialect returns the configured SQL dialect.
func (d *Database) Dialect() *dialect.Dialect {
	return d.dialect
}

// Logger returns the configured logger.
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Format renders an expression through the configured formatter with the
// database's format options.
func (d *Database) Format(e expr.Expression) (*expr.SQLStatement, error) {
	stmt, err := d.formatter.Format(e, d.formatOpts)
	if err != nil {
		return nil, fmt.Errorf("formatting expression: %w", err)
	}
	return stmt, nil
}

// translateErr applies the configured error translation hook, exactly
// once, to a driver-level error. Usage errors surface programming
// mistakes and are never translated.
func (d *Database) translateErr(err error) error {
	if err == nil || d.translate == nil || IsUsageError(err) {
		return err
	}
	return d.translate(err)
}
