// Package dialect provides SQL dialect configuration for flowsql.
//
// A dialect carries the per-database settings the execution core needs:
// identifier quoting and normalization, parameter placeholder style, and
// pagination support. Text formatting of expression trees is performed by
// external formatters, which consult the dialect for these settings.
package dialect

import (
	"strconv"
	"strings"
)

// NormalizationStrategy describes how a database folds the case of
// unquoted identifiers.
type NormalizationStrategy int

const (
	// NormNone leaves identifiers as written.
	NormNone NormalizationStrategy = iota
	// NormUppercase folds unquoted identifiers to upper case.
	NormUppercase
	// NormLowercase folds unquoted identifiers to lower case.
	NormLowercase
)

// PlaceholderStyle describes how query parameters are written.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses "?" for every parameter.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses "$1", "$2", ... (PostgreSQL style).
	PlaceholderDollar
)

// IdentifierConfig describes identifier quoting for a dialect.
type IdentifierConfig struct {
	Quote         string // opening quote, e.g. `"`
	QuoteEnd      string // closing quote, e.g. `"`
	Escape        string // escape for an embedded closing quote, e.g. `""`
	Normalization NormalizationStrategy
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name          string
	Identifiers   IdentifierConfig
	DefaultSchema string
	Placeholder   PlaceholderStyle

	// SupportsLimitOffset reports whether the dialect accepts
	// LIMIT/OFFSET pagination clauses directly.
	SupportsLimitOffset bool
}

// FormatPlaceholder returns a placeholder for the given parameter index
// (1-based). Returns "?" for PlaceholderQuestion style, "$1", "$2" etc.
// for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote
// characters, escaping any embedded closing quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}
