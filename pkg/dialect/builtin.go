package dialect

// Standard is the ANSI fallback dialect used when none is configured.
var Standard = &Dialect{
	Name: "standard",
	Identifiers: IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: NormNone,
	},
	DefaultSchema:       "",
	Placeholder:         PlaceholderQuestion,
	SupportsLimitOffset: true,
}

// SQLite dialect.
var SQLite = &Dialect{
	Name: "sqlite",
	Identifiers: IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: NormNone,
	},
	DefaultSchema:       "main",
	Placeholder:         PlaceholderQuestion,
	SupportsLimitOffset: true,
}

// Postgres dialect.
var Postgres = &Dialect{
	Name: "postgres",
	Identifiers: IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: NormLowercase,
	},
	DefaultSchema:       "public",
	Placeholder:         PlaceholderDollar,
	SupportsLimitOffset: true,
}

// DuckDB dialect.
var DuckDB = &Dialect{
	Name: "duckdb",
	Identifiers: IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: NormLowercase,
	},
	DefaultSchema:       "main",
	Placeholder:         PlaceholderQuestion,
	SupportsLimitOffset: true,
}

func init() {
	Register(Standard)
	Register(SQLite)
	Register(Postgres)
	Register(DuckDB)
}
