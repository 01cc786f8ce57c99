// Package adapter provides the SQL engines used to cross-check and query
// reconciled burden tables. Every adapter is connection-scoped and works
// in memory; nothing is persisted.
package adapter

import (
	"context"
	"database/sql"
	"strings"
)

// Config holds the configuration for opening an adapter.
type Config struct {
	// Type selects the registered adapter (e.g. "duckdb", "sqlite").
	Type string

	// Path is the database location. Empty means in-memory.
	Path string
}

// CSVOptions controls LoadCSV.
type CSVOptions struct {
	// Delimiter separates fields. 0 means comma.
	Delimiter rune

	// NullValues are field values loaded as NULL. Empty fields are always NULL.
	NullValues []string

	// AllVarchar loads every column as text instead of inferring types.
	AllVarchar bool
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter is the interface implemented by every SQL engine.
type Adapter interface {
	// Connect opens the database described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// LoadCSV creates or replaces table with the contents of a delimited
	// file that has a header row.
	LoadCSV(ctx context.Context, table, path string, opts CSVOptions) error

	// DialectName returns the SQL dialect name (e.g. "duckdb").
	DialectName() string
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes an SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
