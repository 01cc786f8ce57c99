package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	BaseSQLAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *DuckDBAdapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// An empty path opens an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path == ":memory:" {
		// go-duckdb expects an empty DSN for an in-memory database.
		path = ""
	}
	return a.open(ctx, "duckdb", path, cfg)
}

// LoadCSV loads data from a CSV file into a table using read_csv.
// Unless AllVarchar is set DuckDB infers the column types.
func (a *DuckDBAdapter) LoadCSV(ctx context.Context, table, path string, opts CSVOptions) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	params := []string{"header = true"}
	if opts.Delimiter != 0 {
		params = append(params, "delim = "+QuoteLiteral(string(opts.Delimiter)))
	}
	if opts.AllVarchar {
		params = append(params, "all_varchar = true")
	}
	if len(opts.NullValues) > 0 {
		nulls := make([]string, 0, len(opts.NullValues)+1)
		nulls = append(nulls, QuoteLiteral(""))
		for _, v := range opts.NullValues {
			if v != "" {
				nulls = append(nulls, QuoteLiteral(v))
			}
		}
		params = append(params, "nullstr = ["+strings.Join(nulls, ", ")+"]")
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv(%s, %s)",
		QuoteIdent(table),
		QuoteLiteral(absPath),
		strings.Join(params, ", "),
	)

	a.Logger.Debug("loading csv", "table", table, "path", absPath)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	return nil
}

// Ensure DuckDBAdapter implements Adapter interface
var _ Adapter = (*DuckDBAdapter)(nil)
