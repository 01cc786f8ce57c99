package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/tbmerge/internal/reconcile"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return NewSQLiteAdapter(logger) })
}

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	BaseSQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter instance.
func NewSQLiteAdapter(logger *slog.Logger) *SQLiteAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteAdapter{BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *SQLiteAdapter) DialectName() string {
	return "sqlite"
}

// Connect opens a SQLite database. An empty path opens an in-memory database.
func (a *SQLiteAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	return a.open(ctx, "sqlite", path, cfg)
}

// LoadCSV reads a delimited file and bulk inserts it into table.
// Column affinity is INTEGER or REAL when every non-null value parses as
// such, TEXT otherwise.
func (a *SQLiteAdapter) LoadCSV(ctx context.Context, table, path string, opts CSVOptions) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	src, err := tabular.ReadFile(path, table, tabular.ReadOptions{
		Delimiter: opts.Delimiter,
		NAValues:  append([]string{""}, opts.NullValues...),
	})
	if err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}

	types := make([]string, len(src.Columns))
	defs := make([]string, len(src.Columns))
	for i, col := range src.Columns {
		types[i] = "TEXT"
		if !opts.AllVarchar {
			types[i] = inferAffinity(src.Rows, col)
		}
		defs[i] = QuoteIdent(col) + " " + types[i]
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(src.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(table), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(src.Columns))
	for _, rec := range src.Rows {
		for i, col := range src.Columns {
			args[i] = convert(rec[col], types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	a.Logger.Debug("loaded csv", "table", table, "rows", len(src.Rows))
	return nil
}

func inferAffinity(rows []reconcile.Record, col string) string {
	affinity := ""
	for _, rec := range rows {
		s, ok := rec[col].(string)
		if !ok {
			continue
		}
		switch {
		case isInt(s):
			if affinity == "" {
				affinity = "INTEGER"
			}
		case isFloat(s):
			if affinity != "TEXT" {
				affinity = "REAL"
			}
		default:
			return "TEXT"
		}
	}
	if affinity == "" {
		return "TEXT"
	}
	return affinity
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func convert(v any, affinity string) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	switch affinity {
	case "INTEGER":
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	case "REAL":
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return s
}

// Ensure SQLiteAdapter implements Adapter interface
var _ Adapter = (*SQLiteAdapter)(nil)
