package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/leapstack-labs/tbmerge/internal/adapter"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

// TableName is the table the combined file is loaded into for queries.
const TableName = "tb"

// QueryResult is a fully materialized result set.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Session holds an in-memory database with the combined file loaded as
// table tb.
type Session struct {
	db adapter.Adapter
}

// OpenSession loads the combined output into the configured query engine.
// The caller must Close the session.
func (e *Engine) OpenSession(ctx context.Context) (*Session, error) {
	if _, err := os.Stat(e.outputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("output file %s does not exist: run merge first", e.outputPath)
		}
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}

	cfg := adapter.Config{Type: e.queryType}
	db, err := adapter.Open(ctx, cfg, e.logger)
	if err != nil {
		return nil, err
	}

	opts := adapter.CSVOptions{Delimiter: tabular.DelimiterFor(e.outputPath, e.delimiter)}
	if err := db.LoadCSV(ctx, TableName, e.outputPath, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	e.logger.Debug("opened query session", "engine", db.DialectName(), "path", e.outputPath)
	return &Session{db: db}, nil
}

// Dialect returns the name of the underlying engine.
func (s *Session) Dialect() string {
	return s.db.DialectName()
}

// Close releases the database.
func (s *Session) Close() error {
	return s.db.Close()
}

// Query runs a statement and materializes every row. Byte slices are
// returned as strings.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// Columns lists the columns of table tb.
func (s *Session) Columns(ctx context.Context) ([]string, error) {
	res, err := s.Query(ctx, "SELECT * FROM "+TableName+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// Query opens a session, runs one statement and closes it.
func (e *Engine) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	s, err := e.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.Query(ctx, query, args...)
}
