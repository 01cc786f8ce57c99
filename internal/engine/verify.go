package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tbmerge/internal/adapter"
	"github.com/leapstack-labs/tbmerge/internal/reconcile"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

// ErrVerifyMismatch is returned by Verify when the SQL rendition of the
// merge disagrees with the reconciler.
var ErrVerifyMismatch = errors.New("verification failed")

const maxReportedMismatches = 20

// Mismatch is one cell where the two merges disagree.
type Mismatch struct {
	Row    int    `json:"row"`
	ISO3   string `json:"iso3"`
	Year   int    `json:"year"`
	Column string `json:"column"`
	Merged string `json:"merged"`
	SQL    string `json:"sql"`
}

// VerifyResult reports a cross-check.
type VerifyResult struct {
	Rows          int        `json:"rows"`
	SQLRows       int        `json:"sql_rows"`
	MismatchCount int        `json:"mismatch_count"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether both merges agree.
func (r *VerifyResult) OK() bool {
	return r.MismatchCount == 0 && r.Rows == r.SQLRows
}

// Verify recomputes the merge as a DuckDB full outer join over both raw
// files and compares it cell by cell with the reconciler output.
// Nothing is written. A disagreement returns the result together with an
// error wrapping ErrVerifyMismatch.
func (e *Engine) Verify(ctx context.Context) (*VerifyResult, error) {
	table, newSrc, oldSrc, err := e.reconcileSources()
	if err != nil {
		return nil, err
	}

	newCols, err := reconcile.ResolveColumns(SourceNew, newSrc.Columns, e.newMapping)
	if err != nil {
		return nil, err
	}
	oldCols, err := reconcile.ResolveColumns(SourceOld, oldSrc.Columns, e.oldMapping)
	if err != nil {
		return nil, err
	}

	db, err := adapter.Open(ctx, adapter.Config{Type: "duckdb"}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open verification database: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, src := range []struct{ table, path string }{
		{"src_new", e.newPath},
		{"src_old", e.oldPath},
	} {
		opts := adapter.CSVOptions{
			Delimiter:  tabular.DelimiterFor(src.path, e.delimiter),
			AllVarchar: true,
		}
		if err := db.LoadCSV(ctx, src.table, src.path, opts); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", src.path, err)
		}
	}

	rows, err := db.Query(ctx, buildVerifySQL(newCols, oldCols, e.naValues))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	want := table.Records()
	result := &VerifyResult{Rows: len(want)}
	got := make([]sql.NullString, len(reconcile.Columns))
	dest := make([]any, len(got))
	for i := range got {
		dest[i] = &got[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan verification row: %w", err)
		}
		i := result.SQLRows
		result.SQLRows++
		if i >= len(want) {
			continue
		}
		key := table.Key(i)
		for j, col := range reconcile.Columns {
			if got[j].String == want[i][j] {
				continue
			}
			result.MismatchCount++
			if len(result.Mismatches) < maxReportedMismatches {
				result.Mismatches = append(result.Mismatches, Mismatch{
					Row:    i + 1,
					ISO3:   key.ISO3,
					Year:   key.Year,
					Column: col,
					Merged: want[i][j],
					SQL:    got[j].String,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read verification rows: %w", err)
	}

	e.logger.Debug("verified", "rows", result.Rows, "sql_rows", result.SQLRows, "mismatches", result.MismatchCount)
	if !result.OK() {
		return result, fmt.Errorf("%w: %d rows merged, %d rows from SQL, %d cells differ",
			ErrVerifyMismatch, result.Rows, result.SQLRows, result.MismatchCount)
	}
	return result, nil
}

// buildVerifySQL renders the merge as SQL. cols map canonical names to
// source column names for each side. Fields equal to an NA token become
// NULL in every column but iso2; empty fields are NULL on load.
func buildVerifySQL(newCols, oldCols map[string]string, naValues []string) string {
	var b strings.Builder
	b.WriteString("WITH n AS (")
	b.WriteString(sideSQL("src_new", newCols, naValues))
	b.WriteString("),\no AS (")
	b.WriteString(sideSQL("src_old", oldCols, naValues))
	b.WriteString("),\nj AS (SELECT iso3, year")
	for _, col := range reconcile.Columns {
		if col == reconcile.ColumnISO3 || col == reconcile.ColumnYear {
			continue
		}
		q := adapter.QuoteIdent(col)
		fmt.Fprintf(&b, ", COALESCE(n.%s, o.%s) AS %s", q, q, q)
	}
	b.WriteString(" FROM n FULL OUTER JOIN o USING (iso3, year))\nSELECT ")
	for i, col := range reconcile.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "CAST(j.%s AS VARCHAR)", adapter.QuoteIdent(col))
	}
	b.WriteString(" FROM j ORDER BY j.iso3, j.year")
	return b.String()
}

func sideSQL(table string, cols map[string]string, naValues []string) string {
	iso := naExpr(adapter.QuoteIdent(cols[reconcile.ColumnISO3]), naValues)
	exprs := make([]string, 0, len(reconcile.Columns))
	for _, col := range reconcile.Columns {
		src, ok := cols[col]
		switch {
		case col == reconcile.ColumnISO3:
			exprs = append(exprs, "TRIM("+iso+") AS iso3")
		case col == reconcile.ColumnYear:
			exprs = append(exprs, "CAST(TRIM("+adapter.QuoteIdent(src)+") AS INTEGER) AS year")
		case ok && col == reconcile.ColumnISO2:
			exprs = append(exprs, adapter.QuoteIdent(src)+" AS "+adapter.QuoteIdent(col))
		case ok:
			exprs = append(exprs, naExpr(adapter.QuoteIdent(src), naValues)+" AS "+adapter.QuoteIdent(col))
		default:
			exprs = append(exprs, "CAST(NULL AS VARCHAR) AS "+adapter.QuoteIdent(col))
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE TRIM(COALESCE(%s, '')) <> ''",
		strings.Join(exprs, ", "), table, iso)
}

// naExpr maps NA tokens in expr to NULL.
func naExpr(expr string, naValues []string) string {
	tokens := make([]string, 0, len(naValues))
	for _, v := range naValues {
		if v != "" {
			tokens = append(tokens, adapter.QuoteLiteral(v))
		}
	}
	if len(tokens) == 0 {
		return expr
	}
	return fmt.Sprintf("CASE WHEN %s IN (%s) THEN NULL ELSE %s END", expr, strings.Join(tokens, ", "), expr)
}
