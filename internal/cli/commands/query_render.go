package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/tbmerge/internal/engine"
)

// Query output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
)

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatCSV, FormatMarkdown, "markdown":
		return nil
	}
	return fmt.Errorf("invalid format %q (must be table, json, csv, or md)", format)
}

func renderResults(w io.Writer, res *engine.QueryResult, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, res)
	case FormatCSV:
		return renderCSV(w, res)
	case FormatMarkdown, "markdown":
		return renderMarkdown(w, res)
	default:
		return renderTable(w, res)
	}
}

func newResultTable(w io.Writer, res *engine.QueryResult) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range res.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, res *engine.QueryResult) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := newResultTable(w, res)
	t.SetStyle(table.StyleLight)
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func renderJSON(w io.Writer, res *engine.QueryResult) error {
	results := make([]map[string]any, 0, len(res.Rows))
	for _, values := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderCSV(w io.Writer, res *engine.QueryResult) error {
	newResultTable(w, res).RenderCSV()
	return nil
}

func renderMarkdown(w io.Writer, res *engine.QueryResult) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	newResultTable(w, res).RenderMarkdown()
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
