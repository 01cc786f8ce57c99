// Package tabular reads delimited files into reconciler sources and writes
// reconciled tables back out.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tbmerge/internal/reconcile"
)

// ReadOptions controls how a delimited file is parsed.
type ReadOptions struct {
	// Delimiter separates fields. If 0, it is guessed from the file
	// extension: tab for .tsv, comma otherwise.
	Delimiter rune

	// NAValues are field values read as missing. Nil uses DefaultNAValues.
	// Empty fields are missing regardless. Columns mapping to iso2 ignore
	// the tokens.
	NAValues []string

	// Mapping is attached to the returned source.
	Mapping map[string]string
}

// DefaultNAValues returns the tokens treated as missing data.
func DefaultNAValues() []string {
	return []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "#N/A"}
}

// DelimiterFor returns delim, or the delimiter implied by path when delim is 0.
func DelimiterFor(path string, delim rune) rune {
	if delim != 0 {
		return delim
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ReadFile reads the delimited file at path into a source named name.
func ReadFile(path, name string, opts ReadOptions) (reconcile.Source, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return reconcile.Source{}, fmt.Errorf("failed to open %s source: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	opts.Delimiter = DelimiterFor(path, opts.Delimiter)
	src, err := Read(f, name, opts)
	if err != nil {
		return reconcile.Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Read parses delimited data with a header row. Every data row must have
// as many fields as the header. Empty fields and fields matching an NA
// token are stored as nil; all other fields are kept as raw strings.
func Read(r io.Reader, name string, opts ReadOptions) (reconcile.Source, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return reconcile.Source{}, fmt.Errorf("%s source has no header row", name)
		}
		return reconcile.Source{}, fmt.Errorf("failed to read %s header: %w", name, err)
	}

	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	seen := make(map[string]struct{}, len(header))
	verbatim := make([]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := seen[h]; dup {
			return reconcile.Source{}, &reconcile.SchemaError{
				Source: name,
				Column: h,
				Reason: "the header repeats it",
			}
		}
		seen[h] = struct{}{}
		header[i] = h

		target, ok := opts.Mapping[h]
		if !ok {
			target = h
		}
		verbatim[i] = target == reconcile.ColumnISO2
	}

	na := opts.NAValues
	if na == nil {
		na = DefaultNAValues()
	}
	naSet := make(map[string]struct{}, len(na))
	for _, v := range na {
		naSet[v] = struct{}{}
	}

	var rows []reconcile.Record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return reconcile.Source{}, fmt.Errorf("failed to read %s row: %w", name, err)
		}

		rec := make(reconcile.Record, len(header))
		for i, field := range fields {
			if field == "" {
				rec[header[i]] = nil
				continue
			}
			if _, missing := naSet[field]; missing && !verbatim[i] {
				rec[header[i]] = nil
				continue
			}
			rec[header[i]] = field
		}
		rows = append(rows, rec)
	}

	return reconcile.Source{
		Name:    name,
		Columns: header,
		Rows:    rows,
		Mapping: opts.Mapping,
	}, nil
}
