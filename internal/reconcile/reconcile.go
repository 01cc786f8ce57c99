package reconcile

import (
	"cmp"
	"slices"
	"sort"
	"strings"
)

// Record is one source row: source column name to raw scalar.
type Record map[string]any

// Source is one input table together with its header mapping.
type Source struct {
	// Name identifies the source in errors (e.g. "new", "old" or a path).
	Name string

	// Columns is the header in file order. When nil it is derived from
	// the keys of Rows.
	Columns []string

	Rows []Record

	// Mapping renames source columns to canonical names.
	Mapping map[string]string
}

func (s Source) header() []string {
	if s.Columns != nil {
		return s.Columns
	}
	seen := make(map[string]struct{})
	for _, r := range s.Rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Key is the join key.
type Key struct {
	ISO3 string
	Year int
}

func compareKeys(a, b Key) int {
	if c := strings.Compare(a.ISO3, b.ISO3); c != 0 {
		return c
	}
	return cmp.Compare(a.Year, b.Year)
}

// Row holds one value per canonical column, in canonical order.
type Row []Value

// Stats describes where the merged rows came from.
type Stats struct {
	Rows         int `json:"rows"`
	Both         int `json:"both"`
	PrimaryOnly  int `json:"primary_only"`
	FallbackOnly int `json:"fallback_only"`
	// Dropped counts input rows without an iso3 value.
	Dropped int `json:"dropped"`
	// Backfilled counts fields of shared keys taken from the fallback
	// source because the primary one had no value.
	Backfilled int `json:"backfilled"`
}

// Table is the reconciled output.
type Table struct {
	Columns []string
	Rows    []Row
	Stats   Stats
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Key returns the join key of row i.
func (t *Table) Key(i int) Key {
	row := t.Rows[i]
	year, _ := parseYear(row[columnIndex[ColumnYear]].Raw())
	return Key{ISO3: row[columnIndex[ColumnISO3]].String(), Year: year}
}

// Lookup finds the row for a key.
func (t *Table) Lookup(iso3 string, year int) (Row, bool) {
	target := Key{ISO3: iso3, Year: year}
	i, found := sort.Find(len(t.Rows), func(i int) int {
		return compareKeys(target, t.Key(i))
	})
	if !found {
		return nil, false
	}
	return t.Rows[i], true
}

// Get returns the value of a canonical column in row.
func (r Row) Get(column string) Value {
	i := ColumnIndex(column)
	if i < 0 || i >= len(r) {
		return Missing
	}
	return r[i]
}

// Records renders every row as strings, with Missing as the empty field.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = v.String()
		}
		out[i] = rec
	}
	return out
}

type side struct {
	src   Source
	cols  map[string]string
	index map[Key]int
}

func (s *side) value(row int, column string) Value {
	srcCol, ok := s.cols[column]
	if !ok {
		return Missing
	}
	return Of(s.src.Rows[row][srcCol])
}

func indexSource(src Source, stats *Stats) (*side, error) {
	cols, err := ResolveColumns(src.Name, src.header(), src.Mapping)
	if err != nil {
		return nil, err
	}

	isoCol, yearCol := cols[ColumnISO3], cols[ColumnYear]
	index := make(map[Key]int, len(src.Rows))
	for i, rec := range src.Rows {
		rawYear := rec[yearCol]
		if Of(rawYear).IsMissing() {
			return nil, &TypeError{Source: src.Name, Row: i + 1, Column: yearCol}
		}
		year, ok := parseYear(rawYear)
		if !ok {
			return nil, &TypeError{Source: src.Name, Row: i + 1, Column: yearCol, Value: rawYear}
		}

		iso := strings.TrimSpace(Of(rec[isoCol]).String())
		if iso == "" {
			stats.Dropped++
			continue
		}

		key := Key{ISO3: iso, Year: year}
		if prev, dup := index[key]; dup {
			return nil, &DuplicateKeyError{Source: src.Name, Key: key, Rows: [2]int{prev + 1, i + 1}}
		}
		index[key] = i
	}

	return &side{src: src, cols: cols, index: index}, nil
}

// Reconcile outer-joins primary and fallback on (iso3, year).
//
// Each non-key column takes the primary value when present, else the
// fallback value, else Missing. Rows come out sorted by iso3 then year.
// Reconcile does not modify its inputs.
func Reconcile(primary, fallback Source) (*Table, error) {
	var stats Stats

	a, err := indexSource(primary, &stats)
	if err != nil {
		return nil, err
	}
	b, err := indexSource(fallback, &stats)
	if err != nil {
		return nil, err
	}

	keys := make([]Key, 0, len(a.index)+len(b.index))
	for k := range a.index {
		keys = append(keys, k)
	}
	for k := range b.index {
		if _, shared := a.index[k]; !shared {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		ia, inA := a.index[k]
		ib, inB := b.index[k]

		switch {
		case inA && inB:
			stats.Both++
		case inA:
			stats.PrimaryOnly++
		default:
			stats.FallbackOnly++
		}

		row := make(Row, len(Columns))
		for i, col := range Columns {
			switch col {
			case ColumnISO3:
				row[i] = Of(k.ISO3)
				continue
			case ColumnYear:
				row[i] = Of(k.Year)
				continue
			}

			va, vb := Missing, Missing
			if inA {
				va = a.value(ia, col)
			}
			if inB {
				vb = b.value(ib, col)
			}
			if !va.IsMissing() {
				row[i] = va
				continue
			}
			row[i] = vb
			if inA && !vb.IsMissing() {
				stats.Backfilled++
			}
		}
		rows = append(rows, row)
	}
	stats.Rows = len(rows)

	return &Table{
		Columns: slices.Clone(Columns),
		Rows:    rows,
		Stats:   stats,
	}, nil
}
