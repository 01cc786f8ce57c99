package reconcile

import (
	"errors"
	"fmt"
	"strconv"
)

// SchemaError reports a source whose header cannot produce the join key,
// or that maps two columns onto one canonical name.
type SchemaError struct {
	Source string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in source %s: column %q: %s", e.Source, e.Column, e.Reason)
}

// TypeError reports a year value that cannot be read as an integer.
// Row is 1-based and counts data rows only.
type TypeError struct {
	Source string
	Row    int
	Column string
	Value  any
}

func (e *TypeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("type error in source %s, row %d: column %q is empty, expected an integer", e.Source, e.Row, e.Column)
	}
	return fmt.Sprintf("type error in source %s, row %d: column %q value %q is not an integer", e.Source, e.Row, e.Column, fmt.Sprint(e.Value))
}

// DuplicateKeyError reports two rows of one source sharing (iso3, year).
type DuplicateKeyError struct {
	Source string
	Key    Key
	Rows   [2]int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key in source %s: (%s, %d) appears on rows %d and %d",
		e.Source, e.Key.ISO3, e.Key.Year, e.Rows[0], e.Rows[1])
}

// IsInputError reports whether err, or anything it wraps, is one of the
// reconciler's data errors.
func IsInputError(err error) bool {
	var (
		schemaErr *SchemaError
		typeErr   *TypeError
		dupErr    *DuplicateKeyError
	)
	return errors.As(err, &schemaErr) || errors.As(err, &typeErr) || errors.As(err, &dupErr)
}

func quote(s string) string {
	return strconv.Quote(s)
}
