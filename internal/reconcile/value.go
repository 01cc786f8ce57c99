package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a single cell. The zero Value is Missing, which is distinct from
// a present empty string or a present zero.
type Value struct {
	raw     any
	present bool
}

// Missing marks a cell with no data.
var Missing = Value{}

// Of wraps a raw scalar. nil and NaN become Missing.
func Of(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Missing
	case Value:
		return v
	case float64:
		if math.IsNaN(v) {
			return Missing
		}
	case float32:
		if math.IsNaN(float64(v)) {
			return Missing
		}
	}
	return Value{raw: raw, present: true}
}

// IsMissing reports whether the cell holds no data.
func (v Value) IsMissing() bool {
	return !v.present
}

// Raw returns the wrapped scalar, or nil for Missing.
func (v Value) Raw() any {
	return v.raw
}

// String renders the value for flat-file output. Missing renders as "".
func (v Value) String() string {
	if !v.present {
		return ""
	}
	switch x := v.raw.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", x)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// parseYear coerces a raw year to an integer. Integer kinds, integral floats
// and base-10 integer strings are accepted. Every year must fit a 32-bit
// signed integer, the SQL INTEGER the verification join casts to.
func parseYear(raw any) (int, bool) {
	n, ok := yearValue(raw)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func yearValue(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt32 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt32 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if math.IsNaN(v) || math.Abs(v) > math.MaxInt32 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case float32:
		return yearValue(float64(v))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
