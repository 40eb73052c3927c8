// Package compdata pkg/compdata/types.go
package compdata

import (
	"fmt"
	"math"
	"strconv"
)

// Row is one flattened output record: the declared val ids plus
// "time" (int64 seconds). Undefined values are represented as untyped
// nil and never collapsed to zero.
type Row map[string]interface{}

const timeField = "time"

// setTime stamps the row if it has no time yet.
func (r Row) setTime(t int64) {
	if _, ok := r[timeField]; !ok {
		r[timeField] = t
	}
}

// toNumber coerces a sample or stack value to float64. Undefined,
// non-numeric, NaN and infinite inputs all come back (0, false).
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}

		return n, true
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return 0, false
		}

		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// toString renders a value for string operations. Floats print in
// their shortest form so 100.0 stays "100".
func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// truthy follows the usual "defined, nonzero, non-empty" rule. A
// string that parses as a number is judged by its numeric value.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		if t == "" {
			return false
		}

		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f != 0
		}

		return true
	default:
		if f, ok := toNumber(v); ok {
			return f != 0
		}

		return true
	}
}

// boolValue renders a predicate result as the 0/1 the stack language
// uses.
func boolValue(b bool) interface{} {
	if b {
		return float64(1)
	}

	return float64(0)
}
