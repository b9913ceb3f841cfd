// Package degrade decides whether a decoded backend value is good enough
// to show, or must be replaced by its fallback.
package degrade

import (
	"encoding/json"
	"reflect"

	"github.com/aquaguardian/aquaboard/internal/metric"
)

// Reason names the rule that rejected a value. The zero value means the
// value is usable.
type Reason string

const (
	Usable             Reason = ""
	ReasonAbsent       Reason = "absent"
	ReasonEmptySeq     Reason = "empty_sequence"
	ReasonEmptyRecord  Reason = "empty_record"
	ReasonZeroSentinel Reason = "zero_sentinel"
)

// statsCounterField is the primary counter of the stats record. A backend
// that reports zero total reports is treated like a misconfigured one.
const statsCounterField = "total_reports"

// IsUsable reports whether value may be shown for kind. It accepts both
// generically decoded JSON (nil, []any, map[string]any) and typed values.
func IsUsable(kind metric.Kind, value any) bool {
	return Check(kind, value) == Usable
}

// Check applies the rules in order and returns the first that rejects.
func Check(kind metric.Kind, value any) Reason {
	rv, ok := deref(reflect.ValueOf(value))
	if !ok {
		return ReasonAbsent
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return ReasonEmptySeq
		}
	case reflect.Map:
		if rv.Len() == 0 {
			return ReasonEmptyRecord
		}
	case reflect.Struct:
		if rv.NumField() == 0 {
			return ReasonEmptyRecord
		}
	}

	if kind == metric.KindStats && zeroCounter(rv) {
		return ReasonZeroSentinel
	}

	return Usable
}

// deref unwraps pointers and interfaces, reporting false for nil.
func deref(rv reflect.Value) (reflect.Value, bool) {
	for {
		if !rv.IsValid() {
			return rv, false
		}

		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return rv, false
			}

			rv = rv.Elem()
		case reflect.Slice, reflect.Map:
			if rv.IsNil() {
				return rv, false
			}

			return rv, true
		default:
			return rv, true
		}
	}
}

func zeroCounter(rv reflect.Value) bool {
	if stats, ok := rv.Interface().(metric.Stats); ok {
		return stats.TotalReports == 0
	}

	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return false
	}

	field := rv.MapIndex(reflect.ValueOf(statsCounterField).Convert(rv.Type().Key()))
	if !field.IsValid() {
		return false
	}

	field, ok := deref(field)
	if !ok {
		return false
	}

	return isExactZero(field)
}

// isExactZero matches numeric zero only; "0" as a string is not a counter.
func isExactZero(rv reflect.Value) bool {
	if n, ok := rv.Interface().(json.Number); ok {
		f, err := n.Float64()

		return err == nil && f == 0
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	default:
		return false
	}
}
