package exprtree

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// equals compares current against a literal test value, coercing current to
// the type of test. It never fails; mismatches are simply false.
func equals(current, test any) bool {
	if current == nil {
		return test == nil
	}

	switch t := test.(type) {
	case nil:
		// Empty strings count as null so `val == null` matches blank fields
		s, ok := current.(string)
		return ok && s == ""
	case bool:
		if s, ok := current.(string); ok {
			return strings.EqualFold(s, "true") == t
		}
		return Truthy(current) == t
	case string:
		return ToString(current) == t
	}

	if n, ok := numberValue(test); ok {
		return ToNumber(current) == n
	}
	return false
}

// compare evaluates the ordered operators. It is only defined for numeric
// tests; anything else, including a current value that is not numeric, is
// false.
func compare(current, test any, op OperationType) bool {
	n, ok := numberValue(test)
	if !ok || current == nil {
		return false
	}
	c := ToNumber(current)
	if math.IsNaN(c) {
		return false
	}
	switch op {
	case GreaterThan:
		return c > n
	case LessThan:
		return c < n
	case GreaterThanOrEqual:
		return c >= n
	case LessThanOrEqual:
		return c <= n
	}
	return false
}

// Truthy applies JavaScript truthiness: nil, false, 0, NaN and "" are false,
// everything else is true. Typed nil pointers, maps and slices count as nil.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if isNil(v) {
		return false
	}
	if n, ok := numberValue(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// ToNumber coerces v to a float64 the way JavaScript's Number() does for the
// value kinds found in decoded data. Unconvertible values give NaN.
func ToNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if n, ok := numberValue(v); ok {
		return n
	}
	return math.NaN()
}

// numberValue extracts a float64 from any numeric kind, including
// json.Number style string types that implement Float64.
func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case interface{ Float64() (float64, error) }:
		n, err := t.Float64()
		return n, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// ToString coerces v to text. nil renders as the empty string, numbers use
// the shortest round-trip form, slices are comma joined and other composite
// values render as "[object Object]".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case interface{ String() string }:
		return t.String()
	}
	if n, ok := numberValue(v); ok {
		return formatNumber(n)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = ToString(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return "[object Object]"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	abs := math.Abs(n)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
