package operators

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"time"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// NumericText is the shape a JSON value's text form must have before the
// numeric accessor reads it as a number.
var NumericText = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// IsList reports whether operand is an array or slice (strings and byte
// slices excepted).
func IsList(operand interface{}) bool {
	_, ok := toList(operand)
	return ok
}

// toList reports whether operand is an array and returns its elements.
func toList(operand interface{}) ([]interface{}, bool) {
	switch v := operand.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return v, true
	case []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Scalar normalizes a literal operand: integers become int64, floats
// float64. Strings, booleans and times pass through. Anything else,
// including nil, is not a scalar.
func Scalar(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64, time.Time:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case float32:
		return float64(x), true
	}
	return nil, false
}

// operandFor shapes one scalar for the ref's accessor.
func operandFor(ref domain.ValueRef, operand interface{}) (interface{}, bool) {
	v, ok := Scalar(operand)
	if !ok {
		return nil, false
	}
	switch ref.Access {
	case domain.AccessText:
		return JSONText(v)
	case domain.AccessNumeric:
		return numeric(v)
	}
	return v, true
}

func operandsFor(ref domain.ValueRef, list []interface{}) ([]interface{}, bool) {
	out := make([]interface{}, len(list))
	for i, item := range list {
		v, ok := operandFor(ref, item)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// JSONText renders a scalar the way the text accessor reads the same JSON
// value back: booleans as true/false, numbers in plain decimal. A float
// operand has no source spelling, so 25.0 renders as "25" and will not
// equal a stored "25.0"; compare such values with the numeric accessor.
func JSONText(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	}
	return nil, false
}

// numeric accepts numbers and numeric strings for the numeric accessor.
func numeric(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case int64, float64:
		return x, true
	case string:
		if !NumericText.MatchString(x) {
			return nil, false
		}
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}
