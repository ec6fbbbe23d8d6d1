package scoring

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Vector is a frequency distribution with one non-negative count per category.
type Vector []float64

// Total is the sum of all slots.
func (v Vector) Total() float64 {
	var t float64
	for _, f := range v {
		t += f
	}
	return t
}

// Normalize coerces an arbitrary decoded JSON value into a Vector of length n.
// Non-lists become the zero vector, short lists are right-padded with zeros,
// long lists are truncated. Numeric strings are parsed; any other entry that
// is not a finite non-negative number becomes 0. It never fails.
func Normalize(raw any, n int) Vector {
	if n < 0 {
		n = 0
	}
	out := make(Vector, n)
	if raw == nil {
		return out
	}

	switch vals := raw.(type) {
	case Vector:
		return NormalizeVector(vals, n)
	case []float64:
		return NormalizeVector(vals, n)
	case []any:
		for i := 0; i < n && i < len(vals); i++ {
			out[i] = coerce(vals[i])
		}
		return out
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return out
	}
	for i := 0; i < n && i < rv.Len(); i++ {
		out[i] = coerce(rv.Index(i).Interface())
	}
	return out
}

// NormalizeVector applies the same length and sign rules to typed input.
func NormalizeVector(v []float64, n int) Vector {
	if n < 0 {
		n = 0
	}
	out := make(Vector, n)
	for i := 0; i < n && i < len(v); i++ {
		out[i] = clean(v[i])
	}
	return out
}

func coerce(v any) float64 {
	switch x := v.(type) {
	case float64:
		return clean(x)
	case float32:
		return clean(float64(x))
	case int:
		return clean(float64(x))
	case int8:
		return clean(float64(x))
	case int16:
		return clean(float64(x))
	case int32:
		return clean(float64(x))
	case int64:
		return clean(float64(x))
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return clean(f)
	case string:
		s := strings.TrimSpace(x)
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return clean(f)
	default:
		return 0
	}
}

func clean(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
