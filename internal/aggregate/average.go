package aggregate

import (
	"encoding/json"
	"strconv"
)

// Average is a mean that may be undefined because nothing qualified.
type Average struct {
	Value float64
	Valid bool
}

// Mean averages vals; it is invalid when vals is empty.
func Mean(vals []float64) Average {
	if len(vals) == 0 {
		return Average{}
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return Average{Value: sum / float64(len(vals)), Valid: true}
}

// Sub is a - b, invalid unless both are valid.
func (a Average) Sub(b Average) Average {
	if !a.Valid || !b.Valid {
		return Average{}
	}
	return Average{Value: a.Value - b.Value, Valid: true}
}

// Format renders the value with the given precision, or "" when undefined.
func (a Average) Format(decimals int) string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', decimals, 64)
}

func (a Average) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

func (a *Average) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = Average{}
		return nil
	}
	if err := json.Unmarshal(b, &a.Value); err != nil {
		return err
	}
	a.Valid = true
	return nil
}

func (a Average) MarshalYAML() (any, error) {
	if !a.Valid {
		return nil, nil
	}
	return a.Value, nil
}
