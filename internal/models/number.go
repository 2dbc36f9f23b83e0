package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a tolerant numeric field. It decodes from a JSON number, a
// numeric string (dot or comma decimal), an empty string or null. Anything
// that does not parse decodes to 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = Number(ParseNumber(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number(f)
	return nil
}

// ParseNumber converts user input like "102,5", " 80 " or "" to a float.
// Unparseable input yields 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Float returns the value, never negative.
func (n Number) Float() float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}

// Int returns the value truncated to a non-negative integer.
func (n Number) Int() int {
	if n < 0 {
		return 0
	}
	return int(n)
}
