package money

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Number holds a numeric field exactly as the API sent it.
//
// Decoding never fails on a type mismatch: numbers, numeric strings,
// arbitrary strings, booleans and null are all accepted. Consumers read the
// value through Float or Int, which normalize with a caller-supplied default.
type Number struct {
	raw any // nil, json.Number or string
}

// NumberOf wraps a Go value (number or string) as a Number.
func NumberOf(v any) Number {
	switch x := v.(type) {
	case nil:
		return Number{}
	case string:
		return Number{raw: x}
	case json.Number:
		return Number{raw: x}
	default:
		return Number{raw: json.Number(fmt.Sprint(x))}
	}
}

// Float returns the normalized value, or def when absent or not numeric.
func (n Number) Float(def float64) float64 {
	switch x := n.raw.(type) {
	case json.Number:
		return Normalize(x, def)
	case string:
		return Normalize(x, def)
	default:
		return def
	}
}

// Int returns the normalized value truncated toward zero.
func (n Number) Int(def int) int {
	switch x := n.raw.(type) {
	case json.Number, string:
		return NormalizeInt(x, def)
	default:
		return def
	}
}

// IsSet reports whether the field carried a non-null value.
func (n Number) IsSet() bool {
	return n.raw != nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		n.raw = nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.raw = s
	case data[0] == 't', data[0] == 'f', data[0] == '{', data[0] == '[':
		// Not a number in any encoding; treated as absent.
		n.raw = nil
	default:
		n.raw = json.Number(data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler. The original encoding is preserved.
func (n Number) MarshalJSON() ([]byte, error) {
	switch x := n.raw.(type) {
	case json.Number:
		if _, err := x.Float64(); err != nil {
			return json.Marshal(string(x))
		}
		return []byte(x), nil
	case string:
		return json.Marshal(x)
	default:
		return []byte("null"), nil
	}
}
