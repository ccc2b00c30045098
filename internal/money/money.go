// Package money normalizes the loosely typed numeric fields returned by the
// storefront API (price, rating, quantity, published year) into trustworthy
// numbers, and renders amounts held in integer cents.
//
// The catalog service is inconsistent about numeric encoding: the same field
// may arrive as a JSON number, a numeric string, an empty string or null.
// Every value that reaches sorting or pricing arithmetic goes through
// Normalize (directly or via Number) first. No other package parses numbers
// out of API payloads.
package money

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Defaults applied when a field is absent or not numeric.
const (
	DefaultPrice    = 0.0
	DefaultRating   = 4.0
	DefaultQuantity = 1
)

// Normalize coerces v to a finite float64.
//
// Accepted inputs are Go numeric kinds, numeric strings (surrounding
// whitespace ignored), json.Number, Number and nil. Anything else, or any
// value that parses to NaN or an infinity, yields def. Normalize never panics.
func Normalize(v any, def float64) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case string:
		parsed, ok := parseString(x)
		if !ok {
			return def
		}
		f = parsed
	case Number:
		return x.Float(def)
	case *Number:
		if x == nil {
			return def
		}
		return x.Float(def)
	default:
		return def
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// NormalizeInt is Normalize truncated toward zero.
func NormalizeInt(v any, def int) int {
	f := Normalize(v, math.NaN())
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(math.Trunc(f))
}

func parseString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
