// Package core provides the budget model, input normalization and the
// metrics derived from a budget.
//
// This file contains amount parsing and currency formatting.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a loosely typed value to a float.
//
// Numbers, json.Number and numeric strings are accepted. Surrounding spaces
// are trimmed. Booleans, NaN and infinities are rejected.
//
// Examples:
//
//	ParseAmount(12.5)      -> 12.5, true
//	ParseAmount(" 1200 ")  -> 1200, true
//	ParseAmount("abc")     -> 0, false
func ParseAmount(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatCurrency renders v as dollars with thousands separators and two
// decimals, e.g. 1234.5 -> "$1,234.50".
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
