package utils

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceDecimal converts the loosely typed values found in provider payloads
// (json.Number, float64, int, or numeric string) into a decimal. The second
// return is false when the value is absent, empty, or not numeric.
func CoerceDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Round2 applies the business rounding rule: two decimal places, halves
// rounded away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
