// Package format provides display formatting for budgets and currency
// amounts, shared by notification emails and AI prompt context.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CompactCurrency renders an amount in GBP using compact suffixes:
// 1_500_000 → "£1.5M", 500_000 → "£500K", 500 → "£500".
// Whole-number millions drop the decimal: 1_000_000 → "£1M".
func CompactCurrency(amount float64) string {
	switch {
	case amount >= 1_000_000:
		m := amount / 1_000_000
		if m == float64(int64(m)) {
			return fmt.Sprintf("£%dM", int64(m))
		}
		return fmt.Sprintf("£%.1fM", m)
	case amount >= 1_000:
		k := amount / 1_000
		if k == float64(int64(k)) {
			return fmt.Sprintf("£%dK", int64(k))
		}
		return fmt.Sprintf("£%.1fK", k)
	default:
		return fmt.Sprintf("£%g", amount)
	}
}

var amountRegex = regexp.MustCompile(`£\s*([\d,]+(?:\.\d+)?)`)

// Budget compacts each currency amount inside a free-text budget range:
// "£500,000 - £1,000,000" → "£500K - £1M". Text without recognizable
// amounts passes through unchanged.
func Budget(s string) string {
	return amountRegex.ReplaceAllStringFunc(s, func(match string) string {
		digits := strings.TrimSpace(strings.TrimPrefix(match, "£"))
		digits = strings.ReplaceAll(digits, ",", "")
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return match
		}
		return CompactCurrency(v)
	})
}
