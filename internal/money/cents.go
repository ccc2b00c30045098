package money

import (
	"math"
	"strconv"
)

// ToCents converts a dollar amount to integer cents, rounding half away
// from zero.
func ToCents(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return int64(math.Round(amount * 100))
}

// FormatCents renders cents with exactly two decimals, e.g. 1250 -> "12.50".
func FormatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100
	s := whole + "."
	if frac < 10 {
		s += "0"
	}
	s += strconv.FormatInt(frac, 10)

	if neg {
		return "-" + s
	}
	return s
}

// FormatUSD renders cents as a dollar amount, e.g. 599 -> "$5.99".
func FormatUSD(cents int64) string {
	if cents < 0 {
		return "-$" + FormatCents(-cents)
	}
	return "$" + FormatCents(cents)
}

// FormatPrice renders an already normalized dollar amount, e.g. 12.5 -> "$12.50".
func FormatPrice(amount float64) string {
	return FormatUSD(ToCents(amount))
}
