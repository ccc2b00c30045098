// Package pricing derives order totals from cart lines.
//
// Summarize is a pure function of the lines and the policy; it holds no
// state and is recomputed whenever the cart changes. All arithmetic runs in
// integer cents so totals are identical on every platform.
package pricing

import (
	"fmt"
	"math"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
)

// ShippingFreeText is shown instead of a zero shipping charge.
const ShippingFreeText = "FREE"

// Policy is the pricing policy.
type Policy struct {
	// TaxRate is a fraction of the subtotal, e.g. 0.10.
	TaxRate float64
	// FreeShippingOverCents: shipping is free when the subtotal is strictly
	// greater than this amount.
	FreeShippingOverCents int64
	// FlatShippingCents is charged otherwise.
	FlatShippingCents int64
}

// DefaultPolicy is 10% tax, free shipping over $50.00, else $5.99.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               0.10,
		FreeShippingOverCents: 5000,
		FlatShippingCents:     599,
	}
}

// Validate checks the policy for nonsensical values.
func (p Policy) Validate() error {
	if math.IsNaN(p.TaxRate) || p.TaxRate < 0 || p.TaxRate > 1 {
		return fmt.Errorf("tax rate %v out of range [0, 1]", p.TaxRate)
	}
	if p.FreeShippingOverCents < 0 || p.FlatShippingCents < 0 {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	return nil
}

// Summary is a derived order summary.
type Summary struct {
	LineCount int
	ItemCount int

	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64

	// Two-decimal renderings, e.g. "60.50".
	Subtotal string
	Tax      string
	Shipping string
	Total    string
	// ShippingText is "FREE" or a dollar amount such as "$5.99".
	ShippingText string
}

// FreeShipping reports whether the order ships free.
func (s Summary) FreeShipping() bool {
	return s.ShippingCents == 0
}

// Summarize computes subtotal, tax, shipping and total for lines.
//
// Each line contributes its normalized unit price (rounded to cents) times
// its normalized quantity. Tax is rounded half away from zero.
func Summarize(lines []catalog.CartLine, p Policy) Summary {
	var sub int64
	items := 0
	for _, l := range lines {
		q := l.Quantity()
		sub += money.ToCents(l.Price()) * int64(q)
		items += q
	}

	tax := taxCents(sub, p.TaxRate)
	shipping := p.FlatShippingCents
	if sub > p.FreeShippingOverCents {
		shipping = 0
	}
	total := sub + tax + shipping

	s := Summary{
		LineCount:     len(lines),
		ItemCount:     items,
		SubtotalCents: sub,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    total,
		Subtotal:      money.FormatCents(sub),
		Tax:           money.FormatCents(tax),
		Shipping:      money.FormatCents(shipping),
		Total:         money.FormatCents(total),
		ShippingText:  money.FormatUSD(shipping),
	}
	if shipping == 0 {
		s.ShippingText = ShippingFreeText
	}
	return s
}

// taxCents applies rate in basis points so 0.10 is exactly 1000/10000.
func taxCents(sub int64, rate float64) int64 {
	bp := int64(math.Round(rate * 10000))
	n := sub * bp
	if n >= 0 {
		return (n + 5000) / 10000
	}
	return -((-n + 5000) / 10000)
}
