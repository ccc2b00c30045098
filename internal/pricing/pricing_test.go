package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
)

func line(price, qty any) catalog.CartLine {
	return catalog.CartLine{RawPrice: money.NumberOf(price), RawQuantity: money.NumberOf(qty)}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name         string
		lines        []catalog.CartLine
		subtotal     string
		tax          string
		shipping     string
		shippingText string
		total        string
		items        int
	}{
		{
			name:     "free shipping over threshold",
			lines:    []catalog.CartLine{line(30, 1), line(25, 1)},
			subtotal: "55.00", tax: "5.50", shipping: "0.00", shippingText: "FREE", total: "60.50", items: 2,
		},
		{
			name:     "flat shipping",
			lines:    []catalog.CartLine{line(10, 2)},
			subtotal: "20.00", tax: "2.00", shipping: "5.99", shippingText: "$5.99", total: "27.99", items: 2,
		},
		{
			name:     "exactly at threshold is not free",
			lines:    []catalog.CartLine{line("50", nil)},
			subtotal: "50.00", tax: "5.00", shipping: "5.99", shippingText: "$5.99", total: "60.99", items: 1,
		},
		{
			name:     "string prices and missing quantity",
			lines:    []catalog.CartLine{line("12.50", nil), line("abc", 3)},
			subtotal: "12.50", tax: "1.25", shipping: "5.99", shippingText: "$5.99", total: "19.74", items: 4,
		},
		{
			name:     "tax rounds half away from zero",
			lines:    []catalog.CartLine{line(0.25, 1)},
			subtotal: "0.25", tax: "0.03", shipping: "5.99", shippingText: "$5.99", total: "6.27", items: 1,
		},
		{
			name:     "empty cart",
			subtotal: "0.00", tax: "0.00", shipping: "5.99", shippingText: "$5.99", total: "5.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.lines, DefaultPolicy())
			assert.Equal(t, tt.subtotal, s.Subtotal)
			assert.Equal(t, tt.tax, s.Tax)
			assert.Equal(t, tt.shipping, s.Shipping)
			assert.Equal(t, tt.shippingText, s.ShippingText)
			assert.Equal(t, tt.total, s.Total)
			assert.Equal(t, tt.items, s.ItemCount)
			assert.Equal(t, len(tt.lines), s.LineCount)
			assert.Equal(t, s.SubtotalCents+s.TaxCents+s.ShippingCents, s.TotalCents)
		})
	}
}

func TestSummarize_CustomPolicy(t *testing.T) {
	p := Policy{TaxRate: 0.0825, FreeShippingOverCents: 10000, FlatShippingCents: 0}
	s := Summarize([]catalog.CartLine{line(20, 1)}, p)

	assert.Equal(t, "1.65", s.Tax)
	assert.True(t, s.FreeShipping())
	assert.Equal(t, ShippingFreeText, s.ShippingText)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{TaxRate: 1.5}.Validate())
	assert.Error(t, Policy{TaxRate: -0.1}.Validate())
	assert.Error(t, Policy{TaxRate: 0.1, FlatShippingCents: -1}.Validate())
}
