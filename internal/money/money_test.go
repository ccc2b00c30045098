package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		def  float64
		want float64
	}{
		{"float", 12.5, 0, 12.5},
		{"int", 30, 0, 30},
		{"int64", int64(7), 0, 7},
		{"numeric string", "12.5", 0, 12.5},
		{"padded numeric string", "  9.99 ", 0, 9.99},
		{"non-numeric string", "abc", 4.0, 4.0},
		{"empty string", "", 4.0, 4.0},
		{"nil", nil, 1, 1},
		{"json number", json.Number("3.25"), 0, 3.25},
		{"NaN", math.NaN(), 4.0, 4.0},
		{"NaN string", "NaN", 4.0, 4.0},
		{"infinity", math.Inf(1), 0, 0},
		{"bool", true, 1, 1},
		{"struct", struct{}{}, 2, 2},
		{"Number", NumberOf("8"), 0, 8},
		{"nil *Number", (*Number)(nil), 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, tt.def)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0), "output must be finite")
		})
	}
}

func TestNormalize_Examples(t *testing.T) {
	assert.Equal(t, 4.0, Normalize("abc", 4.0))
	assert.Equal(t, 12.5, Normalize("12.5", 0))
}

func TestNormalizeInt(t *testing.T) {
	assert.Equal(t, 2, NormalizeInt("2", 1))
	assert.Equal(t, 2, NormalizeInt(2.9, 1))
	assert.Equal(t, 1, NormalizeInt("two", 1))
	assert.Equal(t, 1, NormalizeInt(nil, 1))
	assert.Equal(t, 1999, NormalizeInt(json.Number("1999"), 0))
	assert.Equal(t, 0, NormalizeInt(1e300, 0))
}

func TestNumber_Decode(t *testing.T) {
	var payload struct {
		Price    Number `json:"price"`
		Rating   Number `json:"rating"`
		Quantity Number `json:"quantity"`
		Year     Number `json:"published_year"`
		Missing  Number `json:"missing"`
	}

	data := `{"price":"19.99","rating":4.5,"quantity":null,"published_year":true}`
	require.NoError(t, json.Unmarshal([]byte(data), &payload))

	assert.Equal(t, 19.99, payload.Price.Float(DefaultPrice))
	assert.Equal(t, 4.5, payload.Rating.Float(DefaultRating))
	assert.Equal(t, DefaultQuantity, payload.Quantity.Int(DefaultQuantity))
	assert.Equal(t, 0, payload.Year.Int(0))
	assert.False(t, payload.Missing.IsSet())
	assert.True(t, payload.Price.IsSet())
}

func TestNumber_EncodingPreserved(t *testing.T) {
	in := []byte(`{"a":"12.50","b":3,"c":null}`)
	var v map[string]Number
	require.NoError(t, json.Unmarshal(in, &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(1250), ToCents(12.5))
	assert.Equal(t, int64(599), ToCents(5.99))
	assert.Equal(t, int64(1), ToCents(0.005))
	assert.Equal(t, int64(0), ToCents(math.NaN()))

	assert.Equal(t, "12.50", FormatCents(1250))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "-3.10", FormatCents(-310))

	assert.Equal(t, "$5.99", FormatUSD(599))
	assert.Equal(t, "-$1.00", FormatUSD(-100))
	assert.Equal(t, "$60.50", FormatPrice(60.5))
}
