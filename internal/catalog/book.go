// Package catalog holds the records served by the catalog service (books
// and cart lines), the sort engine applied to result sets, and genre
// derivation.
//
// Records are immutable from the client's perspective. Numeric fields are
// kept as money.Number so decoding never fails on loosely typed payloads;
// the accessor methods are the only way to read them and always normalize.
package catalog

import (
	"fmt"

	"github.com/roach88/storefront/internal/money"
)

// Display fallbacks for nullable fields. Catalog views and cart views use
// different genre placeholders.
const (
	GenreFallbackCatalog = "Unknown"
	GenreFallbackCart    = "Fiction"

	cartPlaceholderImage = "https://picsum.photos/120/160"
)

// Book is a catalog entry.
type Book struct {
	ID            ID           `json:"id"`
	Title         string       `json:"title"`
	Author        string       `json:"author"`
	Genre         string       `json:"genre,omitempty"`
	RawPrice      money.Number `json:"price"`
	RawRating     money.Number `json:"rating"`
	PublishedYear money.Number `json:"published_year"`
	ImageURL      string       `json:"image_url,omitempty"`
}

// Price is the normalized unit price; negative or missing prices are 0.
func (b Book) Price() float64 {
	return nonNegative(b.RawPrice.Float(money.DefaultPrice), money.DefaultPrice)
}

// Rating is the normalized rating, 4.0 when missing.
func (b Book) Rating() float64 {
	return b.RawRating.Float(money.DefaultRating)
}

// Year returns the published year and whether it was numeric.
func (b Book) Year() (int, bool) {
	const missing = -1 << 31
	y := b.PublishedYear.Int(missing)
	if y == missing {
		return 0, false
	}
	return y, true
}

// DisplayGenre returns the genre, or GenreFallbackCatalog when empty.
func (b Book) DisplayGenre() string {
	if b.Genre == "" {
		return GenreFallbackCatalog
	}
	return b.Genre
}

// CoverURL returns the image URL or a per-book placeholder.
func (b Book) CoverURL() string {
	if b.ImageURL != "" {
		return b.ImageURL
	}
	return fmt.Sprintf("https://picsum.photos/300/400?random=%s", b.ID)
}

func nonNegative(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}
