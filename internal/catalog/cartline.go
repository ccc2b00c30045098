package catalog

import "github.com/roach88/storefront/internal/money"

// CartLine is one entry of a user's server-side cart.
//
// ID identifies the cart entry and is distinct from BookID. The server merges
// the book's fields into the line, so title, author and pricing travel with it.
type CartLine struct {
	ID          ID           `json:"id"`
	BookID      ID           `json:"book_id,omitempty"`
	Title       string       `json:"title"`
	Author      string       `json:"author"`
	Genre       string       `json:"genre,omitempty"`
	RawPrice    money.Number `json:"price"`
	RawRating   money.Number `json:"rating"`
	RawQuantity money.Number `json:"quantity"`
	ImageURL    string       `json:"image_url,omitempty"`
}

// Price is the normalized unit price.
func (l CartLine) Price() float64 {
	return nonNegative(l.RawPrice.Float(money.DefaultPrice), money.DefaultPrice)
}

// Quantity is the normalized quantity; absent, zero or negative means 1.
func (l CartLine) Quantity() int {
	q := l.RawQuantity.Int(money.DefaultQuantity)
	if q <= 0 {
		return money.DefaultQuantity
	}
	return q
}

// Rating is the normalized rating, 4.0 when missing.
func (l CartLine) Rating() float64 {
	return l.RawRating.Float(money.DefaultRating)
}

// DisplayGenre returns the genre, or GenreFallbackCart when empty.
func (l CartLine) DisplayGenre() string {
	if l.Genre == "" {
		return GenreFallbackCart
	}
	return l.Genre
}

// CoverURL returns the image URL or the cart placeholder.
func (l CartLine) CoverURL() string {
	if l.ImageURL != "" {
		return l.ImageURL
	}
	return cartPlaceholderImage
}
