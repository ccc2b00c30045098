package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
	"github.com/roach88/storefront/internal/pricing"
	"github.com/roach88/storefront/internal/query"
)

// BookItem is a book as printed by the CLI.
type BookItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating"`
	Year   int     `json:"published_year,omitempty"`
	Cover  string  `json:"cover_url"`
}

// BooksResult is the JSON payload of books and shell show.
type BooksResult struct {
	Books   []BookItem `json:"books"`
	Total   int        `json:"total"`
	Mode    string     `json:"mode"`
	Term    string     `json:"term,omitempty"`
	Genre   string     `json:"genre,omitempty"`
	Sort    string     `json:"sort"`
	Message string     `json:"message,omitempty"`
}

// CartItem is a cart line as printed by the CLI.
type CartItem struct {
	LineID   string  `json:"line_id"`
	BookID   string  `json:"book_id,omitempty"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CartResult is the JSON payload of the cart commands.
type CartResult struct {
	Message  string         `json:"message,omitempty"`
	Declined bool           `json:"declined,omitempty"`
	Count    int            `json:"count"`
	Lines    []CartItem     `json:"lines"`
	Summary  SummaryPayload `json:"summary"`
}

// SummaryPayload is pricing.Summary with two-decimal strings.
type SummaryPayload struct {
	Items    int    `json:"items"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
	Free     bool   `json:"free_shipping"`
}

func bookItem(b catalog.Book) BookItem {
	year, _ := b.Year()
	return BookItem{
		ID:     b.ID.String(),
		Title:  b.Title,
		Author: b.Author,
		Genre:  b.DisplayGenre(),
		Price:  b.Price(),
		Rating: b.Rating(),
		Year:   year,
		Cover:  b.CoverURL(),
	}
}

func booksResult(v query.View) BooksResult {
	items := make([]BookItem, len(v.Books))
	for i, b := range v.Books {
		items[i] = bookItem(b)
	}
	return BooksResult{
		Books:   items,
		Total:   v.Total,
		Mode:    string(v.Mode),
		Term:    v.Term,
		Genre:   v.Genre,
		Sort:    string(v.Sort),
		Message: v.Message(),
	}
}

func renderBooks(v query.View) string {
	var b strings.Builder
	if len(v.Books) > 0 {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tGENRE\tPRICE\tRATING")
		for _, book := range v.Books {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\n",
				book.ID, book.Title, book.Author, book.DisplayGenre(),
				money.FormatPrice(book.Price()), book.Rating())
		}
		tw.Flush()
	}
	if msg := v.Message(); msg != "" {
		b.WriteString(msg)
		b.WriteByte('\n')
	}
	b.WriteString(v.Counts())
	return b.String()
}

func cartResult(lines []catalog.CartLine, count int, sum pricing.Summary) CartResult {
	items := make([]CartItem, len(lines))
	for i, l := range lines {
		items[i] = CartItem{
			LineID:   l.ID.String(),
			BookID:   l.BookID.String(),
			Title:    l.Title,
			Author:   l.Author,
			Quantity: l.Quantity(),
			Price:    l.Price(),
		}
	}
	return CartResult{
		Count: count,
		Lines: items,
		Summary: SummaryPayload{
			Items:    sum.ItemCount,
			Subtotal: sum.Subtotal,
			Tax:      sum.Tax,
			Shipping: sum.Shipping,
			Total:    sum.Total,
			Free:     sum.FreeShipping(),
		},
	}
}

func renderCart(lines []catalog.CartLine, sum pricing.Summary) string {
	if len(lines) == 0 {
		return "Your cart is empty."
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tTITLE\tAUTHOR\tQTY\tPRICE")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			l.ID, l.Title, l.Author, l.Quantity(), money.FormatPrice(l.Price()))
	}
	tw.Flush()
	fmt.Fprintf(&b, "Subtotal: $%s\n", sum.Subtotal)
	fmt.Fprintf(&b, "Tax:      $%s\n", sum.Tax)
	fmt.Fprintf(&b, "Shipping: %s\n", sum.ShippingText)
	fmt.Fprintf(&b, "Total:    $%s", sum.Total)
	return b.String()
}
