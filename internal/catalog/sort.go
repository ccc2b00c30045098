package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects a comparator for Sort.
type SortKey string

const (
	SortTitle     SortKey = "title"
	SortAuthor    SortKey = "author"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortYear      SortKey = "year"
)

// DefaultSortKey is the key a fresh or reset view starts with.
const DefaultSortKey = SortTitle

// SortKeys lists the supported keys in menu order.
func SortKeys() []SortKey {
	return []SortKey{SortTitle, SortAuthor, SortPriceLow, SortPriceHigh, SortRating, SortYear}
}

// Valid reports whether k is one of SortKeys.
func (k SortKey) Valid() bool {
	return slices.Contains(SortKeys(), k)
}

// ParseSortKey parses s case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown sort key %q (want one of %v)", s, SortKeys())
	}
	return k, nil
}

// Sorter orders books for a language. The zero value collates with
// language.Und.
type Sorter struct {
	Tag language.Tag
}

// Sort returns a new slice ordered by key. The input is not modified.
// Unknown keys return an unreordered copy.
func (s Sorter) Sort(books []Book, key SortKey) []Book {
	out := slices.Clone(books)
	if out == nil {
		out = []Book{}
	}

	switch key {
	case SortTitle, SortAuthor:
		// collate.Collator keeps internal buffers; one per call keeps Sort
		// safe for concurrent use.
		c := collate.New(s.Tag)
		field := func(b Book) string { return b.Title }
		if key == SortAuthor {
			field = func(b Book) string { return b.Author }
		}
		slices.SortStableFunc(out, func(a, b Book) int {
			return c.CompareString(field(a), field(b))
		})
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Book) int {
			return cmp.Compare(a.Price(), b.Price())
		})
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Book) int {
			return cmp.Compare(b.Price(), a.Price())
		})
	case SortRating:
		slices.SortStableFunc(out, func(a, b Book) int {
			return cmp.Compare(b.Rating(), a.Rating())
		})
	case SortYear:
		slices.SortStableFunc(out, func(a, b Book) int {
			return compareYearDesc(a, b)
		})
	}
	return out
}

// Sort orders books with the root collation.
func Sort(books []Book, key SortKey) []Book {
	return Sorter{Tag: language.Und}.Sort(books, key)
}

// compareYearDesc puts newer years first and books without a numeric year
// after every dated book.
func compareYearDesc(a, b Book) int {
	ya, okA := a.Year()
	yb, okB := b.Year()
	switch {
	case okA && okB:
		return cmp.Compare(yb, ya)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}
