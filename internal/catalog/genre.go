package catalog

import "strings"

// AllGenres is the synthetic genre meaning "no filter".
const AllGenres = "all"

// Genres returns AllGenres followed by the distinct non-empty genres of
// books in first-seen order.
func Genres(books []Book) []string {
	out := []string{AllGenres}
	seen := map[string]struct{}{AllGenres: {}}
	for _, b := range books {
		g := b.Genre
		if strings.TrimSpace(g) == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// IsAllGenres reports whether g selects the unfiltered catalog.
// Blank input counts as "all".
func IsAllGenres(g string) bool {
	g = strings.TrimSpace(g)
	return g == "" || strings.EqualFold(g, AllGenres)
}
