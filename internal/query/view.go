package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/storefront/internal/catalog"
)

// Messages shown alongside the result set.
const (
	MessageNoResults   = "No books found"
	MessageUnavailable = "Catalog unavailable. Please try again later."
	MessageQueryFailed = "Could not update results. Showing the last results."
)

// View is a snapshot of the browse view.
type View struct {
	// Books is the displayed result set, already sorted by Sort.
	Books []catalog.Book
	// Total is the size of the cached full catalog.
	Total int

	Term   string
	Genre  string
	Sort   catalog.SortKey
	Mode   Kind
	Genres []string

	Loading   bool
	Searching bool
	// Pending is set while a search waits on its debounce.
	Pending bool

	Generation int64
	// Err is ErrCatalogUnavailable or the last search/filter failure.
	Err error
}

// Message returns the status line for the view, or "".
func (v View) Message() string {
	switch {
	case errors.Is(v.Err, ErrCatalogUnavailable):
		return MessageUnavailable
	case v.Err != nil:
		return MessageQueryFailed
	case len(v.Books) == 0 && !v.Loading && !v.Searching && !v.Pending:
		return MessageNoResults
	default:
		return ""
	}
}

// Counts renders the "showing N of M" line.
func (v View) Counts() string {
	return fmt.Sprintf("Showing %d of %d books", len(v.Books), v.Total)
}

// View returns a snapshot with the result set sorted by the current key.
func (e *Engine) View(ctx context.Context) (View, error) {
	var v View
	err := e.loop.Do(ctx, "view", func() {
		v = View{
			Books:      e.sorter.Sort(e.results, e.sortKey),
			Total:      len(e.cache),
			Term:       e.term,
			Genre:      e.genre,
			Sort:       e.sortKey,
			Mode:       e.mode,
			Genres:     catalog.Genres(e.cache),
			Loading:    e.busy && e.busyKind == KindLoad,
			Searching:  e.busy && e.busyKind != KindLoad,
			Pending:    e.debArmed,
			Generation: e.clock.Current(),
			Err:        e.err,
		}
	})
	return v, err
}

// Genres returns "all" followed by the genres of the cached catalog.
func (e *Engine) Genres(ctx context.Context) ([]string, error) {
	var out []string
	err := e.loop.Do(ctx, "genres", func() {
		out = catalog.Genres(e.cache)
	})
	return out, err
}

// Step names a query lifecycle step reported through WithTrace.
type Step string

const (
	StepDebounce Step = "debounce"
	StepIssue    Step = "issue"
	StepApply    Step = "apply"
	StepDiscard  Step = "discard"
	StepFail     Step = "fail"
	StepRevert   Step = "revert"
)

// Trace is one query lifecycle step.
type Trace struct {
	Step   Step
	Kind   Kind
	Arg    string
	Gen    int64
	Count  int
	Failed bool
}

func (t Trace) String() string {
	s := fmt.Sprintf("%s %s", t.Step, t.Kind)
	if t.Arg != "" {
		s += fmt.Sprintf(" %q", t.Arg)
	}
	s += fmt.Sprintf(" gen=%d", t.Gen)
	switch t.Step {
	case StepApply, StepRevert, StepDiscard:
		if t.Failed {
			s += " failed"
		} else {
			s += fmt.Sprintf(" count=%d", t.Count)
		}
	}
	return s
}

// Book looks id up in the cached catalog and then the displayed set.
func (e *Engine) Book(ctx context.Context, id catalog.ID) (catalog.Book, bool, error) {
	var (
		book  catalog.Book
		found bool
	)
	err := e.loop.Do(ctx, "book", func() {
		for _, set := range [][]catalog.Book{e.cache, e.results} {
			for _, b := range set {
				if b.ID == id {
					book, found = b, true
					return
				}
			}
		}
	})
	return book, found, err
}
