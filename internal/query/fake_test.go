package query

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
)

// fakeRemote serves an in-memory catalog. Calls can be held until
// released, or failed, keyed as "kind:arg" (e.g. "search:du", "load:").
type fakeRemote struct {
	mu    sync.Mutex
	books []catalog.Book
	calls []string
	holds map[string]chan struct{}
	fails map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		books: []catalog.Book{
			{ID: "1", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", RawPrice: money.NumberOf("9.99"), RawRating: money.NumberOf(4.6)},
			{ID: "2", Title: "Dubliners", Author: "James Joyce", Genre: "Classic", RawPrice: money.NumberOf(11), RawRating: money.NumberOf(4.0)},
			{ID: "3", Title: "Emma", Author: "Jane Austen", Genre: "Classic", RawPrice: money.NumberOf(12), RawRating: money.NumberOf("4.1")},
			{ID: "4", Title: "Neuromancer", Author: "William Gibson", Genre: "Science Fiction", RawPrice: money.NumberOf(30)},
			{ID: "5", Title: "Beloved", Author: "Toni Morrison", RawPrice: money.NumberOf("")},
		},
		holds: make(map[string]chan struct{}),
		fails: make(map[string]error),
	}
}

func (f *fakeRemote) hold(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[key] = make(chan struct{})
}

func (f *fakeRemote) release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.holds[key]; ok {
		close(ch)
		delete(f.holds, key)
	}
}

func (f *fakeRemote) fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fails, key)
		return
	}
	f.fails[key] = err
}

func (f *fakeRemote) setBooks(books []catalog.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books = books
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeRemote) call(ctx context.Context, key string, match func(catalog.Book) bool) ([]catalog.Book, error) {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.holds[key]
	err := f.fails[key]
	var out []catalog.Book
	for _, b := range f.books {
		if match(b) {
			out = append(out, b)
		}
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeRemote) Books(ctx context.Context) ([]catalog.Book, error) {
	return f.call(ctx, "load:", func(catalog.Book) bool { return true })
}

func (f *fakeRemote) SearchBooks(ctx context.Context, term string) ([]catalog.Book, error) {
	t := strings.ToLower(term)
	return f.call(ctx, "search:"+term, func(b catalog.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), t) || strings.Contains(strings.ToLower(b.Author), t)
	})
}

func (f *fakeRemote) FilterBooks(ctx context.Context, genre string) ([]catalog.Book, error) {
	return f.call(ctx, "filter:"+genre, func(b catalog.Book) bool { return b.Genre == genre })
}

var errBackend = errors.New("backend down")
