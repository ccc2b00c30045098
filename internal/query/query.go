// Package query is the catalog query engine behind the browse view.
//
// Three remote query modes (full listing, free-text search, genre filter)
// feed one displayed result set. The engine's state lives on an
// engine.Loop; user input, debounce firings and network completions are
// all events on that loop, so state is never touched concurrently.
//
// Ordering is by intent: every issued query and every user action that
// changes what should be shown takes the next generation from an
// engine.Clock, and a completion is applied only while its generation is
// still current. A slow response for "du" can never overwrite the results
// for "dune".
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/engine"
)

// ErrCatalogUnavailable is reported when the full catalog could not be
// loaded. The displayed set is empty, not stale.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Remote is the catalog side of the storefront service. *api.Client
// implements it.
type Remote interface {
	Books(ctx context.Context) ([]catalog.Book, error)
	SearchBooks(ctx context.Context, term string) ([]catalog.Book, error)
	FilterBooks(ctx context.Context, genre string) ([]catalog.Book, error)
}

// Kind names a remote query mode.
type Kind string

const (
	KindLoad   Kind = "load"
	KindSearch Kind = "search"
	KindFilter Kind = "filter"
	// KindCache is a load that only refreshes the cached catalog because a
	// search or filter owns the display.
	KindCache Kind = "cache"
)

// Engine is the catalog query engine. Its methods are safe for concurrent
// use; they return once the input has been applied on the loop, not when
// the resulting network call finishes (use Idle for that).
type Engine struct {
	remote    Remote
	loop      *engine.Loop
	clock     *engine.Clock
	debouncer *engine.Debouncer
	flows     engine.FlowTokenGenerator
	sorter    catalog.Sorter
	logger    *slog.Logger
	trace     func(Trace)

	// View lifetime; canceled by Close to abort in-flight requests.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	close  sync.Once

	// Loop-owned state below.
	term    string
	genre   string
	sortKey catalog.SortKey

	cache       []catalog.Book
	cacheLoaded bool

	results   []catalog.Book
	mode      Kind
	err       error
	busy      bool
	busyKind  Kind
	inflight  int
	debSeq    int64
	debArmed  bool
	idleWaits []chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce sets the search quiet period (default 500ms).
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debouncer = engine.NewDebouncer(d) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSorter sets the collation used for title and author sorts.
func WithSorter(s catalog.Sorter) Option {
	return func(e *Engine) { e.sorter = s }
}

// WithFlowGenerator sets the source of per-request flow tokens.
func WithFlowGenerator(g engine.FlowTokenGenerator) Option {
	return func(e *Engine) { e.flows = g }
}

// WithClock sets the generation counter.
func WithClock(c *engine.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTrace registers a hook called on the loop goroutine for every
// query lifecycle step.
func WithTrace(fn func(Trace)) Option {
	return func(e *Engine) { e.trace = fn }
}

// New creates an engine and starts its loop. Callers must Close it.
func New(remote Remote, opts ...Option) *Engine {
	e := &Engine{
		remote:    remote,
		clock:     engine.NewClock(),
		debouncer: engine.NewDebouncer(engine.DefaultDebounce),
		flows:     engine.UUIDv7Generator{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		genre:     catalog.AllGenres,
		sortKey:   catalog.DefaultSortKey,
		results:   []catalog.Book{},
		mode:      KindLoad,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loop = engine.NewLoop(e.logger)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	go func() {
		_ = e.loop.Run(e.ctx)
	}()
	return e
}

// Close tears the view down: the debounce timer is stopped, in-flight
// requests are canceled and nothing mutates state afterwards. Close waits
// for the loop and request goroutines to exit.
func (e *Engine) Close() {
	e.close.Do(func() {
		e.debouncer.Stop()
		e.loop.Close()
		e.cancel()
		<-e.loop.Done()
		e.wg.Wait()
	})
}

// LoadCatalog fetches the full catalog. The cache (genres, totals) is
// always refreshed; the displayed set is replaced only when no search or
// filter is active.
func (e *Engine) LoadCatalog(ctx context.Context) error {
	return e.loop.Do(ctx, "load-catalog", func() {
		if e.term == "" && catalog.IsAllGenres(e.genre) {
			e.issue(KindLoad, "", e.clock.Next())
			return
		}
		e.issue(KindCache, "", 0)
	})
}

// SetSearchTerm updates the search input. A blank term reverts at once to
// the full catalog, or to the active genre filter (re-issued). Any other
// term supersedes outstanding queries and arms the debounce; the search is
// issued once input has been quiet for the debounce period.
func (e *Engine) SetSearchTerm(ctx context.Context, term string) error {
	return e.loop.Do(ctx, "set-search-term", func() {
		e.term = strings.TrimSpace(term)
		e.disarm()

		if e.term == "" {
			if !catalog.IsAllGenres(e.genre) {
				e.issue(KindFilter, e.genre, e.clock.Next())
				return
			}
			e.revertToCatalog()
			return
		}

		// The keystroke itself supersedes whatever is in flight.
		gen := e.clock.Next()
		e.debSeq++
		seq := e.debSeq
		e.debArmed = true
		e.emit(Trace{Step: StepDebounce, Kind: KindSearch, Arg: e.term, Gen: gen})

		e.debouncer.Debounce(func() {
			e.loop.Post(engine.Event{Kind: engine.EventTimer, Name: "search-debounce", Apply: func() {
				e.fire(seq)
			}})
		})
	})
}

// SubmitSearch issues the pending search immediately, skipping the rest
// of the debounce period. It does nothing for a blank term.
func (e *Engine) SubmitSearch(ctx context.Context) error {
	return e.loop.Do(ctx, "submit-search", func() {
		if e.term == "" {
			return
		}
		e.disarm()
		e.issue(KindSearch, e.term, e.clock.Next())
	})
}

// SetGenreFilter selects a genre. "all" (or blank) reverts to the full
// catalog; any other genre issues a remote filter query whose response
// replaces the result set. The filter is not combined with the search
// term, and a search still waiting on its debounce is dropped.
func (e *Engine) SetGenreFilter(ctx context.Context, genre string) error {
	return e.loop.Do(ctx, "set-genre", func() {
		e.disarm()
		if catalog.IsAllGenres(genre) {
			e.genre = catalog.AllGenres
			e.revertToCatalog()
			return
		}
		e.genre = strings.TrimSpace(genre)
		e.issue(KindFilter, e.genre, e.clock.Next())
	})
}

// SetSortKey selects the sort applied by View. Unknown keys leave the
// result order as received.
func (e *Engine) SetSortKey(ctx context.Context, key catalog.SortKey) error {
	return e.loop.Do(ctx, "set-sort", func() {
		e.sortKey = key
	})
}

// Reset clears the search term, the genre filter and the sort key, and
// shows the full catalog. Responses still in flight are discarded.
func (e *Engine) Reset(ctx context.Context) error {
	return e.loop.Do(ctx, "reset", func() {
		e.disarm()
		e.term = ""
		e.genre = catalog.AllGenres
		e.sortKey = catalog.DefaultSortKey
		e.revertToCatalog()
	})
}

// Idle blocks until no request is in flight and no search is waiting on
// its debounce.
func (e *Engine) Idle(ctx context.Context) error {
	ch := make(chan struct{})
	if err := e.loop.Do(ctx, "idle", func() {
		e.idleWaits = append(e.idleWaits, ch)
		e.notifyIdle()
	}); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-e.loop.Done():
		return engine.ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// revertToCatalog shows the cached catalog under a fresh generation. With
// nothing cached yet (or only a failed load) it issues a load instead.
func (e *Engine) revertToCatalog() {
	gen := e.clock.Next()
	if !e.cacheLoaded {
		e.issue(KindLoad, "", gen)
		return
	}
	e.results = e.cache
	e.mode = KindLoad
	e.err = nil
	e.busy = false
	e.emit(Trace{Step: StepRevert, Kind: KindLoad, Gen: gen, Count: len(e.cache)})
	e.notifyIdle()
}

// disarm cancels a pending debounced search.
func (e *Engine) disarm() {
	if !e.debArmed {
		return
	}
	e.debouncer.Cancel()
	e.debArmed = false
	e.debSeq++
	e.notifyIdle()
}

func (e *Engine) fire(seq int64) {
	if !e.debArmed || seq != e.debSeq {
		// Superseded while the timer event was queued.
		return
	}
	e.debArmed = false
	e.issue(KindSearch, e.term, e.clock.Next())
}

// issue starts a remote query tagged with gen. gen 0 marks a cache-only
// load that never touches the display.
func (e *Engine) issue(kind Kind, arg string, gen int64) {
	if gen != 0 {
		e.busy = true
		e.busyKind = kind
	}
	e.inflight++
	e.emit(Trace{Step: StepIssue, Kind: kind, Arg: arg, Gen: gen})

	flow := e.flows.Generate()
	ctx := engine.WithFlow(e.ctx, flow)
	e.logger.Debug("query issued", "kind", kind, "arg", arg, "gen", gen, "flow", flow)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var books []catalog.Book
		var err error
		switch kind {
		case KindSearch:
			books, err = e.remote.SearchBooks(ctx, arg)
		case KindFilter:
			books, err = e.remote.FilterBooks(ctx, arg)
		default:
			books, err = e.remote.Books(ctx)
		}
		e.loop.Post(engine.Event{Kind: engine.EventNetwork, Name: string(kind), Apply: func() {
			e.complete(kind, arg, gen, books, err)
		}})
	}()
}

// complete runs on the loop when a query finishes.
func (e *Engine) complete(kind Kind, arg string, gen int64, books []catalog.Book, err error) {
	e.inflight--
	defer e.notifyIdle()

	if books == nil {
		books = []catalog.Book{}
	}

	// Any successful full load refreshes the cache, current or not.
	if kind == KindLoad || kind == KindCache {
		if err == nil {
			e.cache = books
			e.cacheLoaded = true
		}
	}

	if gen == 0 || !e.clock.IsCurrent(gen) {
		e.logger.Debug("stale response discarded", "kind", kind, "gen", gen, "current", e.clock.Current())
		e.emit(Trace{Step: StepDiscard, Kind: kind, Arg: arg, Gen: gen, Count: len(books), Failed: err != nil})
		return
	}
	e.busy = false

	if err != nil {
		e.emit(Trace{Step: StepFail, Kind: kind, Arg: arg, Gen: gen})
		if kind == KindLoad {
			e.logger.Warn("catalog load failed", "error", err)
			e.results = []catalog.Book{}
			e.mode = KindLoad
			e.err = fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
			return
		}
		// Search and filter failures keep the last-known-good results.
		e.logger.Warn("query failed", "kind", kind, "arg", arg, "error", err)
		e.err = fmt.Errorf("%s %q: %w", kind, arg, err)
		return
	}

	e.results = books
	e.mode = kind
	e.err = nil
	e.emit(Trace{Step: StepApply, Kind: kind, Arg: arg, Gen: gen, Count: len(books)})
}

func (e *Engine) notifyIdle() {
	if e.inflight > 0 || e.debArmed {
		return
	}
	for _, ch := range e.idleWaits {
		close(ch)
	}
	e.idleWaits = nil
}

func (e *Engine) emit(t Trace) {
	if e.trace != nil {
		e.trace(t)
	}
}
