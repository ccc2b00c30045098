// Package app assembles the storefront client from configuration: the
// session store, the REST client and the three engines that share them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/roach88/storefront/internal/api"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/query"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/store"
)

// ErrBookNotFound is returned by FindBook for ids missing from the catalog.
var ErrBookNotFound = errors.New("book not found")

// App is one client session.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Store  *store.Store
	Client *api.Client
	Gate   *session.Gate
	Auth   *session.Authenticator
	Cart   *cart.Engine
	Query  *query.Engine
}

type options struct {
	confirmer  cart.Confirmer
	flows      engine.FlowTokenGenerator
	trace      func(query.Trace)
	httpClient *http.Client
}

// Option configures Open.
type Option func(*options)

// WithConfirmer sets the cart confirmation source.
func WithConfirmer(c cart.Confirmer) Option {
	return func(o *options) { o.confirmer = c }
}

// WithFlowGenerator sets the X-Request-ID source for every request.
func WithFlowGenerator(g engine.FlowTokenGenerator) Option {
	return func(o *options) { o.flows = g }
}

// WithQueryTrace observes catalog query steps.
func WithQueryTrace(fn func(query.Trace)) Option {
	return func(o *options) { o.trace = fn }
}

// WithHTTPClient replaces the HTTP client. cfg.API.Timeout still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Open wires an App. A nil logger discards output. The caller must Close
// it.
func Open(cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o := options{
		confirmer: cart.AlwaysConfirm,
		flows:     engine.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger.Debug("opening session store", "path", cfg.Session.Path)
	st, err := store.Open(cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	clientOpts := []api.Option{
		api.WithLogger(logger),
		api.WithFlowGenerator(o.flows),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, api.WithTimeout(cfg.API.Timeout))
	client := api.New(cfg.API.BaseURL, clientOpts...)

	gate := session.NewGate(st)
	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  st,
		Client: client,
		Gate:   gate,
		Auth:   session.NewAuthenticator(client, st),
		Cart: cart.New(client, gate,
			cart.WithConfirmer(o.confirmer),
			cart.WithPolicy(cfg.Policy()),
			cart.WithLogger(logger),
			cart.WithRefetchOnFailure(cfg.Cart.RefetchOnFailure),
			cart.WithRemoteClearOnCheckout(cfg.Cart.ClearRemoteOnCheckout),
		),
	}

	queryOpts := []query.Option{
		query.WithDebounce(cfg.Search.Debounce),
		query.WithLogger(logger),
		query.WithSorter(catalog.Sorter{Tag: cfg.Language()}),
		query.WithFlowGenerator(o.flows),
	}
	if o.trace != nil {
		queryOpts = append(queryOpts, query.WithTrace(o.trace))
	}
	a.Query = query.New(client, queryOpts...)

	logger.Debug("storefront ready", "api", client.BaseURL())
	return a, nil
}

// Close stops the query engine and closes the store.
func (a *App) Close() error {
	a.Query.Close()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	return nil
}

// FindBook resolves a book id against the catalog, loading it first when
// the id is not cached yet.
func (a *App) FindBook(ctx context.Context, id catalog.ID) (catalog.Book, error) {
	if b, ok, err := a.Query.Book(ctx, id); err != nil || ok {
		return b, err
	}
	if err := a.Query.LoadCatalog(ctx); err != nil {
		return catalog.Book{}, err
	}
	if err := a.Query.Idle(ctx); err != nil {
		return catalog.Book{}, err
	}
	b, ok, err := a.Query.Book(ctx, id)
	if err != nil {
		return catalog.Book{}, err
	}
	if !ok {
		return catalog.Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return b, nil
}
