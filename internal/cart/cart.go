// Package cart owns the local mirror of the user's server-side cart.
//
// The server is the source of truth. Every mutating operation consults the
// session gate first, asks for confirmation where the user could lose data,
// and changes the mirror only after its own response reported success. The
// change is applied under the mirror lock to whatever the mirror holds at
// completion time, so overlapping operations converge in completion order.
package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/storefront/internal/api"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
	"github.com/roach88/storefront/internal/pricing"
	"github.com/roach88/storefront/internal/session"
)

// Remote is the cart side of the storefront service. *api.Client
// implements it.
type Remote interface {
	CartItems(ctx context.Context, userID catalog.ID) ([]catalog.CartLine, error)
	AddToCart(ctx context.Context, userID, bookID catalog.ID) (api.AddResult, error)
	RemoveFromCart(ctx context.Context, userID, lineID catalog.ID) error
	ClearCart(ctx context.Context, userID catalog.ID) error
}

// Outcome reports a finished operation.
type Outcome struct {
	// Message is the confirmation to show, e.g. `Added "Dune" to cart!`.
	Message string
	// Declined is set when the user answered no; nothing was changed.
	Declined bool
}

// Engine is the cart session engine. It is safe for concurrent use.
type Engine struct {
	remote  Remote
	gate    *session.Gate
	confirm Confirmer
	policy  pricing.Policy
	logger  *slog.Logger

	refetchOnFailure      bool
	clearRemoteOnCheckout bool

	mu       sync.Mutex
	lines    []catalog.CartLine
	count    int
	inflight map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfirmer sets how confirmations are obtained. The default answers
// yes to everything.
func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) { e.confirm = c }
}

// WithPolicy sets the pricing policy used by Summary and Checkout.
func WithPolicy(p pricing.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRefetchOnFailure re-reads the server cart after a failed remove or
// clear, so the mirror cannot drift from server state. Off by default: a
// failed mutation leaves the mirror untouched.
func WithRefetchOnFailure(on bool) Option {
	return func(e *Engine) { e.refetchOnFailure = on }
}

// WithRemoteClearOnCheckout controls the best-effort server clear issued
// after a confirmed checkout. On by default; its outcome never affects the
// checkout result.
func WithRemoteClearOnCheckout(on bool) Option {
	return func(e *Engine) { e.clearRemoteOnCheckout = on }
}

// New creates a cart engine.
func New(remote Remote, gate *session.Gate, opts ...Option) *Engine {
	e := &Engine{
		remote:                remote,
		gate:                  gate,
		confirm:               AlwaysConfirm,
		policy:                pricing.DefaultPolicy(),
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		clearRemoteOnCheckout: true,
		inflight:              make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lines returns a snapshot of the mirror.
func (e *Engine) Lines() []catalog.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.lines)
}

// Count returns the cart badge counter.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Summary derives the order summary from the current mirror.
func (e *Engine) Summary() pricing.Summary {
	return pricing.Summarize(e.Lines(), e.policy)
}

// Fetch replaces the mirror with the server's cart. Without a session the
// cart is empty and no request is made. On failure the mirror keeps its
// last-known-good contents.
func (e *Engine) Fetch(ctx context.Context) ([]catalog.CartLine, error) {
	sess, ok := e.gate.Current(ctx)
	if !ok {
		e.replace(nil)
		return []catalog.CartLine{}, nil
	}

	lines, err := e.remote.CartItems(ctx, sess.UserID)
	if err != nil {
		e.logger.Warn("cart fetch failed", "user", sess.UserID, "error", err)
		return e.Lines(), &ActionError{Op: "fetch", Message: "Failed to load cart", Err: err}
	}
	e.replace(lines)
	e.logger.Debug("cart fetched", "user", sess.UserID, "lines", len(lines))
	return slices.Clone(lines), nil
}

// Add adds book to the cart.
//
// The badge counter takes the server's reported cart size when the
// acknowledgement carries one and otherwise grows by exactly one. That
// fallback can drift from server truth (the server may merge duplicates
// into one line) until the next Fetch.
func (e *Engine) Add(ctx context.Context, book catalog.Book) (Outcome, error) {
	const op = "add"
	if book.ID.IsZero() {
		return Outcome{}, &ActionError{Op: op, Message: "Book ID is missing", Err: ErrMissingBookID}
	}
	sess, err := e.require(ctx, op, "Please login to add items to cart")
	if err != nil {
		return Outcome{}, err
	}

	key := "add:" + book.ID.String()
	if err := e.begin(op, key); err != nil {
		return Outcome{}, err
	}
	defer e.end(key)

	res, err := e.remote.AddToCart(ctx, sess.UserID, book.ID)
	if err != nil {
		msg := "Failed to add to cart"
		if m, ok := api.ServerMessage(err); ok {
			msg = m
		}
		e.logger.Warn("cart add failed", "book", book.ID, "error", err)
		return Outcome{}, &ActionError{Op: op, Message: msg, Err: err}
	}

	e.mu.Lock()
	if res.Count != nil {
		e.count = *res.Count
	} else {
		e.count++
	}
	count := e.count
	e.mu.Unlock()

	e.logger.Info("added to cart", "book", book.ID, "count", count, "authoritative", res.Count != nil)
	return Outcome{Message: fmt.Sprintf("Added %q to cart!", book.Title)}, nil
}

// QuickBuy adds book and then refreshes the mirror so the caller can show
// the cart straight away.
func (e *Engine) QuickBuy(ctx context.Context, book catalog.Book) (Outcome, error) {
	if _, err := e.require(ctx, "quick-buy", "Please login to checkout"); err != nil {
		return Outcome{}, err
	}
	out, err := e.Add(ctx, book)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := e.Fetch(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// Remove deletes one line after confirmation. The mirror loses exactly the
// line with that id, and only once the server acknowledged the delete.
func (e *Engine) Remove(ctx context.Context, lineID catalog.ID) (Outcome, error) {
	const op = "remove"
	sess, err := e.require(ctx, op, "Please login to manage cart")
	if err != nil {
		return Outcome{}, err
	}

	ok, err := e.ask(ctx, op, fmt.Sprintf("Remove %q from cart?", e.titleOf(lineID)))
	if err != nil || !ok {
		return Outcome{Declined: err == nil}, err
	}

	key := "remove:" + lineID.String()
	if err := e.begin(op, key); err != nil {
		return Outcome{}, err
	}
	defer e.end(key)

	if err := e.remote.RemoveFromCart(ctx, sess.UserID, lineID); err != nil {
		e.logger.Warn("cart remove failed", "line", lineID, "error", err)
		e.refetchAfterFailure(ctx, sess)
		return Outcome{}, &ActionError{Op: op, Message: "Failed to remove item", Err: err}
	}

	e.mu.Lock()
	e.lines = removeLine(e.lines, lineID)
	e.count = len(e.lines)
	e.mu.Unlock()

	e.logger.Info("removed from cart", "line", lineID)
	return Outcome{Message: "Item removed!"}, nil
}

// Clear empties the cart after confirmation. The mirror is emptied in one
// step once the server acknowledged, never line by line.
func (e *Engine) Clear(ctx context.Context) (Outcome, error) {
	const op = "clear"
	sess, err := e.require(ctx, op, "Please login to manage cart")
	if err != nil {
		return Outcome{}, err
	}

	ok, err := e.ask(ctx, op, "Are you sure you want to clear your entire cart?")
	if err != nil || !ok {
		return Outcome{Declined: err == nil}, err
	}

	if err := e.begin(op, op); err != nil {
		return Outcome{}, err
	}
	defer e.end(op)

	if err := e.remote.ClearCart(ctx, sess.UserID); err != nil {
		e.logger.Warn("cart clear failed", "error", err)
		e.refetchAfterFailure(ctx, sess)
		return Outcome{}, &ActionError{Op: op, Message: "Failed to clear cart", Err: err}
	}

	e.replace(nil)
	e.logger.Info("cart cleared")
	return Outcome{Message: "Cart cleared successfully!"}, nil
}

// Checkout places a simplified local order. After confirmation the mirror
// is always emptied; the server clear that follows is best effort and its
// failure is only logged.
func (e *Engine) Checkout(ctx context.Context) (Outcome, error) {
	const op = "checkout"
	sess, err := e.require(ctx, op, "Please login to checkout")
	if err != nil {
		return Outcome{}, err
	}

	lines := e.Lines()
	if len(lines) == 0 {
		return Outcome{}, &ActionError{Op: op, Message: "Your cart is empty!", Err: ErrEmptyCart}
	}
	sum := pricing.Summarize(lines, e.policy)
	total := money.FormatUSD(sum.TotalCents)

	ok, err := e.ask(ctx, op, fmt.Sprintf("Confirm purchase of %d item(s) for %s?", len(lines), total))
	if err != nil || !ok {
		return Outcome{Declined: err == nil}, err
	}

	if err := e.begin(op, op); err != nil {
		return Outcome{}, err
	}
	defer e.end(op)

	e.replace(nil)
	e.logger.Info("order placed", "user", sess.UserID, "lines", len(lines), "total", total)

	if e.clearRemoteOnCheckout {
		if err := e.remote.ClearCart(context.WithoutCancel(ctx), sess.UserID); err != nil {
			e.logger.Warn("server cart not cleared after checkout", "error", err)
		}
	}
	return Outcome{Message: "Order placed successfully! Total: " + total}, nil
}

func (e *Engine) require(ctx context.Context, op, loginMsg string) (session.Session, error) {
	sess, err := e.gate.RequireSession(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		return session.Session{}, &ActionError{Op: op, Message: loginMsg, Err: err}
	}
	if err != nil {
		return session.Session{}, &ActionError{Op: op, Message: "Could not read your session", Err: err}
	}
	return sess, nil
}

func (e *Engine) ask(ctx context.Context, op, prompt string) (bool, error) {
	ok, err := e.confirm.Confirm(ctx, prompt)
	if err != nil {
		return false, &ActionError{Op: op, Message: "Confirmation failed", Err: err}
	}
	if !ok {
		e.logger.Debug("declined", "op", op)
	}
	return ok, nil
}

// begin marks key in flight, rejecting a duplicate submission.
func (e *Engine) begin(op, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[key] {
		return &ActionError{Op: op, Message: "Please wait, still working on it", Err: ErrInFlight}
	}
	e.inflight[key] = true
	return nil
}

func (e *Engine) end(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
}

func (e *Engine) replace(lines []catalog.CartLine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = slices.Clone(lines)
	e.count = len(e.lines)
}

func (e *Engine) refetchAfterFailure(ctx context.Context, sess session.Session) {
	if !e.refetchOnFailure {
		return
	}
	lines, err := e.remote.CartItems(ctx, sess.UserID)
	if err != nil {
		e.logger.Warn("cart re-fetch after failure failed", "error", err)
		return
	}
	e.replace(lines)
}

func (e *Engine) titleOf(id catalog.ID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.lines {
		if l.ID == id {
			return l.Title
		}
	}
	return "item " + id.String()
}

// removeLine returns lines without the entries whose id equals id.
func removeLine(lines []catalog.CartLine, id catalog.ID) []catalog.CartLine {
	return slices.DeleteFunc(slices.Clone(lines), func(l catalog.CartLine) bool {
		return l.ID == id
	})
}
