package cart

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/api"
	"github.com/roach88/storefront/internal/apitest"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/store"
)

type fixture struct {
	srv   *apitest.Server
	store *store.Store
	gate  *session.Gate
}

func newFixture(t *testing.T, loggedIn bool, opts ...apitest.Option) *fixture {
	t.Helper()
	srv := apitest.New(append([]apitest.Option{apitest.WithUser("ann", "pw")}, opts...)...)
	t.Cleanup(srv.Close)

	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	if loggedIn {
		require.NoError(t, st.Put(context.Background(), session.SlotUser, []byte(`{"id":1,"username":"ann"}`)))
	}
	return &fixture{srv: srv, store: st, gate: session.NewGate(st)}
}

func (f *fixture) engine(opts ...Option) *Engine {
	return New(api.New(f.srv.BaseURL(), api.WithTimeout(2*time.Second)), f.gate, opts...)
}

func mkLine(id int, title string, price any) catalog.CartLine {
	return catalog.CartLine{
		ID:          catalog.ID(fmt.Sprint(id)),
		BookID:      catalog.ID(fmt.Sprint(id % 7)),
		Title:       title,
		RawPrice:    money.NumberOf(price),
		RawQuantity: money.NumberOf(1),
	}
}

func ids(lines []catalog.CartLine) []catalog.ID {
	out := make([]catalog.ID, len(lines))
	for i, l := range lines {
		out[i] = l.ID
	}
	return out
}

// recorder answers confirmations from a script and remembers the prompts.
type recorder struct {
	answer  bool
	prompts []string
}

func (r *recorder) Confirm(_ context.Context, prompt string) (bool, error) {
	r.prompts = append(r.prompts, prompt)
	return r.answer, nil
}

func TestFetch_AnonymousMakesNoRequest(t *testing.T) {
	f := newFixture(t, false)
	e := f.engine()

	lines, err := e.Fetch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
	assert.Zero(t, f.srv.TotalHits())
}

func TestFetch_ReplacesMirror(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(101, "Dune", "9.99"), mkLine(102, "Emma", 12))
	e := f.engine()

	lines, err := e.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.ID{"101", "102"}, ids(lines))
	assert.Equal(t, 2, e.Count())
	assert.Equal(t, "21.99", e.Summary().Subtotal)
}

func TestFetch_FailureKeepsLastKnownGood(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(101, "Dune", 10))
	e := f.engine()
	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	f.srv.Fail(apitest.RouteCart, apitest.Fault{Status: http.StatusInternalServerError})
	_, err = e.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to load cart", UserMessage(err))
	assert.Equal(t, []catalog.ID{"101"}, ids(e.Lines()))
}

func TestAdd_Validation(t *testing.T) {
	f := newFixture(t, true)
	e := f.engine()

	_, err := e.Add(context.Background(), catalog.Book{Title: "No id"})
	assert.ErrorIs(t, err, ErrMissingBookID)
	assert.Equal(t, "Book ID is missing", UserMessage(err))
	assert.Zero(t, f.srv.TotalHits())
	assert.Zero(t, e.Count())
}

func TestAdd_NotAuthenticated(t *testing.T) {
	f := newFixture(t, false)
	e := f.engine()

	_, err := e.Add(context.Background(), catalog.Book{ID: "1", Title: "Dune"})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, "Please login to add items to cart", UserMessage(err))
	assert.Zero(t, f.srv.TotalHits())
}

func TestAdd_IncrementsByOneWithoutServerCount(t *testing.T) {
	f := newFixture(t, true)
	e := f.engine()
	ctx := context.Background()

	out, err := e.Add(ctx, catalog.Book{ID: "1", Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, `Added "Dune" to cart!`, out.Message)
	assert.Equal(t, 1, e.Count())

	// The server merges a repeat add into the existing line; the local
	// counter still grows by one.
	_, err = e.Add(ctx, catalog.Book{ID: "1", Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Count())
	assert.Len(t, f.srv.Cart(1), 1)
}

func TestAdd_UsesServerCount(t *testing.T) {
	f := newFixture(t, true, apitest.WithCartCount())
	e := f.engine()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.Add(ctx, catalog.Book{ID: "1", Title: "Dune"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.Count(), "authoritative count wins over the increment")
}

func TestAdd_FailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, true)
	f.srv.Fail(apitest.RouteCartAdd, apitest.Fault{Reject: true, Message: "Out of stock"})
	e := f.engine()

	_, err := e.Add(context.Background(), catalog.Book{ID: "1", Title: "Dune"})
	require.Error(t, err)
	assert.True(t, api.IsRejected(err))
	assert.Equal(t, "Out of stock", UserMessage(err))
	assert.Zero(t, e.Count())

	f.srv.Fail(apitest.RouteCartAdd, apitest.Fault{Reject: true})
	_, err = e.Add(context.Background(), catalog.Book{ID: "1", Title: "Dune"})
	assert.Equal(t, "Failed to add to cart", UserMessage(err))
}

func TestAdd_InFlightGuard(t *testing.T) {
	f := newFixture(t, true)
	e := f.engine()
	release := f.srv.Hold(apitest.RouteCartAdd)

	book := catalog.Book{ID: "2", Title: "Emma"}
	done := make(chan error, 1)
	go func() {
		_, err := e.Add(context.Background(), book)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.srv.Hits(apitest.RouteCartAdd) == 1 }, time.Second, 5*time.Millisecond)

	_, err := e.Add(context.Background(), book)
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 1, f.srv.Hits(apitest.RouteCartAdd), "duplicate submission makes no request")

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, e.Count())
}

func TestRemove_RemovesExactlyOne(t *testing.T) {
	for size := 1; size <= 5; size++ {
		for target := 0; target < size; target++ {
			t.Run(fmt.Sprintf("size=%d/target=%d", size, target), func(t *testing.T) {
				f := newFixture(t, true)
				var seeded []catalog.CartLine
				for i := 0; i < size; i++ {
					seeded = append(seeded, mkLine(200+i, fmt.Sprintf("Book %d", i), 5))
				}
				f.srv.SeedCart(1, seeded...)

				e := f.engine()
				_, err := e.Fetch(context.Background())
				require.NoError(t, err)

				victim := seeded[target].ID
				out, err := e.Remove(context.Background(), victim)
				require.NoError(t, err)
				assert.Equal(t, "Item removed!", out.Message)

				want := []catalog.ID{}
				for _, l := range seeded {
					if l.ID != victim {
						want = append(want, l.ID)
					}
				}
				got := ids(e.Lines())
				assert.Len(t, got, size-1)
				assert.ElementsMatch(t, want, got)
				assert.Equal(t, want, got, "order of the remaining lines is preserved")
			})
		}
	}
}

func TestRemove_Confirmation(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(301, "Dune", 10))
	rec := &recorder{answer: false}
	e := f.engine(WithConfirmer(rec))
	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	out, err := e.Remove(context.Background(), "301")
	require.NoError(t, err)
	assert.True(t, out.Declined)
	assert.Equal(t, []string{`Remove "Dune" from cart?`}, rec.prompts)
	assert.Zero(t, f.srv.Hits(apitest.RouteCartRemove), "declined removal sends nothing")
	assert.Len(t, e.Lines(), 1)
}

func TestRemove_FailureLeavesMirror(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(401, "Dune", 10), mkLine(402, "Emma", 10))
	e := f.engine()
	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	// The server lost a line the client still shows.
	f.srv.SeedCart(1, mkLine(401, "Dune", 10))
	f.srv.Fail(apitest.RouteCartRemove, apitest.Fault{Status: http.StatusBadGateway})

	_, err = e.Remove(context.Background(), "401")
	require.Error(t, err)
	assert.Equal(t, "Failed to remove item", UserMessage(err))
	assert.Equal(t, []catalog.ID{"401", "402"}, ids(e.Lines()))
}

func TestRemove_FailureRefetchWhenEnabled(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(401, "Dune", 10), mkLine(402, "Emma", 10))
	e := f.engine(WithRefetchOnFailure(true))
	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	f.srv.SeedCart(1, mkLine(401, "Dune", 10))
	f.srv.Fail(apitest.RouteCartRemove, apitest.Fault{Status: http.StatusBadGateway})

	_, err = e.Remove(context.Background(), "401")
	require.Error(t, err)
	assert.Equal(t, []catalog.ID{"401"}, ids(e.Lines()), "mirror re-read from the server")
}

func TestClear(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(501, "Dune", 10), mkLine(502, "Emma", 10))
	rec := &recorder{answer: true}
	e := f.engine(WithConfirmer(rec))
	ctx := context.Background()
	_, err := e.Fetch(ctx)
	require.NoError(t, err)

	f.srv.Fail(apitest.RouteCartClear, apitest.Fault{Reject: true, Times: 1})
	_, err = e.Clear(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to clear cart", UserMessage(err))
	assert.Len(t, e.Lines(), 2, "failed clear leaves the mirror whole")

	out, err := e.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Cart cleared successfully!", out.Message)
	assert.Empty(t, e.Lines())
	assert.Zero(t, e.Count())
	assert.Empty(t, f.srv.Cart(1))
	assert.Equal(t, "Are you sure you want to clear your entire cart?", rec.prompts[0])
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, true)
	e := f.engine()

	_, err := e.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "Your cart is empty!", UserMessage(err))
}

func TestCheckout_AlwaysEmpties(t *testing.T) {
	faults := map[string]*apitest.Fault{
		"server ok":       nil,
		"server error":    {Status: http.StatusInternalServerError},
		"server rejects":  {Reject: true},
		"server too slow": {Delay: 500 * time.Millisecond},
	}
	for name, fault := range faults {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, true)
			f.srv.SeedCart(1, mkLine(601, "Dune", 30), mkLine(602, "Emma", 25))
			if fault != nil {
				f.srv.Fail(apitest.RouteCartClear, *fault)
			}
			rec := &recorder{answer: true}
			e := New(api.New(f.srv.BaseURL(), api.WithTimeout(100*time.Millisecond)), f.gate, WithConfirmer(rec))
			_, err := e.Fetch(context.Background())
			require.NoError(t, err)

			out, err := e.Checkout(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Order placed successfully! Total: $60.50", out.Message)
			assert.Equal(t, []string{"Confirm purchase of 2 item(s) for $60.50?"}, rec.prompts)
			assert.Empty(t, e.Lines())
			assert.Zero(t, e.Count())
		})
	}
}

func TestCheckout_Declined(t *testing.T) {
	f := newFixture(t, true)
	f.srv.SeedCart(1, mkLine(701, "Dune", 10))
	e := f.engine(WithConfirmer(&recorder{answer: false}), WithRemoteClearOnCheckout(false))
	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	out, err := e.Checkout(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Declined)
	assert.Len(t, e.Lines(), 1)
}

func TestCheckout_NotAuthenticated(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.engine().Checkout(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, "Please login to checkout", UserMessage(err))
}

func TestQuickBuy(t *testing.T) {
	f := newFixture(t, true)
	e := f.engine()

	out, err := e.QuickBuy(context.Background(), catalog.Book{ID: "4", Title: "The Hobbit"})
	require.NoError(t, err)
	assert.Equal(t, `Added "The Hobbit" to cart!`, out.Message)

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "The Hobbit", lines[0].Title)
	assert.Equal(t, "25.00", e.Summary().Subtotal)
}
