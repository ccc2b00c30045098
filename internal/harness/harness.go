package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/storefront/internal/apitest"
	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/query"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
)

const (
	defaultDebounce = 20 * time.Millisecond
	// stepTimeout bounds every blocking step so a broken scenario fails
	// instead of hanging.
	stepTimeout = 5 * time.Second
)

// Harness executes one scenario.
type Harness struct {
	srv    *apitest.Server
	app    *app.App
	clock  *testutil.DeterministicClock
	logger *slog.Logger

	mu     sync.Mutex
	result *Result
	answer bool
	holds  map[string]func()
}

// Run executes scenario against a fresh fake service and an in-memory
// session store. Step failures are recorded in the result; the error is
// only for setup problems.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	var srvOpts []apitest.Option
	for _, u := range scenario.Users {
		srvOpts = append(srvOpts, apitest.WithUser(u.Username, u.Password))
	}
	if scenario.CartCount {
		srvOpts = append(srvOpts, apitest.WithCartCount())
	}
	srv := apitest.New(srvOpts...)
	defer srv.Close()

	cfg := config.Default()
	cfg.API.BaseURL = srv.BaseURL()
	cfg.API.Timeout = stepTimeout
	cfg.Session.Path = store.MemoryPath
	cfg.Search.Debounce = scenario.Debounce
	if cfg.Search.Debounce <= 0 {
		cfg.Search.Debounce = defaultDebounce
	}

	h := &Harness{
		srv:    srv,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		result: NewResult(),
		answer: true,
		holds:  make(map[string]func()),
	}

	hc := &http.Client{Transport: &http.Transport{}}
	defer hc.CloseIdleConnections()

	a, err := app.Open(cfg, h.logger,
		app.WithHTTPClient(hc),
		app.WithFlowGenerator(testutil.NewSequentialFlowGenerator(scenario.FlowPrefix)),
		app.WithConfirmer(cart.ConfirmFunc(h.confirm)),
		app.WithQueryTrace(func(t query.Trace) { h.record(SourceQuery, t.String()) }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open client: %w", err)
	}
	defer a.Close()
	h.app = a

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Do, err))
		}
	}

	if err := h.settle(ctx); err != nil {
		return nil, fmt.Errorf("failed to settle: %w", err)
	}
	if err := h.snapshot(ctx); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) record(source, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.Trace = append(h.result.Trace, TraceEvent{Seq: h.clock.Next(), Source: source, Text: text})
}

func (h *Harness) confirm(_ context.Context, prompt string) (bool, error) {
	h.mu.Lock()
	ok := h.answer
	h.mu.Unlock()
	reply := "no"
	if ok {
		reply = "yes"
	}
	h.record(SourceConfirm, fmt.Sprintf("%s -> %s", prompt, reply))
	return ok, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	q := h.app.Query
	switch step.Do {
	case StepLoad:
		h.input(step)
		return q.LoadCatalog(ctx)
	case StepSearch:
		h.input(step)
		return q.SetSearchTerm(ctx, step.Arg)
	case StepSubmit:
		h.input(step)
		return q.SubmitSearch(ctx)
	case StepGenre:
		h.input(step)
		return q.SetGenreFilter(ctx, step.Arg)
	case StepSort:
		h.input(step)
		key, err := catalog.ParseSortKey(step.Arg)
		if err != nil {
			return err
		}
		return q.SetSortKey(ctx, key)
	case StepReset:
		h.input(step)
		return q.Reset(ctx)
	case StepWait:
		return q.Idle(ctx)

	case StepLogin, StepRegister:
		h.input(step)
		return h.auth(ctx, step)

	case StepExpire:
		// Clearing the slot from outside, as another process would.
		h.record(SourceSession, "slot cleared")
		return h.app.Store.Delete(ctx, session.SlotUser)

	case StepAnswer:
		h.mu.Lock()
		h.answer = step.Arg == "yes"
		h.mu.Unlock()
		return nil
	case StepFetch, StepAdd, StepQuickBuy, StepRemove, StepClear, StepCheckout:
		h.input(step)
		return h.cartStep(ctx, step)

	case StepHold:
		h.record(SourceFake, "hold "+step.Arg)
		release := h.srv.Hold(step.Arg)
		h.mu.Lock()
		h.holds[step.Arg] = release
		h.mu.Unlock()
		return nil
	case StepRelease:
		h.record(SourceFake, "release "+step.Arg)
		h.release(step.Arg)
		return nil
	case StepAwait:
		want := step.Count
		if want <= 0 {
			want = 1
		}
		return h.await(ctx, step.Arg, want)
	case StepFail:
		h.record(SourceFake, "fail "+step.Arg)
		h.srv.Fail(step.Arg, step.Fault.apitest())
		return nil
	case StepRecover:
		h.record(SourceFake, "recover "+step.Arg)
		h.srv.Clear(step.Arg)
		return nil
	}
	return fmt.Errorf("unknown step %q", step.Do)
}

func (h *Harness) input(step Step) {
	text := step.Do
	if step.Arg != "" || step.Do == StepSearch {
		text += fmt.Sprintf(" %q", step.Arg)
	}
	h.record(SourceInput, text)
}

func (h *Harness) auth(ctx context.Context, step Step) error {
	var (
		msg string
		err error
	)
	if step.Do == StepLogin {
		_, err = h.app.Auth.Login(ctx, step.Arg, step.Password)
		msg = session.MessageLoginOK
	} else {
		_, err = h.app.Auth.Register(ctx, step.Arg, step.Password)
		msg = session.MessageRegisterOK
	}
	errMsg := ""
	if err != nil {
		errMsg = session.UserMessage(err, step.Do == StepRegister)
	}
	return h.outcome(SourceSession, step, cart.Outcome{Message: msg}, errMsg, err)
}

func (h *Harness) cartStep(ctx context.Context, step Step) error {
	c := h.app.Cart
	var (
		out cart.Outcome
		err error
	)
	switch step.Do {
	case StepFetch:
		var lines []catalog.CartLine
		lines, err = c.Fetch(ctx)
		out.Message = fmt.Sprintf("%d line(s)", len(lines))
	case StepAdd, StepQuickBuy:
		book := catalog.Book{ID: catalog.ID(step.Arg)}
		if !book.ID.IsZero() {
			book, err = h.app.FindBook(ctx, book.ID)
			if err != nil {
				break
			}
		}
		if step.Do == StepAdd {
			out, err = c.Add(ctx, book)
		} else {
			out, err = c.QuickBuy(ctx, book)
		}
	case StepRemove:
		out, err = c.Remove(ctx, catalog.ID(step.Arg))
	case StepClear:
		out, err = c.Clear(ctx)
	case StepCheckout:
		out, err = c.Checkout(ctx)
	}
	msg := ""
	if err != nil {
		msg = cart.UserMessage(err)
	}
	return h.outcome(SourceCart, step, out, msg, err)
}

// outcome records the result line and checks step.Expect. Without an
// expectation any error fails the step.
func (h *Harness) outcome(source string, step Step, out cart.Outcome, errMsg string, err error) error {
	switch {
	case err != nil:
		h.record(source, fmt.Sprintf("%s error: %s", step.Do, errMsg))
	case out.Declined:
		h.record(source, step.Do+" declined")
	default:
		h.record(source, fmt.Sprintf("%s ok: %s", step.Do, out.Message))
	}

	exp := step.Expect
	if exp == nil {
		return err
	}
	switch {
	case exp.Error != "":
		if err == nil {
			return fmt.Errorf("expected error %q, got success %q", exp.Error, out.Message)
		}
		if errMsg != exp.Error {
			return fmt.Errorf("expected error %q, got %q", exp.Error, errMsg)
		}
		return nil
	case err != nil:
		return fmt.Errorf("unexpected error: %w", err)
	case exp.Declined != out.Declined:
		return fmt.Errorf("expected declined=%v, got %v", exp.Declined, out.Declined)
	case exp.Message != "" && exp.Message != out.Message:
		return fmt.Errorf("expected message %q, got %q", exp.Message, out.Message)
	}
	return nil
}

func (h *Harness) release(route string) {
	h.mu.Lock()
	release, ok := h.holds[route]
	delete(h.holds, route)
	h.mu.Unlock()
	if ok {
		release()
	}
}

func (h *Harness) await(ctx context.Context, route string, want int) error {
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for h.srv.Hits(route) < want {
		select {
		case <-ctx.Done():
			return fmt.Errorf("await %s: %d of %d requests: %w", route, h.srv.Hits(route), want, ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

// settle releases every held route and waits for the catalog engine.
func (h *Harness) settle(ctx context.Context) error {
	h.mu.Lock()
	var held []string
	for route := range h.holds {
		held = append(held, route)
	}
	h.mu.Unlock()
	for _, route := range held {
		h.release(route)
	}

	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	return h.app.Query.Idle(ctx)
}

func (h *Harness) snapshot(ctx context.Context) error {
	v, err := h.app.Query.View(ctx)
	if err != nil {
		return err
	}

	hits := map[string]int{}
	for _, r := range h.srv.Requests() {
		hits[r.Route]++
	}

	lines := h.app.Cart.Lines()
	cartTitles := make([]string, len(lines))
	for i, l := range lines {
		cartTitles[i] = l.Title
	}

	titles := make([]string, len(v.Books))
	for i, b := range v.Books {
		titles[i] = b.Title
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.Final = Final{
		Titles:      titles,
		Mode:        string(v.Mode),
		Term:        v.Term,
		Genre:       v.Genre,
		Sort:        string(v.Sort),
		ViewMessage: v.Message(),
		CartCount:   h.app.Cart.Count(),
		CartTitles:  cartTitles,
		Summary:     h.app.Cart.Summary(),
		Hits:        hits,
	}
	return nil
}

// hitSummary renders non-zero route counts for error output.
func hitSummary(hits map[string]int) string {
	var parts []string
	for route, n := range hits {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", route, n))
		}
	}
	slices.Sort(parts)
	return strings.Join(parts, ", ")
}
