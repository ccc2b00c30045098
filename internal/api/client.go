// Package api is the HTTP+JSON client for the storefront REST service.
//
// Every method takes a context, carries an X-Request-ID (the flow token on
// the context, or a fresh UUIDv7) and fails with *RemoteError. Requests are
// bounded by the client timeout, so a stalled server surfaces as KindTimeout
// rather than a hang.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/money"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

// Client talks to the storefront service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	flows      engine.FlowTokenGenerator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithFlowGenerator sets the source of X-Request-ID values for requests
// whose context carries no flow token.
func WithFlowGenerator(g engine.FlowTokenGenerator) Option {
	return func(c *Client) { c.flows = g }
}

// New creates a client for baseURL, e.g. "http://localhost:5000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		flows:      engine.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ack is the envelope returned by mutating endpoints.
type ack struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	User      json.RawMessage `json:"user,omitempty"`
	CartCount money.Number    `json:"cartCount"`
	Count     money.Number    `json:"count"`
}

func (a ack) text() string {
	if a.Error != "" {
		return a.Error
	}
	return a.Message
}

// count returns the authoritative cart size, preferring cartCount.
func (a ack) count() (int, bool) {
	for _, n := range []money.Number{a.CartCount, a.Count} {
		if v := n.Int(-1); n.IsSet() && v >= 0 {
			return v, true
		}
	}
	return 0, false
}

// do sends one request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + routeOf(path)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RemoteError{Kind: KindDecode, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RemoteError{Kind: KindNetwork, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	flow, ok := engine.FlowFrom(ctx)
	if !ok {
		flow = c.flows.Generate()
	}
	req.Header.Set("X-Request-ID", flow)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classify(ctx, err)
		c.logger.Debug("request failed", "op", op, "flow", flow, "kind", kind, "error", err)
		return &RemoteError{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"op", op,
		"flow", flow,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var a ack
		msg := ""
		if json.Unmarshal(raw, &a) == nil {
			msg = a.text()
		}
		return &RemoteError{Kind: KindStatus, Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		kind := KindDecode
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return &RemoteError{Kind: kind, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// doAck sends a request whose response is an ack envelope. success:false is
// reported as KindRejected.
func (c *Client) doAck(ctx context.Context, method, path string, body any) (ack, error) {
	var a ack
	if err := c.do(ctx, method, path, body, &a); err != nil {
		return ack{}, err
	}
	if !a.Success {
		return a, &RemoteError{Kind: KindRejected, Op: method + " " + routeOf(path), Message: a.text()}
	}
	return a, nil
}

// routeOf strips the query string so logs and errors never carry user ids
// or search terms.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
