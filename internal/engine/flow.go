package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FlowTokenGenerator generates request correlation tokens.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the system random source
// fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined flow tokens in order.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
//	gen := NewFixedGenerator("flow-1", "flow-2")
//	gen.Generate() // "flow-1"
//	gen.Generate() // "flow-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token. Panics when exhausted so a
// test that issues more requests than expected fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

type flowKey struct{}

// WithFlow returns a context carrying the flow token.
func WithFlow(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, flowKey{}, token)
}

// FlowFrom returns the flow token carried by ctx, if any.
func FlowFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(flowKey{}).(string)
	return token, ok && token != ""
}
