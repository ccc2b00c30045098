package testutil

import (
	"fmt"
	"sync/atomic"
)

// DefaultFlowPrefix is used when a scenario names no request id prefix.
const DefaultFlowPrefix = "test-flow"

// SequentialFlowGenerator yields "<prefix>-0001", "<prefix>-0002", ... so
// X-Request-ID headers are reproducible. It never runs out, unlike
// engine.FixedGenerator.
type SequentialFlowGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialFlowGenerator returns a generator. An empty prefix means
// DefaultFlowPrefix.
func NewSequentialFlowGenerator(prefix string) *SequentialFlowGenerator {
	if prefix == "" {
		prefix = DefaultFlowPrefix
	}
	return &SequentialFlowGenerator{prefix: prefix}
}

// Generate implements engine.FlowTokenGenerator.
func (g *SequentialFlowGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}

// Issued reports how many tokens have been handed out.
func (g *SequentialFlowGenerator) Issued() int64 {
	return g.n.Load()
}
