package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/storefront/internal/engine"
)

var _ engine.FlowTokenGenerator = (*SequentialFlowGenerator)(nil)

func TestSequentialFlowGenerator(t *testing.T) {
	g := NewSequentialFlowGenerator("scn")
	assert.Equal(t, "scn-0001", g.Generate())
	assert.Equal(t, "scn-0002", g.Generate())
	assert.Equal(t, int64(2), g.Issued())

	assert.Equal(t, "test-flow-0001", NewSequentialFlowGenerator("").Generate())
}

func TestSequentialFlowGenerator_Concurrent(t *testing.T) {
	g := NewSequentialFlowGenerator("c")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok := g.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
	assert.Equal(t, int64(1000), g.Issued())
}
