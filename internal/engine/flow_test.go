package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	token := UUIDv7Generator{}.Generate()

	assert.Len(t, token, 36)
	parsed, err := uuid.Parse(token)
	require.NoError(t, err, "token should be valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, token)
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 100

	tokens := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- gen.Generate()
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[string]bool)
	for token := range tokens {
		require.False(t, seen[token], "duplicate token generated")
		seen[token] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestFixedGenerator_Sequential(t *testing.T) {
	gen := NewFixedGenerator("flow-1", "flow-2", "flow-3")

	assert.Equal(t, "flow-1", gen.Generate())
	assert.Equal(t, "flow-2", gen.Generate())
	assert.Equal(t, "flow-3", gen.Generate())
	assert.Panics(t, func() { gen.Generate() }, "should panic when all tokens exhausted")
}

func TestFixedGenerator_EmptyTokens(t *testing.T) {
	gen := NewFixedGenerator()
	assert.Panics(t, func() { gen.Generate() })
}

func TestFlowContext(t *testing.T) {
	_, ok := FlowFrom(context.Background())
	assert.False(t, ok)

	ctx := WithFlow(context.Background(), "flow-7")
	token, ok := FlowFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "flow-7", token)

	_, ok = FlowFrom(WithFlow(context.Background(), ""))
	assert.False(t, ok, "empty token is treated as absent")
}
