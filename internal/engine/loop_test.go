package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startLoop(t *testing.T) (*Loop, <-chan error) {
	t.Helper()
	l := NewLoop(nil)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	return l, errc
}

func TestLoop_ProcessesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, errc := startLoop(t)

	var got []string
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, l.Post(Event{Kind: EventInput, Name: name, Apply: func() {
			got = append(got, name)
		}}))
	}
	// Do is ordered after the posts above, so got is complete once it returns.
	var snapshot []string
	require.NoError(t, l.Do(context.Background(), "read", func() {
		snapshot = append(snapshot, got...)
	}))
	assert.Equal(t, []string{"a", "b", "c"}, snapshot)

	l.Close()
	require.NoError(t, <-errc)
}

func TestLoop_CloseDropsPendingEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil)
	var applied atomic.Int32
	l.Post(Event{Apply: func() { applied.Add(1) }})
	l.Close()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, int32(0), applied.Load(), "events pending at close must not run")
	assert.False(t, l.Post(Event{Apply: func() { applied.Add(1) }}))

	err := l.Do(context.Background(), "late", func() {})
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestLoop_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.True(t, l.Closed())

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Run returned")
	}
}

func TestLoop_DoRespectsContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Run is never started, so Do can only return through ctx.
	l := NewLoop(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, "never", func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	l.Close()
}
