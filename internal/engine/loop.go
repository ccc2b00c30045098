package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// ErrLoopClosed is returned when work is submitted to, or awaited on, a
// loop that has been closed.
var ErrLoopClosed = errors.New("engine: loop closed")

// Loop is a single-writer event loop.
//
// Thread-safety model:
//   - Post, Do, Close: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Event.Apply: always runs on the Run goroutine
type Loop struct {
	queue  *eventQueue
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop. A nil logger discards output.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loop{
		queue:  newEventQueue(),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Post submits an event. Returns false if the loop is closed.
func (l *Loop) Post(ev Event) bool {
	return l.queue.Enqueue(ev)
}

// Do runs fn on the loop goroutine and waits until it has returned.
func (l *Loop) Do(ctx context.Context, name string, fn func()) error {
	ran := make(chan struct{})
	ok := l.Post(Event{Kind: EventInput, Name: name, Apply: func() {
		defer close(ran)
		fn()
	}})
	if !ok {
		return ErrLoopClosed
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		// Run may have executed fn just before exiting.
		select {
		case <-ran:
			return nil
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until the context is cancelled or Close is called.
// It returns ctx.Err() on cancellation and nil on Close.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	l.logger.Debug("loop starting")

	for {
		if ev, ok := l.queue.TryDequeue(); ok {
			l.logger.Debug("event", "kind", ev.Kind.String(), "name", ev.Name)
			if ev.Apply != nil {
				ev.Apply()
			}
			continue
		}

		select {
		case <-ctx.Done():
			dropped := l.queue.Close()
			l.logger.Debug("loop stopping: context cancelled", "dropped", dropped)
			return ctx.Err()
		case <-l.queue.Wait():
			if l.queue.Closed() {
				l.logger.Debug("loop stopping: closed")
				return nil
			}
		}
	}
}

// Close stops the loop. Pending events are dropped and later Posts fail.
func (l *Loop) Close() {
	if dropped := l.queue.Close(); dropped > 0 {
		l.logger.Debug("dropped pending events", "count", dropped)
	}
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Closed reports whether Close has been called (or Run was cancelled).
func (l *Loop) Closed() bool {
	return l.queue.Closed()
}
