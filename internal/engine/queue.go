package engine

import "sync"

// EventKind classifies loop events for logging and traces.
type EventKind int

const (
	// EventInput is a user action (keystroke, selection, command).
	EventInput EventKind = iota + 1
	// EventTimer is a timer firing, e.g. the search debounce.
	EventTimer
	// EventNetwork is a completed (or failed) remote call.
	EventNetwork
)

func (k EventKind) String() string {
	switch k {
	case EventInput:
		return "input"
	case EventTimer:
		return "timer"
	case EventNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the loop. Apply runs on the loop goroutine.
type Event struct {
	Kind  EventKind
	Name  string
	Apply func()
}

// eventQueue is a thread-safe, unbounded FIFO of events.
//
// Network goroutines and timers enqueue; the loop dequeues. A buffered
// signal channel lets the loop wait with select alongside ctx.Done().
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an event. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Release the closure for GC.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and drops pending ones. It returns the
// number of events dropped.
func (q *eventQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	dropped := len(q.events)
	q.events = nil
	close(q.signal)
	return dropped
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
