// Package engine provides the event loop that owns interactive view state.
//
// The storefront views are driven the way a UI thread is: discrete events
// (user input, debounce timer firings, network completions) are processed
// one at a time, in FIFO order, on a single goroutine. Network calls run on
// their own goroutines and post a completion event back to the loop; no view
// state is ever touched outside it.
//
// Building blocks:
//
//   - Loop: the single-writer event loop (Post, Do, Run, Close).
//   - Clock: monotonic generation counter. Every issued query takes
//     Clock.Next(); a completion is applied only while its generation is
//     still Clock.Current().
//   - Debouncer: trailing-edge timer used for search input.
//   - Flow tokens: UUIDv7 request identifiers carried on the context and
//     sent as X-Request-ID.
//
// Once a Loop is closed, pending and future events are dropped, so timers
// and requests tied to an abandoned view can never mutate its state.
package engine
