// Package harness runs storefront scenarios against the in-process fake
// service.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: debounce_coalesces
//	description: "Three quick keystrokes send one search"
//	users:
//	  - {username: ann, password: secret}
//	steps:
//	  - do: search
//	    arg: d
//	  - do: search
//	    arg: dune
//	  - do: wait
//	  - do: login
//	    arg: ann
//	    password: secret
//	  - do: add
//	    arg: "1"
//	    expect:
//	      message: 'Added "Dune" to cart!'
//	assertions:
//	  - type: requests
//	    route: GET /books/search
//	    count: 1
//	  - type: results
//	    titles: [Dune]
//
// # Steps
//
// Catalog: load, search <term>, submit, genre <g>, sort <key>, reset, wait.
// Session: login <user>, register <user> (with password), expire_session
// (clears the stored slot behind the client's back).
// Cart: fetch, add <bookId>, quick_buy <bookId>, remove <lineId>, clear,
// checkout, answer yes|no (reply to later confirmations).
// Fake service: hold <route>, release <route>, await <route> (count),
// fail <route> (fault), recover <route>.
//
// Only wait blocks on the catalog engine; a search step returns while its
// debounce is still pending. The run ends by releasing held routes and
// waiting for the engine to go idle.
//
// # Assertion Types
//
//   - trace_contains: a trace line contains text
//   - trace_order: lines containing each of lines appear in that order
//   - trace_count: exactly count lines contain text
//   - results: displayed titles, in display order
//   - requests: the fake received count requests on route
//   - cart: cart badge count and/or line titles
//   - summary: order summary fields
//   - view: browse view mode, genre, term, sort or status message
//
// # Deterministic Traces
//
// Trace lines are numbered by a testutil.DeterministicClock and request ids
// come from a testutil.SequentialFlowGenerator, so a scenario that waits
// after each network-bound catalog step produces an identical trace on
// every run. RunWithGolden compares that trace to testdata/golden.
package harness
