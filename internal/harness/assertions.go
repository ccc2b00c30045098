package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertResults:
		return assertStrings(AssertResults, a.Titles, r.Final.Titles)
	case AssertRequests:
		if got := r.Final.Hits[a.Route]; got != *a.Count {
			return &AssertionError{
				Type:     AssertRequests,
				Expected: fmt.Sprintf("%d request(s) on %s", *a.Count, a.Route),
				Actual:   fmt.Sprintf("%d (all: %s)", got, hitSummary(r.Final.Hits)),
			}
		}
		return nil
	case AssertCart:
		return assertCart(r.Final, a)
	case AssertSummary:
		s := r.Final.Summary
		return assertFields(AssertSummary, []field{
			{"subtotal", a.Subtotal, s.Subtotal},
			{"tax", a.Tax, s.Tax},
			{"shipping", a.Shipping, s.ShippingText},
			{"total", a.Total, s.Total},
		})
	case AssertView:
		f := r.Final
		return assertFields(AssertView, []field{
			{"mode", a.Mode, f.Mode},
			{"genre", a.Genre, f.Genre},
			{"term", a.Term, f.Term},
			{"sort", a.Sort, f.Sort},
			{"message", a.Message, f.ViewMessage},
		})
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func matches(e TraceEvent, a Assertion, text string) bool {
	if a.Source != "" && e.Source != a.Source {
		return false
	}
	return strings.Contains(e.Text, text)
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, e := range trace {
		if matches(e, a, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("a line containing %q", a.Text),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder needs each line to appear after the previous one;
// unrelated lines may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, e := range trace {
		if next < len(a.Lines) && matches(e, a, a.Lines[next]) {
			next++
		}
	}
	if next == len(a.Lines) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("lines in order %q", a.Lines),
		Actual:   fmt.Sprintf("matched up to %q", a.Lines[:next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, e := range trace {
		if matches(e, a, a.Text) {
			n++
		}
	}
	if n == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d line(s) containing %q", *a.Count, a.Text),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

func assertCart(f Final, a Assertion) error {
	if a.Count != nil && f.CartCount != *a.Count {
		return &AssertionError{
			Type:     AssertCart,
			Expected: fmt.Sprintf("count %d", *a.Count),
			Actual:   fmt.Sprintf("count %d", f.CartCount),
		}
	}
	if a.Titles != nil {
		return assertStrings(AssertCart, a.Titles, f.CartTitles)
	}
	return nil
}

func assertStrings(kind string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", got),
	}
}

type field struct {
	name, want, got string
}

// assertFields compares the fields that have an expected value.
func assertFields(kind string, fields []field) error {
	var diffs []string
	for _, f := range fields {
		if f.want != "" && f.want != f.got {
			diffs = append(diffs, fmt.Sprintf("%s=%q (want %q)", f.name, f.got, f.want))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: "matching fields",
		Actual:   strings.Join(diffs, ", "),
	}
}
