package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/storefront/internal/pricing"
)

// Trace sources.
const (
	SourceInput   = "input"
	SourceQuery   = "query"
	SourceCart    = "cart"
	SourceSession = "session"
	SourceConfirm = "confirm"
	SourceFake    = "fake"
)

// TraceEvent is one recorded line.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

func (e TraceEvent) String() string {
	return fmt.Sprintf("%03d %-7s %s", e.Seq, e.Source, e.Text)
}

// Final is the state observed after the last step.
type Final struct {
	Titles      []string        `json:"titles"`
	Mode        string          `json:"mode"`
	Term        string          `json:"term"`
	Genre       string          `json:"genre"`
	Sort        string          `json:"sort"`
	ViewMessage string          `json:"view_message,omitempty"`
	CartCount   int             `json:"cart_count"`
	CartTitles  []string        `json:"cart_titles"`
	Summary     pricing.Summary `json:"summary"`
	Hits        map[string]int  `json:"hits"`
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
	Final  Final        `json:"final"`
}

// NewResult returns a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceText renders the trace one event per line.
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
