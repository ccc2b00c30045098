package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storefront/internal/apitest"
	"github.com/roach88/storefront/internal/catalog"
)

// Scenario is one scripted client session.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Users are registered with the fake service before the first step.
	Users []User `yaml:"users,omitempty"`

	// Debounce overrides the search quiet period (default 20ms).
	Debounce time.Duration `yaml:"debounce,omitempty"`

	// CartCount makes the fake report cartCount on add.
	CartCount bool `yaml:"cart_count,omitempty"`

	// FlowPrefix prefixes generated request ids (default "test-flow").
	FlowPrefix string `yaml:"flow_prefix,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// User is an account known to the fake service.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Step is one scripted action.
type Step struct {
	Do  string `yaml:"do"`
	Arg string `yaml:"arg,omitempty"`

	// Password is used by login and register.
	Password string `yaml:"password,omitempty"`
	// Count is the request count awaited by await (default 1).
	Count int `yaml:"count,omitempty"`
	// Fault configures fail.
	Fault *Fault `yaml:"fault,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Fault mirrors apitest.Fault.
type Fault struct {
	Status  int           `yaml:"status,omitempty"`
	Reject  bool          `yaml:"reject,omitempty"`
	Message string        `yaml:"message,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty"`
	Times   int           `yaml:"times,omitempty"`
}

func (f Fault) apitest() apitest.Fault {
	return apitest.Fault{Status: f.Status, Reject: f.Reject, Message: f.Message, Delay: f.Delay, Times: f.Times}
}

// Expect checks the outcome of a session or cart step.
type Expect struct {
	// Message must equal the success message.
	Message string `yaml:"message,omitempty"`
	// Error must equal the user-facing failure message.
	Error string `yaml:"error,omitempty"`
	// Declined expects the user to have answered no.
	Declined bool `yaml:"declined,omitempty"`
}

// Assertion validates the run.
type Assertion struct {
	Type string `yaml:"type"`

	// Text and Source select trace lines (trace_contains, trace_count).
	Text   string `yaml:"text,omitempty"`
	Source string `yaml:"source,omitempty"`
	// Lines is the expected order for trace_order.
	Lines []string `yaml:"lines,omitempty"`

	Count *int   `yaml:"count,omitempty"`
	Route string `yaml:"route,omitempty"`

	// Titles is checked by results and cart.
	Titles []string `yaml:"titles,omitempty"`

	Subtotal string `yaml:"subtotal,omitempty"`
	Tax      string `yaml:"tax,omitempty"`
	Shipping string `yaml:"shipping,omitempty"`
	Total    string `yaml:"total,omitempty"`

	Mode    string `yaml:"mode,omitempty"`
	Genre   string `yaml:"genre,omitempty"`
	Term    string `yaml:"term,omitempty"`
	Sort    string `yaml:"sort,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertResults       = "results"
	AssertRequests      = "requests"
	AssertCart          = "cart"
	AssertSummary       = "summary"
	AssertView          = "view"
)

// Step names.
const (
	StepLoad     = "load"
	StepSearch   = "search"
	StepSubmit   = "submit"
	StepGenre    = "genre"
	StepSort     = "sort"
	StepReset    = "reset"
	StepWait     = "wait"
	StepLogin    = "login"
	StepRegister = "register"
	StepFetch    = "fetch"
	StepAdd      = "add"
	StepQuickBuy = "quick_buy"
	StepRemove   = "remove"
	StepClear    = "clear"
	StepCheckout = "checkout"
	StepAnswer   = "answer"
	StepHold     = "hold"
	StepRelease  = "release"
	StepAwait    = "await"
	StepFail     = "fail"
	StepRecover  = "recover"
	StepExpire   = "expire_session"
)

var routes = map[string]bool{
	apitest.RouteBooks:      true,
	apitest.RouteSearch:     true,
	apitest.RouteFilter:     true,
	apitest.RouteCart:       true,
	apitest.RouteCartAdd:    true,
	apitest.RouteCartRemove: true,
	apitest.RouteCartClear:  true,
	apitest.RouteLogin:      true,
	apitest.RouteRegister:   true,
}

// LoadScenario reads a scenario file. Unknown fields are rejected so typos
// surface instead of being ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, u := range s.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Do {
	case StepLoad, StepSubmit, StepReset, StepWait, StepFetch, StepClear, StepCheckout, StepExpire:
	case StepSearch, StepGenre, StepRemove:
		// A blank search term or line id is meaningful.
	case StepSort:
		if _, err := catalog.ParseSortKey(step.Arg); err != nil {
			return err
		}
	case StepAdd, StepQuickBuy:
	case StepLogin, StepRegister:
		// Blank credentials are allowed so the validation path is testable.
	case StepAnswer:
		if step.Arg != "yes" && step.Arg != "no" {
			return fmt.Errorf("answer must be yes or no, got %q", step.Arg)
		}
	case StepHold, StepRelease, StepAwait, StepRecover:
		if !routes[step.Arg] {
			return fmt.Errorf("%s: unknown route %q", step.Do, step.Arg)
		}
	case StepFail:
		if !routes[step.Arg] {
			return fmt.Errorf("fail: unknown route %q", step.Arg)
		}
		if step.Fault == nil {
			return fmt.Errorf("fail: fault is required")
		}
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
	if step.Expect != nil && step.Expect.Message != "" && step.Expect.Error != "" {
		return fmt.Errorf("expect: message and error are exclusive")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Text == "" {
			return fmt.Errorf("text is required for trace_contains")
		}
	case AssertTraceOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("lines list is required for trace_order")
		}
	case AssertTraceCount:
		if a.Text == "" || a.Count == nil {
			return fmt.Errorf("text and count are required for trace_count")
		}
	case AssertResults:
		if a.Titles == nil {
			return fmt.Errorf("titles is required for results (use [] for none)")
		}
	case AssertRequests:
		if !routes[a.Route] {
			return fmt.Errorf("unknown route %q", a.Route)
		}
		if a.Count == nil {
			return fmt.Errorf("count is required for requests")
		}
	case AssertCart:
		if a.Count == nil && a.Titles == nil {
			return fmt.Errorf("count or titles is required for cart")
		}
	case AssertSummary:
		if a.Subtotal == "" && a.Tax == "" && a.Shipping == "" && a.Total == "" {
			return fmt.Errorf("at least one summary field is required")
		}
	case AssertView:
		if a.Mode == "" && a.Genre == "" && a.Term == "" && a.Sort == "" && a.Message == "" {
			return fmt.Errorf("at least one view field is required")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	return nil
}
