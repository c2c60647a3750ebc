package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Fields is the serve field list. Empty means the default list.
	Fields []string `yaml:"fields,omitempty"`

	API       string `yaml:"api,omitempty"`
	Token     string `yaml:"token,omitempty"`
	StrictPut bool   `yaml:"strict_put,omitempty"`

	// IDs are handed out by POST in order.
	IDs []string `yaml:"ids,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one HTTP request.
type Step struct {
	// Request is "METHOD /path".
	Request string            `yaml:"request"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// Body is sent as JSON. Form is sent urlencoded. At most one is set.
	Body any               `yaml:"body,omitempty"`
	Form map[string]string `yaml:"form,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a response. Body, when set, must equal the response as JSON.
type Expect struct {
	Status int `yaml:"status"`
	Body   any `yaml:"body,omitempty"`
}

// Assertion checks the final table.
type Assertion struct {
	// Type is one of AssertRecord, AssertAbsent, AssertCount.
	Type string `yaml:"type"`

	// ID is the record checked by record and absent.
	ID string `yaml:"id,omitempty"`

	// Expect holds field values the record must have. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of records (count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord = "record"
	AssertAbsent = "absent"
	AssertCount  = "count"
)

var knownMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
	http.MethodPatch, http.MethodHead, http.MethodOptions,
}

// Method returns the HTTP method of the step.
func (s Step) Method() string {
	method, _, _ := strings.Cut(s.Request, " ")
	return method
}

// Path returns the request path of the step.
func (s Step) Path() string {
	_, path, _ := strings.Cut(s.Request, " ")
	return strings.TrimSpace(path)
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown keys are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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

// validateScenario checks that required fields are present and valid.
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

	for i, step := range s.Steps {
		method := step.Method()
		if !slices.Contains(knownMethods, method) {
			return fmt.Errorf("steps[%d]: unknown method %q", i, method)
		}
		if !strings.HasPrefix(step.Path(), "/") {
			return fmt.Errorf("steps[%d]: path must start with /", i)
		}
		if step.Body != nil && step.Form != nil {
			return fmt.Errorf("steps[%d]: body and form are mutually exclusive", i)
		}
		if step.Expect != nil && step.Expect.Status == 0 {
			return fmt.Errorf("steps[%d]: expect.status is required", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertRecord:
			if a.ID == "" || a.Expect == nil {
				return fmt.Errorf("assertions[%d]: record requires id and expect", i)
			}
		case AssertAbsent:
			if a.ID == "" {
				return fmt.Errorf("assertions[%d]: absent requires id", i)
			}
		case AssertCount:
			if a.Count < 0 {
				return fmt.Errorf("assertions[%d]: count must be >= 0", i)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}
