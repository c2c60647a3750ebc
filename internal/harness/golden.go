package harness

import (
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden file content of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// MarshalSnapshot renders the trace of result for golden comparison.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return gojson.MarshalIndentWithOption(
		TraceSnapshot{ScenarioName: name, Trace: result.Trace},
		"", "  ",
		gojson.DisableHTMLEscape(),
	)
}

// RunWithGolden runs the scenario, fails the test on any failed
// expectation, and compares the trace against
// testdata/golden/{scenario.Name}.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the trace of an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
