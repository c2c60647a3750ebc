package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	gojson "github.com/goccy/go-json"

	"github.com/sverrirab/generic-rest/internal/auth"
	"github.com/sverrirab/generic-rest/internal/idgen"
	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/server"
	"github.com/sverrirab/generic-rest/internal/store"
)

// Run executes a scenario against a fresh in-memory store.
//
// The returned error is non-nil only when the scenario could not be run;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	sch, err := schema.Parse(scenario.Fields)
	if err != nil {
		return nil, fmt.Errorf("parse fields: %w", err)
	}

	opts := store.Options{Persister: store.Memory{}, Guard: auth.New(scenario.Token)}
	if len(scenario.IDs) > 0 {
		opts.IDs = idgen.NewFixed(scenario.IDs...)
	}
	st, err := store.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = st.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	api := scenario.API
	if api == "" {
		api = "/api"
	}
	handler := server.New(server.Options{
		API:       api,
		Store:     st,
		Schema:    sch,
		StrictPut: scenario.StrictPut,
	}).Handler()

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := execute(handler, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			checkExpect(result, i, step, event)
		}
	}

	result.State = st.All()
	for i, a := range scenario.Assertions {
		evaluateAssertion(result, i, a)
	}
	return result, nil
}

func execute(handler http.Handler, seq int, step Step) (TraceEvent, error) {
	var body io.Reader
	contentType := ""
	switch {
	case step.Form != nil:
		values := url.Values{}
		for k, v := range step.Form {
			values.Set(k, v)
		}
		body = bytes.NewBufferString(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	case step.Body != nil:
		raw, err := gojson.Marshal(step.Body)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req := httptest.NewRequest(step.Method(), step.Path(), body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range step.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	event := TraceEvent{
		Seq:    seq,
		Method: step.Method(),
		Path:   step.Path(),
		Status: rec.Code,
	}
	if rec.Body.Len() > 0 {
		if err := gojson.Unmarshal(rec.Body.Bytes(), &event.Body); err != nil {
			return TraceEvent{}, fmt.Errorf("decode response %q: %w", rec.Body.String(), err)
		}
	}
	return event, nil
}

func checkExpect(result *Result, i int, step Step, event TraceEvent) {
	if event.Status != step.Expect.Status {
		result.AddError(fmt.Sprintf("steps[%d] %s: status %d, expected %d (body %v)",
			i, step.Request, event.Status, step.Expect.Status, event.Body))
	}
	if step.Expect.Body == nil {
		return
	}
	want, err := normalize(step.Expect.Body)
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: expect.body: %v", i, err))
		return
	}
	if !reflect.DeepEqual(want, event.Body) {
		result.AddError(fmt.Sprintf("steps[%d] %s: body %v, expected %v", i, step.Request, event.Body, want))
	}
}

// normalize round-trips v through JSON so YAML values compare equal to
// decoded response bodies (ints become float64, maps become map[string]any).
func normalize(v any) (any, error) {
	raw, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := gojson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
