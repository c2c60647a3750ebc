package schema

import (
	"bytes"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/sverrirab/generic-rest/internal/record"
)

// Validator converts request input into records shaped by a Schema.
// It holds no per-request state and is safe for concurrent use.
type Validator struct {
	fields []FieldSpec
}

// Validator builds the request validator for s.
func (s *Schema) Validator() *Validator {
	return &Validator{fields: s.Fields()}
}

// ValidateJSON decodes a JSON request body and validates it.
// An empty body is treated as an empty object.
func (v *Validator) ValidateJSON(body []byte) (record.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return v.Validate(nil)
	}

	dec := gojson.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, ValidationErrors{{Message: "body is not valid JSON: " + err.Error(), Code: ErrNotAnObject}}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ValidationErrors{{Message: "body must be a JSON object", Code: ErrNotAnObject}}
	}
	return v.Validate(obj)
}

// ValidateForm validates form or query values. Only the first value of
// each key is used. Invalid UTF-8 is replaced with U+FFFD so the stored
// value survives a JSON round trip unchanged.
func (v *Validator) ValidateForm(values url.Values) (record.Record, error) {
	input := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			input[k] = strings.ToValidUTF8(vs[0], "\uFFFD")
		}
	}
	return v.Validate(input)
}

// Validate checks decoded input against the schema and returns a record
// holding exactly the schema's fields. Unknown keys are dropped, a null
// value counts as absent, and omitted optional fields get their default.
//
// Numbers should be gojson.Number (decode with UseNumber); float64 is also
// accepted when integral.
func (v *Validator) Validate(input map[string]any) (record.Record, error) {
	rec := make(record.Record, len(v.fields))
	var errs ValidationErrors

	for _, f := range v.fields {
		raw, present := input[f.Name]
		if !present || raw == nil {
			if f.Required {
				errs = append(errs, ValidationError{
					Field:   f.Name,
					Message: "Missing required parameter " + f.Name,
					Code:    ErrMissingRequired,
				})
				continue
			}
			rec[f.Name] = f.Default()
			continue
		}

		val, err := convert(f.Type, raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: f.Name, Message: err.Error(), Code: ErrWrongType})
			continue
		}
		rec[f.Name] = val
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

func convert(kind record.Kind, raw any) (record.Value, error) {
	if kind == record.KindInt {
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		return record.Int(n), nil
	}
	s, err := toString(raw)
	if err != nil {
		return nil, err
	}
	return record.String(s), nil
}

func toInt(raw any) (int64, error) {
	switch val := raw.(type) {
	case gojson.Number:
		if n, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid literal for int: %s", val)
		}
		return integral(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid literal for int: %q", val)
		}
		return n, nil
	case float64:
		return integral(val)
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", describe(raw))
	}
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("expected an integer, got %v", f)
	}
	return int64(f), nil
}

func toString(raw any) (string, error) {
	switch val := raw.(type) {
	case string:
		return strings.ToValidUTF8(val, "\uFFFD"), nil
	case gojson.Number:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", fmt.Errorf("expected a string, got %s", describe(raw))
	}
}

func describe(raw any) string {
	switch raw.(type) {
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
