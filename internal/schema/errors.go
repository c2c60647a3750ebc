package schema

import (
	"fmt"
	"strings"
)

// Field-spec errors (E200-E209)
const (
	ErrEmptyFieldName = "E200" // token has only modifiers
	ErrDuplicateField = "E201" // two tokens resolve to the same name
	ErrNoFields       = "E202" // empty field list
)

// Record validation errors (E210-E219)
const (
	ErrMissingRequired = "E210" // required field absent or null
	ErrWrongType       = "E211" // value cannot be converted to the field type
	ErrNotAnObject     = "E212" // request body is not a JSON object
	ErrFieldNotAllowed = "E213" // data file record has a field outside the schema
	ErrDataFile        = "E214" // data file cannot be parsed
)

// ValidationError describes a single rejected field or token.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem found in one body or token list.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ByField returns field name to message, the shape returned to HTTP clients.
// Errors without a field are keyed by "body".
func (errs ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		key := e.Field
		if key == "" {
			key = "body"
		}
		out[key] = e.Message
	}
	return out
}
