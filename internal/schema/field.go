package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sverrirab/generic-rest/internal/record"
)

// Modifier tokens recognized in field specs.
const (
	ModOptional = "optional"
	ModRequired = "required"
	ModInt      = "int"
	ModStr      = "str"
)

// DefaultFieldTokens is the field list used when none is configured.
var DefaultFieldTokens = []string{"text", "count_optional_int", "help_optional"}

// FieldSpec declares one record field.
type FieldSpec struct {
	Name     string      `json:"name" yaml:"name"`
	Required bool        `json:"required" yaml:"required"`
	Type     record.Kind `json:"type" yaml:"type"`
}

// Default returns the value stored when an optional field is omitted.
// Required fields have no default and return nil.
func (f FieldSpec) Default() record.Value {
	if f.Required {
		return nil
	}
	if f.Type == record.KindInt {
		return record.Int(0)
	}
	return record.String("")
}

// String renders the field the way it is logged at startup.
func (f FieldSpec) String() string {
	req := "required"
	if !f.Required {
		req = "optional"
	}
	return fmt.Sprintf("%s %s %s", f.Name, req, f.Type)
}

// ParseFieldSpec parses a single token such as "count_optional_int".
func ParseFieldSpec(token string) (FieldSpec, error) {
	parts := strings.Split(token, "_")

	parts, optional := stripModifier(parts, ModOptional)
	parts, _ = stripModifier(parts, ModRequired)
	parts, isInt := stripModifier(parts, ModInt)
	parts, _ = stripModifier(parts, ModStr)

	name := strings.Join(parts, "_")
	if name == "" {
		return FieldSpec{}, ValidationError{
			Field:   token,
			Message: "field spec has no name after removing modifiers",
			Code:    ErrEmptyFieldName,
		}
	}

	spec := FieldSpec{Name: name, Required: !optional, Type: record.KindString}
	if isInt {
		spec.Type = record.KindInt
	}
	return spec, nil
}

// stripModifier removes the first part equal to mod.
func stripModifier(parts []string, mod string) ([]string, bool) {
	i := slices.Index(parts, mod)
	if i < 0 {
		return parts, false
	}
	return slices.Delete(slices.Clone(parts), i, i+1), true
}

// Schema is the ordered, immutable list of fields.
type Schema struct {
	fields []FieldSpec
	index  map[string]int
}

// New builds a Schema from already parsed specs.
// Returns ValidationErrors if names are empty or duplicated.
func New(fields []FieldSpec) (*Schema, error) {
	var errs ValidationErrors
	if len(fields) == 0 {
		errs = append(errs, ValidationError{Message: "at least one field is required", Code: ErrNoFields})
	}

	s := &Schema{
		fields: slices.Clone(fields),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			errs = append(errs, ValidationError{Message: "field name is empty", Code: ErrEmptyFieldName})
			continue
		}
		if _, dup := s.index[f.Name]; dup {
			errs = append(errs, ValidationError{Field: f.Name, Message: "duplicate field name", Code: ErrDuplicateField})
			continue
		}
		s.index[f.Name] = i
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

// Parse parses field-spec tokens into a Schema. An empty list uses
// DefaultFieldTokens.
func Parse(tokens []string) (*Schema, error) {
	if len(tokens) == 0 {
		tokens = DefaultFieldTokens
	}

	var errs ValidationErrors
	fields := make([]FieldSpec, 0, len(tokens))
	for _, tok := range tokens {
		f, err := ParseFieldSpec(tok)
		if err != nil {
			errs = append(errs, err.(ValidationError))
			continue
		}
		fields = append(fields, f)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return New(fields)
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant tokens.
func MustParse(tokens ...string) *Schema {
	s, err := Parse(tokens)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the field list in declaration order.
func (s *Schema) Fields() []FieldSpec {
	return slices.Clone(s.fields)
}

// Lookup returns the spec for name.
func (s *Schema) Lookup(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// String lists one field per line.
func (s *Schema) String() string {
	var b strings.Builder
	for _, f := range s.fields {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}
