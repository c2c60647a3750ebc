package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/sverrirab/generic-rest/internal/record"
)

// DefinitionName is the CUE definition rendered by (*Schema).CUE.
const DefinitionName = "#Record"

var cueIdentifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CUE keywords and predeclared names that must be quoted as labels.
var cueReserved = []string{
	"true", "false", "null", "if", "for", "in", "let", "import", "package",
	"string", "int", "number", "bool", "bytes", "float", "len",
}

// CUE renders the record shape as a closed CUE definition. Every field is
// mandatory in stored data because defaults are filled in on write.
//
//	#Record: {
//		text:  string
//		count: int
//	}
func (s *Schema) CUE() string {
	var b strings.Builder
	b.WriteString(DefinitionName)
	b.WriteString(": {\n")
	for _, f := range s.fields {
		typ := "string"
		if f.Type == record.KindInt {
			typ = "int"
		}
		fmt.Fprintf(&b, "\t%s: %s\n", cueLabel(f.Name), typ)
	}
	b.WriteString("}\n")
	return b.String()
}

func cueLabel(name string) string {
	if cueIdentifier.MatchString(name) && !slices.Contains(cueReserved, name) {
		return name
	}
	return strconv.Quote(name)
}

// ValidateData checks every record of a persisted JSON data file against
// the schema. The returned slice lists violations; the error is non-nil only
// when the data itself cannot be read as an object of records.
func (s *Schema) ValidateData(filename string, data []byte) (ValidationErrors, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(s.CUE(), cue.Filename("schema.cue")).LookupPath(cue.ParsePath(DefinitionName))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, ValidationErrors{{Field: filename, Message: cueerrors.Details(err, nil), Code: ErrDataFile}}
	}
	if doc.IncompleteKind() != cue.StructKind {
		return nil, ValidationErrors{{Field: filename, Message: "data file must hold a JSON object", Code: ErrDataFile}}
	}

	iter, err := doc.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	var violations ValidationErrors
	for iter.Next() {
		id := iter.Label()
		unified := def.Unify(iter.Value())
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			for _, e := range cueerrors.Errors(err) {
				violations = append(violations, ValidationError{
					Field:   id,
					Message: strings.TrimSpace(cueerrors.Details(e, nil)),
					Code:    classify(e),
				})
			}
		}
	}
	return violations, nil
}

// classify maps a CUE error onto the schema error codes.
func classify(err cueerrors.Error) string {
	format, _ := err.Msg()
	switch {
	case strings.Contains(format, "not allowed"):
		return ErrFieldNotAllowed
	case strings.Contains(format, "incomplete"):
		return ErrMissingRequired
	default:
		return ErrWrongType
	}
}
