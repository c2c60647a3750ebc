package harness

import (
	"fmt"

	"github.com/sverrirab/generic-rest/internal/record"
)

// evaluateAssertion checks one assertion against result.State.
func evaluateAssertion(result *Result, i int, a Assertion) {
	switch a.Type {
	case AssertRecord:
		rec, ok := result.State[a.ID]
		if !ok {
			result.AddError(fmt.Sprintf("assertions[%d]: record %s not found", i, a.ID))
			return
		}
		for field, want := range a.Expect {
			got, ok := rec[field]
			if !ok {
				result.AddError(fmt.Sprintf("assertions[%d]: record %s has no field %s", i, a.ID, field))
				continue
			}
			if !valueMatches(got, want) {
				result.AddError(fmt.Sprintf("assertions[%d]: record %s field %s = %v, expected %v",
					i, a.ID, field, record.Text(got), want))
			}
		}

	case AssertAbsent:
		if _, ok := result.State[a.ID]; ok {
			result.AddError(fmt.Sprintf("assertions[%d]: record %s should not exist", i, a.ID))
		}

	case AssertCount:
		if len(result.State) != a.Count {
			result.AddError(fmt.Sprintf("assertions[%d]: %d record(s), expected %d", i, len(result.State), a.Count))
		}
	}
}

// valueMatches compares a stored value with a YAML scalar.
func valueMatches(got record.Value, want any) bool {
	switch g := got.(type) {
	case record.String:
		w, ok := want.(string)
		return ok && string(g) == w
	case record.Int:
		switch w := want.(type) {
		case int:
			return int64(g) == int64(w)
		case int64:
			return int64(g) == w
		case uint64:
			return g >= 0 && uint64(g) == w
		}
	}
	return false
}
