package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"html not escaped", String("<a&b>"), `"<a&b>"`},
		{"empty record", Record{}, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRecordSortedKeys(t *testing.T) {
	r := Record{"zebra": Int(1), "alpha": Int(2), "beta": String("b")}

	result, err := MarshalCanonical(r)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":"b","zebra":1}`, string(result))
}

func TestMarshalCanonicalCollection(t *testing.T) {
	c := map[string]Record{
		"bbbbbb": {"n": Int(2)},
		"BBBBBB": {"n": Int(1)},
	}

	result, err := MarshalCanonical(c)
	require.NoError(t, err)
	assert.Equal(t, `{"BBBBBB":{"n":1},"bbbbbb":{"n":2}}`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed U+00E9.
	decomposed := String("e\u0301")

	result, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalUnsupported(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
}
