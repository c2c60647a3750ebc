package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Kind identifies the scalar type of a field.
type Kind int

const (
	// KindString is a JSON string.
	KindString Kind = iota + 1
	// KindInt is a JSON integer stored as int64.
	KindInt
)

// String returns the modifier spelling used in field-spec tokens.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "str"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindString, KindInt:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown kind %d", int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "str", "string":
		*k = KindString
	case "int", "integer":
		*k = KindInt
	default:
		return fmt.Errorf("unknown kind %q", text)
	}
	return nil
}

// Value is a sealed interface over the stored scalar types.
// Only String and Int implement it.
type Value interface {
	Kind() Kind
	value()
}

// String is a string field value.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }
func (String) value() {}

// Int is an integer field value.
type Int int64

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }
func (Int) value() {}

// Text renders v the way it is returned by a field lookup in text form.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	default:
		return ""
	}
}

// Record is a single stored item: field name to scalar value.
// Use SortedKeys for deterministic iteration.
type Record map[string]Value

// Clone returns a shallow copy. Values are immutable scalars so this is a
// full copy in practice.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal reports whether both records hold the same fields and values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// SortedKeys returns field names in RFC 8785 order (UTF-16 code units).
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Plain converts the record into built-in Go types (string, int64), for
// encoders that should not see the Value interface.
func (r Record) Plain() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case String:
			out[k] = string(val)
		case Int:
			out[k] = int64(val)
		}
	}
	return out
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go string comparison uses UTF-8 bytes, which orders supplementary
// characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON writes the record as a JSON object with sorted keys.
// Not canonical: HTML characters are escaped. Use MarshalCanonical for digests.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(r[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue marshals a single Value to JSON.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}

// UnmarshalJSON reads a JSON object whose members are strings or integers.
// Anything else (floats, booleans, null, nested values) is rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("record must be a JSON object")
	}

	out := make(Record, len(raw))
	for k, v := range raw {
		val, err := FromJSON(v)
		if err != nil {
			return fmt.Errorf("record field %q: %w", k, err)
		}
		out[k] = val
	}
	*r = out
	return nil
}

// FromJSON converts a value decoded with json.Decoder.UseNumber into a Value.
func FromJSON(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return String(val), nil
	case json.Number:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %s", val)
		}
		return Int(n), nil
	case nil:
		return nil, fmt.Errorf("null is not a record value")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
