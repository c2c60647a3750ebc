// Package record defines the stored record type and its scalar values.
//
// A Record maps field names to scalar values. Only two value kinds exist:
// String and Int (always int64). There are no floats, booleans or nulls in
// a stored record; the schema validator converts request bodies into these
// types before anything reaches the store.
//
// Records serialize to plain JSON objects with sorted keys. Canonical JSON
// (RFC 8785 key order, NFC-normalized strings, no HTML escaping) is used only
// for content digests, see MarshalCanonical and Digest.
//
// This package imports nothing internal.
package record
