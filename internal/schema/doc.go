// Package schema turns startup field-spec tokens into the record schema and
// validates request bodies against it.
//
// A token is a field name followed by modifiers separated by underscores:
//
//	text                 required string
//	count_optional_int   optional integer, default 0
//	help_optional        optional string, default ""
//	age_int_required     required integer
//
// Modifiers are optional, required, int and str. They are matched as whole
// underscore-separated parts, in any order, and removed; the remaining parts
// joined with underscores form the field name. A field cannot itself be named
// after a modifier.
//
// The Schema is fixed for the life of the process. Build its Validator once
// and reuse it for every request.
package schema
