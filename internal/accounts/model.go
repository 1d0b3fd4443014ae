package accounts

import (
	"strconv"
	"time"
)

// Reserved field names every account record carries regardless of the
// configured role map.
const (
	FieldID            = "id"
	FieldEmailVerified = "email_verified"
	FieldCreated       = "created"
	FieldModified      = "modified"
)

// Record is a dynamic view of one account row: field name → value.
// Booleans are rendered with strconv, timestamps as RFC 3339. The
// persistence collaborator owns the canonical data; the engine never
// keeps a record across calls.
type Record map[string]string

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Record) ID() string {
	return r[FieldID]
}

// Modified parses the record's modification timestamp; zero when absent
// or malformed.
func (r Record) Modified() time.Time {
	t, err := time.Parse(time.RFC3339, r[FieldModified])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Bool interprets a field value as a boolean ("1", "true", ...).
func (r Record) Bool(name string) bool {
	b, err := strconv.ParseBool(r[name])
	return err == nil && b
}

// FieldErrors maps a concrete field name to the name of the first rule
// that rejected it.
type FieldErrors map[string]string

// Result is the outcome of a lifecycle operation. OK=false with an empty
// Message means validation failed and Errors carries the field-level
// detail.
type Result struct {
	OK      bool
	Message string
	Errors  FieldErrors
}
