package accounts

import "context"

// Query selects records by field equality. Match terms are ANDed
// together; Any terms are ORed with each other (used for the
// username-or-email lookup). At least one of the two must be non-empty.
type Query struct {
	Match map[string]string
	Any   map[string]string
}

// Store is the persistence collaborator contract. Implementations own
// uniqueness and locking guarantees; the engine never coordinates
// concurrent access to the same record.
type Store interface {
	// Find returns the first record matching q, or common.ErrorNotFound.
	Find(ctx context.Context, q Query) (Record, error)

	// FieldValue reads a single field of the record identified by id.
	FieldValue(ctx context.Context, id, field string) (string, error)

	// Save persists rec restricted to fieldList (nil = every schema
	// field) and returns the stored record. A record without an id is
	// created. Save must advance the modification timestamp.
	Save(ctx context.Context, rec Record, fieldList []string) (Record, error)

	// Touch advances the modification timestamp without other changes,
	// invalidating any outstanding derived token.
	Touch(ctx context.Context, id string) error

	// SchemaFields lists the persisted field names of the account type.
	SchemaFields(ctx context.Context) ([]string, error)
}
