package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tfmagician/mi-users/internal/common"
)

// defaultSchema is the persisted field set of the built-in account type.
var defaultSchema = []string{
	FieldID, "username", "email", "password",
	FieldEmailVerified, "tos", FieldCreated, FieldModified,
}

// MemoryRepository is an in-memory Store used in tests and local
// experiments. It applies the same whitelist/schema filtering as the
// Postgres store.
type MemoryRepository struct {
	mu     sync.Mutex
	recs   map[string]Record
	schema []string
	now    func() time.Time
}

func NewMemoryRepository(schema []string) *MemoryRepository {
	if schema == nil {
		schema = defaultSchema
	}
	return &MemoryRepository{
		recs:   make(map[string]Record),
		schema: schema,
		now:    time.Now,
	}
}

func (m *MemoryRepository) Find(ctx context.Context, q Query) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.recs {
		if m.matches(rec, q) {
			return rec.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *MemoryRepository) FieldValue(ctx context.Context, id, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return rec[field], nil
}

func (m *MemoryRepository) Save(ctx context.Context, rec Record, fieldList []string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := rec.ID()
	var stored Record
	if id == "" {
		id = uuid.NewString()
		// materialize the full row, like a relational store with column
		// defaults would
		stored = Record{FieldID: id, FieldCreated: m.stamp()}
		for _, field := range m.schema {
			if _, ok := stored[field]; !ok && field != FieldModified {
				stored[field] = ""
			}
		}
	} else {
		existing, ok := m.recs[id]
		if !ok {
			return nil, common.ErrorNotFound
		}
		stored = existing.Clone()
	}

	for _, field := range m.writableFields(fieldList) {
		if v, ok := rec[field]; ok {
			stored[field] = v
		}
	}
	stored[FieldModified] = m.stamp()
	m.recs[id] = stored
	return stored.Clone(), nil
}

func (m *MemoryRepository) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[id]
	if !ok {
		return common.ErrorNotFound
	}
	rec[FieldModified] = m.stamp()
	return nil
}

func (m *MemoryRepository) SchemaFields(ctx context.Context) ([]string, error) {
	out := make([]string, len(m.schema))
	copy(out, m.schema)
	return out, nil
}

func (m *MemoryRepository) stamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

// writableFields intersects the caller's whitelist with the schema,
// excluding the bookkeeping columns the store owns.
func (m *MemoryRepository) writableFields(fieldList []string) []string {
	allowed := map[string]bool{}
	for _, f := range m.schema {
		if f != FieldID && f != FieldCreated && f != FieldModified {
			allowed[f] = true
		}
	}
	if fieldList == nil {
		out := make([]string, 0, len(allowed))
		for _, f := range m.schema {
			if allowed[f] {
				out = append(out, f)
			}
		}
		return out
	}
	out := make([]string, 0, len(fieldList))
	for _, f := range fieldList {
		if allowed[f] {
			out = append(out, f)
		}
	}
	return out
}

func (m *MemoryRepository) matches(rec Record, q Query) bool {
	if len(q.Match) == 0 && len(q.Any) == 0 {
		return false
	}
	for field, value := range q.Match {
		if rec[field] != value {
			return false
		}
	}
	if len(q.Any) == 0 {
		return true
	}
	for field, value := range q.Any {
		if rec[field] == value {
			return true
		}
	}
	return false
}
