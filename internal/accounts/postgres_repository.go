package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tfmagician/mi-users/internal/common"
	"github.com/tfmagician/mi-users/internal/dbx"
)

// accountColumns lists the persisted columns of the accounts table in
// scan order; SchemaFields exposes the same set.
var accountColumns = []string{
	FieldID, "username", "email", "password",
	FieldEmailVerified, "tos", FieldCreated, FieldModified,
}

// boolColumns need their text values converted before binding.
var boolColumns = map[string]bool{FieldEmailVerified: true, "tos": true}

const selectColumns = `id::text, username, email, password, email_verified, tos, created, modified`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, q Query) (Record, error) {
	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + selectColumns + ` FROM accounts WHERE ` + where + ` LIMIT 1`

	rec, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) FieldValue(ctx context.Context, id, field string) (string, error) {
	if !knownColumn(field) {
		return "", fmt.Errorf("unknown field %q", field)
	}
	rec, err := r.Find(ctx, Query{Match: map[string]string{FieldID: id}})
	if err != nil {
		return "", err
	}
	return rec[field], nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec Record, fieldList []string) (Record, error) {
	fields := writableColumns(fieldList)

	var cols []string
	var args []any
	for _, col := range fields {
		v, ok := rec[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		if boolColumns[col] {
			b, _ := strconv.ParseBool(v)
			args = append(args, b)
		} else {
			args = append(args, v)
		}
	}

	var query string
	if rec.ID() == "" {
		if len(cols) == 0 {
			query = `INSERT INTO accounts DEFAULT VALUES RETURNING ` + selectColumns
		} else {
			ph := make([]string, len(cols))
			for i := range cols {
				ph[i] = fmt.Sprintf("$%d", i+1)
			}
			query = `INSERT INTO accounts (` + strings.Join(cols, ", ") + `)
				 VALUES (` + strings.Join(ph, ", ") + `)
				 RETURNING ` + selectColumns
		}
	} else {
		sets := []string{"modified = now()"}
		for i, col := range cols {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		}
		args = append(args, rec.ID())
		query = `UPDATE accounts SET ` + strings.Join(sets, ", ") +
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args)) + selectColumns
	}

	saved, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET modified = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SchemaFields(ctx context.Context) ([]string, error) {
	out := make([]string, len(accountColumns))
	copy(out, accountColumns)
	return out, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Record, error) {
	var id, username, email, passwd string
	var verified, tos bool
	var created, modified time.Time

	err := row.Scan(&id, &username, &email, &passwd, &verified, &tos, &created, &modified)
	if err != nil {
		return nil, err
	}
	return Record{
		FieldID:            id,
		"username":         username,
		"email":            email,
		"password":         passwd,
		FieldEmailVerified: strconv.FormatBool(verified),
		"tos":              strconv.FormatBool(tos),
		FieldCreated:       created.UTC().Format(time.RFC3339),
		FieldModified:      modified.UTC().Format(time.RFC3339),
	}, nil
}

func knownColumn(name string) bool {
	for _, col := range accountColumns {
		if col == name {
			return true
		}
	}
	return false
}

// writableColumns intersects the caller's whitelist with the mutable
// columns, preserving canonical order. The store owns id/created/modified.
func writableColumns(fieldList []string) []string {
	mutable := []string{"username", "email", "password", FieldEmailVerified, "tos"}
	if fieldList == nil {
		return mutable
	}
	requested := map[string]bool{}
	for _, f := range fieldList {
		requested[f] = true
	}
	var out []string
	for _, col := range mutable {
		if requested[col] {
			out = append(out, col)
		}
	}
	return out
}

func buildWhere(q Query) (string, []any, error) {
	var clauses []string
	var args []any

	bind := func(field string) (string, error) {
		if !knownColumn(field) {
			return "", fmt.Errorf("unknown field %q", field)
		}
		return fmt.Sprintf("%s = $%d", field, len(args)), nil
	}

	for _, field := range sortedKeys(q.Match) {
		args = append(args, q.Match[field])
		clause, err := bind(field)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
	}
	if len(q.Any) > 0 {
		var ors []string
		for _, field := range sortedKeys(q.Any) {
			args = append(args, q.Any[field])
			clause, err := bind(field)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, clause)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, fmt.Errorf("empty query")
	}
	return strings.Join(clauses, " AND "), args, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
