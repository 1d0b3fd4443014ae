package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tfmagician/mi-users/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var testStamp = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password", "email_verified", "tos", "created", "modified",
	}).AddRow("u-1", "bob", "bob@example.com", "hash", true, false, testStamp, testStamp)
}

func TestPostgresFind_ByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1\s+LIMIT\s+1$`
	mock.ExpectQuery(q).WithArgs("bob@example.com").WillReturnRows(accountRows())

	got, err := repo.Find(context.Background(), Query{Match: map[string]string{"email": "bob@example.com"}})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got.ID() != "u-1" || got["username"] != "bob" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got[FieldEmailVerified] != "true" || got["tos"] != "false" {
		t.Fatalf("boolean columns not rendered: %+v", got)
	}
	if !got.Modified().Equal(testStamp) {
		t.Fatalf("modified = %v", got.Modified())
	}
}

func TestPostgresFind_AnyClause(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)WHERE\s+\(email\s*=\s*\$1\s+OR\s+username\s*=\s*\$2\)\s+LIMIT\s+1$`
	mock.ExpectQuery(q).WithArgs("bob", "bob").WillReturnRows(accountRows())

	_, err := repo.Find(context.Background(), Query{Any: map[string]string{
		"email":    "bob",
		"username": "bob",
	}})
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
}

func TestPostgresFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT`).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), Query{Match: map[string]string{"email": "ghost@example.com"}})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestPostgresFind_UnknownColumn(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	_ = mock

	_, err := repo.Find(context.Background(), Query{Match: map[string]string{"is_admin": "1"}})
	if err == nil {
		t.Fatal("expected an error for an unknown column")
	}
}

func TestPostgresSave_Insert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(username,\s*email,\s*password,\s*tos\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING`
	mock.ExpectQuery(q).
		WithArgs("bob", "bob@example.com", "hash", true).
		WillReturnRows(accountRows())

	got, err := repo.Save(context.Background(), Record{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "hash",
		"tos":      "1",
	}, nil)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if got.ID() != "u-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestPostgresSave_UpdateWhitelisted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+modified\s*=\s*now\(\),\s*password\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s+RETURNING`
	mock.ExpectQuery(q).WithArgs("newhash", "u-1").WillReturnRows(accountRows())

	_, err := repo.Save(context.Background(), Record{
		FieldID:    "u-1",
		"password": "newhash",
		"email":    "sneaky@example.com",
	}, []string{"password"})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
}

func TestPostgresSave_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE`).WillReturnError(errors.New("db down"))

	_, err := repo.Save(context.Background(), Record{FieldID: "u-1", "password": "x"}, []string{"password"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresTouch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+modified\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Touch(context.Background(), "u-1"); err != nil {
		t.Fatalf("Touch error: %v", err)
	}
}

func TestPostgresTouch_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE`).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Touch(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestPostgresFieldValue(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+LIMIT\s+1$`
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(accountRows())

	got, err := repo.FieldValue(context.Background(), "u-1", "email")
	if err != nil {
		t.Fatalf("FieldValue error: %v", err)
	}
	if got != "bob@example.com" {
		t.Fatalf("got %q", got)
	}

	if _, err := repo.FieldValue(context.Background(), "u-1", "is_admin"); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}
