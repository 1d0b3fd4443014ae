package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOutboxSend(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+account_emails\s*\(id,\s*account_id,\s*template,\s*recipient,\s*subject,\s*payload\)`
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "u-1", TemplateWelcome, "bob@example.com", "", []byte(`{"to":"bob@example.com","token":"abc"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outbox := NewOutbox(db)
	err = outbox.Send(context.Background(), TemplateWelcome, "u-1", map[string]string{
		"to":    "bob@example.com",
		"token": "abc",
	}, "")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOutboxSend_NullAccount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+account_emails`).
		WithArgs(sqlmock.AnyArg(), nil, TemplateNewToken, "bob@example.com", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outbox := NewOutbox(db)
	err = outbox.Send(context.Background(), TemplateNewToken, "", map[string]string{"to": "bob@example.com"}, "")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
}

func TestOutboxSend_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT`).WillReturnError(errors.New("db down"))

	outbox := NewOutbox(db)
	err = outbox.Send(context.Background(), TemplateWelcome, "u-1", map[string]string{"to": "x"}, "")
	if err == nil {
		t.Fatal("expected an error")
	}
}
