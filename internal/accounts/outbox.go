package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tfmagician/mi-users/internal/dbx"
)

// Outbox persists notifications to the account_emails table so that an
// external mailer can deliver them asynchronously.
type Outbox struct {
	db dbx.DBTX
}

func NewOutbox(db dbx.DBTX) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Send(ctx context.Context, template, accountID string, data map[string]string, subject string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	query := `INSERT INTO account_emails (id, account_id, template, recipient, subject, payload)
		  VALUES ($1, $2, $3, $4, $5, $6)`

	var account any
	if accountID != "" {
		account = accountID
	}

	_, err = o.db.ExecContext(ctx, query,
		uuid.NewString(), account, template, data["to"], subject, payload)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
