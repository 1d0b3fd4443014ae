package accounts

import (
	"context"

	"github.com/tfmagician/mi-users/internal/logging"
)

// Notification templates.
const (
	TemplateWelcome           = "welcome"
	TemplateAccountChange     = "account_change"
	TemplateForgottenPassword = "forgotten_password"
	TemplateNewPassword       = "new_password"
	TemplateNewToken          = "new_token"
)

// Notifier delivers a templated notification to an account. Failure is
// non-fatal to the triggering operation except where the operation's
// success is defined by delivery (forgotten-password).
type Notifier interface {
	Send(ctx context.Context, template, accountID string, data map[string]string, subject string) error
}

// LogNotifier writes notifications to the log. Used in development and as
// a safe default when no delivery backend is wired.
type LogNotifier struct {
	Log logging.Logger
}

func (n *LogNotifier) Send(ctx context.Context, template, accountID string, data map[string]string, subject string) error {
	n.Log.Info(ctx, "notification",
		"template", template,
		"account_id", accountID,
		"to", data["to"],
		"subject", subject,
	)
	return nil
}
