package accounts

import "context"

// ChangeFlags records which sensitive fields of an existing record differ
// from their stored values. Computed before a save, consumed right after
// it, never persisted.
type ChangeFlags struct {
	PasswordChanged bool

	EmailChanged bool
	EmailOld     string

	UsernameChanged bool
	UsernameOld     string
}

// beforeSave diffs the incoming password/email/username against the
// currently stored values. Password is compared hash-to-hash, email and
// username as plain values.
func (s *Service) beforeSave(ctx context.Context, data Record) ChangeFlags {
	var flags ChangeFlags
	id := data.ID()
	if id == "" {
		return flags
	}

	if v, ok := data[s.fields.Password.Name]; ok {
		stored, err := s.store.FieldValue(ctx, id, s.fields.Password.Name)
		if err == nil && v != stored {
			flags.PasswordChanged = true
		}
	}
	if v := data[s.fields.Email.Name]; v != "" {
		stored, err := s.store.FieldValue(ctx, id, s.fields.Email.Name)
		if err == nil && v != stored {
			flags.EmailChanged = true
			flags.EmailOld = stored
		}
	}
	if s.fields.Email.Name != s.fields.Username.Name {
		if v, ok := data[s.fields.Username.Name]; ok {
			stored, err := s.store.FieldValue(ctx, id, s.fields.Username.Name)
			if err == nil && v != stored {
				flags.UsernameChanged = true
				flags.UsernameOld = stored
			}
		}
	}
	return flags
}

// afterSave sends the welcome notification for a freshly created record,
// or one account-change notification per stashed flag on update. Old
// values ride along for email/username changes; the email change is also
// addressed to the previous mailbox.
func (s *Service) afterSave(ctx context.Context, rec Record, created bool, flags ChangeFlags) {
	if created {
		if !s.sendWelcome {
			return
		}
		tok, err := s.deriveToken(ctx, rec)
		if err != nil {
			s.log.Warn(ctx, "welcome token derivation failed", "account_id", rec.ID(), "error", err)
			return
		}
		s.notify(ctx, TemplateWelcome, rec, map[string]string{
			s.fields.Token.Name: tok,
			"email_type":        "private",
		})
		return
	}
	if !s.sendAccountChange {
		return
	}
	if flags.PasswordChanged {
		s.notify(ctx, TemplateAccountChange, rec, map[string]string{
			"change":     "password",
			"email_type": "private",
		})
	}
	if flags.EmailChanged {
		s.notify(ctx, TemplateAccountChange, rec, map[string]string{
			"change":     "email",
			"old_value":  flags.EmailOld,
			"to":         flags.EmailOld,
			"email_type": "private",
		})
	}
	if flags.UsernameChanged {
		s.notify(ctx, TemplateAccountChange, rec, map[string]string{
			"change":     "username",
			"old_value":  flags.UsernameOld,
			"email_type": "private",
		})
	}
}
