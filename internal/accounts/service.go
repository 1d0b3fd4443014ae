// Package accounts implements the account lifecycle controller:
// registration, email confirmation, forgotten-password recovery, password
// reset and authenticated password change, on top of abstract persistence
// and notification collaborators.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tfmagician/mi-users/internal/common"
	"github.com/tfmagician/mi-users/internal/config"
	"github.com/tfmagician/mi-users/internal/hashx"
	"github.com/tfmagician/mi-users/internal/logging"
	"github.com/tfmagician/mi-users/internal/password"
	"github.com/tfmagician/mi-users/internal/policy"
	"github.com/tfmagician/mi-users/internal/rules"
	"github.com/tfmagician/mi-users/internal/token"
)

// Request keys consumed (and stripped) before validation; they are flow
// directives, not record fields.
const (
	KeyGenerate = "generate"
	KeyStrength = "strength"
)

const (
	msgTokenNotFound = "token not found"

	msgRegisterFailed = "errors in form"
	msgGenerateFailed = "There was a problem generating a password"

	msgConfirmOK    = "Thank you for confirming your account"
	msgResetPrompt  = "Please enter your new password"
	msgResetOK      = "Your password has been changed. Please login"
	msgChangeOK     = "Your password has been changed"
	msgChangeFailed = "There was a problem changing your password"

	msgForgottenOK     = "password change email sent"
	msgForgottenShadow = "A password reset has been requested, an email has been sent"
	msgForgottenFailed = "There was a problem requesting a password reset"
	msgEmailFailed     = "There was a problem sending an email"
)

type Service struct {
	store    Store
	notifier Notifier
	log      logging.Logger

	fields  FieldMap
	catalog *policy.Catalog
	rules   *rules.Engine
	hasher  *hashx.Hasher
	tokens  *token.Service
	spec    token.Spec
	ttl     time.Duration

	sendWelcome       bool
	sendAccountChange bool
	sendTokenExpired  bool
	debug             bool

	now func() time.Time
}

func NewService(store Store, notifier Notifier, cfg *config.Config, log logging.Logger) (*Service, error) {
	catalog, err := policy.Default().WithCurrent(cfg.PasswordPolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid password policy: %w", err)
	}
	if log == nil {
		log = logging.Nop{}
	}
	hasher := hashx.New(cfg.HashSalt)
	return &Service{
		store:             store,
		notifier:          notifier,
		log:               log,
		fields:            NewFieldMap(cfg.Fields),
		catalog:           catalog,
		rules:             rules.NewEngine(catalog, hasher),
		hasher:            hasher,
		tokens:            token.NewService(hasher),
		spec:              token.Spec{Fields: cfg.TokenFields, Length: cfg.TokenLength},
		ttl:               cfg.TokenTTL,
		sendWelcome:       cfg.SendWelcome,
		sendAccountChange: cfg.SendAccountChange,
		sendTokenExpired:  cfg.SendTokenExpired,
		debug:             cfg.Debug,
		now:               time.Now,
	}, nil
}

// Fields exposes the configured role map.
func (s *Service) Fields() FieldMap {
	return s.fields
}

// Hasher exposes the password hash so callers can pre-hash credential
// input the same way the engine does.
func (s *Service) Hasher() *hashx.Hasher {
	return s.hasher
}

// Register processes a registration request. When data carries the
// generate directive a password is produced for the caller (honouring a
// requested strength only if stronger than the configured tier) and
// echoed back in the success message. The save is restricted to
// whitelist when non-nil.
func (s *Service) Register(ctx context.Context, data Record, whitelist []string) Result {
	data = data.Clone()
	temp, genErr := s.prepareGenerated(data)
	if genErr != nil {
		s.log.Error(ctx, "password generation failed", "error", genErr)
		return Result{Message: msgGenerateFailed}
	}

	if errs := s.validate(data, "", false); errs != nil {
		return Result{Errors: errs}
	}

	saved, err := s.save(ctx, data, whitelist)
	if err != nil {
		s.log.Error(ctx, "registration save failed", "error", err)
		return Result{Message: msgRegisterFailed}
	}

	message := fmt.Sprintf("Welcome %s!", s.displayOf(saved))
	if temp != "" {
		message += fmt.Sprintf(". Your password is %s", temp)
	}
	return Result{OK: true, Message: message}
}

// ConfirmAccount verifies an emailed confirmation token and marks the
// account's email as verified.
func (s *Service) ConfirmAccount(ctx context.Context, data Record, force bool) Result {
	_, res := s.confirmAccount(ctx, data, force, false)
	return res
}

// confirmAccount is the shared first half of confirmation and password
// reset. The boolean is the password-flow continue signal: true means the
// caller (ResetPassword) may proceed; it is never true for the plain
// confirmation flow.
func (s *Service) confirmAccount(ctx context.Context, data Record, force, passwordFlow bool) (bool, Result) {
	var user Record

	if !force {
		errs := FieldErrors{}
		for _, ref := range []FieldRef{s.fields.Email, s.fields.Confirmation, s.fields.Token} {
			if ref.Disabled() {
				continue
			}
			if _, ok := data[ref.Name]; !ok {
				errs[ref.String()] = "missing"
			}
		}
		if len(errs) > 0 {
			return false, Result{Errors: errs}
		}

		var err error
		user, err = s.store.Find(ctx, Query{Match: map[string]string{
			s.fields.Email.Name: data[s.fields.Email.Name],
		}})
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				s.log.Error(ctx, "confirmation lookup failed", "error", err)
			}
			return false, s.tokenNotFound("email not found")
		}

		if !s.fields.Confirmation.Disabled() {
			stored, err := s.store.FieldValue(ctx, user.ID(), s.fields.Confirmation.Name)
			if err != nil || stored == "" || stored != data[s.fields.Confirmation.Name] {
				detail := fmt.Sprintf("%s does not match for email %s",
					s.fields.Confirmation.Name, data[s.fields.Email.Name])
				return false, s.tokenNotFound(detail)
			}
		}

		tok, err := s.deriveToken(ctx, user)
		if err != nil {
			s.log.Error(ctx, "token derivation failed", "account_id", user.ID(), "error", err)
			return false, Result{Message: msgForgottenFailed}
		}
		if tok != data[s.fields.Token.Name] {
			res := s.tokenNotFound("token does not match")
			if s.debug {
				res.Message += " " + tok
			}
			return false, res
		}

		if token.IsExpired(user.Modified(), s.ttl, s.now()) {
			res := Result{Errors: FieldErrors{s.fields.Token.String(): "expired"}}
			if s.sendTokenExpired {
				if passwordFlow {
					s.notify(ctx, TemplateNewPassword, user, nil)
					res.Message = "email token expired"
				} else {
					s.notify(ctx, TemplateNewToken, user, nil)
					res.Message = "confirm email token expired"
				}
			}
			return false, res
		}
	} else if v := data[s.fields.Email.Name]; v != "" {
		// forced confirmation still resolves the record when it can
		user, _ = s.store.Find(ctx, Query{Match: map[string]string{s.fields.Email.Name: v}})
	}

	if passwordFlow {
		return true, Result{}
	}

	if user == nil {
		return false, s.tokenNotFound("email not found")
	}
	if _, err := s.save(ctx, Record{
		FieldID:            user.ID(),
		FieldEmailVerified: "1",
	}, []string{FieldEmailVerified}); err != nil {
		s.log.Error(ctx, "confirmation save failed", "account_id", user.ID(), "error", err)
		return false, Result{}
	}
	return false, Result{OK: true, Message: msgConfirmOK}
}

// ForgottenPassword processes a password recovery request for a username
// or email identifier. An unknown identifier still reports success so
// callers cannot probe for registered addresses; the internal reason is
// appended only in debug mode.
func (s *Service) ForgottenPassword(ctx context.Context, identifier string) Result {
	identifier = strings.TrimSpace(identifier)

	var q Query
	if s.fields.Username.Name == s.fields.Email.Name {
		q = Query{Match: map[string]string{s.fields.Email.Name: identifier}}
	} else {
		q = Query{Any: map[string]string{
			s.fields.Email.Name:    identifier,
			s.fields.Username.Name: identifier,
		}}
	}

	user, err := s.store.Find(ctx, q)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			res := Result{OK: true, Message: msgForgottenShadow}
			if s.debug {
				res.Message += " DEBUG: email not found"
			}
			return res
		}
		s.log.Error(ctx, "forgotten-password lookup failed", "error", err)
		return Result{Message: msgForgottenFailed}
	}

	// a stale record means any outstanding token already expired; touch it
	// so the new one starts a fresh window
	if token.IsExpired(user.Modified(), s.ttl, s.now()) {
		if err := s.store.Touch(ctx, user.ID()); err != nil {
			s.log.Error(ctx, "touch failed", "account_id", user.ID(), "error", err)
			return Result{Message: msgForgottenFailed}
		}
		user, err = s.store.Find(ctx, Query{Match: map[string]string{FieldID: user.ID()}})
		if err != nil {
			return Result{Message: msgForgottenFailed}
		}
	}

	tok, err := s.deriveToken(ctx, user)
	if err != nil {
		s.log.Error(ctx, "token derivation failed", "account_id", user.ID(), "error", err)
		return Result{Message: msgForgottenFailed}
	}

	if err := s.notify(ctx, TemplateForgottenPassword, user, map[string]string{
		s.fields.Token.Name: tok,
		"email_type":        "private",
	}); err != nil {
		return Result{Message: msgEmailFailed}
	}
	return Result{OK: true, Message: msgForgottenOK}
}

// ResetPassword completes a password reset authorized by a confirmation
// token. With force set the token checks are skipped (an administrative
// reset). A successful reset always re-verifies the email.
func (s *Service) ResetPassword(ctx context.Context, data Record, force bool) Result {
	proceed, res := s.confirmAccount(ctx, data, force, true)
	if !proceed {
		return res
	}

	if !force {
		if _, ok := data[s.fields.Password.Name]; !ok {
			return Result{Message: msgResetPrompt}
		}
	}

	data = data.Clone()
	temp, genErr := s.prepareGenerated(data)
	if genErr != nil {
		s.log.Error(ctx, "password generation failed", "error", genErr)
		return Result{Message: msgGenerateFailed}
	}

	user, err := s.store.Find(ctx, Query{Match: map[string]string{
		s.fields.Username.Name: data[s.fields.Username.Name],
	}})
	if err != nil {
		s.log.Error(ctx, "reset lookup failed", "error", err)
		return Result{Message: msgChangeFailed}
	}
	data[FieldID] = user.ID()

	storedHash, _ := s.store.FieldValue(ctx, user.ID(), s.fields.Password.Name)
	if errs := s.validate(data, storedHash, false); errs != nil {
		return Result{Errors: errs}
	}

	data[FieldEmailVerified] = "1"
	if _, err := s.save(ctx, data, []string{
		s.fields.Password.Name,
		s.fields.PasswordConfirm.Name,
		FieldEmailVerified,
	}); err != nil {
		s.log.Error(ctx, "reset save failed", "account_id", user.ID(), "error", err)
		return Result{Message: msgChangeFailed}
	}

	message := msgResetOK
	if temp != "" {
		message += fmt.Sprintf(". Your new password is %s", temp)
	}
	return Result{OK: true, Message: message}
}

// ChangePassword processes a password change for the authenticated
// account. The primary key and username are stamped from currentUser, not
// from the request, and the save is restricted to the credential fields.
func (s *Service) ChangePassword(ctx context.Context, data Record, currentUser Record) Result {
	data = data.Clone()
	data[FieldID] = currentUser.ID()
	if v := currentUser[s.fields.Username.Name]; v != "" {
		data[s.fields.Username.Name] = v
	} else if v, err := s.store.FieldValue(ctx, data[FieldID], s.fields.Username.Name); err == nil {
		data[s.fields.Username.Name] = v
	}

	temp, genErr := s.prepareGenerated(data)
	if genErr != nil {
		s.log.Error(ctx, "password generation failed", "error", genErr)
		return Result{Message: msgGenerateFailed}
	}

	storedHash, err := s.store.FieldValue(ctx, data[FieldID], s.fields.Password.Name)
	if err != nil {
		s.log.Error(ctx, "change-password lookup failed", "account_id", data[FieldID], "error", err)
		return Result{Message: msgChangeFailed}
	}

	if errs := s.validate(data, storedHash, true); errs != nil {
		return Result{Message: msgChangeFailed, Errors: errs}
	}

	if _, err := s.save(ctx, data, []string{
		s.fields.Current.Name,
		s.fields.Password.Name,
		s.fields.PasswordConfirm.Name,
	}); err != nil {
		s.log.Error(ctx, "change-password save failed", "account_id", data[FieldID], "error", err)
		return Result{Message: msgChangeFailed}
	}

	message := msgChangeOK
	if temp != "" {
		message += fmt.Sprintf(". Your new password is %s", temp)
	}
	return Result{OK: true, Message: message}
}

// Display resolves a human-readable name for an account, falling back to
// the username field.
func (s *Service) Display(ctx context.Context, id string) (string, error) {
	rec, err := s.store.Find(ctx, Query{Match: map[string]string{FieldID: id}})
	if err != nil {
		return "", err
	}
	return s.displayOf(rec), nil
}

// --- internals ---

// prepareGenerated consumes the generate/strength directives: it fills
// the password and confirmation fields with a generated candidate and
// returns the plaintext so success messages can echo it. A requested
// strength applies only when strictly stronger than the configured tier.
func (s *Service) prepareGenerated(data Record) (string, error) {
	if !data.Bool(KeyGenerate) {
		delete(data, KeyGenerate)
		delete(data, KeyStrength)
		return "", nil
	}
	delete(data, KeyGenerate)

	engine := s.rules
	if strength, ok := data[KeyStrength]; ok {
		delete(data, KeyStrength)
		if s.catalog.Compare(strength, s.catalog.Current().Name) > 0 {
			catalog, err := s.catalog.WithCurrent(strength)
			if err == nil {
				engine = s.rules.WithCatalog(catalog)
			}
		}
	}

	plain, digest, err := password.NewGenerator(engine, s.hasher).Generate(0)
	if err != nil {
		return "", err
	}
	data[s.fields.PasswordConfirm.Name] = plain
	data[s.fields.Password.Name] = digest
	return plain, nil
}

// validate runs the rule engine when the request actually sets a
// password, translating role-keyed failures to the configured field
// names, and checks terms-of-service acceptance when that role is
// enabled.
func (s *Service) validate(data Record, storedHash string, requireCurrent bool) FieldErrors {
	errs := FieldErrors{}

	if _, ok := data[s.fields.Password.Name]; ok || requireCurrent {
		roleErrs := s.rules.Validate(rules.Input{
			Password:       data[s.fields.Password.Name],
			Confirm:        data[s.fields.PasswordConfirm.Name],
			Current:        data[s.fields.Current.Name],
			Username:       data[s.fields.Username.Name],
			StoredHash:     storedHash,
			RequireCurrent: requireCurrent,
		})
		for role, rule := range roleErrs {
			errs[s.roleRef(role).String()] = rule
		}
	}

	if !s.fields.TOS.Disabled() {
		if v, ok := data[s.fields.TOS.Name]; ok && v != "1" {
			errs[s.fields.TOS.String()] = "equalTo"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Service) roleRef(role string) FieldRef {
	switch role {
	case rules.RoleConfirm:
		return s.fields.PasswordConfirm
	case rules.RoleCurrent:
		return s.fields.Current
	default:
		return s.fields.Password
	}
}

// save threads the change flags from beforeSave through the write to
// afterSave; no partial state survives a failed write.
func (s *Service) save(ctx context.Context, data Record, fieldList []string) (Record, error) {
	created := data.ID() == ""
	var flags ChangeFlags
	if !created {
		flags = s.beforeSave(ctx, data)
	}
	saved, err := s.store.Save(ctx, data, fieldList)
	if err != nil {
		return nil, err
	}
	s.afterSave(ctx, saved, created, flags)
	return saved, nil
}

// deriveToken computes the confirmation token for rec. When the caller's
// partial data under-specifies the token field set, the full record is
// reloaded from the store and derivation retried.
func (s *Service) deriveToken(ctx context.Context, rec Record) (string, error) {
	fields := s.spec.Fields
	if len(fields) == 0 {
		var err error
		fields, err = s.store.SchemaFields(ctx)
		if err != nil {
			return "", err
		}
	}

	tok, err := s.tokens.Derive(rec, fields, s.spec.Length)
	if errors.Is(err, common.ErrMissingField) && rec.ID() != "" {
		full, ferr := s.store.Find(ctx, Query{Match: map[string]string{FieldID: rec.ID()}})
		if ferr != nil {
			return "", ferr
		}
		tok, err = s.tokens.Derive(full, fields, s.spec.Length)
	}
	return tok, err
}

func (s *Service) notify(ctx context.Context, template string, rec Record, data map[string]string) error {
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["to"]; !ok {
		data["to"] = rec[s.fields.Email.Name]
	}
	err := s.notifier.Send(ctx, template, rec.ID(), data, "")
	if err != nil {
		s.log.Warn(ctx, "notification failed",
			"template", template, "account_id", rec.ID(), "error", err)
	}
	return err
}

func (s *Service) tokenNotFound(detail string) Result {
	res := Result{
		Message: msgTokenNotFound,
		Errors:  FieldErrors{s.fields.Token.String(): "not found"},
	}
	if s.debug {
		res.Message += " DEBUG: " + detail
	}
	return res
}

func (s *Service) displayOf(rec Record) string {
	if v := rec[s.fields.Username.Name]; v != "" {
		return v
	}
	return rec.ID()
}
