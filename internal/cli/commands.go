package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tfmagician/mi-users/internal/accounts"
	"github.com/tfmagician/mi-users/internal/common"
)

func (a *App) register(ctx context.Context) {
	fields := a.svc.Fields()
	data := accounts.Record{}

	username, err := GetSimpleText(a.reader, "Enter a username", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	data[fields.Username.Name] = username

	email, err := GetSimpleText(a.reader, "Enter an email address", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	data[fields.Email.Name] = email

	generate, err := GetYesNo(a.reader, "Generate a password?", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	if generate {
		data[accounts.KeyGenerate] = "1"
	} else if !a.promptNewPassword(data) {
		return
	}

	if !fields.TOS.Disabled() {
		accepted, err := GetYesNo(a.reader, "Accept the terms of service?", os.Stdout)
		if err != nil {
			printlnFn(err.Error())
			return
		}
		data[fields.TOS.Name] = boolField(accepted)
	}

	a.printResult(a.svc.Register(ctx, data, nil))
}

func (a *App) confirm(ctx context.Context) {
	data, ok := a.promptConfirmation()
	if !ok {
		return
	}
	a.printResult(a.svc.ConfirmAccount(ctx, data, false))
}

func (a *App) forgot(ctx context.Context) {
	identifier, err := GetSimpleText(a.reader, "Enter your username or email address", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	a.printResult(a.svc.ForgottenPassword(ctx, identifier))
}

func (a *App) reset(ctx context.Context) {
	data, ok := a.promptConfirmation()
	if !ok {
		return
	}
	if !a.promptNewPassword(data) {
		return
	}
	a.printResult(a.svc.ResetPassword(ctx, data, false))
}

func (a *App) passwd(ctx context.Context) {
	fields := a.svc.Fields()

	username, err := GetSimpleText(a.reader, "Enter your username", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	current, err := a.store.Find(ctx, accounts.Query{Match: map[string]string{
		fields.Username.Name: username,
	}})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("account not found")
		} else {
			printlnFn(err.Error())
		}
		return
	}

	currentPassword, err := GetPassword("Enter your current password", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return
	}
	data := accounts.Record{fields.Current.Name: currentPassword}
	if !a.promptNewPassword(data) {
		return
	}

	a.printResult(a.svc.ChangePassword(ctx, data, current))
}

// promptConfirmation collects the identification triple every token-based
// flow needs.
func (a *App) promptConfirmation() (accounts.Record, bool) {
	fields := a.svc.Fields()
	data := accounts.Record{}

	for _, ref := range []accounts.FieldRef{fields.Email, fields.Confirmation, fields.Token} {
		if ref.Disabled() {
			continue
		}
		if _, ok := data[ref.Name]; ok {
			continue
		}
		v, err := GetSimpleText(a.reader, fmt.Sprintf("Enter the %s from the email", ref.Name), os.Stdout)
		if err != nil {
			printlnFn(err.Error())
			return nil, false
		}
		data[ref.Name] = v
	}
	return data, true
}

// promptNewPassword asks for the replacement password twice and stores the
// hash and the plaintext confirmation under the configured field names.
func (a *App) promptNewPassword(data accounts.Record) bool {
	fields := a.svc.Fields()

	plain, err := GetPassword("Enter a new password", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return false
	}
	confirm, err := GetPassword("Repeat the new password", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return false
	}

	data[fields.Password.Name] = a.svc.Hasher().Sum(plain)
	data[fields.PasswordConfirm.Name] = confirm
	return true
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
