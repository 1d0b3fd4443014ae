package accounts

import (
	"strings"

	"github.com/tfmagician/mi-users/internal/config"
)

// FieldRef names a record field, optionally on an associated record type
// ("Profile.phone"). An empty Name disables the role.
type FieldRef struct {
	Owner string
	Name  string
}

func (f FieldRef) Disabled() bool {
	return f.Name == ""
}

// Local reports whether the reference points at the account record itself.
func (f FieldRef) Local() bool {
	return f.Owner == ""
}

func (f FieldRef) String() string {
	if f.Owner == "" {
		return f.Name
	}
	return f.Owner + "." + f.Name
}

// parseRef splits an "Owner.field" path into a tagged reference.
func parseRef(s string) FieldRef {
	if owner, name, ok := strings.Cut(s, "."); ok {
		return FieldRef{Owner: owner, Name: name}
	}
	return FieldRef{Name: s}
}

// FieldMap resolves the logical field roles to concrete references.
// Configured once per account type; immutable during a request.
type FieldMap struct {
	Current         FieldRef
	Email           FieldRef
	Password        FieldRef
	PasswordConfirm FieldRef
	Confirmation    FieldRef
	Username        FieldRef
	Token           FieldRef
	TOS             FieldRef
}

func NewFieldMap(names config.FieldNames) FieldMap {
	return FieldMap{
		Current:         parseRef(names.Current),
		Email:           parseRef(names.Email),
		Password:        parseRef(names.Password),
		PasswordConfirm: parseRef(names.PasswordConfirm),
		Confirmation:    parseRef(names.Confirmation),
		Username:        parseRef(names.Username),
		Token:           parseRef(names.Token),
		TOS:             parseRef(names.TOS),
	}
}
