// Package rules implements the composable password-acceptability
// predicates. Each rule targets one field role, activates at a minimum
// policy tier and is a pure function of the request input; a field keeps
// only the first rule that fails for it while other fields are still
// evaluated.
package rules

import (
	"regexp"
	"strings"

	"github.com/tfmagician/mi-users/internal/hashx"
	"github.com/tfmagician/mi-users/internal/policy"
)

// Field roles rule failures are keyed by. The lifecycle controller maps
// them onto the configured concrete field names.
const (
	RolePassword = "password"
	RoleConfirm  = "password_confirm"
	RoleCurrent  = "current"
)

// FieldErrors maps a field role to the name of the first failing rule.
type FieldErrors map[string]string

// Input carries the values a validation run operates on. Password is the
// hashed candidate (the value that would be persisted), Confirm the
// plaintext candidate, Current the plaintext current-password input
// (empty when not supplied) and StoredHash the hash currently persisted
// (empty for new records).
type Input struct {
	Password   string
	Confirm    string
	Current    string
	Username   string
	StoredHash string

	// RequireCurrent marks the change-password flow, where the supplied
	// current password must match the stored hash.
	RequireCurrent bool
}

var (
	reNonSpace = regexp.MustCompile(`\S`)
	reDigit    = regexp.MustCompile(`\d`)
	reLetter   = regexp.MustCompile(`[a-zA-Z]`)
	reLower    = regexp.MustCompile(`[a-z]`)
	reUpper    = regexp.MustCompile(`[A-Z]`)
	reSpecial  = regexp.MustCompile(`[^\w]`)
)

type rule struct {
	name    string
	role    string
	minTier string
	check   func(e *Engine, in Input) bool
}

type Engine struct {
	catalog *policy.Catalog
	hasher  *hashx.Hasher
	ruleset []rule
}

func NewEngine(catalog *policy.Catalog, hasher *hashx.Hasher) *Engine {
	e := &Engine{catalog: catalog, hasher: hasher}
	e.ruleset = []rule{
		{"missing", RolePassword, policy.Weak, func(e *Engine, in Input) bool {
			return reNonSpace.MatchString(in.Confirm)
		}},
		{"tooShort", RolePassword, policy.Weak, func(e *Engine, in Input) bool {
			return len(in.Confirm) >= e.catalog.EffectiveMinLength(e.catalog.Current().Name)
		}},
		{"containsUsername", RolePassword, policy.Normal, func(e *Engine, in Input) bool {
			return in.Username == "" || !strings.Contains(in.Confirm, in.Username)
		}},
		{"number", RolePassword, policy.Normal, func(e *Engine, in Input) bool {
			return reDigit.MatchString(in.Confirm) && reLetter.MatchString(in.Confirm)
		}},
		{"case", RolePassword, policy.Medium, func(e *Engine, in Input) bool {
			return reLower.MatchString(in.Confirm) && reUpper.MatchString(in.Confirm)
		}},
		{"special", RolePassword, policy.Strong, func(e *Engine, in Input) bool {
			return reSpecial.MatchString(in.Confirm)
		}},
		{"notChanged", RolePassword, policy.Weak, func(e *Engine, in Input) bool {
			return in.Current == "" || in.Password != in.StoredHash
		}},
		{"notSame", RoleConfirm, policy.Weak, func(e *Engine, in Input) bool {
			return e.hasher.Sum(in.Confirm) == in.Password
		}},
		{"notCurrent", RoleCurrent, policy.Weak, func(e *Engine, in Input) bool {
			if !in.RequireCurrent {
				return true
			}
			return in.Current != "" && e.hasher.Sum(in.Current) == in.StoredHash
		}},
	}
	return e
}

// Catalog returns the policy catalog the engine validates against.
func (e *Engine) Catalog() *policy.Catalog {
	return e.catalog
}

// WithCatalog returns an engine with the same rule set bound to a
// different catalog, used when a stronger tier is requested for a single
// generation run.
func (e *Engine) WithCatalog(catalog *policy.Catalog) *Engine {
	return NewEngine(catalog, e.hasher)
}

// Validate runs every rule active for the current tier and returns the
// accumulated field errors, nil when the input passes.
func (e *Engine) Validate(in Input) FieldErrors {
	var errs FieldErrors
	for _, r := range e.ruleset {
		if !e.catalog.AtLeast(r.minTier) {
			continue
		}
		if _, failed := errs[r.role]; failed {
			continue
		}
		if r.check(e, in) {
			continue
		}
		if errs == nil {
			errs = FieldErrors{}
		}
		errs[r.role] = r.name
	}
	return errs
}
