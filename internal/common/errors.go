// Package common defines shared sentinel errors used across the engine.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// ErrMissingField reports that a partial record does not carry every
	// field the caller's token spec expects.
	ErrMissingField = errors.New("missing field")

	// ErrPolicyUnsatisfiable means the password generator exhausted its
	// retry budget: the active policy and rule set reject every candidate.
	ErrPolicyUnsatisfiable = errors.New("password policy unsatisfiable")
)
