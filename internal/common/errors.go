// Package common defines sentinel errors and small helpers shared by every
// layer of planillas. Callers should use errors.Is to match the sentinels.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrStorageCorruption = errors.New("stored value is corrupt")

	// Form-level errors. Both are rendered as a single inline message and
	// never propagate past the form boundary.
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("invalid credentials")

	// ErrBusy is returned when a form is submitted while a previous
	// submission is still waiting for its login callback.
	ErrBusy = errors.New("submission in progress")
)

// UserError is an error whose text is meant to be shown to the user as is.
// It unwraps to one of the form-level sentinels.
type UserError struct {
	kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.kind }

// NewValidationError reports malformed or missing input.
func NewValidationError(msg string) error {
	return &UserError{kind: ErrValidation, Message: msg}
}

// NewAuthError reports well-formed input that matches no account.
func NewAuthError(msg string) error {
	return &UserError{kind: ErrAuth, Message: msg}
}

// Message returns the user-facing text of err: the UserError message when
// there is one, otherwise the plain error string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}
