// Package errs holds the error categories shared by every engine component.
//
// Components define their own sentinels wrapping one of these, so callers
// can branch on the category with errors.Is regardless of which component
// produced the error.
package errs

import "errors"

var (
	// ErrValidation rejects input before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is a business-rule rejection surfaced to the end user.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIllegalTransition means the caller acted on a stale view of the state.
	ErrIllegalTransition = errors.New("illegal state transition")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Validation wraps msg as a validation error.
func Validation(msg string) error {
	return &wrapped{msg: msg, cat: ErrValidation}
}

type wrapped struct {
	msg string
	cat error
}

func (w *wrapped) Error() string { return w.cat.Error() + ": " + w.msg }
func (w *wrapped) Unwrap() error { return w.cat }
