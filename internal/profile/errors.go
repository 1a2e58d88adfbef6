package profile

import "errors"

var (
	// ErrValidation marks rejected profile input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers both absent and soft-deleted profiles.
	ErrNotFound = errors.New("profile not found")
)

// ValidationError describes one rejected field. It unwraps to ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string { return e.Msg }

func (e ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return ValidationError{Field: field, Msg: msg}
}
