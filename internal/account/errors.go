package account

import "errors"

var (
	// ErrValidation marks malformed registration or login input.
	ErrValidation = errors.New("validation error")
	// ErrEmailTaken means an account already uses the normalized email.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDeactivated means the credentials matched a disabled account.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrNotFound means no account exists at the requested address.
	ErrNotFound = errors.New("user not found")
)

// ValidationError describes one rejected input. It unwraps to ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string { return e.Msg }

func (e ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return ValidationError{Field: field, Msg: msg}
}
