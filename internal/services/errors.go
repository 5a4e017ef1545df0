package services

import "errors"

// Sentinel errors surfaced to handlers, which map them to status codes
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUsernameTaken      = errors.New("username or email already taken")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrToggleInFlight     = errors.New("another request for this target is in flight")
	ErrForbidden          = errors.New("not allowed")
)

// ValidationError is a request rejected before any durable write
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
