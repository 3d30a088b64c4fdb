package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEmail is returned on signup when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login for an unknown email or a
	// password hash mismatch. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError flags a missing or malformed request field. It is always
// detected before any mutation takes place.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether any error in err's chain is a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ExternalServiceError wraps a failure from an outbound provider call. Callers
// downgrade it to a boolean result rather than surfacing it as a 5xx.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
