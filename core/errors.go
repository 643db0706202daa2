package core

import "github.com/pkg/errors"

// FieldError pins a validation failure to one field of an incoming payload,
// e.g. a question's points mapping or a submission answer's option.
type FieldError struct {
	Field string
	Error string
}

// ValidationError rejects an incoming payload. Err carries an overall message
// (may be nil), Fields the per-field failures; the API error handler renders
// both as a 400 response.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an unrecoverable state that should bring the process down.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks if an error (or its cause) is a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
