package core

import "github.com/pkg/errors"

// FieldError reports a problem with a single input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries field-level problems that belong to the
// client as a 400, not in the error logs as a 500.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks a failure the running process cannot recover from,
// such as a lost database client. The API error handler turns it into
// a graceful shutdown instead of serving broken requests.
type shutdown struct {
	err error
}

func NewShutdownError(err error, msg string) error {
	return &shutdown{err: errors.Wrap(err, msg)}
}

func (s shutdown) Error() string {
	return s.err.Error()
}

// IsShutdown reports whether err, at its cause, demands a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
