package task

import (
	"errors"
	"fmt"
)

// ErrRequired is wrapped by a ValidationError for a missing field.
var ErrRequired = errors.New("missing required field")

// ValidationError represents invalid caller input for a field.
type ValidationError struct {
	Field string // JSON name of the offending field
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BadRequestError reports a missing required request parameter.
type BadRequestError struct {
	Param string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// NotFoundError reports an operation on an id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
