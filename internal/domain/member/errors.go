package member

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("member not found")
	ErrDuplicateKey     = errors.New("a member with this cedula already exists")
	ErrAlreadyDelivered = errors.New("gift already delivered")

	// ErrSchema and ErrValidation let callers test the structured errors with errors.Is.
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
)

// SchemaError reports import sources missing required columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ValidationError reports fields that would break a record invariant.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Kind returns a short machine-readable name for the error kinds above, or "" for other errors.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSchema):
		return "SchemaError"
	case errors.Is(err, ErrDuplicateKey):
		return "DuplicateKey"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAlreadyDelivered):
		return "AlreadyDelivered"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	}
	return ""
}
