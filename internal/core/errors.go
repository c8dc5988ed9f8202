package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports schema violations keyed by field path.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// MaterialNotFoundError is returned when a line item references a material
// that does not exist. It is a validation failure for the quote and also
// matches ErrNotFound.
type MaterialNotFoundError struct {
	ID string
}

func (e *MaterialNotFoundError) Error() string {
	return fmt.Sprintf("material %s not found", e.ID)
}

func (e *MaterialNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransitionError wraps ErrInvalidTransition with the offending states.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsValidation reports whether err should be surfaced as a client input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	var mnf *MaterialNotFoundError
	return errors.As(err, &ve) || errors.As(err, &mnf) || errors.Is(err, ErrInvalidTransition)
}
