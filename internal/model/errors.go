package model

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound means no geocoding adapter produced a candidate for a text query.
var ErrNotFound = eris.New("could not resolve location")

// InvalidInputError rejects a request before any network call.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInvalidInput reports whether err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || eris.Is(err, ErrNotFound)
}

// NotFoundError names the query that failed to resolve.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not resolve location %q", e.Query)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
