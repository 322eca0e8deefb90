package errors

import (
	"github.com/cockroachdb/errors"
)

// Marker errors used to classify failures across layers. Callers should
// compare with the Is* helpers instead of string matching.
var (
	ErrValidation    = errors.New("validation_error")
	ErrNotFound      = errors.New("not_found")
	ErrAlreadyExists = errors.New("already_exists")
	ErrDatabase      = errors.New("database_error")
	ErrInternal      = errors.New("internal_error")
	ErrHTTPClient    = errors.New("http_client_error")
)

// IsNotFound returns true if the error is marked as a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if the error is marked as a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAlreadyExists returns true if the error is marked as an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsDatabase returns true if the error is marked as a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsInternal returns true if the error is marked as an internal error
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// IsHTTPClient returns true if the error is marked as an upstream HTTP client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}
