package domain

import "github.com/cockroachdb/errors"

// Error kinds. Errors returned to callers are marked with one of these and
// carry a message that is safe to show to the end user.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrUnavailable          = errors.New("unavailable")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrConflict             = errors.New("conflict")
	ErrSerializationFailure = errors.New("serialization failure")
)

var kinds = []error{
	ErrInvalidArgument,
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrUnavailable,
	ErrInsufficientCapacity,
	ErrTransactionFailed,
	ErrConflict,
}

// Errorf builds an error with a user facing message that matches kind under errors.Is.
func Errorf(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// KindOf returns the error kind err is marked with, or nil for unclassified errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
