package store

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrStorageUnavailable marks failures of the backing database itself, as
// opposed to domain outcomes such as a missing row.
var ErrStorageUnavailable = errors.New("storage unavailable")

type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return ErrStorageUnavailable.Error() + ": " + e.cause.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.cause}
}

// unavailable wraps a driver error so that it matches ErrStorageUnavailable
// and carries the operation that failed.
func unavailable(err error, format string, args ...any) error {
	return pkgerrors.Wrapf(&storageError{cause: err}, format, args...)
}
