package storage

import (
	"errors"

	"donorhub/pkg/platform/sentinel"
)

// Stores return the sentinel errors below (possibly wrapped). They are
// re-exported so callers that only import storage can match them.
var (
	ErrNotFound    = sentinel.ErrNotFound
	ErrConflict    = sentinel.ErrConflict
	ErrAlreadyUsed = sentinel.ErrAlreadyUsed
)

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
