package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
// These describe the state of persisted records, not input validation:
// - ErrNotFound: record does not exist
// - ErrConflict: a concurrent writer changed the record (version mismatch)
// - ErrAlreadyUsed: a unique key (association pair, idempotency key) is taken
// - ErrInvalidState: record is in the wrong state for the requested write
// - ErrUnavailable: backing store or collaborator temporarily unavailable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
