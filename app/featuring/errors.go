// Package featuring implements the featured-listing lifecycle: status
// derivation, the transition engine, and the bulk executor.
package featuring

import "errors"

var (
	// ErrInvalidSchedule is returned when a schedule time is missing or
	// not in the future.
	ErrInvalidSchedule = errors.New("schedule time must be in the future")

	// ErrAlreadyActive is returned when scheduling a listing that is
	// currently inside an active featuring window.
	ErrAlreadyActive = errors.New("listing is already actively featured")

	// ErrNotScheduled is returned when cancelling a schedule that does
	// not exist.
	ErrNotScheduled = errors.New("listing has no pending schedule")

	// ErrMissingDuration is returned when neither a known package nor an
	// explicit duration is available.
	ErrMissingDuration = errors.New("no featuring duration available")

	// ErrNotFound is returned for unknown listing ids.
	ErrNotFound = errors.New("listing not found")

	// ErrStoreConflict is returned when a conditional write lost a race
	// against a concurrent writer. When the other writer achieved the
	// same intended state this is a no-op, not a failure.
	ErrStoreConflict = errors.New("conditional write lost a concurrent update race")

	// ErrAuditWriteFailed is returned when the state mutation succeeded
	// but the ledger append did not. The ledger invariant is broken at
	// that point; callers must retry or alert, never drop it silently.
	ErrAuditWriteFailed = errors.New("audit log append failed after state change")

	// ErrSchemaNotReady is returned when the backing store is missing the
	// featuring tables, i.e. migrations have not been applied.
	ErrSchemaNotReady = errors.New("featuring schema not ready")
)
