package database

import (
	"context"
	"time"
)

// ListingRepository is the narrow interface through which the lifecycle
// engine reads and mutates featuring fields. All mutations are
// conditional writes: the bool result reports whether the write matched
// a row, so concurrent writers can detect lost races without locks.
type ListingRepository interface {
	CreateListing(ctx context.Context, l *Listing) error
	GetListing(ctx context.Context, id string) (*Listing, error)

	ListScheduled(ctx context.Context) ([]Listing, error)
	ListScheduledDue(ctx context.Context, now time.Time) ([]Listing, error)
	ListExpired(ctx context.Context, now time.Time) ([]Listing, error)

	SetSchedule(ctx context.Context, id string, at time.Time, packageID string, now time.Time) (bool, error)
	ActivateScheduled(ctx context.Context, id string, from, until time.Time, packageID string) (bool, error)
	SetFeatured(ctx context.Context, id string, from, until time.Time, packageID string) (bool, error)
	ClearFeaturing(ctx context.Context, id string) (bool, error)
	ClearExpired(ctx context.Context, id string, now time.Time) (bool, error)
	ClearSchedule(ctx context.Context, id string) (bool, error)

	CountFeatured(ctx context.Context) (int, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	CountExpired(ctx context.Context, now time.Time) (int, error)
	CountScheduled(ctx context.Context) (int, error)
}

// AuditLogRepository is the append-only ledger interface. There is no
// update or delete on purpose.
type AuditLogRepository interface {
	InsertEntry(ctx context.Context, e *AuditEntry) error
	ListEntries(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
	TotalRevenue(ctx context.Context, from, to *time.Time) (float64, error)
	CountEntries(ctx context.Context) (int, error)
}
