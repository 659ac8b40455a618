package featuring

import (
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/database"
)

// Status is the effective featuring state of a listing. It is always
// derived from stored fields plus a clock, never stored itself.
type Status string

const (
	StatusUnfeatured       Status = "unfeatured"
	StatusScheduledPending Status = "scheduled_pending"
	StatusScheduledReady   Status = "scheduled_ready"
	StatusActive           Status = "active"
	StatusExpired          Status = "expired"
)

// DeriveStatus computes the effective status from the featuring fields
// at the given instant. Pure: identical inputs always yield identical
// output. A pending schedule takes precedence over the featured flag;
// the two are mutually exclusive in storage, but derivation does not
// depend on that invariant holding.
func DeriveStatus(isFeatured bool, featuredUntil, scheduledAt *time.Time, now time.Time) Status {
	if scheduledAt != nil {
		if scheduledAt.After(now) {
			return StatusScheduledPending
		}
		return StatusScheduledReady
	}
	if isFeatured {
		if featuredUntil == nil || featuredUntil.After(now) {
			return StatusActive
		}
		return StatusExpired
	}
	return StatusUnfeatured
}

// ListingStatus derives the status of a listing record.
func ListingStatus(l *database.Listing, now time.Time) Status {
	return DeriveStatus(l.IsFeatured, l.FeaturedUntil, l.FeaturingScheduledAt, now)
}
