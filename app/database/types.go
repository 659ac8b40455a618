package database

import (
	"time"
)

// Audit log actions. Entries are append-only; these are the only values
// ever written to featuring_audit_log.action.
const (
	ActionScheduled  = "scheduled"
	ActionFeatured   = "featured"
	ActionExtended   = "extended"
	ActionUnfeatured = "unfeatured"
	ActionExpired    = "expired"
)

// Listing carries the featuring-related fields of a property record.
// Listing CRUD proper belongs to the surrounding application; this
// service owns only the featuring columns.
type Listing struct {
	ID                   string
	Title                string
	Location             string
	IsFeatured           bool
	FeaturedAt           *time.Time
	FeaturedUntil        *time.Time // nil means unlimited window
	FeaturingPackage     string
	FeaturingScheduledAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AuditEntry is one row of the append-only featuring ledger. Rows are
// written once and never mutated or deleted.
type AuditEntry struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id"`
	Action        string     `json:"action"`
	PackageType   string     `json:"package_type,omitempty"`
	DurationDays  int        `json:"duration_days,omitempty"`
	Revenue       float64    `json:"revenue"`
	Notes         string     `json:"notes,omitempty"`
	AdminUser     string     `json:"admin_user"`
	SystemAction  bool       `json:"system_action"`
	FeaturedFrom  *time.Time `json:"featured_from,omitempty"`
	FeaturedUntil *time.Time `json:"featured_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	// Populated by ListEntries via a join on listings; not stored on the
	// audit row itself.
	ListingTitle    string `json:"listing_title,omitempty"`
	ListingLocation string `json:"listing_location,omitempty"`
}

// AuditFilter narrows ListEntries results. Zero values mean "no filter".
type AuditFilter struct {
	Action       string
	From         *time.Time
	To           *time.Time
	SystemAction *bool
	Search       string // matches listing title, location or admin user
	Limit        int
}
