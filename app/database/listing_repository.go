package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteListingRepository handles database operations on listing
// featuring fields.
type SQLiteListingRepository struct {
	db *DB
}

var _ ListingRepository = (*SQLiteListingRepository)(nil)

func NewListingRepository(db *DB) *SQLiteListingRepository {
	return &SQLiteListingRepository{db: db}
}

const listingColumns = `id, title, location, is_featured, featured_at, featured_until,
	COALESCE(featuring_package, ''), featuring_scheduled_at, created_at, updated_at`

// CreateListing inserts a new listing and populates its CreatedAt.
func (r *SQLiteListingRepository) CreateListing(ctx context.Context, l *Listing) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (id, title, location, is_featured, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, l.ID, l.Title, l.Location, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// GetListing retrieves a listing by id. Returns (nil, nil) when no such
// listing exists.
func (r *SQLiteListingRepository) GetListing(ctx context.Context, id string) (*Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = ?
	`, id)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// ListScheduled returns all listings with a pending schedule, soonest
// first.
func (r *SQLiteListingRepository) ListScheduled(ctx context.Context) ([]Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE featuring_scheduled_at IS NOT NULL
		ORDER BY featuring_scheduled_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled listings: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// ListScheduledDue returns listings whose scheduled activation time has
// arrived.
func (r *SQLiteListingRepository) ListScheduledDue(ctx context.Context, now time.Time) ([]Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE featuring_scheduled_at IS NOT NULL
		  AND featuring_scheduled_at <= ?
		ORDER BY featuring_scheduled_at
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list due listings: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// ListExpired returns listings whose stored featured flag has outlived
// its window.
func (r *SQLiteListingRepository) ListExpired(ctx context.Context, now time.Time) ([]Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE is_featured = 1
		  AND featured_until IS NOT NULL
		  AND featured_until <= ?
		ORDER BY featured_until
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired listings: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// SetSchedule records a future activation time. The write is refused
// when the listing is currently inside an active window, so a schedule
// can never coexist with active featuring; a stale (expired) window is
// cleared as part of the same statement.
func (r *SQLiteListingRepository) SetSchedule(ctx context.Context, id string, at time.Time, packageID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET featuring_scheduled_at = ?,
		    featuring_package = NULLIF(?, ''),
		    is_featured = 0,
		    featured_at = NULL,
		    featured_until = NULL,
		    updated_at = ?
		WHERE id = ?
		  AND (is_featured = 0 OR (featured_until IS NOT NULL AND featured_until <= ?))
	`, formatTime(at), packageID, formatTime(now), id, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to set schedule: %w", err)
	}
	return rowsAffected(res)
}

// ActivateScheduled converts a pending schedule into an active window.
// Conditioned on the schedule still being present at write time, so two
// concurrent activations resolve to exactly one winner.
func (r *SQLiteListingRepository) ActivateScheduled(ctx context.Context, id string, from, until time.Time, packageID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET is_featured = 1,
		    featured_at = ?,
		    featured_until = ?,
		    featuring_package = COALESCE(NULLIF(?, ''), featuring_package),
		    featuring_scheduled_at = NULL,
		    updated_at = ?
		WHERE id = ?
		  AND featuring_scheduled_at IS NOT NULL
	`, formatTime(from), formatTime(until), packageID, formatTime(from), id)
	if err != nil {
		return false, fmt.Errorf("failed to activate scheduled listing: %w", err)
	}
	return rowsAffected(res)
}

// SetFeatured starts or restarts an active window regardless of current
// state. Any pending schedule is cleared in the same statement.
func (r *SQLiteListingRepository) SetFeatured(ctx context.Context, id string, from, until time.Time, packageID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET is_featured = 1,
		    featured_at = ?,
		    featured_until = ?,
		    featuring_package = COALESCE(NULLIF(?, ''), featuring_package),
		    featuring_scheduled_at = NULL,
		    updated_at = ?
		WHERE id = ?
	`, formatTime(from), formatTime(until), packageID, formatTime(time.Now().UTC()), id)
	if err != nil {
		return false, fmt.Errorf("failed to set featured: %w", err)
	}
	return rowsAffected(res)
}

// ClearFeaturing removes every featuring field. Returns false when the
// listing was already clear, which callers treat as an idempotent no-op.
func (r *SQLiteListingRepository) ClearFeaturing(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET is_featured = 0,
		    featured_at = NULL,
		    featured_until = NULL,
		    featuring_package = NULL,
		    featuring_scheduled_at = NULL,
		    updated_at = ?
		WHERE id = ?
		  AND (is_featured = 1 OR featuring_scheduled_at IS NOT NULL OR featuring_package IS NOT NULL)
	`, formatTime(time.Now().UTC()), id)
	if err != nil {
		return false, fmt.Errorf("failed to clear featuring: %w", err)
	}
	return rowsAffected(res)
}

// ClearExpired clears the featured flag only while the window is still
// lapsed, so a concurrent re-feature is never undone by the sweep.
func (r *SQLiteListingRepository) ClearExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET is_featured = 0,
		    featured_at = NULL,
		    featured_until = NULL,
		    featuring_package = NULL,
		    updated_at = ?
		WHERE id = ?
		  AND is_featured = 1
		  AND featured_until IS NOT NULL
		  AND featured_until <= ?
	`, formatTime(now), id, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to clear expired listing: %w", err)
	}
	return rowsAffected(res)
}

// ClearSchedule cancels a pending schedule. Returns false when none was
// pending.
func (r *SQLiteListingRepository) ClearSchedule(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET featuring_scheduled_at = NULL,
		    featuring_package = NULL,
		    updated_at = ?
		WHERE id = ?
		  AND featuring_scheduled_at IS NOT NULL
	`, formatTime(time.Now().UTC()), id)
	if err != nil {
		return false, fmt.Errorf("failed to clear schedule: %w", err)
	}
	return rowsAffected(res)
}

func (r *SQLiteListingRepository) CountFeatured(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM listings WHERE is_featured = 1`)
}

func (r *SQLiteListingRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE is_featured = 1 AND (featured_until IS NULL OR featured_until > ?)
	`, formatTime(now))
}

func (r *SQLiteListingRepository) CountExpired(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE is_featured = 1 AND featured_until IS NOT NULL AND featured_until <= ?
	`, formatTime(now))
}

func (r *SQLiteListingRepository) CountScheduled(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM listings WHERE featuring_scheduled_at IS NOT NULL`)
}

func (r *SQLiteListingRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTimePtr rejects malformed stored timestamps instead of mapping
// them to nil: a nil featured_until reads as an unlimited window, which
// is not what a corrupt value means.
func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (*Listing, error) {
	var l Listing
	var isFeatured int
	var featuredAt, featuredUntil, scheduledAt, created, updated sql.NullString

	err := row.Scan(&l.ID, &l.Title, &l.Location, &isFeatured,
		&featuredAt, &featuredUntil, &l.FeaturingPackage, &scheduledAt,
		&created, &updated)
	if err != nil {
		return nil, err
	}

	l.IsFeatured = isFeatured == 1
	if l.FeaturedAt, err = parseTimePtr(featuredAt); err != nil {
		return nil, err
	}
	if l.FeaturedUntil, err = parseTimePtr(featuredUntil); err != nil {
		return nil, err
	}
	if l.FeaturingScheduledAt, err = parseTimePtr(scheduledAt); err != nil {
		return nil, err
	}
	if t, err := parseTimePtr(created); err != nil {
		return nil, err
	} else if t != nil {
		l.CreatedAt = *t
	}
	if t, err := parseTimePtr(updated); err != nil {
		return nil, err
	} else if t != nil {
		l.UpdatedAt = *t
	}
	return &l, nil
}

func scanListings(rows *sql.Rows) ([]Listing, error) {
	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return listings, nil
}
