package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteAuditLogRepository handles the append-only featuring ledger.
type SQLiteAuditLogRepository struct {
	db *DB
}

var _ AuditLogRepository = (*SQLiteAuditLogRepository)(nil)

func NewAuditLogRepository(db *DB) *SQLiteAuditLogRepository {
	return &SQLiteAuditLogRepository{db: db}
}

// InsertEntry appends a new ledger row. The entry's ID and CreatedAt are
// populated when empty.
func (r *SQLiteAuditLogRepository) InsertEntry(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO featuring_audit_log (
			id, listing_id, action, package_type, duration_days, revenue,
			notes, admin_user, system_action, featured_from, featured_until, created_at
		) VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
	`, e.ID, e.ListingID, e.Action, e.PackageType, e.DurationDays, e.Revenue,
		e.Notes, e.AdminUser, boolToInt(e.SystemAction),
		formatTimePtr(e.FeaturedFrom), formatTimePtr(e.FeaturedUntil),
		formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListEntries returns ledger rows newest-first, joined with the listing
// snapshot for title/location. All filters are optional.
func (r *SQLiteAuditLogRepository) ListEntries(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	var where []string
	var args []any

	if f.Action != "" {
		where = append(where, "a.action = ?")
		args = append(args, f.Action)
	}
	if f.From != nil {
		where = append(where, "a.created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "a.created_at <= ?")
		args = append(args, formatTime(*f.To))
	}
	if f.SystemAction != nil {
		where = append(where, "a.system_action = ?")
		args = append(args, boolToInt(*f.SystemAction))
	}
	if f.Search != "" {
		where = append(where, "(l.title LIKE ? OR l.location LIKE ? OR a.admin_user LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `
		SELECT a.id, a.listing_id, a.action, COALESCE(a.package_type, ''),
		       COALESCE(a.duration_days, 0), a.revenue, COALESCE(a.notes, ''),
		       a.admin_user, a.system_action, a.featured_from, a.featured_until,
		       a.created_at, COALESCE(l.title, ''), COALESCE(l.location, '')
		FROM featuring_audit_log a
		LEFT JOIN listings l ON l.id = a.listing_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var systemAction int
		var featuredFrom, featuredUntil, created sql.NullString

		err := rows.Scan(&e.ID, &e.ListingID, &e.Action, &e.PackageType,
			&e.DurationDays, &e.Revenue, &e.Notes, &e.AdminUser, &systemAction,
			&featuredFrom, &featuredUntil, &created,
			&e.ListingTitle, &e.ListingLocation)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		e.SystemAction = systemAction == 1
		if e.FeaturedFrom, err = parseTimePtr(featuredFrom); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if e.FeaturedUntil, err = parseTimePtr(featuredUntil); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if t, err := parseTimePtr(created); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		} else if t != nil {
			e.CreatedAt = *t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}

// TotalRevenue sums entry revenue over an optional date window.
func (r *SQLiteAuditLogRepository) TotalRevenue(ctx context.Context, from, to *time.Time) (float64, error) {
	var where []string
	var args []any

	if from != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*from))
	}
	if to != nil {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(*to))
	}

	query := `SELECT COALESCE(SUM(revenue), 0) FROM featuring_audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var total float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

func (r *SQLiteAuditLogRepository) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM featuring_audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
