// Package report computes derived statistics and exports from the
// audit ledger and the current listing snapshot. It only reads; all
// writes belong to the lifecycle engine.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/database"
)

type Stats struct {
	TotalFeatured   int     `json:"total_featured"`
	ActiveFeatured  int     `json:"active_featured"`
	ExpiredFeatured int     `json:"expired_featured"`
	Scheduled       int     `json:"scheduled"`
	TotalRevenue    float64 `json:"total_revenue"`
	AuditEntries    int     `json:"audit_entries"`
}

type Service struct {
	listings database.ListingRepository
	audit    database.AuditLogRepository
	now      func() time.Time
}

func NewService(listings database.ListingRepository, audit database.AuditLogRepository) *Service {
	return &Service{
		listings: listings,
		audit:    audit,
		now:      time.Now,
	}
}

// SetClock overrides the service clock (useful for testing).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetStats aggregates the featuring counters and the revenue total over
// an optional date window. ExpiredFeatured counts listings whose stored
// flag has outlived its window but has not been swept yet.
func (s *Service) GetStats(ctx context.Context, from, to *time.Time) (Stats, error) {
	now := s.now()
	var stats Stats
	var err error

	if stats.TotalFeatured, err = s.listings.CountFeatured(ctx); err != nil {
		return Stats{}, fmt.Errorf("count featured: %w", err)
	}
	if stats.ActiveFeatured, err = s.listings.CountActive(ctx, now); err != nil {
		return Stats{}, fmt.Errorf("count active: %w", err)
	}
	if stats.ExpiredFeatured, err = s.listings.CountExpired(ctx, now); err != nil {
		return Stats{}, fmt.Errorf("count expired: %w", err)
	}
	if stats.Scheduled, err = s.listings.CountScheduled(ctx); err != nil {
		return Stats{}, fmt.Errorf("count scheduled: %w", err)
	}
	if stats.TotalRevenue, err = s.audit.TotalRevenue(ctx, from, to); err != nil {
		return Stats{}, fmt.Errorf("total revenue: %w", err)
	}
	if stats.AuditEntries, err = s.audit.CountEntries(ctx); err != nil {
		return Stats{}, fmt.Errorf("count audit entries: %w", err)
	}

	return stats, nil
}

// ListEntries returns the filtered audit log, newest entry first.
func (s *Service) ListEntries(ctx context.Context, f database.AuditFilter) ([]database.AuditEntry, error) {
	entries, err := s.audit.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
