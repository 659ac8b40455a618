package database

import (
	"context"
	"testing"
	"time"
)

func TestInsertEntryDefaults(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	e := &AuditEntry{ListingID: "l1", Action: ActionFeatured, AdminUser: "alice"}
	if err := repo.InsertEntry(ctx, e); err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected populated created_at")
	}

	entries, err := repo.ListEntries(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != e.ID {
		t.Fatalf("expected the inserted entry back, got %+v", entries)
	}
}

func TestListEntriesFilters(t *testing.T) {
	db := newTestDB(t)
	listings := NewListingRepository(db)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	insertListing(t, listings, "l1")
	insertListing(t, listings, "l2")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, e := range []AuditEntry{
		{ListingID: "l1", Action: ActionFeatured, AdminUser: "alice", Revenue: 499, CreatedAt: base},
		{ListingID: "l1", Action: ActionUnfeatured, AdminUser: "bob", CreatedAt: base.Add(time.Hour)},
		{ListingID: "l2", Action: ActionExpired, AdminUser: "System", SystemAction: true, CreatedAt: base.Add(2 * time.Hour)},
	} {
		entry := e
		if err := repo.InsertEntry(ctx, &entry); err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}

	// Newest first.
	all, err := repo.ListEntries(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(all) != 3 || all[0].Action != ActionExpired || all[2].Action != ActionFeatured {
		t.Fatalf("unexpected ordering: %+v", all)
	}
	// The join carries the listing snapshot.
	if all[0].ListingTitle != "Property l2" || all[0].ListingLocation != "Pune" {
		t.Errorf("expected joined title/location, got %+v", all[0])
	}

	byAction, err := repo.ListEntries(ctx, AuditFilter{Action: ActionUnfeatured})
	if err != nil {
		t.Fatalf("filter by action: %v", err)
	}
	if len(byAction) != 1 || byAction[0].AdminUser != "bob" {
		t.Errorf("action filter mismatch: %+v", byAction)
	}

	from := base.Add(90 * time.Minute)
	byDate, err := repo.ListEntries(ctx, AuditFilter{From: &from})
	if err != nil {
		t.Fatalf("filter by date: %v", err)
	}
	if len(byDate) != 1 || byDate[0].Action != ActionExpired {
		t.Errorf("date filter mismatch: %+v", byDate)
	}

	systemOnly := true
	bySystem, err := repo.ListEntries(ctx, AuditFilter{SystemAction: &systemOnly})
	if err != nil {
		t.Fatalf("filter by system: %v", err)
	}
	if len(bySystem) != 1 || !bySystem[0].SystemAction {
		t.Errorf("system filter mismatch: %+v", bySystem)
	}

	bySearch, err := repo.ListEntries(ctx, AuditFilter{Search: "alice"})
	if err != nil {
		t.Fatalf("filter by search: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].AdminUser != "alice" {
		t.Errorf("search filter mismatch: %+v", bySearch)
	}

	limited, err := repo.ListEntries(ctx, AuditFilter{Limit: 2})
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(limited))
	}
}

func TestTotalRevenueWindow(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, revenue := range []float64{499, 899, 1499} {
		e := AuditEntry{
			ListingID: "l1", Action: ActionFeatured, AdminUser: "alice",
			Revenue: revenue, CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := repo.InsertEntry(ctx, &e); err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}

	total, err := repo.TotalRevenue(ctx, nil, nil)
	if err != nil {
		t.Fatalf("total revenue: %v", err)
	}
	if total != 2897 {
		t.Errorf("expected total 2897, got %v", total)
	}

	from := base.Add(12 * time.Hour)
	to := base.Add(36 * time.Hour)
	windowed, err := repo.TotalRevenue(ctx, &from, &to)
	if err != nil {
		t.Fatalf("windowed revenue: %v", err)
	}
	if windowed != 899 {
		t.Errorf("expected windowed total 899, got %v", windowed)
	}

	count, err := repo.CountEntries(ctx)
	if err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 entries, got %d", count)
	}
}
