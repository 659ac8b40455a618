package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/catalog"
	"github.com/propertyshodh2025/featuring-engine/app/database"
	"github.com/propertyshodh2025/featuring-engine/app/featuring"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine   *featuring.Engine
	listings database.ListingRepository
	audit    database.AuditLogRepository
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	listings := database.NewListingRepository(db)
	audit := database.NewAuditLogRepository(db)
	engine := featuring.NewEngine(listings, audit, catalog.New(catalog.Defaults()))

	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine.SetClock(clock.Now)

	return &testEnv{engine: engine, listings: listings, audit: audit, clock: clock}
}

func (env *testEnv) newReconciler() *Reconciler {
	r := NewReconciler(env.engine, env.listings, time.Minute)
	r.SetClock(env.clock.Now)
	return r
}

func (env *testEnv) createListing(t *testing.T, id string) {
	t.Helper()
	l := &database.Listing{ID: id, Title: "Test Property " + id, Location: "Pune"}
	if err := env.listings.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("create listing: %v", err)
	}
}

func (env *testEnv) auditEntries(t *testing.T, listingID string) []database.AuditEntry {
	t.Helper()
	all, err := env.audit.ListEntries(context.Background(), database.AuditFilter{})
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	var out []database.AuditEntry
	for _, e := range all {
		if e.ListingID == listingID {
			out = append(out, e)
		}
	}
	return out
}

func TestRunTickActivatesDueSchedules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createListing(t, "l1")

	// Schedule for tomorrow with the basic package (duration 7).
	at := env.clock.Now().Add(24 * time.Hour)
	if err := env.engine.Schedule(ctx, "l1", at, "basic", "", featuring.Actor{Operator: "alice"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	r := env.newReconciler()

	// Not due yet: nothing happens.
	activated, expired, err := r.RunTick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if activated != 0 || expired != 0 {
		t.Fatalf("premature tick activated=%d expired=%d", activated, expired)
	}

	// Advance to the scheduled time: the listing is ScheduledReady and
	// the tick converts it.
	env.clock.Advance(24 * time.Hour)
	activationTime := env.clock.Now()

	activated, _, err = r.RunTick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if activated != 1 {
		t.Fatalf("expected 1 activation, got %d", activated)
	}

	l, err := env.listings.GetListing(ctx, "l1")
	if err != nil || l == nil {
		t.Fatalf("get listing: %v", err)
	}
	if !l.IsFeatured {
		t.Error("expected listing featured")
	}
	if l.FeaturingScheduledAt != nil {
		t.Error("expected schedule cleared")
	}
	wantUntil := activationTime.Add(7 * 24 * time.Hour)
	if l.FeaturedUntil == nil || !l.FeaturedUntil.Equal(wantUntil) {
		t.Errorf("expected window until %v, got %v", wantUntil, l.FeaturedUntil)
	}

	entries := env.auditEntries(t, "l1")
	featured := 0
	for _, e := range entries {
		if e.Action == database.ActionFeatured {
			featured++
			if !e.SystemAction {
				t.Error("reconciler activation must be marked system_action")
			}
		}
	}
	if featured != 1 {
		t.Errorf("expected exactly 1 featured entry, got %d", featured)
	}

	// Re-running the tick is idempotent: the schedule is gone.
	activated, _, err = r.RunTick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if activated != 0 {
		t.Errorf("second tick must not re-activate, got %d", activated)
	}
}

func TestRunTickExpiresLapsedWindows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createListing(t, "l1")
	env.createListing(t, "l2")

	if err := env.engine.FeatureNow(ctx, "l1", 7, "", "", featuring.Actor{Operator: "alice"}); err != nil {
		t.Fatalf("feature l1: %v", err)
	}
	if err := env.engine.FeatureNow(ctx, "l2", 30, "", "", featuring.Actor{Operator: "alice"}); err != nil {
		t.Fatalf("feature l2: %v", err)
	}

	env.clock.Advance(10 * 24 * time.Hour)

	r := env.newReconciler()
	_, expired, err := r.RunTick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expiration, got %d", expired)
	}

	l1, _ := env.listings.GetListing(ctx, "l1")
	if l1.IsFeatured {
		t.Error("expected l1 unfeatured after sweep")
	}
	l2, _ := env.listings.GetListing(ctx, "l2")
	if !l2.IsFeatured {
		t.Error("l2's window is still open and must not be swept")
	}

	entries := env.auditEntries(t, "l1")
	if len(entries) == 0 || entries[0].Action != database.ActionExpired || !entries[0].SystemAction {
		t.Errorf("expected system expired entry for l1, got %+v", entries)
	}
}

// failingEngine fails activation for one listing id to verify per-item
// isolation.
type failingEngine struct {
	inner  LifecycleEngine
	failID string
	calls  []string
}

func (f *failingEngine) Activate(ctx context.Context, listingID, packageID string, durationDays int, notes string, actor featuring.Actor) error {
	f.calls = append(f.calls, listingID)
	if listingID == f.failID {
		return errors.New("store write failed")
	}
	return f.inner.Activate(ctx, listingID, packageID, durationDays, notes, actor)
}

func (f *failingEngine) Expire(ctx context.Context, listingID string, actor featuring.Actor) error {
	return f.inner.Expire(ctx, listingID, actor)
}

func TestRunTickContinuesPastItemFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	at := env.clock.Now().Add(time.Hour)
	for _, id := range []string{"a", "b", "c"} {
		env.createListing(t, id)
		if err := env.engine.Schedule(ctx, id, at, "basic", "", featuring.Actor{Operator: "alice"}); err != nil {
			t.Fatalf("schedule %s: %v", id, err)
		}
	}
	env.clock.Advance(2 * time.Hour)

	failing := &failingEngine{inner: env.engine, failID: "b"}
	r := NewReconciler(failing, env.listings, time.Minute)
	r.SetClock(env.clock.Now)

	activated, _, err := r.RunTick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if activated != 2 {
		t.Errorf("expected 2 activations despite b failing, got %d", activated)
	}
	if len(failing.calls) != 3 {
		t.Errorf("expected all 3 listings attempted, got %v", failing.calls)
	}

	b, _ := env.listings.GetListing(ctx, "b")
	if b.FeaturingScheduledAt == nil {
		t.Error("failed listing must keep its schedule for the next tick")
	}
}

func TestStartStop(t *testing.T) {
	env := newTestEnv(t)
	env.createListing(t, "l1")

	r := NewReconciler(env.engine, env.listings, 10*time.Millisecond)
	r.SetClock(env.clock.Now)

	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	// Stop must not hang and a second Stop is not required; reaching
	// this point is the assertion.
}
