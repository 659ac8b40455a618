// Package tasks drives time-based featuring transitions. The
// reconciler is the only actor that converts due schedules into active
// windows and lapsed windows back to unfeatured; operators never race
// it unsafely because every engine write is conditional.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/database"
	"github.com/propertyshodh2025/featuring-engine/app/featuring"
)

// LifecycleEngine is the slice of the engine the reconciler drives.
type LifecycleEngine interface {
	Activate(ctx context.Context, listingID, packageID string, durationDays int, notes string, actor featuring.Actor) error
	Expire(ctx context.Context, listingID string, actor featuring.Actor) error
}

type Reconciler struct {
	engine   LifecycleEngine
	listings database.ListingRepository
	interval time.Duration
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	tickMu   sync.Mutex
}

func NewReconciler(engine LifecycleEngine, listings database.ListingRepository, interval time.Duration) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		engine:   engine,
		listings: listings,
		interval: interval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetClock overrides the reconciler's clock (useful for testing).
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Start launches the background loop. The first tick runs immediately
// so due schedules are not delayed by a full interval after startup.
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.tick()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reconciler) tick() {
	// A tick gets at most one interval; if the previous one is still
	// running the new one is skipped, never queued.
	tickCtx, cancel := context.WithTimeout(r.ctx, r.interval)
	defer cancel()

	activated, expired, err := r.RunTick(tickCtx)
	if err != nil {
		slog.Error("Reconciliation tick failed", "error", err)
		return
	}
	if activated > 0 || expired > 0 {
		slog.Info("Reconciliation tick completed", "activated", activated, "expired", expired)
	}
}

// RunTick performs one reconciliation pass: activates all due
// schedules, then clears all lapsed windows. Each listing is an
// independent unit of work; individual failures are logged and skipped.
// Overlapping invocations are skipped rather than serialized.
func (r *Reconciler) RunTick(ctx context.Context) (activated, expired int, err error) {
	if !r.tickMu.TryLock() {
		slog.Warn("Previous reconciliation tick still running, skipping")
		return 0, 0, nil
	}
	defer r.tickMu.Unlock()

	now := r.now()

	due, err := r.listings.ListScheduledDue(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, l := range due {
		if ctx.Err() != nil {
			return activated, expired, ctx.Err()
		}
		err := r.engine.Activate(ctx, l.ID, l.FeaturingPackage, 0, "", featuring.SystemActor())
		if err != nil {
			if errors.Is(err, featuring.ErrStoreConflict) {
				slog.Debug("Listing already activated by concurrent writer", "listing_id", l.ID)
				continue
			}
			slog.Error("Failed to activate scheduled listing", "listing_id", l.ID, "error", err)
			continue
		}
		activated++
	}

	lapsed, err := r.listings.ListExpired(ctx, now)
	if err != nil {
		return activated, 0, err
	}
	for _, l := range lapsed {
		if ctx.Err() != nil {
			return activated, expired, ctx.Err()
		}
		err := r.engine.Expire(ctx, l.ID, featuring.SystemActor())
		if err != nil {
			if errors.Is(err, featuring.ErrStoreConflict) {
				slog.Debug("Listing re-featured before expiration sweep", "listing_id", l.ID)
				continue
			}
			slog.Error("Failed to expire listing", "listing_id", l.ID, "error", err)
			continue
		}
		expired++
	}

	return activated, expired, nil
}
