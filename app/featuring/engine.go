package featuring

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/catalog"
	"github.com/propertyshodh2025/featuring-engine/app/database"
)

// Actor identifies who is driving a transition. System actors are the
// reconciliation loop; everything else is a human operator.
type Actor struct {
	Operator string
	System   bool
}

// SystemActor is the identity the reconciliation loop writes under.
func SystemActor() Actor {
	return Actor{Operator: "System", System: true}
}

// Engine is the single writer of listing featuring fields and the
// single producer of audit log entries. It holds no state between
// invocations; every operation is one conditional write against the
// listing store plus one append to the ledger.
type Engine struct {
	listings database.ListingRepository
	audit    database.AuditLogRepository
	catalog  *catalog.Catalog
	now      func() time.Time
}

func NewEngine(listings database.ListingRepository, audit database.AuditLogRepository, cat *catalog.Catalog) *Engine {
	return &Engine{
		listings: listings,
		audit:    audit,
		catalog:  cat,
		now:      time.Now,
	}
}

// SetClock overrides the engine's clock (useful for testing).
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Schedule records a future activation. Fails with ErrInvalidSchedule
// for past timestamps, ErrMissingDuration for package ids the catalog
// cannot resolve, and ErrAlreadyActive while an active window is
// running; a lapsed (expired) window is cleared as a side effect.
func (e *Engine) Schedule(ctx context.Context, listingID string, at time.Time, packageID, notes string, actor Actor) error {
	now := e.now()
	if at.IsZero() || !at.After(now) {
		return ErrInvalidSchedule
	}

	// The reconciler activates due schedules with no explicit duration,
	// so a schedule whose package the catalog cannot resolve would never
	// fire. Refuse it up front instead of failing on every tick.
	pkg, found := e.catalog.Get(packageID)
	if !found {
		return ErrMissingDuration
	}

	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}
	if ListingStatus(l, now) == StatusActive {
		return ErrAlreadyActive
	}

	ok, err := e.listings.SetSchedule(ctx, listingID, at, packageID, now)
	if err != nil {
		return e.storeErr("set schedule", err)
	}
	if !ok {
		// The guarded write was refused: a concurrent writer activated
		// the listing between our read and the update.
		if current, err := e.listings.GetListing(ctx, listingID); err == nil && current != nil &&
			ListingStatus(current, e.now()) == StatusActive {
			return ErrAlreadyActive
		}
		return ErrStoreConflict
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:    listingID,
		Action:       database.ActionScheduled,
		PackageType:  packageID,
		DurationDays: pkg.DurationDays,
		Notes:        notes,
		AdminUser:    actor.Operator,
		SystemAction: actor.System,
		FeaturedFrom: &at,
	})
}

// Activate starts an active window now. The duration comes from the
// package when the id is known, otherwise from durationDays; neither
// available is ErrMissingDuration. For a scheduled listing the write is
// conditioned on the schedule still being present, so concurrent
// activations resolve to one winner; the loser gets ErrStoreConflict
// and must not append an audit entry.
func (e *Engine) Activate(ctx context.Context, listingID, packageID string, durationDays int, notes string, actor Actor) error {
	days, pkg, err := e.resolveDuration(packageID, durationDays)
	if err != nil {
		return err
	}

	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}

	now := e.now()
	until := now.Add(time.Duration(days) * 24 * time.Hour)

	if l.FeaturingScheduledAt != nil {
		ok, err := e.listings.ActivateScheduled(ctx, listingID, now, until, packageID)
		if err != nil {
			return e.storeErr("activate scheduled", err)
		}
		if !ok {
			return ErrStoreConflict
		}
	} else {
		ok, err := e.listings.SetFeatured(ctx, listingID, now, until, packageID)
		if err != nil {
			return e.storeErr("set featured", err)
		}
		if !ok {
			return ErrNotFound
		}
	}

	var revenue float64
	pkgID := packageID
	if pkgID == "" {
		pkgID = l.FeaturingPackage
		if p, found := e.catalog.Get(pkgID); found {
			pkg = &p
		}
	}
	if pkg != nil {
		revenue = pkg.Price
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:     listingID,
		Action:        database.ActionFeatured,
		PackageType:   pkgID,
		DurationDays:  days,
		Revenue:       revenue,
		Notes:         notes,
		AdminUser:     actor.Operator,
		SystemAction:  actor.System,
		FeaturedFrom:  &now,
		FeaturedUntil: &until,
	})
}

// FeatureNow is the immediate (non-scheduled) featuring shorthand.
func (e *Engine) FeatureNow(ctx context.Context, listingID string, durationDays int, packageID, notes string, actor Actor) error {
	return e.Activate(ctx, listingID, packageID, durationDays, notes, actor)
}

// Extend lengthens an active window by additionalDays, or (re)starts
// one when the listing is not currently active. Always permitted.
func (e *Engine) Extend(ctx context.Context, listingID string, additionalDays int, notes string, actor Actor) error {
	if additionalDays <= 0 {
		return ErrMissingDuration
	}

	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}

	now := e.now()
	from := now
	until := now.Add(time.Duration(additionalDays) * 24 * time.Hour)

	if ListingStatus(l, now) == StatusActive {
		if l.FeaturedAt != nil {
			from = *l.FeaturedAt
		}
		if l.FeaturedUntil != nil {
			until = l.FeaturedUntil.Add(time.Duration(additionalDays) * 24 * time.Hour)
		}
	}

	ok, err := e.listings.SetFeatured(ctx, listingID, from, until, "")
	if err != nil {
		return e.storeErr("extend featuring", err)
	}
	if !ok {
		return ErrNotFound
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:     listingID,
		Action:        database.ActionExtended,
		PackageType:   l.FeaturingPackage,
		DurationDays:  additionalDays,
		Notes:         notes,
		AdminUser:     actor.Operator,
		SystemAction:  actor.System,
		FeaturedFrom:  &from,
		FeaturedUntil: &until,
	})
}

// Unfeature clears every featuring field. Repeating it on an
// already-clear listing is a no-op success with no ledger entry, since
// no transition occurred.
func (e *Engine) Unfeature(ctx context.Context, listingID, reason string, actor Actor) error {
	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}

	ok, err := e.listings.ClearFeaturing(ctx, listingID)
	if err != nil {
		return e.storeErr("clear featuring", err)
	}
	if !ok {
		return nil
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:     listingID,
		Action:        database.ActionUnfeatured,
		PackageType:   l.FeaturingPackage,
		Notes:         reason,
		AdminUser:     actor.Operator,
		SystemAction:  actor.System,
		FeaturedFrom:  l.FeaturedAt,
		FeaturedUntil: l.FeaturedUntil,
	})
}

// CancelSchedule removes a pending schedule. The ledger entry is an
// "unfeatured" action whose note marks it as a cancellation rather
// than a removal of active featuring.
func (e *Engine) CancelSchedule(ctx context.Context, listingID string, actor Actor) error {
	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}
	if l.FeaturingScheduledAt == nil {
		return ErrNotScheduled
	}

	ok, err := e.listings.ClearSchedule(ctx, listingID)
	if err != nil {
		return e.storeErr("clear schedule", err)
	}
	if !ok {
		return ErrNotScheduled
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:    listingID,
		Action:       database.ActionUnfeatured,
		PackageType:  l.FeaturingPackage,
		Notes:        "schedule cancelled",
		AdminUser:    actor.Operator,
		SystemAction: actor.System,
		FeaturedFrom: l.FeaturingScheduledAt,
	})
}

// Expire clears a lapsed window. The write is conditioned on the window
// still being lapsed at write time, so a concurrent re-feature is never
// undone; the loser gets ErrStoreConflict and skips.
func (e *Engine) Expire(ctx context.Context, listingID string, actor Actor) error {
	l, err := e.load(ctx, listingID)
	if err != nil {
		return err
	}

	now := e.now()
	ok, err := e.listings.ClearExpired(ctx, listingID, now)
	if err != nil {
		return e.storeErr("clear expired", err)
	}
	if !ok {
		return ErrStoreConflict
	}

	return e.appendAudit(ctx, &database.AuditEntry{
		ListingID:     listingID,
		Action:        database.ActionExpired,
		PackageType:   l.FeaturingPackage,
		AdminUser:     actor.Operator,
		SystemAction:  actor.System,
		FeaturedFrom:  l.FeaturedAt,
		FeaturedUntil: l.FeaturedUntil,
	})
}

func (e *Engine) resolveDuration(packageID string, durationDays int) (int, *catalog.Package, error) {
	if packageID != "" {
		if pkg, found := e.catalog.Get(packageID); found {
			return pkg.DurationDays, &pkg, nil
		}
	}
	if durationDays > 0 {
		return durationDays, nil, nil
	}
	return 0, nil, ErrMissingDuration
}

func (e *Engine) load(ctx context.Context, listingID string) (*database.Listing, error) {
	l, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, e.storeErr("load listing", err)
	}
	if l == nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (e *Engine) storeErr(op string, err error) error {
	if database.IsMissingSchema(err) {
		return fmt.Errorf("%s: %w", op, ErrSchemaNotReady)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (e *Engine) appendAudit(ctx context.Context, entry *database.AuditEntry) error {
	if err := e.audit.InsertEntry(ctx, entry); err != nil {
		if database.IsMissingSchema(err) {
			return fmt.Errorf("append audit entry: %w", ErrSchemaNotReady)
		}
		return fmt.Errorf("%w: %w", ErrAuditWriteFailed, err)
	}
	return nil
}
