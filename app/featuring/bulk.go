package featuring

import (
	"context"
	"fmt"
	"log/slog"
)

// BulkOperation names an engine operation applied across a set of
// listings.
type BulkOperation string

const (
	BulkFeature        BulkOperation = "feature"
	BulkUnfeature      BulkOperation = "unfeature"
	BulkExtend         BulkOperation = "extend"
	BulkCancelSchedule BulkOperation = "cancel_schedule"
)

// BulkParams carries the shared parameters of a batch.
type BulkParams struct {
	DurationDays int
	PackageID    string
	Notes        string
}

// BulkFailure records one listing's failure inside a batch.
type BulkFailure struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// BulkResult is the aggregate outcome of a batch. Partial failure is a
// first-class return value, not a side effect of logging.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkApply runs one operation over each listing id sequentially with
// per-item isolation: one listing's failure never aborts the batch, and
// each success appends exactly one audit entry. Sequential execution
// keeps the ledger ordering deterministic per batch.
func (e *Engine) BulkApply(ctx context.Context, op BulkOperation, listingIDs []string, p BulkParams, actor Actor) (BulkResult, error) {
	apply, err := e.bulkFunc(op, p)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{
		Succeeded: make([]string, 0, len(listingIDs)),
		Failed:    make([]BulkFailure, 0),
	}

	for _, id := range listingIDs {
		if err := apply(ctx, id, actor); err != nil {
			slog.Warn("Bulk operation item failed", "operation", string(op), "listing_id", id, "error", err)
			result.Failed = append(result.Failed, BulkFailure{ListingID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result, nil
}

func (e *Engine) bulkFunc(op BulkOperation, p BulkParams) (func(context.Context, string, Actor) error, error) {
	switch op {
	case BulkFeature:
		return func(ctx context.Context, id string, actor Actor) error {
			return e.FeatureNow(ctx, id, p.DurationDays, p.PackageID, p.Notes, actor)
		}, nil
	case BulkUnfeature:
		return func(ctx context.Context, id string, actor Actor) error {
			return e.Unfeature(ctx, id, p.Notes, actor)
		}, nil
	case BulkExtend:
		return func(ctx context.Context, id string, actor Actor) error {
			return e.Extend(ctx, id, p.DurationDays, p.Notes, actor)
		}, nil
	case BulkCancelSchedule:
		return func(ctx context.Context, id string, actor Actor) error {
			return e.CancelSchedule(ctx, id, actor)
		}, nil
	default:
		return nil, fmt.Errorf("unknown bulk operation: %s", op)
	}
}
