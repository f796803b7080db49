package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/ratelimit"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
)

const autoBlockedPrefix = "Auto-blocked: "

// InsertResult counts the outcome of the inbound half of a plan.
type InsertResult struct {
	Inserted   int
	Duplicates int
}

// PushResult counts the outcome of the outbound half of a plan.
type PushResult struct {
	Added    int
	Failures []*PushError
}

// Executor applies planned actions with per-item isolation. Outbound block
// creations are paced by a shared limiter.
type Executor struct {
	catalog Catalog
	limiter ratelimit.Limiter
	logger  *logging.Logger
	metrics *Metrics
}

func NewExecutor(catalog Catalog, limiter ratelimit.Limiter, logger *logging.Logger, metrics *Metrics) *Executor {
	if limiter == nil {
		limiter = ratelimit.NewUnlimited()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Executor{
		catalog: catalog,
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

// ApplyInserts writes every insert action. A lost uniqueness race counts as a
// duplicate; any other catalog error stops the batch.
func (e *Executor) ApplyInserts(ctx context.Context, inserts []models.NewBlockRecordParams) (InsertResult, error) {
	var res InsertResult
	for _, params := range inserts {
		_, err := e.catalog.Insert(ctx, params)
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, ErrDuplicateKey):
			res.Duplicates++
		default:
			return res, fmt.Errorf("%w: insert %s for %s: %w", ErrCatalogUnavailable, params.TargetID, params.OwnerID, err)
		}
	}
	return res, nil
}

// ApplyPushes creates each pushed target on the owner's remote account. A
// failed push is recorded and the batch continues. A successful push is
// mirrored into the owner's catalog so the next sync sees it as existing.
// Only context cancellation returns an error.
func (e *Executor) ApplyPushes(ctx context.Context, ownerID string, src RemoteSource, pushes []models.BlockRecord) (PushResult, error) {
	var res PushResult
	for _, rec := range pushes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if IsSelfBlock(ownerID, rec.TargetID) {
			res.Failures = append(res.Failures, &PushError{TargetID: rec.TargetID, Err: ErrSelfBlock})
			continue
		}

		if err := take(ctx, e.limiter); err != nil {
			return res, err
		}
		if err := src.CreateBlock(ctx, rec.TargetID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Failures = append(res.Failures, &PushError{TargetID: rec.TargetID, Err: err})
			e.metrics.observePush(false)
			e.logger.Warn("Failed to push block to remote", map[string]interface{}{
				"owner":  ownerID,
				"target": rec.TargetID,
				"error":  err.Error(),
			})
			continue
		}
		res.Added++
		e.metrics.observePush(true)

		e.mirror(ctx, ownerID, rec)
	}
	return res, nil
}

// take waits for a pacing slot. The wait can outlast ctx, so ctx is checked
// again before the caller writes to the remote.
func take(ctx context.Context, limiter ratelimit.Limiter) error {
	limiter.Take()
	return ctx.Err()
}

func (e *Executor) mirror(ctx context.Context, ownerID string, rec models.BlockRecord) {
	_, err := e.catalog.Insert(ctx, models.NewBlockRecordParams{
		OwnerID:      ownerID,
		TargetID:     rec.TargetID,
		TargetHandle: rec.TargetHandle,
		Origin:       models.OriginCommunity,
		Reason:       communityReason(rec.Reason),
	})
	if err != nil && !errors.Is(err, ErrDuplicateKey) {
		// The next sync imports it from the remote side.
		e.logger.Warn("Pushed block not mirrored in catalog", map[string]interface{}{
			"owner":  ownerID,
			"target": rec.TargetID,
			"error":  err.Error(),
		})
	}
}

func communityReason(source string) string {
	if source == "" || source == models.ReasonImported || source == models.ReasonManual {
		source = models.ReasonCommunityFanout
	}
	if strings.HasPrefix(source, autoBlockedPrefix) {
		return source
	}
	return autoBlockedPrefix + source
}
