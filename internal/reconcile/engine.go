package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
)

// Engine runs the bidirectional reconciliation for one owner at a time.
type Engine struct {
	catalog  Catalog
	executor *Executor
	logger   *logging.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewEngine(catalog Catalog, executor *Executor, logger *logging.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = logging.Default
	}
	return &Engine{
		catalog:  catalog,
		executor: executor,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Sync fetches ownerID's complete remote block list from src, merges it
// into the catalog and pushes community blocks missing remotely. A failed
// fetch aborts before any catalog write. Push failures are reported in the
// summary, not as an error.
func (e *Engine) Sync(ctx context.Context, ownerID string, src RemoteSource) (*models.SyncSummary, error) {
	start := e.now()
	log := e.logger.WithField("owner", ownerID)
	log.Info("Starting sync")

	remote, err := FetchAll(ctx, src)
	if err != nil {
		e.fail(log, "remote_unavailable", start, err)
		return nil, err
	}
	log.Debug("Fetched remote blocks", map[string]interface{}{"count": len(remote)})

	records, err := e.catalog.ListAll(ctx)
	if err != nil {
		err = fmt.Errorf("%w: list catalog: %w", ErrCatalogUnavailable, err)
		e.fail(log, "catalog_unavailable", start, err)
		return nil, err
	}

	plan := BuildPlan(ownerID, remote, records)
	log.Debug("Planned sync", map[string]interface{}{
		"inserts":        len(plan.Inserts),
		"pushes":         len(plan.Pushes),
		"community_pool": len(plan.CommunityPool),
	})

	inserted, err := e.executor.ApplyInserts(ctx, plan.Inserts)
	if err != nil {
		e.fail(log, outcomeFor(ctx, "catalog_unavailable"), start, err)
		return nil, err
	}

	pushed, err := e.executor.ApplyPushes(ctx, ownerID, src, plan.Pushes)
	if err != nil {
		err = fmt.Errorf("sync cancelled: %w", err)
		e.fail(log, "cancelled", start, err)
		return nil, err
	}

	summary := NewSummaryBuilder(plan).WithInserts(inserted).WithPushes(pushed).Build(e.now())
	if err := Validate(summary); err != nil {
		e.fail(log, "invariant", start, err)
		return nil, err
	}

	e.metrics.observeSync("success", e.now().Sub(start))
	e.metrics.observeSummary(summary)
	log.Info("Sync completed", map[string]interface{}{
		"total_fetched":          summary.TotalFetched,
		"newly_added":            summary.NewlyAdded,
		"existing":               summary.Existing,
		"self_blocks_filtered":   summary.SelfBlocksFiltered,
		"added_to_bsky":          summary.AddedToBsky,
		"existing_in_bsky":       summary.ExistingInBsky,
		"failed_to_add":          summary.FailedToAdd,
		"community_blocks_found": summary.CommunityBlocksFound,
	})
	return summary, nil
}

func (e *Engine) fail(log *logging.Logger, outcome string, start time.Time, err error) {
	e.metrics.observeSync(outcome, e.now().Sub(start))
	log.Error("Sync failed", map[string]interface{}{
		"outcome": outcome,
		"error":   err.Error(),
	})
}

func outcomeFor(ctx context.Context, fallback string) string {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "cancelled"
	}
	return fallback
}
