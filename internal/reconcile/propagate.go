package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
)

// Propagator applies catalog blocks to other accounts. For every account the
// remote block is created first and the catalog record is written only when
// that push succeeded; an account whose push failed picks the block up on
// its next sync.
type Propagator struct {
	catalog     Catalog
	accounts    AccountLister
	sources     SourceFactory
	limiter     ratelimit.Limiter
	concurrency int
	logger      *logging.Logger
	metrics     *Metrics
}

type PropagatorOptions struct {
	Limiter     ratelimit.Limiter
	Concurrency int
	Logger      *logging.Logger
	Metrics     *Metrics
}

func NewPropagator(catalog Catalog, accounts AccountLister, sources SourceFactory, opts PropagatorOptions) *Propagator {
	p := &Propagator{
		catalog:     catalog,
		accounts:    accounts,
		sources:     sources,
		limiter:     opts.Limiter,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if p.limiter == nil {
		p.limiter = ratelimit.NewUnlimited()
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.logger == nil {
		p.logger = logging.Default
	}
	return p
}

// Propagate pushes rec's target to every known account except rec's owner.
// Accounts are processed concurrently; one account's failure never stops the
// others. Only a failure to list accounts is returned as an error.
func (p *Propagator) Propagate(ctx context.Context, rec models.BlockRecord) (*models.PropagationReport, error) {
	accounts, err := p.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	report := &models.PropagationReport{TargetID: rec.TargetID}
	var mu sync.Mutex
	record := func(result, handle string) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case "applied":
			report.Applied++
		case "skipped":
			report.Skipped++
		case "failed":
			report.Failed++
			report.FailedFor = append(report.FailedFor, handle)
		}
		p.metrics.observeFanout(result)
	}

	reason := communityReason(rec.Reason)
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, account := range accounts {
		if account.DID == rec.OwnerID {
			continue
		}
		report.Attempted++

		g.Go(func() error {
			record(p.applyOne(ctx, account, rec, reason), account.Handle)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("Propagated block", map[string]interface{}{
		"target":    rec.TargetID,
		"owner":     rec.OwnerID,
		"attempted": report.Attempted,
		"applied":   report.Applied,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})
	return report, nil
}

// ApplyExisting pushes every distinct catalog target onto a newly connected
// account. Targets are deduplicated first-seen and targets the account
// already blocks remotely are left alone; each target is isolated.
func (p *Propagator) ApplyExisting(ctx context.Context, account models.Account) (*models.PropagationReport, error) {
	records, err := p.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list catalog: %w", ErrCatalogUnavailable, err)
	}

	src, err := p.sources.ForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: open session for %s: %w", ErrRemoteUnavailable, account.Handle, err)
	}

	remote, err := FetchAll(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch blocks for %s: %w", account.Handle, err)
	}
	seen := make(map[string]struct{}, len(remote))
	for _, entry := range remote {
		seen[entry.TargetID] = struct{}{}
	}

	report := &models.PropagationReport{}
	for _, rec := range records {
		if !InCommunityPool(account.DID, rec) {
			continue
		}
		if _, dup := seen[rec.TargetID]; dup {
			continue
		}
		seen[rec.TargetID] = struct{}{}
		report.Attempted++

		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := take(ctx, p.limiter); err != nil {
			return report, err
		}
		if err := src.CreateBlock(ctx, rec.TargetID); err != nil {
			report.Failed++
			report.FailedFor = append(report.FailedFor, rec.TargetID)
			p.metrics.observePush(false)
			p.logger.Warn("Failed to apply existing block", map[string]interface{}{
				"account": account.Handle,
				"target":  rec.TargetID,
				"error":   err.Error(),
			})
			continue
		}
		p.metrics.observePush(true)

		_, err := p.catalog.Insert(ctx, models.NewBlockRecordParams{
			OwnerID:      account.DID,
			TargetID:     rec.TargetID,
			TargetHandle: rec.TargetHandle,
			Origin:       models.OriginCommunity,
			Reason:       models.ReasonAppliedOnJoin,
		})
		if err != nil && !errors.Is(err, ErrDuplicateKey) {
			p.logger.Warn("Applied block not recorded in catalog", map[string]interface{}{
				"account": account.Handle,
				"target":  rec.TargetID,
				"error":   err.Error(),
			})
		}
		report.Applied++
	}

	p.logger.Info("Applied existing blocks", map[string]interface{}{
		"account":   account.Handle,
		"attempted": report.Attempted,
		"applied":   report.Applied,
		"failed":    report.Failed,
	})
	return report, nil
}

func (p *Propagator) applyOne(ctx context.Context, account models.Account, rec models.BlockRecord, reason string) string {
	log := p.logger.WithFields(map[string]interface{}{
		"account": account.Handle,
		"target":  rec.TargetID,
	})

	if err := ctx.Err(); err != nil {
		log.Warn("Fan-out cancelled", map[string]interface{}{"error": err.Error()})
		return "failed"
	}
	if IsSelfBlock(account.DID, rec.TargetID) {
		return "skipped"
	}

	existing, err := p.catalog.FindByOwnerAndTarget(ctx, account.DID, rec.TargetID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		log.Warn("Fan-out lookup failed", map[string]interface{}{"error": err.Error()})
		return "failed"
	}
	if existing != nil {
		return "skipped"
	}

	src, err := p.sources.ForAccount(ctx, account)
	if err != nil {
		log.Warn("Fan-out session unavailable", map[string]interface{}{"error": err.Error()})
		return "failed"
	}

	if err := take(ctx, p.limiter); err != nil {
		log.Warn("Fan-out cancelled", map[string]interface{}{"error": err.Error()})
		return "failed"
	}
	if err := src.CreateBlock(ctx, rec.TargetID); err != nil {
		p.metrics.observePush(false)
		log.Warn("Fan-out push failed", map[string]interface{}{"error": err.Error()})
		return "failed"
	}
	p.metrics.observePush(true)

	_, err = p.catalog.Insert(ctx, models.NewBlockRecordParams{
		OwnerID:      account.DID,
		TargetID:     rec.TargetID,
		TargetHandle: rec.TargetHandle,
		Origin:       models.OriginCommunity,
		Reason:       reason,
	})
	if err != nil && !errors.Is(err, ErrDuplicateKey) {
		// Remote block exists; the account's next sync imports it.
		log.Warn("Fan-out catalog write failed", map[string]interface{}{"error": err.Error()})
	}
	return "applied"
}
