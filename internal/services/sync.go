package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

type syncEngine interface {
	Sync(ctx context.Context, ownerID string, src reconcile.RemoteSource) (*models.SyncSummary, error)
}

// SyncResult is one account's outcome in a batch sync.
type SyncResult struct {
	DID     string              `json:"did"`
	Handle  string              `json:"handle"`
	Summary *models.SyncSummary `json:"summary,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// SyncService opens an account's remote session and runs the engine on it.
type SyncService struct {
	engine   syncEngine
	sources  reconcile.SourceFactory
	accounts reconcile.AccountLister
	state    *SyncStateStore
}

func NewSyncService(engine syncEngine, sources reconcile.SourceFactory, accounts reconcile.AccountLister, state *SyncStateStore) *SyncService {
	return &SyncService{
		engine:   engine,
		sources:  sources,
		accounts: accounts,
		state:    state,
	}
}

func (s *SyncService) Sync(ctx context.Context, account models.Account) (*models.SyncSummary, error) {
	src, err := s.sources.ForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: open session for %s: %w", reconcile.ErrRemoteUnavailable, account.Handle, err)
	}

	summary, err := s.engine.Sync(ctx, account.DID, src)
	if err != nil {
		return nil, err
	}

	if s.state != nil {
		if err := s.state.SaveLast(ctx, summary); err != nil {
			logging.Warn("Failed to record last sync", map[string]interface{}{
				"did":   account.DID,
				"error": err.Error(),
			})
		}
	}
	return summary, nil
}

func (s *SyncService) Last(ctx context.Context, did string) (*models.SyncSummary, error) {
	if s.state == nil {
		return nil, ErrNeverSynced
	}
	return s.state.Last(ctx, did)
}

// SyncAll syncs every account in turn. A failing account is reported in its
// result and does not stop the batch; only cancellation and a failed account
// listing abort.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	results := make([]SyncResult, 0, len(accounts))
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := SyncResult{DID: account.DID, Handle: account.Handle}
		summary, err := s.Sync(ctx, account)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return results, err
			}
			result.Error = err.Error()
			logging.Warn("Account sync failed", map[string]interface{}{
				"did":   account.DID,
				"error": err.Error(),
			})
		}
		result.Summary = summary
		results = append(results, result)
	}
	return results, nil
}
