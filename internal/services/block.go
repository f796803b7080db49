package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

var (
	ErrCannotBlockSelf = errors.New("cannot block yourself")
	ErrBlockExists     = errors.New("account is already blocked")
)

type blockCatalog interface {
	reconcile.Catalog
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

type propagator interface {
	Propagate(ctx context.Context, rec models.BlockRecord) (*models.PropagationReport, error)
	ApplyExisting(ctx context.Context, account models.Account) (*models.PropagationReport, error)
}

// AddBlockParams describes a manual block.
type AddBlockParams struct {
	TargetID     string
	TargetHandle string
	Reason       string
}

type AddBlockResult struct {
	Record        *models.BlockRecord       `json:"block"`
	PushedToOwner bool                      `json:"pushed_to_owner"`
	Propagation   *models.PropagationReport `json:"propagation,omitempty"`
}

// BlockService manages manual blocks and hands new ones to the fan-out.
type BlockService struct {
	catalog    blockCatalog
	sources    reconcile.SourceFactory
	propagator propagator
}

func NewBlockService(catalog blockCatalog, sources reconcile.SourceFactory, propagator propagator) *BlockService {
	return &BlockService{catalog: catalog, sources: sources, propagator: propagator}
}

// Add records a manual block for owner, applies it to owner's remote account
// and fans it out to every other account. Remote failures are logged and
// reported, never returned.
func (s *BlockService) Add(ctx context.Context, owner models.Account, params AddBlockParams) (*AddBlockResult, error) {
	if reconcile.IsSelfBlock(owner.DID, params.TargetID) {
		return nil, ErrCannotBlockSelf
	}

	rec, err := s.catalog.Insert(ctx, models.NewBlockRecordParams{
		OwnerID:      owner.DID,
		TargetID:     params.TargetID,
		TargetHandle: params.TargetHandle,
		Origin:       models.OriginManual,
		Reason:       params.Reason,
	})
	if errors.Is(err, reconcile.ErrDuplicateKey) {
		return nil, ErrBlockExists
	}
	if errors.Is(err, reconcile.ErrSelfBlock) {
		return nil, ErrCannotBlockSelf
	}
	if err != nil {
		return nil, fmt.Errorf("adding block: %w", err)
	}

	result := &AddBlockResult{Record: rec}
	result.PushedToOwner = s.pushToOwner(ctx, owner, rec.TargetID)

	if s.propagator != nil {
		report, err := s.propagator.Propagate(ctx, *rec)
		if err != nil {
			logging.Error("Block propagation failed", map[string]interface{}{
				"owner":  owner.DID,
				"target": rec.TargetID,
				"error":  err.Error(),
			})
		}
		result.Propagation = report
	}
	return result, nil
}

func (s *BlockService) pushToOwner(ctx context.Context, owner models.Account, targetID string) bool {
	if s.sources == nil {
		return false
	}
	src, err := s.sources.ForAccount(ctx, owner)
	if err == nil {
		err = src.CreateBlock(ctx, targetID)
	}
	if err != nil {
		logging.Warn("Manual block not applied to owner's remote account", map[string]interface{}{
			"owner":  owner.DID,
			"target": targetID,
			"error":  err.Error(),
		})
		return false
	}
	return true
}

// Remove deletes one of owner's catalog records. The remote block, if any,
// is left in place.
func (s *BlockService) Remove(ctx context.Context, ownerDID string, id uuid.UUID) error {
	return s.catalog.Delete(ctx, ownerDID, id)
}

func (s *BlockService) ListForOwner(ctx context.Context, ownerDID string) ([]models.BlockRecord, error) {
	return s.catalog.ListByOwner(ctx, ownerDID)
}

func (s *BlockService) ListCommunity(ctx context.Context) ([]models.BlockRecord, error) {
	return s.catalog.ListAll(ctx)
}

// Onboard applies the existing community blocks to a newly connected account.
func (s *BlockService) Onboard(ctx context.Context, account models.Account) (*models.PropagationReport, error) {
	if s.propagator == nil {
		return &models.PropagationReport{}, nil
	}
	return s.propagator.ApplyExisting(ctx, account)
}
