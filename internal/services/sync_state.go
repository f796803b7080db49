package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

const lastSyncKeyPrefix = "sync:last:"

var ErrNeverSynced = errors.New("account has never synced")

// SyncStateStore keeps the most recent sync summary per account.
type SyncStateStore struct {
	cache Cache
}

func NewSyncStateStore(cache Cache) *SyncStateStore {
	return &SyncStateStore{cache: cache}
}

func (s *SyncStateStore) SaveLast(ctx context.Context, summary *models.SyncSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding sync summary: %w", err)
	}
	if err := s.cache.Set(ctx, lastSyncKeyPrefix+summary.OwnerID, string(data), 0); err != nil {
		return fmt.Errorf("storing sync summary: %w", err)
	}
	return nil
}

func (s *SyncStateStore) Last(ctx context.Context, did string) (*models.SyncSummary, error) {
	data, err := s.cache.Get(ctx, lastSyncKeyPrefix+did)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrNeverSynced
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync summary: %w", err)
	}
	var summary models.SyncSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("decoding sync summary: %w", err)
	}
	return &summary, nil
}
