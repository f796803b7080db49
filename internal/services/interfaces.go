package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// AccountServiceInterface defines the contract for account operations used by handlers.
type AccountServiceInterface interface {
	Connect(ctx context.Context, params models.ConnectAccountParams) (*models.Account, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByDID(ctx context.Context, did string) (*models.Account, error)
}

// SessionServiceInterface defines the contract for session operations.
type SessionServiceInterface interface {
	CreateSession(ctx context.Context, accountID uuid.UUID) (string, error)
	ValidateSession(ctx context.Context, token string) (*models.Account, error)
	DeleteSession(ctx context.Context, token string) error
}

// BlockServiceInterface defines the contract for block operations.
type BlockServiceInterface interface {
	Add(ctx context.Context, owner models.Account, params AddBlockParams) (*AddBlockResult, error)
	Remove(ctx context.Context, ownerDID string, id uuid.UUID) error
	ListForOwner(ctx context.Context, ownerDID string) ([]models.BlockRecord, error)
	ListCommunity(ctx context.Context) ([]models.BlockRecord, error)
	Onboard(ctx context.Context, account models.Account) (*models.PropagationReport, error)
}

// SyncServiceInterface defines the contract for reconciliation runs.
type SyncServiceInterface interface {
	Sync(ctx context.Context, account models.Account) (*models.SyncSummary, error)
	Last(ctx context.Context, did string) (*models.SyncSummary, error)
}

// ExportServiceInterface defines the contract for community list rendering.
type ExportServiceInterface interface {
	Build(ctx context.Context, base map[string]any) (*CommunityList, error)
}
