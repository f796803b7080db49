package reconcile

import (
	"context"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// PageSize is the number of entries requested per remote page.
const PageSize = 100

// Page is one response of a paginated remote listing. An empty Cursor means
// there are no further pages.
type Page struct {
	Entries []models.RemoteBlockEntry
	Cursor  string
}

// RemoteSource is bound to a single account's credentials.
type RemoteSource interface {
	ListBlocks(ctx context.Context, cursor string) (Page, error)
	CreateBlock(ctx context.Context, targetID string) error
}

// SourceFactory opens a RemoteSource for one account. Each call returns a
// fresh capability; nothing is shared between accounts.
type SourceFactory interface {
	ForAccount(ctx context.Context, account models.Account) (RemoteSource, error)
}

// Catalog is the persisted, shared set of block records.
type Catalog interface {
	FindByOwnerAndTarget(ctx context.Context, ownerID, targetID string) (*models.BlockRecord, error)
	Insert(ctx context.Context, params models.NewBlockRecordParams) (*models.BlockRecord, error)
	ListAll(ctx context.Context) ([]models.BlockRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.BlockRecord, error)
}

// AccountLister enumerates every known account.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
}
