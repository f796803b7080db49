package models

import (
	"time"

	"github.com/google/uuid"
)

// BlockOrigin records how a block entered the catalog.
type BlockOrigin string

const (
	OriginImported  BlockOrigin = "imported"
	OriginManual    BlockOrigin = "manual"
	OriginCommunity BlockOrigin = "community"
)

const (
	ReasonImported        = "Imported from Bluesky"
	ReasonManual          = "Added manually"
	ReasonCommunityFanout = "Blocked by community firewall"
	ReasonAppliedOnJoin   = "Applied by community firewall on connection"
)

func (o BlockOrigin) Valid() bool {
	switch o {
	case OriginImported, OriginManual, OriginCommunity:
		return true
	default:
		return false
	}
}

// DefaultReason is the reason text stored when none was supplied.
func (o BlockOrigin) DefaultReason() string {
	switch o {
	case OriginImported:
		return ReasonImported
	case OriginCommunity:
		return "Auto-blocked: " + ReasonCommunityFanout
	default:
		return ReasonManual
	}
}

// BlockRecord is one account (TargetID) blocked by one owning user (OwnerID).
// Both identifiers are DIDs.
type BlockRecord struct {
	ID           uuid.UUID   `json:"id"`
	OwnerID      string      `json:"owner_did"`
	TargetID     string      `json:"target_did"`
	TargetHandle string      `json:"target_handle"`
	Origin       BlockOrigin `json:"origin"`
	Reason       string      `json:"reason"`
	CreatedAt    time.Time   `json:"created_at"`
}

type NewBlockRecordParams struct {
	OwnerID      string
	TargetID     string
	TargetHandle string
	Origin       BlockOrigin
	Reason       string
	// CreatedAt backdates the record; zero means now.
	CreatedAt    time.Time
}

// RemoteBlockEntry is one element of a page fetched from the remote service.
type RemoteBlockEntry struct {
	TargetID     string `json:"did"`
	TargetHandle string `json:"handle"`
}

// PushFailure describes one outbound block that could not be created.
type PushFailure struct {
	TargetID string `json:"target_did"`
	Error    string `json:"error"`
}

// SyncSummary is the auditable result of one reconciliation run.
type SyncSummary struct {
	OwnerID              string        `json:"owner_did"`
	TotalFetched         int           `json:"totalFetched"`
	NewlyAdded           int           `json:"newlyAdded"`
	Existing             int           `json:"existing"`
	SelfBlocksFiltered   int           `json:"selfBlocksFiltered"`
	AddedToBsky          int           `json:"addedToBsky"`
	ExistingInBsky       int           `json:"existingInBsky"`
	FailedToAdd          int           `json:"failedToAdd"`
	CommunityBlocksFound int           `json:"communityBlocksFound"`
	PushFailures         []PushFailure `json:"pushFailures,omitempty"`
	SyncedAt             time.Time     `json:"syncedAt"`
}
