package reconcile

import "github.com/HammerMeetNail/blockshield/internal/models"

// IsSelfBlock reports whether a block of targetID by ownerID would block the
// owner's own account.
func IsSelfBlock(ownerID, targetID string) bool {
	return ownerID == targetID
}

// InCommunityPool reports whether rec is a candidate for pushing onto
// ownerID's remote account: owned by someone else and not targeting ownerID.
func InCommunityPool(ownerID string, rec models.BlockRecord) bool {
	return rec.OwnerID != ownerID && !IsSelfBlock(ownerID, rec.TargetID)
}
