package reconcile

import "github.com/HammerMeetNail/blockshield/internal/models"

// Plan is the diff between one owner's remote snapshot and the catalog.
type Plan struct {
	OwnerID string

	TotalFetched       int
	SelfBlocksFiltered int
	Existing           int
	Inserts            []models.NewBlockRecordParams

	CommunityPool  []models.BlockRecord
	ExistingRemote int
	Pushes         []models.BlockRecord
}

type ownerTarget struct {
	owner  string
	target string
}

// BuildPlan computes the inbound and outbound actions for ownerID. It is pure:
// remote and catalog are read, never modified.
func BuildPlan(ownerID string, remote []models.RemoteBlockEntry, catalog []models.BlockRecord) Plan {
	plan := Plan{
		OwnerID:      ownerID,
		TotalFetched: len(remote),
	}

	known := make(map[ownerTarget]struct{}, len(catalog))
	for _, rec := range catalog {
		known[ownerTarget{owner: rec.OwnerID, target: rec.TargetID}] = struct{}{}
	}

	remoteTargets := make(map[string]struct{}, len(remote))
	for _, entry := range remote {
		remoteTargets[entry.TargetID] = struct{}{}

		if IsSelfBlock(ownerID, entry.TargetID) {
			plan.SelfBlocksFiltered++
			continue
		}

		key := ownerTarget{owner: ownerID, target: entry.TargetID}
		if _, ok := known[key]; ok {
			plan.Existing++
			continue
		}
		// A target listed twice in one snapshot is inserted once.
		known[key] = struct{}{}
		plan.Inserts = append(plan.Inserts, models.NewBlockRecordParams{
			OwnerID:      ownerID,
			TargetID:     entry.TargetID,
			TargetHandle: entry.TargetHandle,
			Origin:       models.OriginImported,
			Reason:       models.ReasonImported,
		})
	}

	pooled := make(map[string]struct{})
	for _, rec := range catalog {
		if !InCommunityPool(ownerID, rec) {
			continue
		}
		if _, dup := pooled[rec.TargetID]; dup {
			continue
		}
		pooled[rec.TargetID] = struct{}{}
		plan.CommunityPool = append(plan.CommunityPool, rec)

		if _, ok := remoteTargets[rec.TargetID]; ok {
			plan.ExistingRemote++
			continue
		}
		plan.Pushes = append(plan.Pushes, rec)
	}

	return plan
}
