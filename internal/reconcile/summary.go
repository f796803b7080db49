package reconcile

import (
	"fmt"
	"time"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// SummaryBuilder aggregates a plan and its execution results.
type SummaryBuilder struct {
	plan    Plan
	inserts InsertResult
	pushes  PushResult
}

func NewSummaryBuilder(plan Plan) *SummaryBuilder {
	return &SummaryBuilder{plan: plan}
}

func (b *SummaryBuilder) WithInserts(res InsertResult) *SummaryBuilder {
	b.inserts = res
	return b
}

func (b *SummaryBuilder) WithPushes(res PushResult) *SummaryBuilder {
	b.pushes = res
	return b
}

// Build returns the summary. Inserts lost to a concurrent sync are reported
// as existing.
func (b *SummaryBuilder) Build(at time.Time) *models.SyncSummary {
	s := &models.SyncSummary{
		OwnerID:              b.plan.OwnerID,
		TotalFetched:         b.plan.TotalFetched,
		NewlyAdded:           len(b.plan.Inserts) - b.inserts.Duplicates,
		Existing:             b.plan.Existing + b.inserts.Duplicates,
		SelfBlocksFiltered:   b.plan.SelfBlocksFiltered,
		AddedToBsky:          b.pushes.Added,
		ExistingInBsky:       b.plan.ExistingRemote,
		FailedToAdd:          len(b.pushes.Failures),
		CommunityBlocksFound: len(b.plan.CommunityPool),
		SyncedAt:             at.UTC(),
	}
	for _, f := range b.pushes.Failures {
		s.PushFailures = append(s.PushFailures, models.PushFailure{
			TargetID: f.TargetID,
			Error:    f.Err.Error(),
		})
	}
	return s
}

// Validate checks both conservation laws of a summary.
func Validate(s *models.SyncSummary) error {
	if got := s.NewlyAdded + s.Existing + s.SelfBlocksFiltered; got != s.TotalFetched {
		return fmt.Errorf("%w: totalFetched=%d but newlyAdded+existing+selfBlocksFiltered=%d",
			ErrSummaryInvariant, s.TotalFetched, got)
	}
	if got := s.AddedToBsky + s.ExistingInBsky + s.FailedToAdd; got != s.CommunityBlocksFound {
		return fmt.Errorf("%w: communityBlocksFound=%d but addedToBsky+existingInBsky+failedToAdd=%d",
			ErrSummaryInvariant, s.CommunityBlocksFound, got)
	}
	return nil
}
