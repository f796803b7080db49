package reconcile

import (
	"context"
	"fmt"
	"iter"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// Pages walks the remote block list page by page. Each range over the
// returned sequence starts again from the first page. The first error is
// yielded (wrapped in ErrRemoteUnavailable) and ends the sequence.
func Pages(ctx context.Context, src RemoteSource) iter.Seq2[models.RemoteBlockEntry, error] {
	return func(yield func(models.RemoteBlockEntry, error) bool) {
		seen := make(map[string]struct{})
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(models.RemoteBlockEntry{}, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
				return
			}

			page, err := src.ListBlocks(ctx, cursor)
			if err != nil {
				yield(models.RemoteBlockEntry{}, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err))
				return
			}

			for _, entry := range page.Entries {
				if !yield(entry, nil) {
					return
				}
			}

			if page.Cursor == "" {
				return
			}
			if _, dup := seen[page.Cursor]; dup {
				yield(models.RemoteBlockEntry{}, fmt.Errorf("%w: cursor %q repeated", ErrRemoteUnavailable, page.Cursor))
				return
			}
			seen[page.Cursor] = struct{}{}
			cursor = page.Cursor
		}
	}
}

// FetchAll materializes the full remote snapshot. On error no partial
// snapshot is returned.
func FetchAll(ctx context.Context, src RemoteSource) ([]models.RemoteBlockEntry, error) {
	var entries []models.RemoteBlockEntry
	for entry, err := range Pages(ctx, src) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
