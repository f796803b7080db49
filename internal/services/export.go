package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

const (
	defaultCategory     = "other"
	evidenceTypeBlock   = "user_block"
	evidenceDescription = "Blocked by Bluesky user"
)

// CommunityList is the published community block list document.
type CommunityList struct {
	Metadata        map[string]any       `json:"metadata"`
	BlockedAccounts []CommunityListEntry `json:"blocked_accounts"`
}

type CommunityListEntry struct {
	Handle    string     `json:"handle"`
	DID       string     `json:"did"`
	Category  string     `json:"category"`
	Reason    string     `json:"reason"`
	DateAdded string     `json:"date_added"`
	Reporter  string     `json:"reporter"`
	Evidence  []Evidence `json:"evidence"`
}

type Evidence struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// ExportService renders the catalog as a community list and loads entries
// back from one.
type ExportService struct {
	catalog reconcile.Catalog
	now     func() time.Time
}

func NewExportService(catalog reconcile.Catalog) *ExportService {
	return &ExportService{catalog: catalog, now: time.Now}
}

// Build renders one entry per distinct target, first-seen record wins.
// Metadata from base is kept with last_updated refreshed.
func (s *ExportService) Build(ctx context.Context, base map[string]any) (*CommunityList, error) {
	records, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}

	meta := make(map[string]any, len(base)+1)
	for k, v := range base {
		meta[k] = v
	}
	meta["last_updated"] = s.now().UTC().Format(time.DateOnly)

	doc := &CommunityList{Metadata: meta, BlockedAccounts: []CommunityListEntry{}}
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.TargetID]; dup {
			continue
		}
		seen[rec.TargetID] = struct{}{}
		doc.BlockedAccounts = append(doc.BlockedAccounts, entryFromRecord(rec))
	}
	return doc, nil
}

func entryFromRecord(rec models.BlockRecord) CommunityListEntry {
	created := rec.CreatedAt.UTC()
	reason := rec.Reason
	if reason == "" {
		reason = "Added to community block list"
	}
	return CommunityListEntry{
		Handle:    rec.TargetHandle,
		DID:       rec.TargetID,
		Category:  defaultCategory,
		Reason:    reason,
		DateAdded: created.Format(time.DateOnly),
		Reporter:  rec.OwnerID,
		Evidence: []Evidence{{
			Type:        evidenceTypeBlock,
			Description: evidenceDescription,
			Timestamp:   created.Format(time.RFC3339Nano),
		}},
	}
}

// WriteFile rewrites the list at path, keeping any existing metadata.
func (s *ExportService) WriteFile(ctx context.Context, path string) (*CommunityList, error) {
	existing, err := ReadCommunityList(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var base map[string]any
	if existing != nil {
		base = existing.Metadata
	}

	doc, err := s.Build(ctx, base)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding community list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing community list: %w", err)
	}
	return doc, nil
}

// Import inserts list entries the catalog does not hold yet, owned by their
// reporter. It returns the number of records added.
func (s *ExportService) Import(ctx context.Context, doc *CommunityList) (int, error) {
	added := 0
	for _, entry := range doc.BlockedAccounts {
		if entry.DID == "" || entry.Reporter == "" {
			continue
		}
		_, err := s.catalog.Insert(ctx, models.NewBlockRecordParams{
			OwnerID:      entry.Reporter,
			TargetID:     entry.DID,
			TargetHandle: entry.Handle,
			Origin:       models.OriginManual,
			Reason:       entry.Reason,
			CreatedAt:    parseDateAdded(entry.DateAdded),
		})
		switch {
		case err == nil:
			added++
		case errors.Is(err, reconcile.ErrDuplicateKey), errors.Is(err, reconcile.ErrSelfBlock):
		default:
			return added, fmt.Errorf("importing %s: %w", entry.DID, err)
		}
	}
	logging.Info("Imported community list", map[string]interface{}{
		"entries": len(doc.BlockedAccounts),
		"added":   added,
	})
	return added, nil
}

// parseDateAdded accepts the date-only form Build writes and full RFC 3339
// timestamps. Anything else yields the zero time.
func parseDateAdded(s string) time.Time {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func ReadCommunityList(path string) (*CommunityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc CommunityList
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding community list %s: %w", path, err)
	}
	return &doc, nil
}
