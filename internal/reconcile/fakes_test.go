package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// fakeSource serves fixed pages keyed by the cursor that requests them.
type fakeSource struct {
	mu        sync.Mutex
	pages     map[string]Page
	listErr   error
	createErr map[string]error
	created   []string
	listCalls int
}

func newFakeSource(entries []models.RemoteBlockEntry, pageSize int) *fakeSource {
	src := &fakeSource{pages: make(map[string]Page), createErr: make(map[string]error)}
	if len(entries) == 0 {
		src.pages[""] = Page{}
		return src
	}
	cursor := ""
	for i := 0; i < len(entries); i += pageSize {
		end := min(i+pageSize, len(entries))
		next := ""
		if end < len(entries) {
			next = fmt.Sprintf("page-%d", end)
		}
		src.pages[cursor] = Page{Entries: entries[i:end], Cursor: next}
		cursor = next
	}
	return src
}

func (s *fakeSource) ListBlocks(ctx context.Context, cursor string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return Page{}, s.listErr
	}
	page, ok := s.pages[cursor]
	if !ok {
		return Page{}, fmt.Errorf("unknown cursor %q", cursor)
	}
	return page, nil
}

func (s *fakeSource) CreateBlock(ctx context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createErr[targetID]; err != nil {
		return err
	}
	s.created = append(s.created, targetID)
	return nil
}

// remoteAfterPushes is the snapshot a real remote would return after the
// successful creates.
func (s *fakeSource) remoteAfterPushes(initial []models.RemoteBlockEntry) []models.RemoteBlockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.RemoteBlockEntry(nil), initial...)
	for _, target := range s.created {
		out = append(out, models.RemoteBlockEntry{TargetID: target})
	}
	return out
}

// fakeCatalog is an in-memory catalog enforcing (owner, target) uniqueness
// and the no-self-block check.
type fakeCatalog struct {
	mu        sync.Mutex
	records   []models.BlockRecord
	insertErr func(models.NewBlockRecordParams) error
	listErr   error
	inserts   int
}

func (c *fakeCatalog) FindByOwnerAndTarget(ctx context.Context, ownerID, targetID string) (*models.BlockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.records {
		if rec.OwnerID == ownerID && rec.TargetID == targetID {
			found := rec
			return &found, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (c *fakeCatalog) Insert(ctx context.Context, params models.NewBlockRecordParams) (*models.BlockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		if err := c.insertErr(params); err != nil {
			return nil, err
		}
	}
	if IsSelfBlock(params.OwnerID, params.TargetID) {
		return nil, ErrSelfBlock
	}
	for _, rec := range c.records {
		if rec.OwnerID == params.OwnerID && rec.TargetID == params.TargetID {
			return nil, ErrDuplicateKey
		}
	}
	rec := models.BlockRecord{
		ID:           uuid.New(),
		OwnerID:      params.OwnerID,
		TargetID:     params.TargetID,
		TargetHandle: params.TargetHandle,
		Origin:       params.Origin,
		Reason:       params.Reason,
		CreatedAt:    time.Now(),
	}
	c.records = append(c.records, rec)
	c.inserts++
	return &rec, nil
}

func (c *fakeCatalog) ListAll(ctx context.Context) ([]models.BlockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]models.BlockRecord(nil), c.records...), nil
}

func (c *fakeCatalog) ListByOwner(ctx context.Context, ownerID string) ([]models.BlockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.BlockRecord
	for _, rec := range c.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *fakeCatalog) seed(owner, target string, origin models.BlockOrigin) {
	c.records = append(c.records, models.BlockRecord{
		ID:        uuid.New(),
		OwnerID:   owner,
		TargetID:  target,
		Origin:    origin,
		Reason:    origin.DefaultReason(),
		CreatedAt: time.Now(),
	})
}

type fakeAccounts struct {
	accounts []models.Account
	err      error
}

func (a *fakeAccounts) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return a.accounts, a.err
}

type fakeFactory struct {
	mu      sync.Mutex
	sources map[string]*fakeSource
	openErr map[string]error
}

func (f *fakeFactory) ForAccount(ctx context.Context, account models.Account) (RemoteSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErr[account.DID]; err != nil {
		return nil, err
	}
	src, ok := f.sources[account.DID]
	if !ok {
		return nil, errors.New("no session")
	}
	return src, nil
}

func entries(targets ...string) []models.RemoteBlockEntry {
	out := make([]models.RemoteBlockEntry, len(targets))
	for i, t := range targets {
		out[i] = models.RemoteBlockEntry{TargetID: t, TargetHandle: t + ".test"}
	}
	return out
}

func account(did string) models.Account {
	return models.Account{ID: uuid.New(), DID: did, Handle: did + ".test"}
}

// cancelLimiter cancels the run while the caller waits for a slot.
type cancelLimiter struct {
	cancel context.CancelFunc
	takes  int
}

func (l *cancelLimiter) Take() time.Time {
	l.takes++
	l.cancel()
	return time.Now()
}
