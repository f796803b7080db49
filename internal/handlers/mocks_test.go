package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/bluesky"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

type mockAccountService struct {
	ConnectFunc  func(ctx context.Context, params models.ConnectAccountParams) (*models.Account, bool, error)
	GetByIDFunc  func(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByDIDFunc func(ctx context.Context, did string) (*models.Account, error)
}

func (m *mockAccountService) Connect(ctx context.Context, params models.ConnectAccountParams) (*models.Account, bool, error) {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, params)
	}
	return &models.Account{ID: uuid.New(), DID: params.DID, Handle: params.Handle}, true, nil
}

func (m *mockAccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, services.ErrAccountNotFound
}

func (m *mockAccountService) GetByDID(ctx context.Context, did string) (*models.Account, error) {
	if m.GetByDIDFunc != nil {
		return m.GetByDIDFunc(ctx, did)
	}
	return nil, services.ErrAccountNotFound
}

type mockSessionService struct {
	CreateSessionFunc   func(ctx context.Context, accountID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.Account, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
	deleted             []string
}

func (m *mockSessionService) CreateSession(ctx context.Context, accountID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, accountID)
	}
	return "session-token", nil
}

func (m *mockSessionService) ValidateSession(ctx context.Context, token string) (*models.Account, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockSessionService) DeleteSession(ctx context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockBlockService struct {
	AddFunc           func(ctx context.Context, owner models.Account, params services.AddBlockParams) (*services.AddBlockResult, error)
	RemoveFunc        func(ctx context.Context, ownerDID string, id uuid.UUID) error
	ListForOwnerFunc  func(ctx context.Context, ownerDID string) ([]models.BlockRecord, error)
	ListCommunityFunc func(ctx context.Context) ([]models.BlockRecord, error)
	OnboardFunc       func(ctx context.Context, account models.Account) (*models.PropagationReport, error)
	onboarded         int
}

func (m *mockBlockService) Add(ctx context.Context, owner models.Account, params services.AddBlockParams) (*services.AddBlockResult, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, owner, params)
	}
	return &services.AddBlockResult{}, nil
}

func (m *mockBlockService) Remove(ctx context.Context, ownerDID string, id uuid.UUID) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, ownerDID, id)
	}
	return nil
}

func (m *mockBlockService) ListForOwner(ctx context.Context, ownerDID string) ([]models.BlockRecord, error) {
	if m.ListForOwnerFunc != nil {
		return m.ListForOwnerFunc(ctx, ownerDID)
	}
	return []models.BlockRecord{}, nil
}

func (m *mockBlockService) ListCommunity(ctx context.Context) ([]models.BlockRecord, error) {
	if m.ListCommunityFunc != nil {
		return m.ListCommunityFunc(ctx)
	}
	return []models.BlockRecord{}, nil
}

func (m *mockBlockService) Onboard(ctx context.Context, account models.Account) (*models.PropagationReport, error) {
	m.onboarded++
	if m.OnboardFunc != nil {
		return m.OnboardFunc(ctx, account)
	}
	return &models.PropagationReport{}, nil
}

type mockSyncService struct {
	SyncFunc func(ctx context.Context, account models.Account) (*models.SyncSummary, error)
	LastFunc func(ctx context.Context, did string) (*models.SyncSummary, error)
}

func (m *mockSyncService) Sync(ctx context.Context, account models.Account) (*models.SyncSummary, error) {
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, account)
	}
	return &models.SyncSummary{OwnerID: account.DID}, nil
}

func (m *mockSyncService) Last(ctx context.Context, did string) (*models.SyncSummary, error) {
	if m.LastFunc != nil {
		return m.LastFunc(ctx, did)
	}
	return nil, services.ErrNeverSynced
}

type mockExportService struct {
	doc *services.CommunityList
	err error
}

func (m *mockExportService) Build(ctx context.Context, base map[string]any) (*services.CommunityList, error) {
	return m.doc, m.err
}

type mockVerifier struct {
	info *bluesky.SessionInfo
	err  error
}

func (m *mockVerifier) GetSession(ctx context.Context, accessToken string) (*bluesky.SessionInfo, error) {
	return m.info, m.err
}

func testAccount() *models.Account {
	return &models.Account{ID: uuid.New(), DID: "did:plc:tester", Handle: "tester.bsky.social"}
}
