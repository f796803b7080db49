package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `id, did, handle, access_token, refresh_token, is_moderator, created_at`

// AccountService stores connected accounts and their remote credentials.
type AccountService struct {
	db     DB
	sealer *TokenSealer
}

func NewAccountService(db DB, sealer *TokenSealer) *AccountService {
	return &AccountService{db: db, sealer: sealer}
}

// Connect creates the account or refreshes its handle and tokens. created is
// true the first time a DID connects.
func (s *AccountService) Connect(ctx context.Context, params models.ConnectAccountParams) (account *models.Account, created bool, err error) {
	access, err := s.sealer.Seal(params.AccessToken)
	if err != nil {
		return nil, false, fmt.Errorf("sealing access token: %w", err)
	}
	refresh, err := s.sealer.Seal(params.RefreshToken)
	if err != nil {
		return nil, false, fmt.Errorf("sealing refresh token: %w", err)
	}

	account = &models.Account{}
	var sealedAccess, sealedRefresh string
	err = s.db.QueryRow(ctx,
		`INSERT INTO accounts (did, handle, access_token, refresh_token)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (did) DO UPDATE
		 SET handle = EXCLUDED.handle,
		     access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     updated_at = NOW()
		 RETURNING `+accountColumns+`, (xmax = 0) AS inserted`,
		params.DID, params.Handle, access, refresh,
	).Scan(&account.ID, &account.DID, &account.Handle, &sealedAccess, &sealedRefresh,
		&account.IsModerator, &account.CreatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("upserting account: %w", err)
	}
	account.AccessToken = params.AccessToken
	account.RefreshToken = params.RefreshToken
	return account, created, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *AccountService) GetByDID(ctx context.Context, did string) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE did = $1`, did)
}

// ListAccounts returns every connected account, oldest first.
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// UpdateTokens persists a refreshed token pair.
func (s *AccountService) UpdateTokens(ctx context.Context, did, accessToken, refreshToken string) error {
	access, err := s.sealer.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("sealing access token: %w", err)
	}
	refresh, err := s.sealer.Seal(refreshToken)
	if err != nil {
		return fmt.Errorf("sealing refresh token: %w", err)
	}

	result, err := s.db.Exec(ctx,
		`UPDATE accounts SET access_token = $2, refresh_token = $3, updated_at = NOW()
		 WHERE did = $1`,
		did, access, refresh,
	)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *AccountService) get(ctx context.Context, sql string, arg any) (*models.Account, error) {
	account, err := s.scan(s.db.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) scan(row Row) (*models.Account, error) {
	account := &models.Account{}
	var access, refresh string
	err := row.Scan(&account.ID, &account.DID, &account.Handle, &access, &refresh,
		&account.IsModerator, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	if account.AccessToken, err = s.sealer.Open(access); err != nil {
		return nil, fmt.Errorf("account %s: %w", account.DID, err)
	}
	if account.RefreshToken, err = s.sealer.Open(refresh); err != nil {
		return nil, fmt.Errorf("account %s: %w", account.DID, err)
	}
	return account, nil
}
