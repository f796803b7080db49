package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

const (
	sessionDuration  = 30 * 24 * time.Hour // 30 days
	sessionKeyPrefix = "session:"
)

var ErrSessionNotFound = errors.New("session not found")

type accountGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// SessionService issues opaque session tokens. Only the SHA-256 of a token is
// stored, keyed in Redis with a sliding expiry.
type SessionService struct {
	cache    Cache
	accounts accountGetter
}

func NewSessionService(cache Cache, accounts accountGetter) *SessionService {
	return &SessionService{cache: cache, accounts: accounts}
}

func (s *SessionService) GenerateSessionToken() (token string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generating random bytes: %w", err)
	}
	token = hex.EncodeToString(bytes)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *SessionService) CreateSession(ctx context.Context, accountID uuid.UUID) (string, error) {
	token, tokenHash, err := s.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+tokenHash, accountID.String(), sessionDuration); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	key := sessionKeyPrefix + hashToken(token)
	value, err := s.cache.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	// Sliding expiry; a failure here only shortens the session.
	_ = s.cache.Expire(ctx, key, sessionDuration)

	accountID, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("parsing account id: %w", err)
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		_ = s.cache.Del(ctx, key)
		return nil, ErrSessionNotFound
	}
	return account, err
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if err := s.cache.Del(ctx, sessionKeyPrefix+hashToken(token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
