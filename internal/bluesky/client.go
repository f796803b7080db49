package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/HammerMeetNail/blockshield/internal/config"
	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

const (
	methodGetBlocks      = "app.bsky.graph.getBlocks"
	methodCreateRecord   = "com.atproto.repo.createRecord"
	methodRefreshSession = "com.atproto.server.refreshSession"
	methodGetSession     = "com.atproto.server.getSession"

	blockCollection = "app.bsky.graph.block"
	userAgent       = "blockshield"
)

// TokenStore persists a refreshed token pair for an account.
type TokenStore interface {
	UpdateTokens(ctx context.Context, did, accessToken, refreshToken string) error
}

// Client talks XRPC to a Bluesky PDS. It holds no credentials itself; each
// account gets its own Session.
type Client struct {
	host   string
	http   *http.Client
	tokens TokenStore
	now    func() time.Time
}

var _ reconcile.SourceFactory = (*Client)(nil)

func NewClient(cfg config.BlueskyConfig, tokens TokenStore) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:   cfg.ServiceURL,
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
		now:    time.Now,
	}
}

// xrpcClient builds a short-lived indigo client carrying one bearer token.
func (c *Client) xrpcClient(did, token string) *xrpc.Client {
	ua := userAgent
	xc := &xrpc.Client{
		Client:    c.http,
		Host:      c.host,
		UserAgent: &ua,
	}
	if token != "" {
		xc.Auth = &xrpc.AuthInfo{AccessJwt: token, Did: did}
	}
	return xc
}

// SessionInfo identifies the account an access token belongs to.
type SessionInfo struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

// GetSession resolves which account accessToken was issued for.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*SessionInfo, error) {
	out, err := atproto.ServerGetSession(ctx, c.xrpcClient("", accessToken))
	if err != nil {
		return nil, wrapCallError(methodGetSession, err)
	}
	return &SessionInfo{DID: out.Did, Handle: out.Handle}, nil
}

// ForAccount returns a source bound to account's credentials.
func (c *Client) ForAccount(ctx context.Context, account models.Account) (reconcile.RemoteSource, error) {
	return c.Session(account)
}

func (c *Client) Session(account models.Account) (*Session, error) {
	if account.AccessToken == "" && account.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCredentials, account.DID)
	}
	return &Session{
		client:  c,
		did:     account.DID,
		access:  account.AccessToken,
		refresh: account.RefreshToken,
	}, nil
}

// Session is one account's authenticated view of the PDS.
type Session struct {
	client *Client
	did    string

	mu      sync.Mutex
	access  string
	refresh string
}

func (s *Session) ListBlocks(ctx context.Context, cursor string) (reconcile.Page, error) {
	var out *bsky.GraphGetBlocks_Output
	err := s.do(ctx, methodGetBlocks, func(xc *xrpc.Client) error {
		var err error
		out, err = bsky.GraphGetBlocks(ctx, xc, cursor, reconcile.PageSize)
		return err
	})
	if err != nil {
		return reconcile.Page{}, err
	}

	var page reconcile.Page
	if out.Cursor != nil {
		page.Cursor = *out.Cursor
	}
	for _, b := range out.Blocks {
		if b == nil {
			continue
		}
		page.Entries = append(page.Entries, models.RemoteBlockEntry{TargetID: b.Did, TargetHandle: b.Handle})
	}
	return page, nil
}

func (s *Session) CreateBlock(ctx context.Context, targetID string) error {
	input := &atproto.RepoCreateRecord_Input{
		Repo:       s.did,
		Collection: blockCollection,
		Record: &lexutil.LexiconTypeDecoder{Val: &bsky.GraphBlock{
			Subject:   targetID,
			CreatedAt: s.client.now().UTC().Format(time.RFC3339Nano),
		}},
	}
	return s.do(ctx, methodCreateRecord, func(xc *xrpc.Client) error {
		_, err := atproto.RepoCreateRecord(ctx, xc, input)
		return err
	})
}

// do runs call with the current access token, refreshing the session once
// when the token has expired.
func (s *Session) do(ctx context.Context, method string, call func(xc *xrpc.Client) error) error {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()

	err := call(s.client.xrpcClient(s.did, access))
	if err == nil {
		return nil
	}
	if !expiredToken(err) {
		return wrapCallError(method, err)
	}

	if err := s.refreshTokens(ctx, access); err != nil {
		return err
	}
	s.mu.Lock()
	access = s.access
	s.mu.Unlock()
	if err := call(s.client.xrpcClient(s.did, access)); err != nil {
		return wrapCallError(method, err)
	}
	return nil
}

func (s *Session) refreshTokens(ctx context.Context, stale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access != stale {
		// Another call already refreshed.
		return nil
	}
	if s.refresh == "" {
		return fmt.Errorf("%w: no refresh token for %s", ErrUnauthorized, s.did)
	}

	// refreshSession authenticates with the refresh token as the bearer.
	xc := s.client.xrpcClient(s.did, s.refresh)
	xc.Auth.RefreshJwt = s.refresh
	out, err := atproto.ServerRefreshSession(ctx, xc)
	if err != nil {
		return fmt.Errorf("%w: refresh session for %s: %w", ErrUnauthorized, s.did, wrapCallError(methodRefreshSession, err))
	}
	s.access, s.refresh = out.AccessJwt, out.RefreshJwt

	if s.client.tokens != nil {
		if err := s.client.tokens.UpdateTokens(ctx, s.did, s.access, s.refresh); err != nil {
			logging.Warn("Failed to persist refreshed bluesky tokens", map[string]interface{}{
				"did":   s.did,
				"error": err.Error(),
			})
		}
	}
	logging.Debug("Refreshed bluesky session", map[string]interface{}{"did": s.did})
	return nil
}
