package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HammerMeetNail/blockshield/internal/bluesky"
	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

const (
	sessionCookieName = "session_token"
	cookieMaxAge      = 30 * 24 * 60 * 60 // 30 days in seconds
)

// SessionVerifier resolves the account an access token belongs to.
type SessionVerifier interface {
	GetSession(ctx context.Context, accessToken string) (*bluesky.SessionInfo, error)
}

type AuthHandler struct {
	accounts services.AccountServiceInterface
	sessions services.SessionServiceInterface
	blocks   services.BlockServiceInterface
	verifier SessionVerifier
	secure   bool // Use secure cookies (HTTPS only)
}

func NewAuthHandler(accounts services.AccountServiceInterface, sessions services.SessionServiceInterface, blocks services.BlockServiceInterface, verifier SessionVerifier, secure bool) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		blocks:   blocks,
		verifier: verifier,
		secure:   secure,
	}
}

type ConnectRequest struct {
	DID        string `json:"did" validate:"required,did"`
	Handle     string `json:"handle" validate:"required,max=253"`
	AccessJwt  string `json:"access_jwt" validate:"required"`
	RefreshJwt string `json:"refresh_jwt"`
}

type AuthResponse struct {
	Account *models.Account           `json:"account,omitempty"`
	Created bool                      `json:"created,omitempty"`
	Applied *models.PropagationReport `json:"applied,omitempty"`
	Token   string                    `json:"token,omitempty"`
	Message string                    `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Connect registers (or reconnects) a Bluesky account and opens a session.
// A first connection applies the existing community blocks to the account.
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if h.verifier != nil {
		info, err := h.verifier.GetSession(r.Context(), req.AccessJwt)
		if err != nil {
			logging.Warn("Bluesky session verification failed", map[string]interface{}{
				"did":   req.DID,
				"error": err.Error(),
			})
			writeError(w, http.StatusUnauthorized, "Bluesky session could not be verified")
			return
		}
		if info.DID != req.DID {
			writeError(w, http.StatusForbidden, "Access token does not belong to this account")
			return
		}
	}

	account, created, err := h.accounts.Connect(r.Context(), models.ConnectAccountParams{
		DID:          req.DID,
		Handle:       req.Handle,
		AccessToken:  req.AccessJwt,
		RefreshToken: req.RefreshJwt,
	})
	if err != nil {
		logging.Error("Error connecting account", map[string]interface{}{"did": req.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := AuthResponse{Account: account, Created: created}
	if created {
		report, err := h.blocks.Onboard(r.Context(), *account)
		if err != nil {
			logging.Warn("Applying community blocks on connect failed", map[string]interface{}{
				"did":   account.DID,
				"error": err.Error(),
			})
		}
		resp.Applied = report
	}

	token, err := h.sessions.CreateSession(r.Context(), account.ID)
	if err != nil {
		logging.Error("Error creating session", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookie(w, token)
	resp.Token = token
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := SessionTokenFromRequest(r); token != "" {
		_ = h.sessions.DeleteSession(r.Context(), token)
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, AuthResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Account: account})
}

// SessionTokenFromRequest reads the session token from the cookie or an
// Authorization bearer header.
func SessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

var errNotAuthenticated = errors.New("not authenticated")

// requireAccount writes a 401 and returns errNotAuthenticated when the
// request carries no account.
func requireAccount(w http.ResponseWriter, r *http.Request) (*models.Account, error) {
	account := GetAccountFromContext(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, errNotAuthenticated
	}
	return account, nil
}
