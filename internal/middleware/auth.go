package middleware

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/blockshield/internal/handlers"
	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

type AuthMiddleware struct {
	sessions services.SessionServiceInterface
}

func NewAuthMiddleware(sessions services.SessionServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate resolves the session from the cookie or bearer header and
// puts the account in the request context. Unauthenticated requests pass
// through unchanged.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := handlers.SessionTokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		account, err := m.sessions.ValidateSession(r.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logging.Warn("Session validation failed", map[string]interface{}{"error": err.Error()})
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := handlers.SetAccountInContext(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetAccountFromContext(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
