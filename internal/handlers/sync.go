package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

type SyncHandler struct {
	syncs services.SyncServiceInterface
}

func NewSyncHandler(syncs services.SyncServiceInterface) *SyncHandler {
	return &SyncHandler{syncs: syncs}
}

// Sync reconciles the caller's Bluesky block list with the catalog. Push
// failures are reported inside the summary; only a failed sync is an error.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	account, err := requireAccount(w, r)
	if err != nil {
		return
	}

	summary, err := h.syncs.Sync(r.Context(), *account)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.Is(err, reconcile.ErrRemoteUnavailable):
		logging.Warn("Sync failed: remote unavailable", map[string]interface{}{"did": account.DID, "error": err.Error()})
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusBadGateway, "Bluesky is unavailable. Please try again later.")
	default:
		logging.Error("Sync failed", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *SyncHandler) Last(w http.ResponseWriter, r *http.Request) {
	account, err := requireAccount(w, r)
	if err != nil {
		return
	}

	summary, err := h.syncs.Last(r.Context(), account.DID)
	if errors.Is(err, services.ErrNeverSynced) {
		writeError(w, http.StatusNotFound, "No sync has run for this account")
		return
	}
	if err != nil {
		logging.Error("Error reading last sync", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
