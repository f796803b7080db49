package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

type BlockHandler struct {
	blocks   services.BlockServiceInterface
	exporter services.ExportServiceInterface
}

func NewBlockHandler(blocks services.BlockServiceInterface, exporter services.ExportServiceInterface) *BlockHandler {
	return &BlockHandler{blocks: blocks, exporter: exporter}
}

type AddBlockRequest struct {
	DID    string `json:"did" validate:"required,did"`
	Handle string `json:"handle" validate:"max=253"`
	Reason string `json:"reason" validate:"max=500"`
}

type BlockListResponse struct {
	Blocks  []models.BlockRecord `json:"blocks"`
	Message string               `json:"message,omitempty"`
}

func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	account, err := requireAccount(w, r)
	if err != nil {
		return
	}

	blocks, err := h.blocks.ListForOwner(r.Context(), account.DID)
	if err != nil {
		logging.Error("Error listing blocks", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Blocks: blocks})
}

func (h *BlockHandler) Community(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAccount(w, r); err != nil {
		return
	}

	blocks, err := h.blocks.ListCommunity(r.Context())
	if err != nil {
		logging.Error("Error listing community blocks", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Blocks: blocks})
}

func (h *BlockHandler) Add(w http.ResponseWriter, r *http.Request) {
	account, err := requireAccount(w, r)
	if err != nil {
		return
	}

	var req AddBlockRequest
	if msg, ok := decodeAndValidate(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.blocks.Add(r.Context(), *account, services.AddBlockParams{
		TargetID:     req.DID,
		TargetHandle: req.Handle,
		Reason:       req.Reason,
	})
	if errors.Is(err, services.ErrCannotBlockSelf) {
		writeError(w, http.StatusBadRequest, "Cannot block yourself")
		return
	}
	if errors.Is(err, services.ErrBlockExists) {
		writeError(w, http.StatusConflict, "Account already blocked")
		return
	}
	if err != nil {
		logging.Error("Error adding block", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *BlockHandler) Remove(w http.ResponseWriter, r *http.Request) {
	account, err := requireAccount(w, r)
	if err != nil {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid block ID")
		return
	}

	err = h.blocks.Remove(r.Context(), account.DID, id)
	if errors.Is(err, services.ErrBlockNotFound) {
		writeError(w, http.StatusNotFound, "Block not found")
		return
	}
	if err != nil {
		logging.Error("Error removing block", map[string]interface{}{"did": account.DID, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, BlockListResponse{Message: "Block removed"})
}

// Export renders the community list document.
func (h *BlockHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.exporter.Build(r.Context(), nil)
	if err != nil {
		logging.Error("Error exporting community list", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
