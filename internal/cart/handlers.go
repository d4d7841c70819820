package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
)

// Handler exposes cart endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type cartView struct {
	Items   []Item        `json:"items"`
	Reduced bool          `json:"reduced"`
	Total   pricing.Money `json:"total"`
	Count   int           `json:"count"`
}

func view(c Cart) cartView {
	return cartView{Items: c.Sorted(), Reduced: c.Reduced, Total: c.Total(), Count: c.Count()}
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view(c)})
}

type addRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	KidID     uuid.UUID `json:"kid_id"`
}

// Add handles POST /api/v1/cart/items.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	c, err := h.service.Add(r.Context(), accountID, req.SessionID, req.KidID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view(c)})
}

// Remove handles DELETE /api/v1/cart/items/{sessionID}/{kidID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid session id", nil)
		return
	}
	kidID, err := uuid.Parse(chi.URLParam(r, "kidID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid kid id", nil)
		return
	}
	c, err := h.service.Remove(r.Context(), accountID, sessionID, kidID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view(c)})
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.service.Clear(r.Context(), accountID); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type priceModeRequest struct {
	Reduced bool `json:"reduced"`
}

// SetPriceMode handles PUT /api/v1/cart/price-mode.
func (h *Handler) SetPriceMode(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req priceModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	c, err := h.service.SetPriceMode(r.Context(), accountID, req.Reduced)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view(c)})
}
