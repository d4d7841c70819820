package account

import (
	"encoding/json"
	"net/http"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// Handler exposes profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /api/v1/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	profile, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

// Update handles PUT /api/v1/profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var input ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	profile, err := h.service.Update(r.Context(), accountID, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}
