package kids

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// Handler exposes kid profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/v1/kids.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	summaries, err := h.service.List(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summaries})
}

type kidDetail struct {
	Kid        store.Kid           `json:"kid"`
	Health     store.KidHealth     `json:"health"`
	Allergies  store.KidAllergies  `json:"allergies"`
	Activities store.KidActivities `json:"activities"`
	Departure  store.KidDeparture  `json:"departure"`
	Inclusion  store.KidInclusion  `json:"inclusion"`
}

// Get handles GET /api/v1/kids/{kidID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	kidID, err := uuid.Parse(chi.URLParam(r, "kidID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid kid id", nil)
		return
	}
	full, err := h.service.Get(r.Context(), accountID, kidID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": kidDetail{
		Kid:        full.Kid,
		Health:     full.Health,
		Allergies:  full.Allergies,
		Activities: full.Activities,
		Departure:  full.Departure,
		Inclusion:  full.Inclusion,
	}})
}

type photoRequest struct {
	ContentType string `json:"content_type"`
}

// PhotoUploadURL handles POST /api/v1/kids/{kidID}/photo-url.
func (h *Handler) PhotoUploadURL(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	kidID, err := uuid.Parse(chi.URLParam(r, "kidID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid kid id", nil)
		return
	}
	var req photoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	signed, err := h.service.PhotoUploadURL(r.Context(), accountID, kidID, req.ContentType)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": signed})
}
