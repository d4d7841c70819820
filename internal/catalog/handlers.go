package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// Handler exposes session listing endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Sessions handles GET /api/v1/sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items, err := h.service.ListSessions(r.Context(), accountID, params)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// SessionDetail handles GET /api/v1/sessions/{sessionID}.
func (h *Handler) SessionDetail(w http.ResponseWriter, r *http.Request) {
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
	var kidID uuid.UUID
	if raw := r.URL.Query().Get("kid"); raw != "" {
		kidID, err = uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid kid id", nil)
			return
		}
	}
	reduced := r.URL.Query().Get("reduced") == "true"
	item, err := h.service.GetSessionDetail(r.Context(), accountID, sessionID, kidID, reduced)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// Centers handles GET /api/v1/centers.
func (h *Handler) Centers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListCenters(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Schools handles GET /api/v1/schools.
func (h *Handler) Schools(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListSchools(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
