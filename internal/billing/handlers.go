package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

const defaultPerPage = 20

// Handler exposes dashboard endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Overview handles GET /api/v1/dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	overview, err := h.service.Overview(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": overview})
}

// Registrations handles GET /api/v1/registrations.
func (h *Handler) Registrations(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.service.Registrations(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	rows, meta := common.Paginate(rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{"data": rows, "pagination": meta})
}

// Invoices handles GET /api/v1/invoices.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.service.Invoices(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, defaultPerPage)
	rows, meta := common.Paginate(rows, page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{"data": rows, "pagination": meta})
}

// Invoice handles GET /api/v1/invoices/{invoiceID}.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid invoice id", nil)
		return
	}
	detail, err := h.service.Invoice(r.Context(), accountID, invoiceID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}
