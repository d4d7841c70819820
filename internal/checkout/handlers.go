package checkout

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type checkoutRequest struct {
	PayNow bool `json:"pay_now"`
}

// Checkout handles POST /api/v1/checkout. The route is wrapped with the
// idempotency middleware so a double-click cannot register twice.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req checkoutRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
			return
		}
	}
	result, err := h.service.Checkout(r.Context(), accountID, req.PayNow)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// ConfirmPayment handles POST /api/v1/invoices/{invoiceID}/confirm-payment,
// the landing call after the gateway redirects the parent back.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
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
	invoice, err := h.service.ConfirmPayment(r.Context(), accountID, invoiceID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": invoice})
}
