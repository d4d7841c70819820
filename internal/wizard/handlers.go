package wizard

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// Handler exposes the intake flow endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type draftView struct {
	Draft Draft `json:"draft"`
	Next  Step  `json:"next_step"`
	Done  bool  `json:"done"`
}

func viewOf(d Draft) draftView {
	return draftView{Draft: d, Next: d.NextStep(), Done: d.State.Done()}
}

type startRequest struct {
	KidID *uuid.UUID `json:"kid_id,omitempty"`
}

// Start handles POST /api/v1/intake.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req startRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
			return
		}
	}
	draft, err := h.service.Start(r.Context(), accountID, req.KidID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewOf(draft)})
}

// Get handles GET /api/v1/intake.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	draft, err := h.service.GetDraft(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(draft)})
}

// SubmitStep handles PUT /api/v1/intake/steps/{step}.
func (h *Handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	step := Step(chi.URLParam(r, "step"))
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	draft, err := h.service.SubmitStep(r.Context(), accountID, step, raw)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(draft)})
}

// Submit handles POST /api/v1/intake/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	kidID, err := h.service.Submit(r.Context(), accountID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"kid_id": kidID}})
}

// Abandon handles DELETE /api/v1/intake.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	accountID, err := common.AccountUUID(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.service.Abandon(r.Context(), accountID); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
