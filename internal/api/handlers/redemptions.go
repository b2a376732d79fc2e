package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zaryo/zaryo-backend/internal/api/httpx"
	"github.com/zaryo/zaryo-backend/internal/api/validate"
	"github.com/zaryo/zaryo-backend/internal/middleware"
	"github.com/zaryo/zaryo-backend/internal/models"
	"github.com/zaryo/zaryo-backend/internal/services"
)

type RedemptionsHandler struct {
	Redemptions *services.RedemptionService
}

func NewRedemptionsHandler(rs *services.RedemptionService) *RedemptionsHandler {
	return &RedemptionsHandler{Redemptions: rs}
}

func (h *RedemptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	var req struct {
		TokenCount    int64  `json:"token_count"`
		PaymentMethod string `json:"payment_method"`
		Destination   string `json:"destination"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	if err := validate.Collect(
		validate.MinInt("token_count", req.TokenCount, 1),
		validate.Required("payment_method", req.PaymentMethod),
		validate.Required("destination", req.Destination),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error(), err)
		return
	}
	created, err := h.Redemptions.Request(r.Context(), claims.UserID, req.TokenCount, req.PaymentMethod, req.Destination)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *RedemptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	req, err := h.Redemptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.UserID != claims.UserID && claims.Role != "admin" {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not your redemption request", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *RedemptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	status := models.RedemptionStatus(r.URL.Query().Get("status"))
	reqs, err := h.Redemptions.List(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reqs)
}

type adminActionRequest struct {
	Notes string `json:"notes"`
}

func (h *RedemptionsHandler) adminAction(w http.ResponseWriter, r *http.Request,
	act func(r *http.Request, id, notes string) (models.RedemptionRequest, error)) {
	id := chi.URLParam(r, "id")
	var req adminActionRequest
	_ = httpx.Decode(r, &req) // notes are optional; an empty body is fine

	updated, err := act(r, id, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *RedemptionsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(r *http.Request, id, notes string) (models.RedemptionRequest, error) {
		return h.Redemptions.Approve(r.Context(), id, notes)
	})
}

func (h *RedemptionsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(r *http.Request, id, notes string) (models.RedemptionRequest, error) {
		return h.Redemptions.Reject(r.Context(), id, notes)
	})
}

func (h *RedemptionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(r *http.Request, id, notes string) (models.RedemptionRequest, error) {
		return h.Redemptions.Complete(r.Context(), id, notes)
	})
}
