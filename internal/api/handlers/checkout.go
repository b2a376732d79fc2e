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

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

func NewCheckoutHandler(cs *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Checkout: cs}
}

type checkoutResponse struct {
	Success    bool   `json:"success"`
	PurchaseID string `json:"purchase_id"`
	TokensPaid int64  `json:"tokens_paid"`
}

func (h *CheckoutHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	var req struct {
		ItemID   string `json:"item_id"`
		BuyerID  string `json:"buyer_id,omitempty"`
		Quantity int    `json:"quantity"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	if err := validate.Collect(
		validate.Required("item_id", req.ItemID),
		validate.MinInt("quantity", int64(req.Quantity), 1),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error(), err)
		return
	}
	// The buyer is always the authenticated user; a stated buyer_id may only
	// confirm it.
	if req.BuyerID != "" && req.BuyerID != claims.UserID {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "cannot buy on behalf of another user", nil)
		return
	}

	order, err := h.Checkout.Purchase(r.Context(), claims.UserID, req.ItemID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, checkoutResponse{
		Success:    true,
		PurchaseID: order.ID,
		TokensPaid: order.TotalCost,
	})
}

func (h *CheckoutHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	var req struct {
		Title string `json:"title"`
		Price int64  `json:"price"`
		Stock int    `json:"stock"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	p, err := h.Checkout.CreateProduct(r.Context(), models.Product{
		SellerID: claims.UserID,
		Title:    req.Title,
		Price:    req.Price,
		Stock:    req.Stock,
	})
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *CheckoutHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Checkout.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Checkout.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}
