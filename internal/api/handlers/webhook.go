package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/zaryo/zaryo-backend/internal/api/httpx"
	"github.com/zaryo/zaryo-backend/internal/services"
)

const maxWebhookBody = 1 << 20 // 1 MB

// WebhookHandler receives payment-gateway events and turns cleared payments
// into token issuance. Deliveries are idempotent per event id: the gateway
// may replay an event any number of times and the user is credited once.
type WebhookHandler struct {
	Ledger          *services.LedgerService
	Secret          string
	TokensPerDollar int64
	Log             *slog.Logger
}

func NewWebhookHandler(ls *services.LedgerService, secret string, tokensPerDollar int64, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		Ledger:          ls,
		Secret:          secret,
		TokensPerDollar: tokensPerDollar,
		Log:             log.With("component", "payment_webhook"),
	}
}

type paymentEvent struct {
	EventID     string `json:"event_id"`
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cannot read body", nil)
		return
	}

	if !h.verifySignature(raw, r.Header.Get("X-Payment-Signature")) {
		h.Log.Warn("webhook signature verification failed")
		httpx.WriteError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed", nil)
		return
	}

	var ev paymentEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.EventID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed event", nil)
		return
	}

	if ev.Type != "payment.succeeded" {
		// Acknowledge unhandled event types so the gateway stops retrying.
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	tokens := ev.AmountCents * h.TokensPerDollar / 100
	if tokens <= 0 || ev.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid payment amount or user", nil)
		return
	}

	tx, err := h.Ledger.CreditIssuance(r.Context(), ev.UserID, tokens, "payment:"+ev.EventID, "issuance:"+ev.EventID)
	if err != nil {
		h.Log.Error("issuance failed", "event", ev.EventID, "err", err)
		writeDomainError(w, err)
		return
	}

	h.Log.Info("payment credited", "event", ev.EventID, "user", ev.UserID, "tokens", tokens)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "credited",
		"transaction_id": tx.ID,
		"tokens":         tokens,
	})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.Secret == "" {
		// No secret configured (local dev): accept unsigned deliveries.
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}
