package http

import (
	"net/http"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/pricing"

	"github.com/gorilla/mux"
)

type checkoutQuoteRequest struct {
	domain.CheckoutRequest
	BasePrice float64 `json:"base_price"`
}

func (h *Handler) CheckoutQuote(w http.ResponseWriter, r *http.Request) {
	var req checkoutQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.checkout.Quote(r.Context(), req.CheckoutRequest, req.BasePrice)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type affordabilityRequest struct {
	UserID        string `json:"user_id"`
	RequiredCents int64  `json:"required_cents"`
	Method        string `json:"method"`
}

type affordabilityResponse struct {
	Method     domain.PaymentMethod `json:"method"`
	Affordable bool                 `json:"affordable"`
}

// CheckAffordability reports whether the renter's wallet covers an amount for a
// payment method. Card payments are always affordable.
func (h *Handler) CheckAffordability(w http.ResponseWriter, r *http.Request) {
	var req affordabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := pricing.ParsePaymentMethod(req.Method)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.RequiredCents < 0 {
		writeError(w, http.StatusBadRequest, "required_cents must not be negative")
		return
	}

	writeJSON(w, http.StatusOK, affordabilityResponse{
		Method:     method,
		Affordable: h.checkout.CanAfford(r.Context(), req.UserID, req.RequiredCents, method),
	})
}

func (h *Handler) GetFxSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := h.fx.CurrentSnapshot(r.Context(), vars["from"], vars["to"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
