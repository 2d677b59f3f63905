package http

import (
	"net/http"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/pricing"

	"github.com/gorilla/mux"
)

type calculateRiskRequest struct {
	VehicleValueUsd float64            `json:"vehicle_value_usd"`
	FxRate          float64            `json:"fx_rate"`
	HasCard         bool               `json:"has_card"`
	UserID          string             `json:"user_id"`
	CoverageUpgrade string             `json:"coverage_upgrade"`
	Existing        *domain.FxSnapshot `json:"existing_fx_snapshot"`
}

type depositRequest struct {
	TotalCents   int64   `json:"total_cents"`
	Method       string  `json:"method"`
	GuaranteeUsd float64 `json:"guarantee_usd"`
}

type depositResponse struct {
	Method       domain.PaymentMethod `json:"method"`
	DepositCents int64                `json:"deposit_cents"`
}

type snapshotResponse struct {
	Snapshot   *domain.RiskSnapshot    `json:"snapshot"`
	Validation domain.ValidationResult `json:"validation"`
}

type bookingSnapshotRequest struct {
	domain.RiskSnapshotParams
	PaymentMethod string `json:"payment_method"`
}

type coverageChangeRequest struct {
	CoverageUpgrade string `json:"coverage_upgrade"`
	PaymentMethod   string `json:"payment_method"`
}

type fxRevalidationRequest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentMethod string `json:"payment_method"`
}

type fxRevalidationResponse struct {
	Snapshot   *domain.RiskSnapshot    `json:"snapshot"`
	Fx         *domain.FxSnapshot      `json:"fx"`
	Repriced   bool                    `json:"repriced"`
	Validation domain.ValidationResult `json:"validation"`
}

func (h *Handler) CalculateRisk(w http.ResponseWriter, r *http.Request) {
	var req calculateRiskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	calc, err := h.risk.CalculateRisk(r.Context(), domain.RiskInput{
		VehicleValueUsd: req.VehicleValueUsd,
		FxRate:          req.FxRate,
		HasCard:         req.HasCard,
		UserID:          req.UserID,
		Existing:        req.Existing,
		Coverage:        pricing.ParseCoverageUpgrade(req.CoverageUpgrade),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calculation":     calc,
		"guarantee_copy":  pricing.GuaranteeCopyFor(calc),
		"franchise_table": pricing.FranchiseTableFor(calc),
	})
}

func (h *Handler) CalculateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := pricing.ParsePaymentMethod(req.Method)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.TotalCents < 0 || req.GuaranteeUsd < 0 {
		writeError(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}

	writeJSON(w, http.StatusOK, depositResponse{
		Method:       method,
		DepositCents: pricing.CalculateDepositCents(req.TotalCents, method, req.GuaranteeUsd),
	})
}

// CalculateSnapshot computes a snapshot without persisting it.
func (h *Handler) CalculateSnapshot(w http.ResponseWriter, r *http.Request) {
	var params domain.RiskSnapshotParams
	if !decodeJSON(w, r, &params) {
		return
	}

	snap, err := h.snapshots.CalculateRiskSnapshot(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, Validation: h.snapshots.Validate(snap)})
}

func (h *Handler) ValidateSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap domain.RiskSnapshot
	if !decodeJSON(w, r, &snap) {
		return
	}
	writeJSON(w, http.StatusOK, h.snapshots.Validate(&snap))
}

// CreateBookingSnapshot calculates and stores the booking's snapshot for the chosen
// payment method. Violations are reported next to the stored snapshot; storage does
// not depend on them.
func (h *Handler) CreateBookingSnapshot(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingID"]

	var req bookingSnapshotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := pricing.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	snap, err := h.snapshots.CalculateRiskSnapshot(r.Context(), req.RiskSnapshotParams)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.persistSnapshot(w, r, bookingID, snap, method)
}

// ChangeBookingCoverage stores a new snapshot of the booking priced with another
// coverage upgrade. The previous snapshot stays in the store.
func (h *Handler) ChangeBookingCoverage(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingID"]

	var req coverageChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prev := h.snapshots.GetByBookingID(r.Context(), bookingID)
	if prev == nil {
		writeError(w, http.StatusNotFound, "no risk snapshot for booking")
		return
	}
	method, err := bookingPaymentMethod(req.PaymentMethod, prev)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	next, err := h.snapshots.RecalculateWithUpgrade(r.Context(), prev, pricing.ParseCoverageUpgrade(req.CoverageUpgrade))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.persistSnapshot(w, r, bookingID, next, method)
}

// RevalidateBookingFx checks the rate frozen in the booking's snapshot against the
// market. An expired or drifted rate reprices the booking into a new snapshot.
func (h *Handler) RevalidateBookingFx(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingID"]

	var req fxRevalidationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.From == "" {
		req.From = "USD"
	}
	if req.To == "" {
		req.To = "ARS"
	}

	prev := h.snapshots.GetByBookingID(r.Context(), bookingID)
	if prev == nil {
		writeError(w, http.StatusNotFound, "no risk snapshot for booking")
		return
	}
	method, err := bookingPaymentMethod(req.PaymentMethod, prev)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	agreed, err := h.fx.Freeze(req.From, req.To, prev.FxRate, prev.CalculatedAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	current, replaced, err := h.fx.Revalidate(r.Context(), agreed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !replaced {
		writeJSON(w, http.StatusOK, fxRevalidationResponse{Snapshot: prev, Fx: current, Validation: h.snapshots.Validate(prev)})
		return
	}

	next, err := h.snapshots.RecalculateWithNewFxRate(r.Context(), prev, current.Rate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.snapshots.Persist(r.Context(), bookingID, next, method); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fxRevalidationResponse{Snapshot: next, Fx: current, Repriced: true, Validation: h.snapshots.Validate(next)})
}

func (h *Handler) persistSnapshot(w http.ResponseWriter, r *http.Request, bookingID string, snap *domain.RiskSnapshot, method domain.PaymentMethod) {
	if err := h.snapshots.Persist(r.Context(), bookingID, snap, method); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotResponse{Snapshot: snap, Validation: h.snapshots.Validate(snap)})
}

// bookingPaymentMethod is the method named in the request, or the one implied by
// the guarantee path of the stored snapshot.
func bookingPaymentMethod(raw string, prev *domain.RiskSnapshot) (domain.PaymentMethod, error) {
	if raw != "" {
		return pricing.ParsePaymentMethod(raw)
	}
	if prev.GuaranteeType == domain.GuaranteeTypeHold {
		return domain.PaymentMethodCreditCard, nil
	}
	return domain.PaymentMethodWallet, nil
}

func (h *Handler) GetBookingSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.GetByBookingID(r.Context(), mux.Vars(r)["bookingID"])
	if snap == nil {
		writeError(w, http.StatusNotFound, "no risk snapshot for booking")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
