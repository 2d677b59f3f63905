package http

import (
	"net/http"
	"strconv"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/pricing"

	"github.com/gorilla/mux"
)

type bonusMalusResponse struct {
	UserID              string                   `json:"user_id"`
	Factor              float64                  `json:"factor"`
	Display             domain.BonusMalusDisplay `json:"display"`
	Tier                domain.UserTier          `json:"tier"`
	RiskLevel           domain.RiskLevel         `json:"risk_level"`
	NextRecalculationAt time.Time                `json:"next_recalculation_at"`
}

type classifyRequest struct {
	Factor float64 `json:"factor"`
}

type classifyResponse struct {
	Display   domain.BonusMalusDisplay `json:"display"`
	RiskLevel domain.RiskLevel         `json:"risk_level"`
}

type impactRequest struct {
	BasePrice float64 `json:"base_price"`
	Factor    float64 `json:"factor"`
}

// GetBonusMalus returns the renter's current factor, computing it when stale.
func (h *Handler) GetBonusMalus(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	f := h.bonusMalus.GetOrCompute(r.Context(), userID)
	if f == nil {
		writeError(w, http.StatusNotFound, "no bonus-malus data for user")
		return
	}

	writeJSON(w, http.StatusOK, bonusMalusResponse{
		UserID:              f.UserID,
		Factor:              f.TotalFactor,
		Display:             pricing.ClassifyFactor(f.TotalFactor),
		Tier:                pricing.TierFor(f.TotalFactor, f.Metrics.IsVerified),
		RiskLevel:           pricing.RiskLevelFor(f.TotalFactor),
		NextRecalculationAt: f.NextRecalculationAt,
	})
}

func (h *Handler) GetImprovementTips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.bonusMalus.ImprovementTips(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tips": tips})
}

func (h *Handler) ClassifyFactor(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{
		Display:   pricing.ClassifyFactor(req.Factor),
		RiskLevel: pricing.RiskLevelFor(req.Factor),
	})
}

func (h *Handler) MonetaryImpact(w http.ResponseWriter, r *http.Request) {
	var req impactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BasePrice < 0 {
		writeError(w, http.StatusBadRequest, "base_price must not be negative")
		return
	}
	writeJSON(w, http.StatusOK, pricing.CalculateMonetaryImpact(req.BasePrice, req.Factor))
}

func (h *Handler) BonusMalusStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bonusMalus.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListNotifications pages through a user's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)

	items, total, err := h.notifications.GetNotifications(r.Context(), mux.Vars(r)["userID"], page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         total,
		"page":          page,
	})
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 32)
	if err != nil || v <= 0 {
		return def
	}
	return int32(v)
}
