package http

import (
	"net/http"

	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/service"

	"github.com/gorilla/mux"
)

// Services holds the service dependencies of the HTTP API
type Services struct {
	BonusMalus    service.BonusMalusService
	Risk          service.RiskCalculatorService
	Snapshots     service.RiskSnapshotService
	Checkout      service.CheckoutService
	Fx            service.FxService
	Notifications service.NotificationService
}

// Handler serves the JSON API
type Handler struct {
	bonusMalus    service.BonusMalusService
	risk          service.RiskCalculatorService
	snapshots     service.RiskSnapshotService
	checkout      service.CheckoutService
	fx            service.FxService
	notifications service.NotificationService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		bonusMalus:    s.BonusMalus,
		risk:          s.Risk,
		snapshots:     s.Snapshots,
		checkout:      s.Checkout,
		fx:            s.Fx,
		notifications: s.Notifications,
	}
}

// NewRouter registers every route plus /metrics and /healthz.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Bonus-malus
	api.HandleFunc("/users/{userID}/bonus-malus", h.GetBonusMalus).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/bonus-malus/tips", h.GetImprovementTips).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/notifications", h.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/bonus-malus/classify", h.ClassifyFactor).Methods(http.MethodPost)
	api.HandleFunc("/bonus-malus/impact", h.MonetaryImpact).Methods(http.MethodPost)
	api.HandleFunc("/bonus-malus/stats", h.BonusMalusStats).Methods(http.MethodGet)

	// Risk
	api.HandleFunc("/risk/calculate", h.CalculateRisk).Methods(http.MethodPost)
	api.HandleFunc("/risk/deposit", h.CalculateDeposit).Methods(http.MethodPost)
	api.HandleFunc("/risk/snapshots", h.CalculateSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/risk/snapshots/validate", h.ValidateSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/risk-snapshot", h.CreateBookingSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/risk-snapshot", h.GetBookingSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingID}/risk-snapshot/coverage", h.ChangeBookingCoverage).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/risk-snapshot/fx-revalidation", h.RevalidateBookingFx).Methods(http.MethodPost)

	// Checkout and FX
	api.HandleFunc("/checkout/quote", h.CheckoutQuote).Methods(http.MethodPost)
	api.HandleFunc("/checkout/affordability", h.CheckAffordability).Methods(http.MethodPost)
	api.HandleFunc("/fx/{from}/{to}", h.GetFxSnapshot).Methods(http.MethodGet)

	return r
}
