// Package metrics provides Prometheus instrumentation for the risk backend.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vehicle_risk"

var (
	// HTTPRequestsTotal counts API requests by method, route template and status bucket.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code bucket.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BonusMalusComputations counts factor computations by result.
	BonusMalusComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bonus_malus",
			Name:      "computations_total",
			Help:      "Bonus-malus computations by result.",
		},
		[]string{"result"}, // "computed", "cached", "no_metrics", "store_failed"
	)

	BonusMalusTypeChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bonus_malus",
		Name:      "type_changes_total",
		Help:      "Recomputations that moved a user between BONUS, NEUTRAL and MALUS.",
	})

	// RiskCalculations counts calculator runs by guarantee type.
	RiskCalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "calculations_total",
			Help:      "Risk calculations by guarantee type.",
		},
		[]string{"guarantee_type"},
	)

	DriverProfileFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "driver_profile_fallbacks_total",
		Help:      "Calculations that used the neutral multiplier because the driver profile lookup failed.",
	})

	SnapshotValidationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "snapshot_validation_failures_total",
		Help:      "Risk snapshots that failed integrity validation.",
	})

	// FxRevalidations counts revalidation checks by outcome.
	FxRevalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "revalidations_total",
			Help:      "FX snapshot revalidation checks by outcome.",
		},
		[]string{"outcome"}, // "kept", "replaced"
	)

	FxSourceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "source_requests_total",
			Help:      "Rate source lookups by origin.",
		},
		[]string{"origin"}, // "cache", "upstream", "error"
	)

	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_open_connections",
		Help:      "Number of open database connections.",
	})

	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_in_use_connections",
		Help:      "Number of database connections currently in use.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BonusMalusComputations,
		BonusMalusTypeChanges,
		RiskCalculations,
		DriverProfileFallbacks,
		SnapshotValidationFailures,
		FxRevalidations,
		FxSourceRequests,
		DBOpenConnections,
		DBInUseConnections,
	)
}

// StartDBStatsCollector samples sql.DBStats into gauges until ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(r.Method, route))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()

		HTTPRequestsTotal.WithLabelValues(r.Method, route, statusBucket(rec.status)).Inc()
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
