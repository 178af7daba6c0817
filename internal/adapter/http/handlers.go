package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/CatalogForge/internal/config"
	"github.com/Strob0t/CatalogForge/internal/domain/review"
	"github.com/Strob0t/CatalogForge/internal/domain/validation"
	"github.com/Strob0t/CatalogForge/internal/port/messagequeue"
	"github.com/Strob0t/CatalogForge/internal/resilience"
	"github.com/Strob0t/CatalogForge/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	SKUs       *service.SKUService
	Validation *service.ValidationService
	Reviews    *service.ReviewService
}

// Pinger reports backing-store liveness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// HealthHandler returns an http.HandlerFunc that reports per-component
// health. Degraded components flip the status and the response code so load
// balancers can act on it.
func HealthHandler(db Pinger, queue messagequeue.Queue, breaker *resilience.Breaker) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
		NATS     string `json:"nats"`
		Breaker  string `json:"breaker,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", NATS: "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if db == nil {
			status.Postgres = "unconfigured"
		} else if err := db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Postgres = "unreachable"
		}

		if queue == nil {
			status.NATS = "unconfigured"
		} else if !queue.IsConnected() {
			status.Status = "degraded"
			status.NATS = "disconnected"
		}

		if breaker != nil {
			status.Breaker = breaker.State()
			if status.Breaker == "open" {
				status.Status = "degraded"
			}
		}

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// configView is the public slice of the runtime configuration: the decision
// knobs, never connection strings.
type configView struct {
	SKU struct {
		MaxAttempts int `json:"max_attempts"`
	} `json:"sku"`
	Validation struct {
		Weights         validation.Weights `json:"weights"`
		AcceptThreshold float64            `json:"accept_threshold"`
		ReviewThreshold float64            `json:"review_threshold"`
	} `json:"validation"`
	Review struct {
		SLAHours int                   `json:"sla_hours"`
		Bands    []review.PriorityBand `json:"bands"`
	} `json:"review"`
	Training struct {
		MinConfidence int `json:"min_confidence"`
		MinSamples    int `json:"min_samples"`
	} `json:"training"`
}

// ConfigHandler returns an http.HandlerFunc exposing the decision
// configuration so dashboards can label thresholds without hardcoding them.
func ConfigHandler(cfg config.Config) http.HandlerFunc {
	var view configView
	view.SKU.MaxAttempts = cfg.SKU.MaxAttempts
	view.Validation.Weights = cfg.Validation.Weights.CheckWeights()
	view.Validation.AcceptThreshold = cfg.Validation.AcceptThreshold
	view.Validation.ReviewThreshold = cfg.Validation.ReviewThreshold
	view.Review.SLAHours = cfg.Review.SLAHours
	view.Review.Bands = cfg.Review.Bands
	view.Training.MinConfidence = cfg.Training.MinConfidence
	view.Training.MinSamples = cfg.Training.MinSamples

	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, view)
	}
}
