package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/CatalogForge/internal/config"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, cfg config.Config) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Effective pipeline configuration
		r.Get("/config", ConfigHandler(cfg))

		// SKU generation and lookup
		r.Post("/skus/generate", h.GenerateSKU)
		r.Get("/skus/{sku}", h.GetProduct)
		r.Get("/skus/{sku}/unique", h.CheckSKUUnique)

		// Image validation
		r.Post("/images/validate", h.ValidateImage)

		// Review queue
		r.Post("/reviews", h.CreateReview)
		r.Get("/reviews/pending", h.ListPendingReviews)
		r.Get("/reviews/overdue", h.ListOverdueReviews)
		r.Get("/reviews/stats", h.ReviewQueueStats)
		r.Get("/reviews/{id}", h.GetReview)
		r.Post("/reviews/{id}/assign", h.AssignReview)
		r.Post("/reviews/{id}/decision", h.DecideReview)

		// Reviewer workload
		r.Get("/reviewers/{id}/tasks", h.ListReviewerTasks)
		r.Get("/reviewers/{id}/metrics", h.GetReviewerMetrics)

		// Training data export
		r.Get("/training/feedback", h.TrainingFeedback)
	})
}
