package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/CatalogForge/internal/domain/review"
)

// --- Review Queue Endpoints ---

type assignReviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

type decideReviewResponse struct {
	Task     *review.Task           `json:"task"`
	Decision *review.DecisionRecord `json:"decision"`
}

// CreateReview handles POST /api/v1/reviews
func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[review.CreateRequest](w, r)
	if !ok {
		return
	}
	task, err := h.Reviews.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "review task creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ListPendingReviews handles GET /api/v1/reviews/pending
func (h *Handlers) ListPendingReviews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	priority := queryInt(r, "priority")
	tasks, err := h.Reviews.Pending(r.Context(), limit, priority)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []review.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ListOverdueReviews handles GET /api/v1/reviews/overdue
func (h *Handlers) ListOverdueReviews(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Reviews.Overdue(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []review.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ReviewQueueStats handles GET /api/v1/reviews/stats
func (h *Handlers) ReviewQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reviews.Stats(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *Handlers) GetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := h.Reviews.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "review task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// AssignReview handles POST /api/v1/reviews/{id}/assign
func (h *Handlers) AssignReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := readJSON[assignReviewRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ReviewerID, "reviewer_id") {
		return
	}
	task, err := h.Reviews.Assign(r.Context(), id, req.ReviewerID)
	if err != nil {
		writeDomainError(w, err, "review task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DecideReview handles POST /api/v1/reviews/{id}/decision
func (h *Handlers) DecideReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := readJSON[review.DecisionRequest](w, r)
	if !ok {
		return
	}
	task, rec, err := h.Reviews.Decide(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err, "review task not found")
		return
	}
	writeJSON(w, http.StatusOK, decideReviewResponse{Task: task, Decision: rec})
}

// ListReviewerTasks handles GET /api/v1/reviewers/{id}/tasks
func (h *Handlers) ListReviewerTasks(w http.ResponseWriter, r *http.Request) {
	reviewerID := urlParam(r, "id")
	tasks, err := h.Reviews.ReviewerTasks(r.Context(), reviewerID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []review.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetReviewerMetrics handles GET /api/v1/reviewers/{id}/metrics
func (h *Handlers) GetReviewerMetrics(w http.ResponseWriter, r *http.Request) {
	reviewerID := urlParam(r, "id")
	metrics, err := h.Reviews.ReviewerMetrics(r.Context(), reviewerID)
	if err != nil {
		writeDomainError(w, err, "reviewer not found")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// TrainingFeedback handles GET /api/v1/training/feedback
func (h *Handlers) TrainingFeedback(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}
	minConfidence := queryInt(r, "min_confidence")
	minSamples := queryInt(r, "min_samples")
	samples, err := h.Reviews.TrainingFeedback(r.Context(), since, minConfidence, minSamples)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if samples == nil {
		samples = []review.TrainingSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}
