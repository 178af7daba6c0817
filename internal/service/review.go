package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/CatalogForge/internal/adapter/otel"
	"github.com/Strob0t/CatalogForge/internal/adapter/ws"
	"github.com/Strob0t/CatalogForge/internal/config"
	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/review"
	"github.com/Strob0t/CatalogForge/internal/port/broadcast"
	"github.com/Strob0t/CatalogForge/internal/port/database"
	"github.com/Strob0t/CatalogForge/internal/port/messagequeue"
	"github.com/Strob0t/CatalogForge/internal/resilience"
)

// ReviewService manages the human review queue: task creation with
// score-derived priorities, reviewer decisions, SLA tracking, and the
// training-feedback export.
type ReviewService struct {
	store   database.Store
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
	cfg     config.Review
	tcfg    config.Training
	now     func() time.Time

	mu       sync.Mutex
	breached map[string]struct{} // task IDs already announced as SLA breaches
}

// NewReviewService creates a ReviewService. Zero-valued SLA or band
// configuration falls back to the domain defaults.
func NewReviewService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster, cfg config.Review, tcfg config.Training) *ReviewService {
	if cfg.SLAHours <= 0 {
		cfg.SLAHours = review.DefaultSLAHours
	}
	if len(cfg.Bands) == 0 {
		cfg.Bands = review.DefaultPriorityBands()
	}
	return &ReviewService{
		store:    store,
		queue:    queue,
		hub:      hub,
		cfg:      cfg,
		tcfg:     tcfg,
		now:      time.Now,
		breached: make(map[string]struct{}),
	}
}

// SetBreaker attaches a circuit breaker to event publishing.
func (s *ReviewService) SetBreaker(b *resilience.Breaker) {
	s.breaker = b
}

// SetMetrics attaches metric instruments.
func (s *ReviewService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Create queues a review task from a validation outcome snapshot. A zero
// priority is derived from the validation score (lower score, more urgent);
// a zero SLA takes the configured default. The deadline is fixed at creation
// and never moves.
func (s *ReviewService) Create(ctx context.Context, req review.CreateRequest) (*review.Task, error) {
	ctx, span := cfotel.StartReviewSpan(ctx, "create", "")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if req.Priority == 0 {
		req.Priority = review.PriorityFromScore(req.ValidationScore, s.cfg.Bands)
	}
	if req.SLAHours == 0 {
		req.SLAHours = s.cfg.SLAHours
	}

	task, err := s.store.CreateReviewTask(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create review task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReviewsCreated.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("priority", task.Priority),
		))
	}
	s.publishEvent(ctx, messagequeue.SubjectReviewCreated, messagequeue.ReviewCreatedEvent{
		TaskID:   task.ID,
		ImageURL: task.ImageURL,
		Score:    task.ValidationScore,
		Priority: task.Priority,
		DueBy:    task.DueBy,
	})
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventReviewCreated, ws.ReviewCreatedEvent{
			TaskID:   task.ID,
			ImageURL: task.ImageURL,
			Score:    task.ValidationScore,
			Priority: task.Priority,
			DueBy:    task.DueBy,
		})
	}

	slog.Info("review task created",
		"task_id", task.ID, "priority", task.Priority, "due_by", task.DueBy)
	return task, nil
}

// Get retrieves a review task by ID.
func (s *ReviewService) Get(ctx context.Context, id string) (*review.Task, error) {
	return s.store.GetReviewTask(ctx, id)
}

// Pending returns open tasks ordered by urgency. A non-positive limit takes
// the default page size; a positive priority narrows the list to that band.
func (s *ReviewService) Pending(ctx context.Context, limit, priority int) ([]review.Task, error) {
	if limit <= 0 {
		limit = review.DefaultPendingLimit
	}
	if priority < 0 {
		priority = 0
	}
	return s.store.ListPendingTasks(ctx, limit, priority)
}

// Overdue returns open tasks past their deadline right now.
func (s *ReviewService) Overdue(ctx context.Context) ([]review.Task, error) {
	return s.store.ListOverdueTasks(ctx, s.now().UTC())
}

// Stats summarizes the review queue.
func (s *ReviewService) Stats(ctx context.Context) (*review.QueueStats, error) {
	return s.store.QueueStats(ctx, s.now().UTC())
}

// Assign hands a task to a reviewer. Assigning a decided task is a conflict.
func (s *ReviewService) Assign(ctx context.Context, id, reviewerID string) (*review.Task, error) {
	ctx, span := cfotel.StartReviewSpan(ctx, "assign", id)
	defer span.End()

	if reviewerID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, review.ErrReviewerRequired)
	}
	task, err := s.store.AssignTask(ctx, id, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("assign review task: %w", err)
	}
	slog.Info("review task assigned", "task_id", id, "reviewer_id", reviewerID)
	return task, nil
}

// Decide closes a task with a reviewer verdict and appends the immutable
// decision record. A second decision on the same task surfaces the store's
// conflict; first writer wins. Accepted and rejected verdicts also feed the
// training-data capture.
func (s *ReviewService) Decide(ctx context.Context, id string, req review.DecisionRequest) (*review.Task, *review.DecisionRecord, error) {
	ctx, span := cfotel.StartReviewSpan(ctx, "decide", id)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if req.Confidence == 0 {
		req.Confidence = review.DefaultConfidence
	}

	task, rec, err := s.store.SubmitDecision(ctx, id, req)
	if err != nil {
		return nil, nil, fmt.Errorf("submit decision: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReviewsDecided.Add(ctx, 1, metric.WithAttributes(
			attribute.String("decision", string(rec.Decision)),
		))
	}
	s.publishEvent(ctx, messagequeue.SubjectReviewDecided, messagequeue.ReviewDecidedEvent{
		TaskID:           task.ID,
		Decision:         string(rec.Decision),
		ReviewerID:       rec.ReviewerID,
		TrainingEligible: rec.TrainingEligible,
	})
	if rec.TrainingEligible {
		s.publishEvent(ctx, messagequeue.SubjectReviewTraining, messagequeue.TrainingCapturedEvent{
			TaskID:     task.ID,
			FeedbackID: rec.ID,
			Decision:   string(rec.Decision),
			Confidence: rec.Confidence,
		})
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventReviewDecided, ws.ReviewDecidedEvent{
			TaskID:     task.ID,
			Decision:   string(rec.Decision),
			ReviewerID: rec.ReviewerID,
		})
	}

	slog.Info("review task decided",
		"task_id", task.ID, "decision", rec.Decision, "reviewer_id", rec.ReviewerID)
	return task, rec, nil
}

// ReviewerTasks returns the open tasks assigned to one reviewer.
func (s *ReviewService) ReviewerTasks(ctx context.Context, reviewerID string) ([]review.Task, error) {
	return s.store.ListTasksByAssignee(ctx, reviewerID)
}

// ReviewerMetrics summarizes one reviewer's decision history.
func (s *ReviewService) ReviewerMetrics(ctx context.Context, reviewerID string) (*review.ReviewerMetrics, error) {
	return s.store.ReviewerMetrics(ctx, reviewerID)
}

// TrainingFeedback exports labeled decisions for model retraining. Exports
// below the minimum sample size return empty so downstream training never
// ingests an unrepresentative batch. Non-positive minConfidence and
// minSamples take the configured defaults.
func (s *ReviewService) TrainingFeedback(ctx context.Context, since time.Time, minConfidence, minSamples int) ([]review.TrainingSample, error) {
	if minConfidence <= 0 {
		minConfidence = s.tcfg.MinConfidence
	}
	if minSamples <= 0 {
		minSamples = s.tcfg.MinSamples
	}
	samples, err := s.store.TrainingFeedback(ctx, since, minConfidence)
	if err != nil {
		return nil, fmt.Errorf("training feedback: %w", err)
	}
	if len(samples) < minSamples {
		slog.Info("training export below minimum sample size",
			"samples", len(samples), "min_samples", minSamples)
		return []review.TrainingSample{}, nil
	}
	return samples, nil
}

// StartOverdueScanner launches a background goroutine that announces tasks
// past their deadline every interval. Each breach is announced once per
// process lifetime; a restart re-announces still-open breaches, so consumers
// should treat the signal as at-least-once. It stops when ctx is cancelled.
func (s *ReviewService) StartOverdueScanner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Info("overdue scanner disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scanOverdue(ctx)
			}
		}
	}()
	slog.Info("overdue scanner started", "interval", interval)
}

// scanOverdue announces newly discovered SLA breaches.
func (s *ReviewService) scanOverdue(ctx context.Context) {
	tasks, err := s.store.ListOverdueTasks(ctx, s.now().UTC())
	if err != nil {
		slog.Warn("overdue scan failed", "error", err)
		return
	}

	var fresh int
	for _, task := range tasks {
		if !s.markBreached(task.ID) {
			continue
		}
		fresh++
		if s.metrics != nil {
			s.metrics.SLABreaches.Add(ctx, 1, metric.WithAttributes(
				attribute.Int("priority", task.Priority),
			))
		}
		s.publishEvent(ctx, messagequeue.SubjectReviewSLA, messagequeue.SLABreachEvent{
			TaskID:   task.ID,
			Priority: task.Priority,
			DueBy:    task.DueBy,
			Assignee: task.Assignee,
		})
		if s.hub != nil {
			s.hub.BroadcastEvent(ctx, ws.EventReviewSLABreach, ws.SLABreachEvent{
				TaskID:   task.ID,
				Priority: task.Priority,
				DueBy:    task.DueBy,
				Assignee: task.Assignee,
			})
		}
	}
	if fresh > 0 {
		slog.Warn("review tasks past SLA", "new_breaches", fresh, "total_overdue", len(tasks))
	}
}

// markBreached reports whether the task is a newly seen breach.
func (s *ReviewService) markBreached(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.breached[id]; ok {
		return false
	}
	s.breached[id] = struct{}{}
	return true
}

// publishEvent marshals and publishes a queue event through the breaker,
// best-effort. A failed or open breaker never fails the request that
// produced the event.
func (s *ReviewService) publishEvent(ctx context.Context, subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal queue event", "subject", subject, "error", err)
		return
	}

	call := func() error { return s.queue.Publish(ctx, subject, data) }
	if s.breaker != nil {
		err = s.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}
