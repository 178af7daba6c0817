package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/review"
	"github.com/Strob0t/CatalogForge/internal/domain/validation"
)

// taskColumns is the canonical SELECT list for review_tasks, shared by every
// query so scanTask stays in sync.
const taskColumns = `id, COALESCE(product_id, ''), COALESCE(product_name, ''),
	COALESCE(vendor_code, ''), COALESCE(canonical_sku, ''), image_url,
	validation_score, check_scores, COALESCE(failure_reason, ''), status,
	priority, COALESCE(assignee, ''), created_at, due_by, updated_at`

// openStatuses guards every state-changing query: only pending and
// in_progress tasks may move, terminal tasks never do.
const openStatuses = `('pending', 'in_progress')`

// CreateReviewTask inserts a new review task. Priority and SLA hours must
// already be resolved by the caller; the deadline is computed inside the
// database so created_at and due_by come from the same clock.
func (s *Store) CreateReviewTask(ctx context.Context, req review.CreateRequest) (*review.Task, error) {
	scores := req.CheckScores
	if scores == nil {
		scores = validation.Scores{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("marshal check scores: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO review_tasks
		 (product_id, product_name, vendor_code, canonical_sku, image_url,
		  validation_score, check_scores, failure_reason, status, priority, due_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, now() + make_interval(hours => $10::int))
		 RETURNING `+taskColumns,
		nullIfEmpty(req.ProductID), nullIfEmpty(req.ProductName),
		nullIfEmpty(req.VendorCode), nullIfEmpty(req.CanonicalSKU),
		req.ImageURL, req.ValidationScore, scoresJSON, req.FailureReason,
		req.Priority, req.SLAHours)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create review task: %w", err)
	}
	return &t, nil
}

// GetReviewTask retrieves a review task by ID.
func (s *Store) GetReviewTask(ctx context.Context, id string) (*review.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM review_tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get review task %s", id)
	}
	return &t, nil
}

// ListPendingTasks returns unassigned work ordered most urgent first:
// ascending priority, then oldest creation time. Priority zero matches
// every band.
func (s *Store) ListPendingTasks(ctx context.Context, limit, priority int) ([]review.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM review_tasks
		 WHERE status = 'pending' AND ($2 = 0 OR priority = $2)
		 ORDER BY priority ASC, created_at ASC
		 LIMIT $1`, limit, priority)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListTasksByAssignee returns the open tasks currently assigned to a reviewer.
func (s *Store) ListTasksByAssignee(ctx context.Context, reviewerID string) ([]review.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM review_tasks
		 WHERE assignee = $1 AND status = 'in_progress'
		 ORDER BY priority ASC, created_at ASC`, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for reviewer %s: %w", reviewerID, err)
	}
	return collectTasks(rows)
}

// ListOverdueTasks returns open tasks whose deadline passed before now,
// most overdue first.
func (s *Store) ListOverdueTasks(ctx context.Context, now time.Time) ([]review.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM review_tasks
		 WHERE status IN `+openStatuses+` AND due_by < $1
		 ORDER BY due_by ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return collectTasks(rows)
}

// AssignTask moves an open task to the given reviewer. The status guard in
// the UPDATE makes the transition atomic: a task decided between read and
// write simply matches zero rows. Reassignment never touches due_by.
func (s *Store) AssignTask(ctx context.Context, id, reviewerID string) (*review.Task, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE review_tasks
		 SET assignee = $2, status = 'in_progress', updated_at = now()
		 WHERE id = $1 AND status IN `+openStatuses+`
		 RETURNING `+taskColumns, id, reviewerID)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.openTaskMissing(ctx, id, "assign")
		}
		return nil, fmt.Errorf("assign review task %s: %w", id, err)
	}
	return &t, nil
}

// SubmitDecision closes an open task with the reviewer's verdict and appends
// the immutable decision record, both in one transaction. The status guard
// ensures at most one decision ever lands on a task.
func (s *Store) SubmitDecision(ctx context.Context, id string, req review.DecisionRequest) (*review.Task, *review.DecisionRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin decision tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE review_tasks
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status IN `+openStatuses+`
		 RETURNING `+taskColumns, id, string(req.Decision.Status()))

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, s.openTaskMissing(ctx, id, "decide")
		}
		return nil, nil, fmt.Errorf("decide review task %s: %w", id, err)
	}

	rec := review.DecisionRecord{
		TaskID:            t.ID,
		ReviewerID:        req.ReviewerID,
		Decision:          req.Decision,
		DecisionReason:    req.DecisionReason,
		Notes:             req.Notes,
		Confidence:        req.Confidence,
		CorrectedImageURL: req.CorrectedImageURL,
		TrainingEligible:  req.Decision.TrainingEligible(),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO review_feedback
		 (task_id, reviewer_id, decision, decision_reason, notes, confidence,
		  corrected_image_url, training_eligible)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		rec.TaskID, rec.ReviewerID, string(rec.Decision), rec.DecisionReason,
		rec.Notes, rec.Confidence, nullIfEmpty(rec.CorrectedImageURL),
		rec.TrainingEligible).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert decision record for task %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit decision tx: %w", err)
	}
	return &t, &rec, nil
}

// openTaskMissing distinguishes why a status-guarded UPDATE matched nothing:
// the task does not exist (ErrNotFound) or it is already terminal (ErrConflict).
func (s *Store) openTaskMissing(ctx context.Context, id, verb string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM review_tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s review task %s: %w", verb, id, err)
	}
	if !exists {
		return fmt.Errorf("%s review task %s: %w", verb, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s review task %s: already decided: %w", verb, id, domain.ErrConflict)
}

// QueueStats summarizes the review queue at the given instant.
func (s *Store) QueueStats(ctx context.Context, now time.Time) (*review.QueueStats, error) {
	var stats review.QueueStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = 'pending'),
		   COUNT(*) FILTER (WHERE status = 'in_progress'),
		   COUNT(*) FILTER (WHERE status IN `+openStatuses+` AND due_by < $1),
		   COUNT(*) FILTER (WHERE status IN `+openStatuses+` AND priority <= 2),
		   COUNT(*) FILTER (WHERE status = 'accepted'),
		   COUNT(*) FILTER (WHERE status = 'rejected'),
		   COUNT(*) FILTER (WHERE status = 'requires_edit')
		 FROM review_tasks`, now).Scan(
		&stats.Pending, &stats.InProgress, &stats.SLAViolations,
		&stats.HighPriority, &stats.Accepted, &stats.Rejected,
		&stats.RequiresEdit)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (f.created_at - t.created_at)) / 60.0), 0)
		 FROM review_feedback f
		 JOIN review_tasks t ON t.id = f.task_id`).Scan(&stats.AvgResolutionMinutes)
	if err != nil {
		return nil, fmt.Errorf("queue stats resolution time: %w", err)
	}
	return &stats, nil
}

// ReviewerMetrics summarizes one reviewer's decision history. A reviewer
// with no decisions yields zeroed metrics, not an error.
func (s *Store) ReviewerMetrics(ctx context.Context, reviewerID string) (*review.ReviewerMetrics, error) {
	m := review.ReviewerMetrics{ReviewerID: reviewerID}
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(*) FILTER (WHERE f.decision = 'accepted'),
		   COUNT(*) FILTER (WHERE f.decision = 'rejected'),
		   COUNT(*) FILTER (WHERE f.decision = 'requires_edit'),
		   COALESCE(AVG(EXTRACT(EPOCH FROM (f.created_at - t.created_at)) / 60.0), 0),
		   COALESCE(AVG(f.confidence), 0)
		 FROM review_feedback f
		 JOIN review_tasks t ON t.id = f.task_id
		 WHERE f.reviewer_id = $1`, reviewerID).Scan(
		&m.TotalReviewed, &m.Accepted, &m.Rejected, &m.RequiresEdit,
		&m.AvgReviewMinutes, &m.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("reviewer metrics %s: %w", reviewerID, err)
	}
	return &m, nil
}

// TrainingFeedback exports labeled decisions for downstream model training.
// Only training-eligible decisions at or above minConfidence qualify; a zero
// since time means no lower bound.
func (s *Store) TrainingFeedback(ctx context.Context, since time.Time, minConfidence int) ([]review.TrainingSample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT f.task_id, t.image_url, f.decision, f.confidence,
		        t.validation_score, t.check_scores, f.created_at
		 FROM review_feedback f
		 JOIN review_tasks t ON t.id = f.task_id
		 WHERE f.training_eligible
		   AND f.confidence >= $1
		   AND ($2::timestamptz IS NULL OR f.created_at >= $2)
		 ORDER BY f.created_at DESC`, minConfidence, nullTime(since))
	if err != nil {
		return nil, fmt.Errorf("training feedback: %w", err)
	}
	defer rows.Close()

	var samples []review.TrainingSample
	for rows.Next() {
		var (
			sample     review.TrainingSample
			scoresJSON []byte
		)
		if err := rows.Scan(&sample.TaskID, &sample.ImageURL, &sample.Decision,
			&sample.Confidence, &sample.ValidationScore, &scoresJSON,
			&sample.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan training sample: %w", err)
		}
		if err := json.Unmarshal(scoresJSON, &sample.CheckScores); err != nil {
			return nil, fmt.Errorf("unmarshal check scores: %w", err)
		}
		samples = append(samples, sample)
	}
	return orEmpty(samples), rows.Err()
}

func scanTask(row scannable) (review.Task, error) {
	var (
		t          review.Task
		scoresJSON []byte
	)
	err := row.Scan(&t.ID, &t.ProductID, &t.ProductName, &t.VendorCode,
		&t.CanonicalSKU, &t.ImageURL, &t.ValidationScore, &scoresJSON,
		&t.FailureReason, &t.Status, &t.Priority, &t.Assignee,
		&t.CreatedAt, &t.DueBy, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(scoresJSON, &t.CheckScores); err != nil {
		return t, fmt.Errorf("unmarshal check scores: %w", err)
	}
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]review.Task, error) {
	defer rows.Close()

	var tasks []review.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}
