// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/CatalogForge/internal/domain/review"
	"github.com/Strob0t/CatalogForge/internal/domain/sku"
)

// Store is the port interface for database operations.
type Store interface {
	// Products
	// InsertProduct persists a product record, enforcing canonical SKU
	// uniqueness. A duplicate SKU yields domain.ErrConflict.
	InsertProduct(ctx context.Context, rec sku.Record) (*sku.Record, error)
	SKUExists(ctx context.Context, canonicalSKU string) (bool, error)
	GetProductBySKU(ctx context.Context, canonicalSKU string) (*sku.Record, error)

	// Review tasks
	CreateReviewTask(ctx context.Context, req review.CreateRequest) (*review.Task, error)
	GetReviewTask(ctx context.Context, id string) (*review.Task, error)
	// ListPendingTasks returns pending work, most urgent first. A priority of
	// zero matches every band.
	ListPendingTasks(ctx context.Context, limit, priority int) ([]review.Task, error)
	ListTasksByAssignee(ctx context.Context, reviewerID string) ([]review.Task, error)
	ListOverdueTasks(ctx context.Context, now time.Time) ([]review.Task, error)
	// AssignTask moves a pending or in_progress task to the given reviewer.
	// Terminal tasks yield domain.ErrConflict.
	AssignTask(ctx context.Context, id, reviewerID string) (*review.Task, error)
	// SubmitDecision closes an open task and appends its decision record in
	// one transaction. A task already decided yields domain.ErrConflict.
	SubmitDecision(ctx context.Context, id string, req review.DecisionRequest) (*review.Task, *review.DecisionRecord, error)

	// Metrics and training export
	QueueStats(ctx context.Context, now time.Time) (*review.QueueStats, error)
	ReviewerMetrics(ctx context.Context, reviewerID string) (*review.ReviewerMetrics, error)
	TrainingFeedback(ctx context.Context, since time.Time, minConfidence int) ([]review.TrainingSample, error)
}
