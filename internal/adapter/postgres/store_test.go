package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/CatalogForge/internal/adapter/postgres"
	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/review"
	"github.com/Strob0t/CatalogForge/internal/domain/sku"
	"github.com/Strob0t/CatalogForge/internal/domain/validation"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	// Run goose migrations first (uses embedded SQL files).
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

// uniqueSKU returns a canonical SKU that cannot collide across test runs.
func uniqueSKU(t *testing.T) string {
	t.Helper()
	return "TEST" + uuid.New().String()[:13]
}

func createTestTask(t *testing.T, store *postgres.Store, score float64, priority int) *review.Task {
	t.Helper()
	task, err := store.CreateReviewTask(context.Background(), review.CreateRequest{
		ImageURL:        "/images/" + uuid.New().String() + ".png",
		ValidationScore: score,
		CheckScores:     validation.Scores{validation.CheckSharpness: score},
		FailureReason:   "Score below review threshold",
		Priority:        priority,
		SLAHours:        48,
	})
	if err != nil {
		t.Fatalf("create review task: %v", err)
	}
	return task
}

// --------------------------------------------------------------------------
// Products
// --------------------------------------------------------------------------

func TestStore_ProductSKUUniqueness(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	canonical := uniqueSKU(t)

	rec, err := store.InsertProduct(ctx, sku.Record{
		VendorID:     "vendor-a",
		VendorCode:   "raw-code-1",
		CanonicalSKU: canonical,
	})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Error("expected generated id and created_at")
	}

	// Same canonical SKU from another vendor must conflict.
	_, err = store.InsertProduct(ctx, sku.Record{
		VendorID:     "vendor-b",
		VendorCode:   "raw-code-2",
		CanonicalSKU: canonical,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate insert: expected ErrConflict, got %v", err)
	}

	exists, err := store.SKUExists(ctx, canonical)
	if err != nil {
		t.Fatalf("sku exists: %v", err)
	}
	if !exists {
		t.Error("expected SKU to exist")
	}

	exists, err = store.SKUExists(ctx, uniqueSKU(t))
	if err != nil {
		t.Fatalf("sku exists: %v", err)
	}
	if exists {
		t.Error("unused SKU should not exist")
	}

	got, err := store.GetProductBySKU(ctx, canonical)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.VendorID != "vendor-a" || got.VendorCode != "raw-code-1" {
		t.Errorf("unexpected product: %+v", got)
	}

	_, err = store.GetProductBySKU(ctx, uniqueSKU(t))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing product: expected ErrNotFound, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Review task lifecycle
// --------------------------------------------------------------------------

func TestStore_ReviewTaskLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	task := createTestTask(t, store, 0.62, 3)
	if task.Status != review.StatusPending {
		t.Fatalf("new task status = %s, want pending", task.Status)
	}
	if !task.DueBy.After(task.CreatedAt) {
		t.Error("due_by should be after created_at")
	}
	wantDue := task.CreatedAt.Add(48 * time.Hour)
	if diff := task.DueBy.Sub(wantDue); diff < -time.Second || diff > time.Second {
		t.Errorf("due_by = %v, want created_at+48h (%v)", task.DueBy, wantDue)
	}

	got, err := store.GetReviewTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get review task: %v", err)
	}
	if got.ValidationScore != 0.62 || got.Priority != 3 {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.CheckScores[validation.CheckSharpness] != 0.62 {
		t.Errorf("check scores not round-tripped: %+v", got.CheckScores)
	}

	assigned, err := store.AssignTask(ctx, task.ID, "reviewer-1")
	if err != nil {
		t.Fatalf("assign task: %v", err)
	}
	if assigned.Status != review.StatusInProgress || assigned.Assignee != "reviewer-1" {
		t.Errorf("unexpected assigned task: %+v", assigned)
	}
	if !assigned.DueBy.Equal(task.DueBy) {
		t.Error("assignment must not move the deadline")
	}

	decided, rec, err := store.SubmitDecision(ctx, task.ID, review.DecisionRequest{
		Decision:   review.DecisionAccepted,
		ReviewerID: "reviewer-1",
		Confidence: 4,
		Notes:      "clean catalog shot",
	})
	if err != nil {
		t.Fatalf("submit decision: %v", err)
	}
	if decided.Status != review.StatusAccepted {
		t.Errorf("decided status = %s, want accepted", decided.Status)
	}
	if rec.ID == "" || rec.TaskID != task.ID || !rec.TrainingEligible {
		t.Errorf("unexpected decision record: %+v", rec)
	}

	// Terminal task: no second decision, no reassignment.
	_, _, err = store.SubmitDecision(ctx, task.ID, review.DecisionRequest{
		Decision:   review.DecisionRejected,
		ReviewerID: "reviewer-2",
		Confidence: 5,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second decision: expected ErrConflict, got %v", err)
	}
	_, err = store.AssignTask(ctx, task.ID, "reviewer-2")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("assign terminal task: expected ErrConflict, got %v", err)
	}

	// Unknown task IDs surface ErrNotFound.
	missing := uuid.New().String()
	if _, err := store.GetReviewTask(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("get missing: expected ErrNotFound, got %v", err)
	}
	if _, err := store.AssignTask(ctx, missing, "reviewer-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("assign missing: expected ErrNotFound, got %v", err)
	}
}

func TestStore_PendingOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	low := createTestTask(t, store, 0.75, 4)
	urgent := createTestTask(t, store, 0.30, 1)
	mid := createTestTask(t, store, 0.60, 3)

	tasks, err := store.ListPendingTasks(ctx, 1000, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}

	// The table is shared across runs, so assert relative order of the three
	// tasks created here rather than absolute positions.
	pos := map[string]int{}
	for i, task := range tasks {
		pos[task.ID] = i
	}
	for _, task := range []*review.Task{urgent, mid, low} {
		if _, ok := pos[task.ID]; !ok {
			t.Fatalf("task %s (priority %d) missing from pending list", task.ID, task.Priority)
		}
	}
	if !(pos[urgent.ID] < pos[mid.ID] && pos[mid.ID] < pos[low.ID]) {
		t.Errorf("pending order wrong: urgent=%d mid=%d low=%d",
			pos[urgent.ID], pos[mid.ID], pos[low.ID])
	}

	// Priority filter narrows to one band.
	banded, err := store.ListPendingTasks(ctx, 1000, 1)
	if err != nil {
		t.Fatalf("list pending priority 1: %v", err)
	}
	for _, task := range banded {
		if task.Priority != 1 {
			t.Errorf("priority filter leaked band %d task %s", task.Priority, task.ID)
		}
	}
	if _, ok := indexOf(banded, urgent.ID); !ok {
		t.Errorf("priority-1 task %s missing from filtered list", urgent.ID)
	}
}

func indexOf(tasks []review.Task, id string) (int, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func TestStore_OverdueTasks(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	task := createTestTask(t, store, 0.5, 3)

	// Not overdue when now is before the deadline.
	overdue, err := store.ListOverdueTasks(ctx, task.CreatedAt)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	for _, o := range overdue {
		if o.ID == task.ID {
			t.Fatal("fresh task must not be overdue")
		}
	}

	// Overdue when now is past the deadline.
	overdue, err = store.ListOverdueTasks(ctx, task.DueBy.Add(time.Minute))
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	found := false
	for _, o := range overdue {
		if o.ID == task.ID {
			found = true
		}
	}
	if !found {
		t.Error("task past its deadline missing from overdue list")
	}
}

func TestStore_ListTasksByAssignee(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reviewer := "reviewer-" + uuid.New().String()[:8]

	a := createTestTask(t, store, 0.5, 2)
	b := createTestTask(t, store, 0.6, 3)
	if _, err := store.AssignTask(ctx, a.ID, reviewer); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := store.AssignTask(ctx, b.ID, reviewer); err != nil {
		t.Fatalf("assign: %v", err)
	}

	tasks, err := store.ListTasksByAssignee(ctx, reviewer)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(tasks))
	}
	if tasks[0].ID != a.ID {
		t.Errorf("expected priority 2 task first, got %s", tasks[0].ID)
	}

	// Deciding removes the task from the reviewer's open list.
	if _, _, err := store.SubmitDecision(ctx, a.ID, review.DecisionRequest{
		Decision:   review.DecisionRejected,
		ReviewerID: reviewer,
		Confidence: 5,
	}); err != nil {
		t.Fatalf("submit decision: %v", err)
	}
	tasks, err = store.ListTasksByAssignee(ctx, reviewer)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != b.ID {
		t.Errorf("expected only the undecided task, got %+v", tasks)
	}
}

// --------------------------------------------------------------------------
// Metrics and training export
// --------------------------------------------------------------------------

func TestStore_QueueStats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	before, err := store.QueueStats(ctx, time.Now())
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}

	pending := createTestTask(t, store, 0.35, 1)
	decided := createTestTask(t, store, 0.65, 3)
	if _, _, err := store.SubmitDecision(ctx, decided.ID, review.DecisionRequest{
		Decision:   review.DecisionAccepted,
		ReviewerID: "reviewer-stats",
		Confidence: 5,
	}); err != nil {
		t.Fatalf("submit decision: %v", err)
	}

	after, err := store.QueueStats(ctx, time.Now())
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}

	if after.Pending-before.Pending != 1 {
		t.Errorf("pending delta = %d, want 1", after.Pending-before.Pending)
	}
	if after.Accepted-before.Accepted != 1 {
		t.Errorf("accepted delta = %d, want 1", after.Accepted-before.Accepted)
	}
	if after.HighPriority-before.HighPriority != 1 {
		t.Errorf("high priority delta = %d, want 1 (task %s has priority 1)",
			after.HighPriority-before.HighPriority, pending.ID)
	}
}

func TestStore_ReviewerMetrics(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	reviewer := "reviewer-" + uuid.New().String()[:8]

	a := createTestTask(t, store, 0.5, 2)
	b := createTestTask(t, store, 0.6, 3)
	if _, _, err := store.SubmitDecision(ctx, a.ID, review.DecisionRequest{
		Decision: review.DecisionAccepted, ReviewerID: reviewer, Confidence: 5,
	}); err != nil {
		t.Fatalf("submit decision: %v", err)
	}
	if _, _, err := store.SubmitDecision(ctx, b.ID, review.DecisionRequest{
		Decision: review.DecisionRejected, ReviewerID: reviewer, Confidence: 3,
	}); err != nil {
		t.Fatalf("submit decision: %v", err)
	}

	m, err := store.ReviewerMetrics(ctx, reviewer)
	if err != nil {
		t.Fatalf("reviewer metrics: %v", err)
	}
	if m.TotalReviewed != 2 || m.Accepted != 1 || m.Rejected != 1 {
		t.Errorf("unexpected metrics: %+v", m)
	}
	if m.AvgConfidence != 4 {
		t.Errorf("avg confidence = %v, want 4", m.AvgConfidence)
	}

	// Unknown reviewers yield zeroed metrics, not an error.
	empty, err := store.ReviewerMetrics(ctx, "reviewer-"+uuid.New().String()[:8])
	if err != nil {
		t.Fatalf("reviewer metrics: %v", err)
	}
	if empty.TotalReviewed != 0 {
		t.Errorf("expected zero reviews, got %d", empty.TotalReviewed)
	}
}

func TestStore_TrainingFeedback(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	since := time.Now().Add(-time.Minute)

	accepted := createTestTask(t, store, 0.75, 4)
	edited := createTestTask(t, store, 0.55, 2)
	lowConf := createTestTask(t, store, 0.45, 2)

	decide := func(id string, d review.Decision, confidence int) {
		t.Helper()
		if _, _, err := store.SubmitDecision(ctx, id, review.DecisionRequest{
			Decision: d, ReviewerID: "reviewer-train", Confidence: confidence,
		}); err != nil {
			t.Fatalf("submit decision: %v", err)
		}
	}
	decide(accepted.ID, review.DecisionAccepted, 5)
	decide(edited.ID, review.DecisionRequiresEdit, 5)
	decide(lowConf.ID, review.DecisionRejected, 2)

	samples, err := store.TrainingFeedback(ctx, since, 4)
	if err != nil {
		t.Fatalf("training feedback: %v", err)
	}

	byTask := map[string]review.TrainingSample{}
	for _, s := range samples {
		byTask[s.TaskID] = s
	}
	if _, ok := byTask[accepted.ID]; !ok {
		t.Error("high-confidence accepted decision missing from export")
	}
	if _, ok := byTask[edited.ID]; ok {
		t.Error("requires_edit decision must not be exported")
	}
	if _, ok := byTask[lowConf.ID]; ok {
		t.Error("low-confidence decision must not be exported")
	}
	if s, ok := byTask[accepted.ID]; ok {
		if s.Decision != review.DecisionAccepted || s.ValidationScore != 0.75 {
			t.Errorf("unexpected sample: %+v", s)
		}
	}
}
