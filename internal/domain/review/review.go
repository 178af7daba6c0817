// Package review defines the human review-task domain: lifecycle states,
// reviewer decisions, priority bands, and SLA accounting.
package review

import (
	"errors"
	"time"

	"github.com/Strob0t/CatalogForge/internal/domain/validation"
)

// Status is the lifecycle state of a review task. Terminal states absorb:
// no task ever transitions out of accepted, rejected, or requires_edit.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusAccepted     Status = "accepted"
	StatusRejected     Status = "rejected"
	StatusRequiresEdit Status = "requires_edit"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusRequiresEdit:
		return true
	default:
		return false
	}
}

// Decision is a reviewer's verdict. Each decision maps onto exactly one
// terminal task status.
type Decision string

const (
	DecisionAccepted     Decision = "accepted"
	DecisionRejected     Decision = "rejected"
	DecisionRequiresEdit Decision = "requires_edit"
)

// ErrUnknownDecision rejects decision values outside the closed set.
var ErrUnknownDecision = errors.New("unknown review decision")

// ParseDecision converts a wire string into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccepted, DecisionRejected, DecisionRequiresEdit:
		return Decision(s), nil
	default:
		return "", ErrUnknownDecision
	}
}

// Status returns the terminal task status this decision produces.
func (d Decision) Status() Status {
	switch d {
	case DecisionAccepted:
		return StatusAccepted
	case DecisionRejected:
		return StatusRejected
	default:
		return StatusRequiresEdit
	}
}

// TrainingEligible reports whether a decision feeds the downstream
// training-data capture. Edits carry no clean label, so only clear
// accept/reject verdicts qualify.
func (d Decision) TrainingEligible() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

const (
	// DefaultSLAHours is the review deadline applied when a task carries
	// no explicit override.
	DefaultSLAHours = 48

	// DefaultConfidence is assumed when a reviewer does not rate their
	// own decision (1 = guessing, 5 = certain).
	DefaultConfidence = 5

	// DefaultPendingLimit caps a pending-queue page when the caller does
	// not specify one.
	DefaultPendingLimit = 50
)

// Task is one product/image pair awaiting a human decision.
type Task struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"product_id,omitempty"`
	ProductName     string            `json:"product_name,omitempty"`
	VendorCode      string            `json:"vendor_code,omitempty"`
	CanonicalSKU    string            `json:"canonical_sku,omitempty"`
	ImageURL        string            `json:"image_url"`
	ValidationScore float64           `json:"validation_score"`
	CheckScores     validation.Scores `json:"check_scores"`
	FailureReason   string            `json:"failure_reason"`
	Status          Status            `json:"status"`
	Priority        int               `json:"priority"`
	Assignee        string            `json:"assignee,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	DueBy           time.Time         `json:"due_by"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsOverdue reports whether the task has outlived its SLA at the given
// instant. The deadline is fixed at creation; reassignment never moves it.
func (t *Task) IsOverdue(now time.Time) bool {
	return now.After(t.DueBy)
}

// DecisionRecord is the immutable audit/feedback entry appended when a
// reviewer decides a task.
type DecisionRecord struct {
	ID                string    `json:"id"`
	TaskID            string    `json:"task_id"`
	ReviewerID        string    `json:"reviewer_id"`
	Decision          Decision  `json:"decision"`
	DecisionReason    string    `json:"decision_reason,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Confidence        int       `json:"confidence"`
	CorrectedImageURL string    `json:"corrected_image_url,omitempty"`
	TrainingEligible  bool      `json:"training_eligible"`
	CreatedAt         time.Time `json:"created_at"`
}

// PriorityBand maps validation scores below Below to a priority ordinal
// (1 = most urgent). Bands are configuration data, evaluated in order.
type PriorityBand struct {
	Below    float64 `yaml:"below" json:"below"`
	Priority int     `yaml:"priority" json:"priority"`
}

// DefaultPriorityBands returns the stock score-to-priority mapping.
func DefaultPriorityBands() []PriorityBand {
	return []PriorityBand{
		{Below: 0.40, Priority: 1},
		{Below: 0.55, Priority: 2},
		{Below: 0.70, Priority: 3},
		{Below: 0.80, Priority: 4},
	}
}

// LowestPriority is assigned to scores above every configured band.
const LowestPriority = 5

// PriorityFromScore maps a validation score to an urgency ordinal using the
// given bands: the first band whose Below exceeds the score wins, otherwise
// LowestPriority. Lower scores are more urgent.
func PriorityFromScore(score float64, bands []PriorityBand) int {
	for _, b := range bands {
		if score < b.Below {
			return b.Priority
		}
	}
	return LowestPriority
}

// CreateRequest holds the fields for creating a review task from a
// validation outcome snapshot.
type CreateRequest struct {
	ProductID       string            `json:"product_id,omitempty"`
	ProductName     string            `json:"product_name,omitempty"`
	VendorCode      string            `json:"vendor_code,omitempty"`
	CanonicalSKU    string            `json:"canonical_sku,omitempty"`
	ImageURL        string            `json:"image_url"`
	ValidationScore float64           `json:"validation_score"`
	CheckScores     validation.Scores `json:"check_scores,omitempty"`
	FailureReason   string            `json:"failure_reason"`
	Priority        int               `json:"priority,omitempty"`  // 0 = compute from bands
	SLAHours        int               `json:"sla_hours,omitempty"` // 0 = configured default
}

var (
	ErrImageURLRequired = errors.New("image_url is required")
	ErrScoreOutOfRange  = errors.New("validation_score must be within [0,1]")
	ErrBadPriority      = errors.New("priority must be within [1,5]")
)

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	if r.ImageURL == "" {
		return ErrImageURLRequired
	}
	if r.ValidationScore < 0 || r.ValidationScore > 1 {
		return ErrScoreOutOfRange
	}
	if r.Priority != 0 && (r.Priority < 1 || r.Priority > LowestPriority) {
		return ErrBadPriority
	}
	return nil
}

// DecisionRequest holds the fields a reviewer submits to close a task.
type DecisionRequest struct {
	Decision          Decision `json:"decision"`
	ReviewerID        string   `json:"reviewer_id"`
	DecisionReason    string   `json:"decision_reason,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Confidence        int      `json:"confidence,omitempty"` // 0 = DefaultConfidence
	CorrectedImageURL string   `json:"corrected_image_url,omitempty"`
}

var (
	ErrReviewerRequired = errors.New("reviewer_id is required")
	ErrBadConfidence    = errors.New("confidence must be within [1,5]")
)

// Validate checks the decision request for correctness.
func (r *DecisionRequest) Validate() error {
	if _, err := ParseDecision(string(r.Decision)); err != nil {
		return err
	}
	if r.ReviewerID == "" {
		return ErrReviewerRequired
	}
	if r.Confidence != 0 && (r.Confidence < 1 || r.Confidence > 5) {
		return ErrBadConfidence
	}
	return nil
}

// QueueStats summarizes the review queue at one instant.
type QueueStats struct {
	Pending              int     `json:"pending_count"`
	InProgress           int     `json:"in_progress_count"`
	SLAViolations        int     `json:"sla_violations"`
	HighPriority         int     `json:"high_priority_count"`
	Accepted             int     `json:"accepted_count"`
	Rejected             int     `json:"rejected_count"`
	RequiresEdit         int     `json:"requires_edit_count"`
	AvgResolutionMinutes float64 `json:"avg_resolution_minutes"`
}

// ReviewerMetrics summarizes one reviewer's decision history.
type ReviewerMetrics struct {
	ReviewerID       string  `json:"reviewer_id"`
	TotalReviewed    int     `json:"total_reviewed"`
	Accepted         int     `json:"accepted_count"`
	Rejected         int     `json:"rejected_count"`
	RequiresEdit     int     `json:"requires_edit_count"`
	AvgReviewMinutes float64 `json:"avg_review_minutes"`
	AvgConfidence    float64 `json:"avg_confidence"`
}

// TrainingSample is one labeled decision exported for downstream
// training-data capture.
type TrainingSample struct {
	TaskID          string            `json:"task_id"`
	ImageURL        string            `json:"image_url"`
	Decision        Decision          `json:"decision"`
	Confidence      int               `json:"confidence"`
	ValidationScore float64           `json:"validation_score"`
	CheckScores     validation.Scores `json:"check_scores"`
	DecidedAt       time.Time         `json:"decided_at"`
}
