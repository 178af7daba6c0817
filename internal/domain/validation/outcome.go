package validation

import (
	"errors"
	"fmt"
)

// Status is the tier an image lands in after scoring.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusNeedsReview Status = "needs_review"
	StatusError       Status = "error"
)

// Outcome is the immutable result of one validation call.
type Outcome struct {
	Scores          Scores  `json:"checks"`
	Overall         float64 `json:"validation_score"`
	Status          Status  `json:"status"`
	Reason          string  `json:"reason"`
	ExecutionTimeMS int64   `json:"execution_time_ms"`
}

// NeedsReview reports whether the outcome requires a human decision.
func (o *Outcome) NeedsReview() bool {
	return o.Status == StatusNeedsReview
}

// Decide maps an overall score to a status tier. Total over [0,1] and
// monotonic: a higher score never lands in a stricter tier. Both boundaries
// are inclusive of the better tier.
func Decide(overall, acceptThreshold, reviewThreshold float64) (Status, string) {
	switch {
	case overall >= acceptThreshold:
		return StatusAccepted, "All checks passed"
	case overall >= reviewThreshold:
		return StatusNeedsReview, fmt.Sprintf("Score %.2f is borderline; requires human review", overall)
	default:
		return StatusRejected, fmt.Sprintf("Score %.2f below review threshold", overall)
	}
}

// ErrorOutcome builds a fully-populated zero-score outcome for a pipeline
// failure before scoring (missing file, undecodable image). Always actionable
// by the caller; thresholds play no part.
func ErrorOutcome(reason string, executionMS int64) *Outcome {
	return &Outcome{
		Scores:          ZeroScores(),
		Overall:         0,
		Status:          StatusError,
		Reason:          reason,
		ExecutionTimeMS: executionMS,
	}
}

// ValidateRequest holds the fields for one validation call.
type ValidateRequest struct {
	ImagePath          string `json:"image_path"`
	ReferenceImagePath string `json:"reference_image_path,omitempty"`
}

// ErrImagePathRequired rejects validation calls without a candidate image.
var ErrImagePathRequired = errors.New("image_path is required")

// Validate checks the request for correctness.
func (r *ValidateRequest) Validate() error {
	if r.ImagePath == "" {
		return ErrImagePathRequired
	}
	return nil
}
