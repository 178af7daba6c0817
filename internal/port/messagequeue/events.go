package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event payloads carried on the catalog subjects. They mirror the domain
// snapshots but stay flat so queue consumers never import domain packages.

// SKUGeneratedEvent is published when a canonical SKU is accepted into the
// catalog, whether on the first attempt or after collision suffixing.
type SKUGeneratedEvent struct {
	VendorID     string `json:"vendor_id"`
	RawCode      string `json:"raw_code"`
	CanonicalSKU string `json:"canonical_sku"`
	Outcome      string `json:"outcome"`
	Attempts     int    `json:"attempts"`
}

// Validate checks the required fields.
func (e SKUGeneratedEvent) Validate() error {
	if e.VendorID == "" {
		return errors.New("vendor_id is required")
	}
	if e.CanonicalSKU == "" {
		return errors.New("canonical_sku is required")
	}
	return nil
}

// ImageValidatedEvent is published after every image validation, including
// error outcomes.
type ImageValidatedEvent struct {
	ImagePath string  `json:"image_path"`
	Status    string  `json:"status"`
	Score     float64 `json:"validation_score"`
	Reason    string  `json:"reason"`
}

// Validate checks the required fields.
func (e ImageValidatedEvent) Validate() error {
	if e.ImagePath == "" {
		return errors.New("image_path is required")
	}
	if e.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// ReviewCreatedEvent is published when a review task enters the queue.
type ReviewCreatedEvent struct {
	TaskID   string    `json:"task_id"`
	ImageURL string    `json:"image_url"`
	Score    float64   `json:"validation_score"`
	Priority int       `json:"priority"`
	DueBy    time.Time `json:"due_by"`
}

// Validate checks the required fields.
func (e ReviewCreatedEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task_id is required")
	}
	if e.Priority < 1 || e.Priority > 5 {
		return fmt.Errorf("priority %d out of range", e.Priority)
	}
	return nil
}

// ReviewDecidedEvent is published when a reviewer closes a task.
type ReviewDecidedEvent struct {
	TaskID           string `json:"task_id"`
	Decision         string `json:"decision"`
	ReviewerID       string `json:"reviewer_id"`
	TrainingEligible bool   `json:"training_eligible"`
}

// Validate checks the required fields.
func (e ReviewDecidedEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task_id is required")
	}
	if e.Decision == "" {
		return errors.New("decision is required")
	}
	if e.ReviewerID == "" {
		return errors.New("reviewer_id is required")
	}
	return nil
}

// TrainingCapturedEvent is published for decisions eligible as training
// feedback (accepted or rejected).
type TrainingCapturedEvent struct {
	TaskID     string `json:"task_id"`
	FeedbackID string `json:"feedback_id"`
	Decision   string `json:"decision"`
	Confidence int    `json:"confidence"`
}

// Validate checks the required fields.
func (e TrainingCapturedEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task_id is required")
	}
	if e.FeedbackID == "" {
		return errors.New("feedback_id is required")
	}
	if e.Confidence < 1 || e.Confidence > 5 {
		return fmt.Errorf("confidence %d out of range", e.Confidence)
	}
	return nil
}

// SLABreachEvent is published when the overdue scanner finds a task past its
// review deadline.
type SLABreachEvent struct {
	TaskID   string    `json:"task_id"`
	Priority int       `json:"priority"`
	DueBy    time.Time `json:"due_by"`
	Assignee string    `json:"assignee,omitempty"`
}

// Validate checks the required fields.
func (e SLABreachEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task_id is required")
	}
	if e.DueBy.IsZero() {
		return errors.New("due_by is required")
	}
	return nil
}

// validator pairs a subject with a decode-and-check of its payload.
type validator func(data []byte) error

func typed[T interface{ Validate() error }](data []byte) error {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return e.Validate()
}

var validators = map[string]validator{
	SubjectSKUGenerated:   typed[SKUGeneratedEvent],
	SubjectImageValidated: typed[ImageValidatedEvent],
	SubjectReviewCreated:  typed[ReviewCreatedEvent],
	SubjectReviewDecided:  typed[ReviewDecidedEvent],
	SubjectReviewTraining: typed[TrainingCapturedEvent],
	SubjectReviewSLA:      typed[SLABreachEvent],
}

// ValidatePayload checks a message against the schema of its subject before
// it reaches a handler. Subjects without a registered schema only need to
// carry valid JSON.
func ValidatePayload(subject string, data []byte) error {
	if v, ok := validators[subject]; ok {
		return v(data)
	}
	if !json.Valid(data) {
		return errors.New("payload is not valid JSON")
	}
	return nil
}
