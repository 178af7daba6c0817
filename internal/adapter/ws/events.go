package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event type constants for WebSocket messages.
const (
	EventReviewCreated   = "review.created"
	EventReviewDecided   = "review.decided"
	EventReviewSLABreach = "review.sla_breach"
)

// ReviewCreatedEvent is broadcast when a review task enters the queue.
type ReviewCreatedEvent struct {
	TaskID   string    `json:"task_id"`
	ImageURL string    `json:"image_url"`
	Score    float64   `json:"validation_score"`
	Priority int       `json:"priority"`
	DueBy    time.Time `json:"due_by"`
}

// ReviewDecidedEvent is broadcast when a reviewer closes a task.
type ReviewDecidedEvent struct {
	TaskID     string `json:"task_id"`
	Decision   string `json:"decision"`
	ReviewerID string `json:"reviewer_id"`
}

// SLABreachEvent is broadcast when a task crosses its review deadline.
type SLABreachEvent struct {
	TaskID   string    `json:"task_id"`
	Priority int       `json:"priority"`
	DueBy    time.Time `json:"due_by"`
	Assignee string    `json:"assignee,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
