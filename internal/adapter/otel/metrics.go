package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "catalogforge"

// Metrics holds all CatalogForge metric instruments.
type Metrics struct {
	SKUsGenerated      metric.Int64Counter
	SKUCollisions      metric.Int64Counter
	ImagesValidated    metric.Int64Counter
	ValidationScore    metric.Float64Histogram
	ValidationDuration metric.Float64Histogram
	ReviewsCreated     metric.Int64Counter
	ReviewsDecided     metric.Int64Counter
	SLABreaches        metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SKUsGenerated, err = meter.Int64Counter("catalogforge.skus.generated",
		metric.WithDescription("SKU generation attempts by outcome"))
	if err != nil {
		return nil, err
	}

	m.SKUCollisions, err = meter.Int64Counter("catalogforge.skus.collisions",
		metric.WithDescription("Canonical SKU collisions hit during generation"))
	if err != nil {
		return nil, err
	}

	m.ImagesValidated, err = meter.Int64Counter("catalogforge.images.validated",
		metric.WithDescription("Image validations by status"))
	if err != nil {
		return nil, err
	}

	m.ValidationScore, err = meter.Float64Histogram("catalogforge.validation.score",
		metric.WithDescription("Weighted validation scores"))
	if err != nil {
		return nil, err
	}

	m.ValidationDuration, err = meter.Float64Histogram("catalogforge.validation.duration_seconds",
		metric.WithDescription("Image validation duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ReviewsCreated, err = meter.Int64Counter("catalogforge.reviews.created",
		metric.WithDescription("Review tasks queued by priority"))
	if err != nil {
		return nil, err
	}

	m.ReviewsDecided, err = meter.Int64Counter("catalogforge.reviews.decided",
		metric.WithDescription("Review decisions by kind"))
	if err != nil {
		return nil, err
	}

	m.SLABreaches, err = meter.Int64Counter("catalogforge.reviews.sla_breaches",
		metric.WithDescription("Review tasks found past their deadline"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
