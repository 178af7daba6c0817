package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "catalogforge"

// StartSKUSpan starts a span for one SKU generation request.
func StartSKUSpan(ctx context.Context, vendorID, rawCode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sku.generate",
		trace.WithAttributes(
			attribute.String("vendor.id", vendorID),
			attribute.String("sku.raw_code", rawCode),
		),
	)
}

// StartValidationSpan starts a span for one image validation.
func StartValidationSpan(ctx context.Context, imagePath string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "image.validate",
		trace.WithAttributes(
			attribute.String("image.path", imagePath),
		),
	)
}

// StartReviewSpan starts a span for a review lifecycle action.
func StartReviewSpan(ctx context.Context, action, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review."+action,
		trace.WithAttributes(
			attribute.String("review.task_id", taskID),
		),
	)
}
