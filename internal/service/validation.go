package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/bits"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/CatalogForge/internal/adapter/otel"
	"github.com/Strob0t/CatalogForge/internal/config"
	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/validation"
	"github.com/Strob0t/CatalogForge/internal/port/imaging"
	"github.com/Strob0t/CatalogForge/internal/port/messagequeue"
	"github.com/Strob0t/CatalogForge/internal/resilience"
)

// ValidationService scores product images against the fixed check set and
// maps the weighted score onto the accept/review/reject tiers.
type ValidationService struct {
	decoder imaging.Decoder
	queue   messagequeue.Queue
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
	cfg     config.Validation
	weights validation.Weights
	now     func() time.Time
}

// NewValidationService creates a new ValidationService. A weight sum that
// drifts from 1.0 is logged once here and then honored as configured.
func NewValidationService(decoder imaging.Decoder, queue messagequeue.Queue, cfg config.Validation) *ValidationService {
	weights := cfg.Weights.CheckWeights()
	if err := weights.Validate(); err != nil {
		slog.Warn("validation weights misconfigured", "error", err)
	}
	return &ValidationService{
		decoder: decoder,
		queue:   queue,
		cfg:     cfg,
		weights: weights,
		now:     time.Now,
	}
}

// SetBreaker attaches a circuit breaker to event publishing.
func (s *ValidationService) SetBreaker(b *resilience.Breaker) {
	s.breaker = b
}

// SetMetrics attaches metric instruments.
func (s *ValidationService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Validate runs every check against the image and returns the scored
// outcome. A file that cannot be read or decoded yields an error-status
// outcome rather than a failed call; individual checks that cannot run
// degrade to their neutral scores so one broken measurement never sinks an
// otherwise good image.
func (s *ValidationService) Validate(ctx context.Context, req validation.ValidateRequest) (*validation.Outcome, error) {
	ctx, span := cfotel.StartValidationSpan(ctx, req.ImagePath)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	started := s.now()

	feats, err := s.decoder.Extract(ctx, req.ImagePath)
	if err != nil {
		reason := "Validation error: " + err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			reason = "Image file not found"
		}
		slog.Warn("image validation failed before scoring",
			"image_path", req.ImagePath, "error", err)
		out := validation.ErrorOutcome(reason, s.since(started))
		s.record(ctx, req.ImagePath, out)
		return out, nil
	}

	scores := s.score(ctx, feats, req.ReferenceImagePath)
	overall := s.weights.Score(scores)
	status, reason := validation.Decide(overall, s.cfg.AcceptThreshold, s.cfg.ReviewThreshold)

	out := &validation.Outcome{
		Scores:          scores,
		Overall:         overall,
		Status:          status,
		Reason:          reason,
		ExecutionTimeMS: s.since(started),
	}
	s.record(ctx, req.ImagePath, out)
	return out, nil
}

// score converts raw image features into per-check scores.
func (s *ValidationService) score(ctx context.Context, feats *imaging.Features, refPath string) validation.Scores {
	scores := validation.Scores{
		validation.CheckBackgroundWhite:      validation.NeutralScore,
		validation.CheckSharpness:            validation.NeutralScore,
		validation.CheckObjectCoverage:       validation.NeutralScore,
		validation.CheckObjectPresence:       validation.PresencePlaceholderScore,
		validation.CheckPerceptualSimilarity: s.similarity(ctx, feats, refPath),
	}
	if feats.BorderOK {
		scores[validation.CheckBackgroundWhite] = feats.BorderWhiteFraction
	}
	if feats.SharpnessOK {
		scores[validation.CheckSharpness] = validation.SharpnessScore(feats.SharpnessVariance, s.cfg.BlurThreshold)
	}
	if feats.CoverageOK {
		scores[validation.CheckObjectCoverage] = validation.CoverageScore(feats.Coverage, s.cfg.CoverageMin, s.cfg.CoverageMax)
	}
	return scores
}

// similarity compares the candidate's perceptual hash against the reference
// image. No reference scores a full 1.0; a reference that cannot be hashed
// scores the similarity neutral.
func (s *ValidationService) similarity(ctx context.Context, feats *imaging.Features, refPath string) float64 {
	if refPath == "" {
		return validation.SimilarityNoReferenceScore
	}
	if !feats.HashOK {
		return validation.SimilarityNeutralScore
	}
	refHash, err := s.decoder.Hash(ctx, refPath)
	if err != nil {
		slog.Warn("reference image hash failed", "reference_path", refPath, "error", err)
		return validation.SimilarityNeutralScore
	}
	distance := bits.OnesCount64(feats.PerceptualHash ^ refHash)
	return validation.SimilarityScore(distance, 64)
}

// record emits metrics and publishes the outcome. Error outcomes are counted
// and timed but excluded from the score distribution.
func (s *ValidationService) record(ctx context.Context, imagePath string, out *validation.Outcome) {
	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("status", string(out.Status)))
		s.metrics.ImagesValidated.Add(ctx, 1, attrs)
		s.metrics.ValidationDuration.Record(ctx, float64(out.ExecutionTimeMS)/1000.0, attrs)
		if out.Status != validation.StatusError {
			s.metrics.ValidationScore.Record(ctx, out.Overall)
		}
	}

	data, err := json.Marshal(messagequeue.ImageValidatedEvent{
		ImagePath: imagePath,
		Status:    string(out.Status),
		Score:     out.Overall,
		Reason:    out.Reason,
	})
	if err != nil {
		slog.Error("marshal validation event", "error", err)
		return
	}
	s.publish(ctx, messagequeue.SubjectImageValidated, data)
}

// publish sends an event through the breaker, best-effort. A failed or open
// breaker never fails the validation that produced the event.
func (s *ValidationService) publish(ctx context.Context, subject string, data []byte) {
	call := func() error { return s.queue.Publish(ctx, subject, data) }

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

func (s *ValidationService) since(started time.Time) int64 {
	return s.now().Sub(started).Milliseconds()
}
