package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/CatalogForge/internal/adapter/otel"
	"github.com/Strob0t/CatalogForge/internal/domain"
	"github.com/Strob0t/CatalogForge/internal/domain/sku"
	"github.com/Strob0t/CatalogForge/internal/port/database"
	"github.com/Strob0t/CatalogForge/internal/port/messagequeue"
	"github.com/Strob0t/CatalogForge/internal/resilience"
)

// SKUService turns raw vendor codes into canonical product identifiers and
// resolves collisions against the uniqueness-enforcing store.
type SKUService struct {
	store       database.Store
	queue       messagequeue.Queue
	breaker     *resilience.Breaker
	metrics     *cfotel.Metrics
	maxAttempts int
}

// NewSKUService creates a new SKUService. maxAttempts bounds the collision
// resolution retries per request.
func NewSKUService(store database.Store, queue messagequeue.Queue, maxAttempts int) *SKUService {
	return &SKUService{store: store, queue: queue, maxAttempts: maxAttempts}
}

// SetBreaker attaches a circuit breaker to event publishing.
func (s *SKUService) SetBreaker(b *resilience.Breaker) {
	s.breaker = b
}

// SetMetrics attaches metric instruments.
func (s *SKUService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Generate canonicalizes the raw vendor code, prefixes the vendor namespace,
// and inserts the candidate. The database unique index is the arbiter: on
// conflict the candidate is retried with a deterministic hash suffix that
// grows one character per attempt, so concurrent generators converge on the
// same fallback identifiers.
func (s *SKUService) Generate(ctx context.Context, req sku.GenerateRequest) (*sku.Result, error) {
	ctx, span := cfotel.StartSKUSpan(ctx, req.VendorID, req.RawCode)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	slug := sku.Canonicalize(req.RawCode, sku.SlugMaxLength)
	if slug == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, sku.ErrUnusableRawCode)
	}

	base := req.VendorNamespace + "-" + slug
	// Keep one character of headroom for the suffix separator; when even
	// the bare base overflows the column, truncate the slug.
	if len(base)+1 > sku.MaxLength {
		keep := sku.MaxLength - len(req.VendorNamespace) - 2
		if keep < 1 {
			return nil, fmt.Errorf("%w: vendor_namespace leaves no room for a slug", domain.ErrValidation)
		}
		slug = slug[:keep]
		base = req.VendorNamespace + "-" + slug
	}

	rec, err := s.insert(ctx, req, base)
	if err == nil {
		res := &sku.Result{CanonicalSKU: rec.CanonicalSKU, Outcome: sku.OutcomeInserted}
		s.finish(ctx, req, res)
		return res, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if s.metrics != nil {
			s.metrics.SKUCollisions.Add(ctx, 1)
		}

		hashInput := fmt.Sprintf("%s:%s:%d", req.RawCode, req.VendorID, attempt)
		suffix := sku.ShortHash(hashInput, sku.SuffixLength(attempt))
		candidate := base + "-" + suffix
		if len(candidate) > sku.MaxLength {
			slog.Warn("suffixed sku exceeds max length, skipping attempt",
				"candidate", candidate, "attempt", attempt)
			continue
		}

		rec, err := s.insert(ctx, req, candidate)
		if err == nil {
			res := &sku.Result{
				CanonicalSKU: rec.CanonicalSKU,
				Outcome:      sku.OutcomeConflictResolved,
				Attempts:     attempt + 1,
			}
			s.finish(ctx, req, res)
			return res, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("insert product: %w", err)
		}
	}

	slog.Error("sku collision unresolved",
		"vendor_id", req.VendorID, "raw_code", req.RawCode, "attempts", s.maxAttempts)
	res := &sku.Result{Outcome: sku.OutcomeConflictUnresolved, Attempts: s.maxAttempts}
	s.count(ctx, res)
	return res, nil
}

// Unique reports whether the canonical SKU is still free.
func (s *SKUService) Unique(ctx context.Context, canonicalSKU string) (bool, error) {
	exists, err := s.store.SKUExists(ctx, canonicalSKU)
	if err != nil {
		return false, fmt.Errorf("check sku: %w", err)
	}
	return !exists, nil
}

// Lookup returns the product record behind a canonical SKU.
func (s *SKUService) Lookup(ctx context.Context, canonicalSKU string) (*sku.Record, error) {
	return s.store.GetProductBySKU(ctx, canonicalSKU)
}

func (s *SKUService) insert(ctx context.Context, req sku.GenerateRequest, candidate string) (*sku.Record, error) {
	return s.store.InsertProduct(ctx, sku.Record{
		VendorID:     req.VendorID,
		VendorCode:   req.RawCode,
		CanonicalSKU: candidate,
	})
}

// finish records metrics and publishes the accepted identifier.
func (s *SKUService) finish(ctx context.Context, req sku.GenerateRequest, res *sku.Result) {
	s.count(ctx, res)

	data, err := json.Marshal(messagequeue.SKUGeneratedEvent{
		VendorID:     req.VendorID,
		RawCode:      req.RawCode,
		CanonicalSKU: res.CanonicalSKU,
		Outcome:      string(res.Outcome),
		Attempts:     res.Attempts,
	})
	if err != nil {
		slog.Error("marshal sku event", "error", err)
		return
	}
	s.publish(ctx, messagequeue.SubjectSKUGenerated, data)
}

func (s *SKUService) count(ctx context.Context, res *sku.Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.SKUsGenerated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(res.Outcome)),
	))
}

// publish sends an event through the breaker, best-effort. A failed or open
// breaker never fails the request that produced the event.
func (s *SKUService) publish(ctx context.Context, subject string, data []byte) {
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
