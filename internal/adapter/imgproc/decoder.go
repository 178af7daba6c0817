// Package imgproc implements the imaging port with pure-Go decoding and
// feature measurement, a perceptual hash, and a content-addressed feature
// cache so repeated validations of the same file skip the pixel work.
package imgproc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif" // register decoders for the catalog image formats
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/gabriel-vasile/mimetype"

	"github.com/Strob0t/CatalogForge/internal/port/cache"
	"github.com/Strob0t/CatalogForge/internal/port/imaging"
)

const featureCachePrefix = "img:features:"

// Extractor decodes product images and measures the raw features the
// validation checks score against. It implements imaging.Decoder.
type Extractor struct {
	borderPx int
	pool     *Pool
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// NewExtractor creates an Extractor. The cache is optional; pass nil to
// measure every file from scratch.
func NewExtractor(borderPx int, pool *Pool, featureCache cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Extractor {
	return &Extractor{
		borderPx: borderPx,
		pool:     pool,
		cache:    featureCache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Extract decodes the image at path and measures all features. The error is
// non-nil only when the file cannot be read, is not an image, or fails to
// decode; per-feature trouble surfaces as cleared OK flags instead.
func (e *Extractor) Extract(ctx context.Context, path string) (*imaging.Features, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: callers supply catalog paths
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if cached := e.lookup(ctx, digest); cached != nil {
		return cached, nil
	}

	img, err := e.decode(ctx, path, data)
	if err != nil {
		return nil, err
	}

	feats := e.measure(img)
	feats.ContentDigest = digest
	e.store(ctx, digest, feats)
	return feats, nil
}

// Hash decodes the image at path and returns its 64-bit perceptual hash.
func (e *Extractor) Hash(ctx context.Context, path string) (uint64, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: callers supply catalog paths
	if err != nil {
		return 0, fmt.Errorf("read image %s: %w", path, err)
	}
	img, err := e.decode(ctx, path, data)
	if err != nil {
		return 0, err
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("perceptual hash %s: %w", path, err)
	}
	return h.GetHash(), nil
}

// decode sniffs the content type and decodes inside the shared pool so a
// burst of validations cannot hold every decoded frame in memory at once.
func (e *Extractor) decode(ctx context.Context, path string, data []byte) (image.Image, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("decode %s: unsupported content type %s", path, mtype.String())
	}

	var img image.Image
	err := e.pool.Run(ctx, func() error {
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		img = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (e *Extractor) measure(img image.Image) *imaging.Features {
	gray := toGray(img)

	feats := &imaging.Features{
		BorderWhiteFraction: borderWhiteFraction(img, e.borderPx),
		BorderOK:            true,
		SharpnessVariance:   laplacianVariance(gray),
		SharpnessOK:         true,
		Coverage:            largestRegionCoverage(gray),
		CoverageOK:          true,
	}

	if h, err := goimagehash.PerceptionHash(img); err != nil {
		e.log.Warn("perceptual hash failed", "error", err)
	} else {
		feats.PerceptualHash = h.GetHash()
		feats.HashOK = true
	}
	return feats
}

func (e *Extractor) lookup(ctx context.Context, digest string) *imaging.Features {
	if e.cache == nil {
		return nil
	}
	data, ok, err := e.cache.Get(ctx, featureCachePrefix+digest)
	if err != nil || !ok {
		return nil
	}
	var feats imaging.Features
	if err := json.Unmarshal(data, &feats); err != nil {
		e.log.Warn("corrupt feature cache entry", "digest", digest, "error", err)
		return nil
	}
	return &feats
}

func (e *Extractor) store(ctx context.Context, digest string, feats *imaging.Features) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(feats)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, featureCachePrefix+digest, data, e.cacheTTL); err != nil {
		e.log.Warn("feature cache write failed", "digest", digest, "error", err)
	}
}
