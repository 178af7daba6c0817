// Package imaging defines the port for extracting scoring features from
// product images.
package imaging

import "context"

// Features holds the raw measurements the validation checks score against.
// Each measurement carries an OK flag; a false flag means that feature
// could not be computed even though the image itself decoded.
type Features struct {
	// BorderWhiteFraction is the share of border-band pixels close to
	// pure white, in [0,1].
	BorderWhiteFraction float64
	BorderOK            bool

	// SharpnessVariance is the variance of the Laplacian over the
	// grayscale image. Higher is sharper.
	SharpnessVariance float64
	SharpnessOK       bool

	// Coverage is the fraction of the frame occupied by the dominant
	// foreground region, in [0,1]. Zero with CoverageOK set means no
	// foreground was detected.
	Coverage   float64
	CoverageOK bool

	// PerceptualHash is the 64-bit perceptual hash of the image.
	PerceptualHash uint64
	HashOK         bool

	// ContentDigest is the hex SHA-256 of the raw file bytes, used as a
	// cache key for repeated validations of the same file.
	ContentDigest string
}

// Decoder is the port interface for decoding images and measuring features.
type Decoder interface {
	// Extract decodes the image at path and measures all features. The
	// returned error is non-nil only when the file cannot be read or
	// decoded at all; per-feature failures surface as cleared OK flags.
	Extract(ctx context.Context, path string) (*Features, error)

	// Hash decodes the image at path and returns its perceptual hash.
	Hash(ctx context.Context, path string) (uint64, error)
}
