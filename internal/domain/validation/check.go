// Package validation defines the image quality-check domain: the fixed check
// set, weighted scoring, and the tiered decision policy.
package validation

import (
	"fmt"
	"math"
)

// Check names one quality check in the fixed set.
type Check string

const (
	CheckBackgroundWhite      Check = "background_white"
	CheckSharpness            Check = "sharpness"
	CheckObjectCoverage       Check = "object_coverage"
	CheckObjectPresence       Check = "object_presence"
	CheckPerceptualSimilarity Check = "perceptual_similarity"
)

// Checks is the fixed check set in reporting order.
var Checks = []Check{
	CheckBackgroundWhite,
	CheckSharpness,
	CheckObjectCoverage,
	CheckObjectPresence,
	CheckPerceptualSimilarity,
}

// Soft-failure constants. A check that cannot run degrades to its neutral
// score instead of failing the validation; changing these shifts the whole
// scoring distribution, so they are fixed here rather than configured.
const (
	// NeutralScore is returned when a check's feature extraction fails
	// after a successful decode.
	NeutralScore = 0.5

	// PresencePlaceholderScore is the object_presence score while no
	// detector is wired.
	PresencePlaceholderScore = 0.7

	// SimilarityNeutralScore is the perceptual_similarity score when a
	// reference was supplied but could not be decoded or hashed.
	SimilarityNeutralScore = 0.7

	// SimilarityNoReferenceScore is the perceptual_similarity score when
	// no reference image was supplied at all.
	SimilarityNoReferenceScore = 1.0
)

// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
const WeightSumTolerance = 1e-3

// Scores maps each check to its score in [0, 1].
type Scores map[Check]float64

// ZeroScores returns a score map with every check at 0, used for error
// outcomes so callers always see a fully-populated result.
func ZeroScores() Scores {
	s := make(Scores, len(Checks))
	for _, c := range Checks {
		s[c] = 0
	}
	return s
}

// Weights maps each check to its share of the overall score.
type Weights map[Check]float64

// DefaultWeights returns the stock weighting of the check set.
func DefaultWeights() Weights {
	return Weights{
		CheckBackgroundWhite:      0.25,
		CheckSharpness:            0.15,
		CheckObjectCoverage:       0.25,
		CheckObjectPresence:       0.20,
		CheckPerceptualSimilarity: 0.15,
	}
}

// Sum returns the total of all configured weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Validate reports whether the weights sum to 1.0 within tolerance. Callers
// log a violation and proceed; a skewed sum is a configuration smell, not a
// hard failure.
func (w Weights) Validate() error {
	if d := math.Abs(w.Sum() - 1.0); d > WeightSumTolerance {
		return fmt.Errorf("check weights sum to %.4f, want 1.0 ± %.0e", w.Sum(), WeightSumTolerance)
	}
	return nil
}

// Score combines per-check scores into the overall score. Each term is a
// weighted fraction of a [0,1] input, so the result stays in [0,1] whenever
// the weights sum to 1.
func (w Weights) Score(s Scores) float64 {
	var overall float64
	for _, c := range Checks {
		overall += w[c] * s[c]
	}
	return overall
}

// SharpnessScore maps a raw focus measure (Laplacian variance) to [0,1]:
// linear below the threshold, saturating at 1.0 once the measure reaches it.
func SharpnessScore(focusMeasure, threshold float64) float64 {
	if threshold <= 0 {
		return NeutralScore
	}
	return math.Min(1.0, focusMeasure/threshold)
}

// CoverageScore maps the dominant-foreground area fraction to [0,1]. Inside
// [min,max] the score is 1.0; below min it scales up to at most 0.5; above
// max it decays from 1.0 proportionally to the excess, floored at 0.
func CoverageScore(coverage, min, max float64) float64 {
	switch {
	case coverage < min:
		if min <= 0 {
			return 0
		}
		return coverage / min * 0.5
	case coverage > max:
		if max >= 1 {
			return 1.0
		}
		return math.Max(0.0, 1.0-(coverage-max)/(1.0-max)*0.5)
	default:
		return 1.0
	}
}

// SimilarityScore converts a Hamming distance between two perceptual hashes
// into a similarity in [0,1]: 1.0 means identical, 0.0 means every bit differs.
func SimilarityScore(hammingDistance, hashBits int) float64 {
	if hashBits <= 0 {
		return SimilarityNeutralScore
	}
	sim := 1.0 - float64(hammingDistance)/float64(hashBits)
	return math.Max(0.0, math.Min(1.0, sim))
}
