package validation

import (
	"math"
	"strings"
	"testing"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w[CheckSharpness] = 0.50
	if err := w.Validate(); err == nil {
		t.Error("expected validation error for skewed weights")
	}

	// Within tolerance passes.
	w = DefaultWeights()
	w[CheckSharpness] += 0.0005
	if err := w.Validate(); err != nil {
		t.Errorf("tolerance of 1e-3 should absorb 5e-4 drift: %v", err)
	}
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	w := DefaultWeights()
	vectors := []Scores{
		{CheckBackgroundWhite: 0, CheckSharpness: 0, CheckObjectCoverage: 0, CheckObjectPresence: 0, CheckPerceptualSimilarity: 0},
		{CheckBackgroundWhite: 1, CheckSharpness: 1, CheckObjectCoverage: 1, CheckObjectPresence: 1, CheckPerceptualSimilarity: 1},
		{CheckBackgroundWhite: 0.9, CheckSharpness: 0.1, CheckObjectCoverage: 0.5, CheckObjectPresence: 0.7, CheckPerceptualSimilarity: 0.3},
	}
	for _, v := range vectors {
		got := w.Score(v)
		if got < 0 || got > 1 {
			t.Errorf("Score(%v) = %f, want within [0,1]", v, got)
		}
	}

	// Perfect scores with unit weights give exactly 1.
	if got := w.Score(vectors[1]); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("perfect scores = %f, want 1.0", got)
	}
}

func TestDecideTiers(t *testing.T) {
	const accept, review = 0.85, 0.70

	tests := []struct {
		name    string
		overall float64
		want    Status
	}{
		{"well above accept", 0.92, StatusAccepted},
		{"exactly accept", 0.85, StatusAccepted},
		{"borderline", 0.72, StatusNeedsReview},
		{"exactly review", 0.70, StatusNeedsReview},
		{"just below review", 0.6999, StatusRejected},
		{"rejected", 0.55, StatusRejected},
		{"zero", 0, StatusRejected},
		{"one", 1, StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Decide(tt.overall, accept, review)
			if got != tt.want {
				t.Errorf("Decide(%f) = %s, want %s", tt.overall, got, tt.want)
			}
			if reason == "" {
				t.Error("reason must never be empty")
			}
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	// Walking the score upward must never move the outcome to a stricter tier.
	rank := map[Status]int{StatusRejected: 0, StatusNeedsReview: 1, StatusAccepted: 2}
	prev := StatusRejected
	for s := 0.0; s <= 1.0; s += 0.01 {
		got, _ := Decide(s, 0.85, 0.70)
		if rank[got] < rank[prev] {
			t.Fatalf("tier regressed from %s to %s at score %.2f", prev, got, s)
		}
		prev = got
	}
}

func TestDecideReasonCarriesScore(t *testing.T) {
	_, reason := Decide(0.72, 0.85, 0.70)
	if !strings.Contains(reason, "0.72") {
		t.Errorf("needs_review reason should include the score, got %q", reason)
	}
	_, reason = Decide(0.55, 0.85, 0.70)
	if !strings.Contains(reason, "0.55") {
		t.Errorf("rejected reason should include the score, got %q", reason)
	}
}

func TestErrorOutcome(t *testing.T) {
	o := ErrorOutcome("image file not found", 3)
	if o.Status != StatusError {
		t.Errorf("status = %s, want %s", o.Status, StatusError)
	}
	if o.Overall != 0 {
		t.Errorf("overall = %f, want 0", o.Overall)
	}
	if len(o.Scores) != len(Checks) {
		t.Fatalf("scores has %d entries, want %d", len(o.Scores), len(Checks))
	}
	for c, s := range o.Scores {
		if s != 0 {
			t.Errorf("score[%s] = %f, want 0", c, s)
		}
	}
	if o.ExecutionTimeMS != 3 {
		t.Errorf("execution_time_ms = %d, want 3", o.ExecutionTimeMS)
	}
}

func TestSharpnessScore(t *testing.T) {
	tests := []struct {
		measure, threshold, want float64
	}{
		{0, 100, 0},
		{50, 100, 0.5},
		{100, 100, 1},
		{4000, 100, 1},
		{10, 0, NeutralScore},
	}
	for _, tt := range tests {
		if got := SharpnessScore(tt.measure, tt.threshold); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SharpnessScore(%f, %f) = %f, want %f", tt.measure, tt.threshold, got, tt.want)
		}
	}
}

func TestCoverageScore(t *testing.T) {
	const min, max = 0.30, 0.90

	tests := []struct {
		name     string
		coverage float64
		want     float64
	}{
		{"in band low edge", 0.30, 1.0},
		{"in band", 0.60, 1.0},
		{"in band high edge", 0.90, 1.0},
		{"below band", 0.15, 0.25},       // 0.15/0.30*0.5
		{"barely below", 0.2999, 0.49983}, // approaches 0.5 from below
		{"above band", 0.95, 0.75},        // 1 - (0.05/0.10)*0.5
		{"full frame", 1.0, 0.5},
		{"no foreground", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoverageScore(tt.coverage, min, max); math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("CoverageScore(%f) = %f, want %f", tt.coverage, got, tt.want)
			}
		})
	}
}

func TestSimilarityScore(t *testing.T) {
	tests := []struct {
		distance, bits int
		want           float64
	}{
		{0, 64, 1.0},
		{32, 64, 0.5},
		{64, 64, 0.0},
		{70, 64, 0.0}, // clamped
		{0, 0, SimilarityNeutralScore},
	}
	for _, tt := range tests {
		if got := SimilarityScore(tt.distance, tt.bits); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SimilarityScore(%d, %d) = %f, want %f", tt.distance, tt.bits, got, tt.want)
		}
	}
}
