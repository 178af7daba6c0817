package imgproc

import (
	"image"
	"image/color"
	"testing"
)

// fill paints the rectangle [x0,x1) x [y0,y1) with the given color.
func fill(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, c)
		}
	}
}

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, 0, 0, w, h, white)
	return img
}

func TestBorderWhiteFractionAllWhite(t *testing.T) {
	if got := borderWhiteFraction(whiteImage(100, 100), 10); got != 1.0 {
		t.Errorf("all-white border = %v, want 1.0", got)
	}
}

func TestBorderWhiteFractionIgnoresCenter(t *testing.T) {
	img := whiteImage(100, 100)
	fill(img, 30, 30, 70, 70, black) // well inside the 10px border band

	if got := borderWhiteFraction(img, 10); got != 1.0 {
		t.Errorf("centered object should not affect border score, got %v", got)
	}
}

func TestBorderWhiteFractionAllBlack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	fill(img, 0, 0, 50, 50, black)

	if got := borderWhiteFraction(img, 10); got != 0.0 {
		t.Errorf("all-black border = %v, want 0.0", got)
	}
}

func TestBorderWhiteFractionCountsBandsIndependently(t *testing.T) {
	// 40x40 with a black top band exactly the border depth. The four bands
	// overlap at the corners, so the sampled population is 4*10*40 = 1600:
	// the top band contributes 400 black pixels and each side band another
	// 100 black corner pixels, leaving 1000 white samples.
	img := whiteImage(40, 40)
	fill(img, 0, 0, 40, 10, black)

	got := borderWhiteFraction(img, 10)
	if got != 0.625 {
		t.Errorf("border fraction = %v, want 0.625", got)
	}
}

func TestBorderWhiteFractionNearWhiteWithinTolerance(t *testing.T) {
	// (250,250,250) is distance ~8.66 from white, inside the tolerance of 10.
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	fill(img, 0, 0, 30, 30, color.RGBA{250, 250, 250, 255})

	if got := borderWhiteFraction(img, 5); got != 1.0 {
		t.Errorf("near-white within tolerance = %v, want 1.0", got)
	}

	// (245,245,245) is distance ~17.3, outside tolerance.
	fill(img, 0, 0, 30, 30, color.RGBA{245, 245, 245, 255})
	if got := borderWhiteFraction(img, 5); got != 0.0 {
		t.Errorf("off-white outside tolerance = %v, want 0.0", got)
	}
}

func TestToGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, white)
	img.Set(1, 0, black)
	img.Set(2, 0, color.RGBA{255, 0, 0, 255})

	g := toGray(img)
	if g.at(0, 0) != 255 {
		t.Errorf("white luma = %v, want 255", g.at(0, 0))
	}
	if g.at(1, 0) != 0 {
		t.Errorf("black luma = %v, want 0", g.at(1, 0))
	}
	// 0.299 * 255 rounds to 76.
	if g.at(2, 0) != 76 {
		t.Errorf("red luma = %v, want 76", g.at(2, 0))
	}
}

func TestLaplacianVarianceUniform(t *testing.T) {
	g := toGray(whiteImage(32, 32))
	if got := laplacianVariance(g); got != 0 {
		t.Errorf("uniform image variance = %v, want 0", got)
	}
}

func TestLaplacianVarianceCheckerboard(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			if (x+y)%2 == 0 {
				img.Set(x, y, white)
			} else {
				img.Set(x, y, black)
			}
		}
	}

	got := laplacianVariance(toGray(img))
	if got <= 100 {
		t.Errorf("checkerboard variance = %v, want well above the blur threshold", got)
	}
}

func TestLaplacianVarianceEdgesBeatFlat(t *testing.T) {
	// A hard black/white edge must register sharper than a flat field.
	edge := whiteImage(32, 32)
	fill(edge, 0, 0, 16, 32, black)

	if flat, sharp := laplacianVariance(toGray(whiteImage(32, 32))), laplacianVariance(toGray(edge)); sharp <= flat {
		t.Errorf("edge variance %v should exceed flat variance %v", sharp, flat)
	}
}

func TestReflect101(t *testing.T) {
	cases := []struct {
		i, n, want int
	}{
		{-1, 10, 1},
		{0, 10, 0},
		{9, 10, 9},
		{10, 10, 8},
		{-1, 1, 0},
		{5, 1, 0},
	}
	for _, tc := range cases {
		if got := reflect101(tc.i, tc.n); got != tc.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestLargestRegionCoverageNoForeground(t *testing.T) {
	if got := largestRegionCoverage(toGray(whiteImage(50, 50))); got != 0 {
		t.Errorf("all-white coverage = %v, want 0", got)
	}
}

func TestLargestRegionCoverageSingleObject(t *testing.T) {
	img := whiteImage(100, 100)
	fill(img, 25, 25, 75, 75, black) // 50x50 object = 25% of frame

	got := largestRegionCoverage(toGray(img))
	if got != 0.25 {
		t.Errorf("coverage = %v, want 0.25", got)
	}
}

func TestLargestRegionCoveragePicksLargest(t *testing.T) {
	img := whiteImage(100, 100)
	fill(img, 5, 5, 15, 15, black)   // 10x10 = 100 px
	fill(img, 40, 40, 80, 80, black) // 40x40 = 1600 px

	got := largestRegionCoverage(toGray(img))
	if got != 0.16 {
		t.Errorf("coverage = %v, want 0.16 (largest region only)", got)
	}
}
