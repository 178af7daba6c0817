package imgproc

import (
	"image"
	"math"
)

// whiteTolerance is the Euclidean RGB distance from pure white below which a
// border pixel counts as white background.
const whiteTolerance = 10

// backgroundCutoff is the grayscale level above which a pixel is treated as
// white background when segmenting the foreground object.
const backgroundCutoff = 250

// grayImage holds 8-bit luma values as float64 for kernel math.
type grayImage struct {
	pix  []float64
	w, h int
}

func (g *grayImage) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

// toGray converts an image to 8-bit grayscale using the standard luma
// weights (0.299 R + 0.587 G + 0.114 B), rounded the way OpenCV and PIL
// round when they produce a grayscale byte image.
func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	g := &grayImage{
		pix: make([]float64, b.Dx()*b.Dy()),
		w:   b.Dx(),
		h:   b.Dy(),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gg, bb, _ := img.At(x, y).RGBA()
			r8 := float64(r >> 8)
			g8 := float64(gg >> 8)
			b8 := float64(bb >> 8)
			g.pix[i] = math.Round(0.299*r8 + 0.587*g8 + 0.114*b8)
			i++
		}
	}
	return g
}

// borderWhiteFraction returns the fraction of border-band pixels whose RGB
// distance to pure white is under tolerance. The four bands are sampled
// independently (top, bottom, left, right), so corner pixels count twice;
// the band clamps to the image when it is smaller than 2*borderPx.
func borderWhiteFraction(img image.Image, borderPx int) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || borderPx < 1 {
		return 0
	}

	var total, white int
	count := func(x, y int) {
		r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		dr := 255 - int(r>>8)
		dg := 255 - int(g>>8)
		db := 255 - int(bb>>8)
		total++
		if dr*dr+dg*dg+db*db < whiteTolerance*whiteTolerance {
			white++
		}
	}

	top := min(borderPx, h)
	for y := range top {
		for x := range w {
			count(x, y)
		}
	}
	bottom := max(h-borderPx, 0)
	for y := bottom; y < h; y++ {
		for x := range w {
			count(x, y)
		}
	}
	left := min(borderPx, w)
	for x := range left {
		for y := range h {
			count(x, y)
		}
	}
	right := max(w-borderPx, 0)
	for x := right; x < w; x++ {
		for y := range h {
			count(x, y)
		}
	}

	if total == 0 {
		return 0
	}
	return float64(white) / float64(total)
}

// reflect101 mirrors an out-of-range coordinate about the edge without
// repeating the edge pixel (the default border mode of OpenCV filters).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - i - 2
	}
	return i
}

// laplacianVariance applies the 3x3 Laplacian kernel and returns the
// population variance of the response. Sharp images produce strong edge
// responses and therefore high variance; blur flattens it.
func laplacianVariance(g *grayImage) float64 {
	n := g.w * g.h
	if n == 0 {
		return 0
	}

	lap := make([]float64, n)
	i := 0
	var sum float64
	for y := range g.h {
		for x := range g.w {
			v := g.at(reflect101(x-1, g.w), y) +
				g.at(reflect101(x+1, g.w), y) +
				g.at(x, reflect101(y-1, g.h)) +
				g.at(x, reflect101(y+1, g.h)) -
				4*g.at(x, y)
			lap[i] = v
			sum += v
			i++
		}
	}

	mean := sum / float64(n)
	var sq float64
	for _, v := range lap {
		d := v - mean
		sq += d * d
	}
	return sq / float64(n)
}

// largestRegionCoverage segments the foreground (anything darker than the
// white-background cutoff) and returns the largest connected region's share
// of the frame. Zero means no foreground object exists at all.
func largestRegionCoverage(g *grayImage) float64 {
	n := g.w * g.h
	if n == 0 {
		return 0
	}

	visited := make([]bool, n)
	queue := make([]int, 0, 64)
	largest := 0

	for start := range n {
		if visited[start] || g.pix[start] > backgroundCutoff {
			continue
		}

		// Flood fill one 8-connected region.
		size := 0
		visited[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++

			x, y := idx%g.w, idx/g.w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= g.w || ny >= g.h {
						continue
					}
					nidx := ny*g.w + nx
					if !visited[nidx] && g.pix[nidx] <= backgroundCutoff {
						visited[nidx] = true
						queue = append(queue, nidx)
					}
				}
			}
		}
		if size > largest {
			largest = size
		}
	}

	return float64(largest) / float64(n)
}
