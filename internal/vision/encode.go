package vision

import (
	"image"

	"github.com/hupe1980/vecgo/distance"
)

// embedSide is the downsample resolution of the intensity embedding.
// The resulting signature has embedSide*embedSide dimensions.
const embedSide = 16

// SignatureDim is the length of every signature produced in this package.
const SignatureDim = embedSide * embedSide

// embedRegion crops the region out of the frame, box-averages it down to
// embedSide x embedSide and L2-normalizes the result. Light changes in
// pose or illumination move the vector a little; a different face moves
// it a lot, which is all the nearest-neighbor match needs.
func embedRegion(img *image.Gray, r Region) Signature {
	bounds := img.Bounds()
	x0 := clamp(r.X, bounds.Min.X, bounds.Max.X)
	y0 := clamp(r.Y, bounds.Min.Y, bounds.Max.Y)
	x1 := clamp(r.X+r.W, bounds.Min.X, bounds.Max.X)
	y1 := clamp(r.Y+r.H, bounds.Min.Y, bounds.Max.Y)
	if x1-x0 < embedSide || y1-y0 < embedSide {
		return nil
	}

	sig := make(Signature, SignatureDim)
	cellW := float64(x1-x0) / embedSide
	cellH := float64(y1-y0) / embedSide

	for cy := 0; cy < embedSide; cy++ {
		for cx := 0; cx < embedSide; cx++ {
			sx0 := x0 + int(float64(cx)*cellW)
			sy0 := y0 + int(float64(cy)*cellH)
			sx1 := x0 + int(float64(cx+1)*cellW)
			sy1 := y0 + int(float64(cy+1)*cellH)
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			if sy1 <= sy0 {
				sy1 = sy0 + 1
			}

			var sum, n float64
			for y := sy0; y < sy1 && y < y1; y++ {
				row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
				for x := sx0; x < sx1 && x < x1; x++ {
					sum += float64(row[x-bounds.Min.X])
					n++
				}
			}
			if n > 0 {
				sig[cy*embedSide+cx] = float32(sum / n)
			}
		}
	}

	if !distance.NormalizeL2InPlace(sig) {
		return nil
	}
	return sig
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
