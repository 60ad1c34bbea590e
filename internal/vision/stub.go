package vision

import "image"

// StubDetector is a deterministic fallback detector used when no pigo
// cascade is configured (sim camera, tests, dev machines). It reports the
// frame's brightest square block as a single face, so the capture pipeline
// runs end to end and near-identical frames yield near-identical
// signatures.
type StubDetector struct {
	// MinContrast is the minimum spread between the brightest and
	// darkest block before anything counts as a face.
	MinContrast float64
}

func NewStubDetector() *StubDetector {
	return &StubDetector{MinContrast: 16}
}

func (d *StubDetector) Name() string { return "stub" }

func (d *StubDetector) Detect(img *image.Gray) []Region {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	side := min(w, h) / 3
	if side < embedSide {
		return nil
	}

	step := side / 2
	if step < 1 {
		step = 1
	}

	bestX, bestY := bounds.Min.X, bounds.Min.Y
	bestMean, worstMean := -1.0, 256.0
	for y := bounds.Min.Y; y+side <= bounds.Max.Y; y += step {
		for x := bounds.Min.X; x+side <= bounds.Max.X; x += step {
			m := blockMean(img, x, y, side)
			if m > bestMean {
				bestMean, bestX, bestY = m, x, y
			}
			if m < worstMean {
				worstMean = m
			}
		}
	}

	if bestMean-worstMean < d.MinContrast {
		// Flat frame: nothing to look at.
		return nil
	}

	return []Region{{
		X:     bestX - bounds.Min.X,
		Y:     bestY - bounds.Min.Y,
		W:     side,
		H:     side,
		Score: float32(bestMean-worstMean) / 255,
	}}
}

func (d *StubDetector) Encode(img *image.Gray, regions []Region) []Signature {
	sigs := make([]Signature, 0, len(regions))
	for _, r := range regions {
		if sig := embedRegion(img, r); sig != nil {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

func blockMean(img *image.Gray, x0, y0, side int) float64 {
	bounds := img.Bounds()
	var sum float64
	// Sample a coarse grid instead of every pixel; the detector only
	// needs a relative ordering of blocks.
	const samples = 8
	stride := side / samples
	if stride < 1 {
		stride = 1
	}
	var n float64
	for y := y0; y < y0+side; y += stride {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := x0; x < x0+side; x += stride {
			sum += float64(row[x-bounds.Min.X])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
