package vision

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// PigoDetector wraps the pure-Go pigo cascade classifier.
type PigoDetector struct {
	classifier *pigo.Pigo

	// QualityThreshold filters weak cascade hits; pigo's docs suggest
	// values around 5.0 for frontal faces.
	QualityThreshold float32
}

// NewPigoDetector loads and unpacks a binary cascade file.
func NewPigoDetector(cascadePath string) (*PigoDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade %s: %w", cascadePath, err)
	}
	return &PigoDetector{classifier: classifier, QualityThreshold: 5.0}, nil
}

func (d *PigoDetector) Name() string { return "pigo" }

func (d *PigoDetector) Detect(img *image.Gray) []Region {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil
	}

	maxSize := rows
	if cols < rows {
		maxSize = cols
	}

	params := pigo.CascadeParams{
		MinSize:     60,
		MaxSize:     maxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: img.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    img.Stride,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	regions := make([]Region, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.QualityThreshold {
			continue
		}
		half := det.Scale / 2
		regions = append(regions, Region{
			X:     det.Col - half,
			Y:     det.Row - half,
			W:     det.Scale,
			H:     det.Scale,
			Score: det.Q,
		})
	}
	return regions
}

func (d *PigoDetector) Encode(img *image.Gray, regions []Region) []Signature {
	sigs := make([]Signature, 0, len(regions))
	for _, r := range regions {
		if sig := embedRegion(img, r); sig != nil {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}
