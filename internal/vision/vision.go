package vision

import (
	"errors"
	"image"
	"math"

	"github.com/hupe1980/vecgo/distance"
)

// Signature is a fixed-length numeric vector representing one face.
// Signatures are opaque: they are produced by an encoder and compared
// only through Distance.
type Signature []float32

// Region is a detected face bounding box in frame coordinates.
type Region struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
	Score float32 `json:"score"`
}

// Detector locates faces in a grayscale frame and encodes them into
// signatures.
type Detector interface {
	Detect(img *image.Gray) []Region
	Encode(img *image.Gray, regions []Region) []Signature
	Name() string
}

var ErrDimensionMismatch = errors.New("signature dimensions differ")

// Distance returns the Euclidean distance between two signatures.
// Both signatures must have the same length.
func Distance(a, b Signature) float64 {
	return math.Sqrt(float64(distance.SquaredL2(a, b)))
}

// SameLength reports whether two signatures are comparable.
func SameLength(a, b Signature) bool {
	return len(a) == len(b)
}
