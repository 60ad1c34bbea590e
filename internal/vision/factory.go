package vision

import (
	"fmt"
	"strings"
)

// NewDetector selects a detector implementation. "auto" prefers pigo when
// a cascade path is configured and falls back to the stub otherwise.
func NewDetector(mode, cascadePath string) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "pigo":
		return NewPigoDetector(cascadePath)
	case "stub":
		return NewStubDetector(), nil
	case "", "auto":
		if strings.TrimSpace(cascadePath) != "" {
			return NewPigoDetector(cascadePath)
		}
		return NewStubDetector(), nil
	default:
		return nil, fmt.Errorf("invalid detector mode: %q (expected auto|pigo|stub)", mode)
	}
}
