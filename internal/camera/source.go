package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceClosed   = errors.New("capture source closed")
	ErrSourceNotOpen  = errors.New("capture source not open")
	ErrFrameCorrupted = errors.New("frame decode failed")
)

// Source is a camera-like frame producer. Open claims the device, Read
// pulls exactly one frame, Close releases the device. A Source belongs
// to a single capture loop for its lifetime.
type Source interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// SourceConfig selects and parameterizes a source implementation.
type SourceConfig struct {
	Kind     string // "sim" or "mjpeg"
	MJPEGURL string
	Width    int
	Height   int
}

// NewSource builds a fresh, unopened source. The refresh operation calls
// this again to recreate the capture path wholesale.
func NewSource(cfg SourceConfig) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "sim":
		return NewSimSource(cfg.Width, cfg.Height), nil
	case "mjpeg":
		return NewMJPEGSource(cfg.MJPEGURL), nil
	default:
		return nil, fmt.Errorf("unknown camera source kind: %q", cfg.Kind)
	}
}
