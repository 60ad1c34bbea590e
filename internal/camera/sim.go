package camera

import (
	"context"
	"sync"
	"time"
)

// SimSource synthesizes frames with a bright face-like blob drifting
// slowly over a dark background. Consecutive frames are near-identical,
// which is exactly what the recognition path needs to behave as it would
// on a real webcam. Deterministic given the frame sequence number.
type SimSource struct {
	mu     sync.Mutex
	width  int
	height int
	seq    uint64
	open   bool
}

func NewSimSource(width, height int) *SimSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &SimSource{width: width, height: height}
}

func (s *SimSource) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}
	s.open = true
	return nil
}

func (s *SimSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return Frame{}, ErrSourceNotOpen
	}

	s.seq++
	f := Frame{
		Seq:       s.seq,
		Width:     s.width,
		Height:    s.height,
		Pix:       make([]byte, s.width*s.height*4),
		Source:    "sim",
		Timestamp: time.Now().UTC(),
	}

	// Background gradient so the frame is not flat.
	for y := 0; y < s.height; y++ {
		base := uint8(16 + y*24/s.height)
		row := f.Pix[y*s.width*4:]
		for x := 0; x < s.width; x++ {
			row[x*4] = base
			row[x*4+1] = base
			row[x*4+2] = base
			row[x*4+3] = 0xff
		}
	}

	// The blob drifts a pixel or two so consecutive frames differ the
	// way a seated person's webcam frames do.
	side := min(s.width, s.height) / 3
	bx := s.width/4 + int(s.seq/8)%3
	by := s.height / 4
	for y := by; y < by+side && y < s.height; y++ {
		row := f.Pix[y*s.width*4:]
		for x := bx; x < bx+side && x < s.width; x++ {
			// Interior shading gives the embedding some texture.
			level := uint8(180 + ((x-bx)+(y-by))%64)
			row[x*4] = level
			row[x*4+1] = level
			row[x*4+2] = level
		}
	}

	return f, nil
}

func (s *SimSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}
