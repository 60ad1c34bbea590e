package camera

import (
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MJPEGSource reads frames from a multipart MJPEG HTTP stream, the common
// network-webcam transport.
type MJPEGSource struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	resp   *http.Response
	reader *multipart.Reader
	seq    uint64
}

func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		client: &http.Client{
			// No overall timeout: the response body is a long-lived stream.
			Transport: &http.Transport{
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
	}
}

func (s *MJPEGSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resp != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("mjpeg request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect mjpeg stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("mjpeg stream status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("mjpeg stream content-type %q is not multipart", resp.Header.Get("Content-Type"))
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

func (s *MJPEGSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()
	if reader == nil {
		return Frame{}, ErrSourceNotOpen
	}

	part, err := reader.NextPart()
	if err != nil {
		if err == io.EOF {
			return Frame{}, ErrSourceClosed
		}
		return Frame{}, fmt.Errorf("next mjpeg part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrFrameCorrupted, err)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return frameFromImage(img, seq, "mjpeg"), nil
}

func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resp == nil {
		return nil
	}
	err := s.resp.Body.Close()
	s.resp = nil
	s.reader = nil
	return err
}
