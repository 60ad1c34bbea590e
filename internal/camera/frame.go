package camera

import (
	"bytes"
	"image"
	"image/jpeg"
	"time"
)

// Frame is a single captured video frame. Pix holds RGBA pixels; the
// buffer is owned by the frame and treated as read-only by consumers.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Pix       []byte
	Source    string
}

// RGBA wraps the pixel buffer as an image without copying.
func (f Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Gray converts the frame to 8-bit luma for the detector.
func (f Frame) Gray() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+3 < len(f.Pix); i, j = i+4, j+1 {
		r := uint32(f.Pix[i])
		g := uint32(f.Pix[i+1])
		b := uint32(f.Pix[i+2])
		// BT.601 integer luma.
		gray.Pix[j] = uint8((299*r + 587*g + 114*b) / 1000)
	}
	return gray
}

// EncodeJPEG renders the frame for transport to UI clients.
func (f Frame) EncodeJPEG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.RGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// frameFromImage copies an arbitrary decoded image into a Frame.
func frameFromImage(img image.Image, seq uint64, source string) Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := Frame{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		Width:     w,
		Height:    h,
		Pix:       make([]byte, w*h*4),
		Source:    source,
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 {
		copy(f.Pix, rgba.Pix)
		return f
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(b >> 8)
			f.Pix[i+3] = uint8(a >> 8)
			i += 4
		}
	}
	return f
}
