package vision

import (
	"image"
	"image/color"
	"testing"
)

// grayWithBlob paints a bright square on a dark background.
func grayWithBlob(w, h, bx, by, side int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := by; y < by+side && y < h; y++ {
		for x := bx; x < bx+side && x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

func TestStubDetectorFindsBrightBlob(t *testing.T) {
	img := grayWithBlob(320, 240, 90, 60, 80, 220)

	d := NewStubDetector()
	regions := d.Detect(img)
	if len(regions) != 1 {
		t.Fatalf("Detect() returned %d regions, want 1", len(regions))
	}

	r := regions[0]
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	if cx < 90 || cx > 170 || cy < 60 || cy > 140 {
		t.Fatalf("detected region center (%d,%d) outside blob", cx, cy)
	}
}

func TestStubDetectorIgnoresFlatFrame(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 320, 240))

	d := NewStubDetector()
	if regions := d.Detect(img); len(regions) != 0 {
		t.Fatalf("Detect() on a flat frame returned %d regions, want 0", len(regions))
	}
}

func TestEncodeProducesNormalizedFixedLengthSignature(t *testing.T) {
	img := grayWithBlob(320, 240, 90, 60, 80, 220)
	d := NewStubDetector()
	regions := d.Detect(img)
	sigs := d.Encode(img, regions)
	if len(sigs) != 1 {
		t.Fatalf("Encode() returned %d signatures, want 1", len(sigs))
	}
	if len(sigs[0]) != SignatureDim {
		t.Fatalf("signature length = %d, want %d", len(sigs[0]), SignatureDim)
	}

	var norm2 float64
	for _, v := range sigs[0] {
		norm2 += float64(v) * float64(v)
	}
	if norm2 < 0.99 || norm2 > 1.01 {
		t.Fatalf("signature L2 norm^2 = %v, want ~1", norm2)
	}
}

func TestDistanceSeparatesSimilarAndDifferentFrames(t *testing.T) {
	d := NewStubDetector()

	base := grayWithBlob(320, 240, 90, 60, 80, 220)
	nudged := grayWithBlob(320, 240, 94, 62, 80, 214)
	other := grayWithBlob(320, 240, 200, 140, 80, 180)
	// Give the other blob a distinct interior so its embedding differs.
	for y := 150; y < 200; y += 4 {
		for x := 210; x < 260; x++ {
			other.SetGray(x, y, color.Gray{Y: 30})
		}
	}

	enc := func(img *image.Gray) Signature {
		regions := d.Detect(img)
		sigs := d.Encode(img, regions)
		if len(sigs) != 1 {
			t.Fatalf("expected one signature, got %d", len(sigs))
		}
		return sigs[0]
	}

	near := Distance(enc(base), enc(nudged))
	far := Distance(enc(base), enc(other))
	if near >= far {
		t.Fatalf("Distance(near)=%v should be smaller than Distance(far)=%v", near, far)
	}
	if Distance(enc(base), enc(base)) != 0 {
		t.Fatalf("self distance should be zero")
	}
}

func TestSameLength(t *testing.T) {
	if SameLength(make(Signature, 4), make(Signature, 5)) {
		t.Fatalf("SameLength should be false for mismatched vectors")
	}
	if !SameLength(make(Signature, 4), make(Signature, 4)) {
		t.Fatalf("SameLength should be true for equal-length vectors")
	}
}
