package conform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// noiseImage fills an image with deterministic pseudo-random pixels so the
// PNG encoder cannot compress it away.
func noiseImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for i := range img.Pix {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = uint8(seed)
	}
	return img
}

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestConformInLimitPreservesDimensions(t *testing.T) {
	tr := New(Limits{MaxBytes: 1 << 20, MaxDimension: 2048})
	in := encode(t, gradientImage(100, 80))

	res, err := tr.Conform(in)
	if err != nil {
		t.Fatalf("Conform error: %v", err)
	}
	if res.Width != 100 || res.Height != 80 {
		t.Fatalf("dimensions changed: %dx%d", res.Width, res.Height)
	}
	if len(res.PNG) > 1<<20 {
		t.Fatalf("result over byte limit: %d", len(res.PNG))
	}
	w, h := decodeDims(t, res.PNG)
	if w != 100 || h != 80 {
		t.Fatalf("encoded dimensions mismatch: %dx%d", w, h)
	}
}

func TestConformShrinksOversizedInput(t *testing.T) {
	tr := New(Limits{MaxBytes: 50_000, MaxDimension: 256})
	in := encode(t, noiseImage(512, 512))
	if len(in) <= 50_000 {
		t.Fatalf("fixture unexpectedly small: %d", len(in))
	}

	res, err := tr.Conform(in)
	if err != nil {
		t.Fatalf("Conform error: %v", err)
	}
	if len(res.PNG) > 50_000 {
		t.Fatalf("result over byte limit: %d", len(res.PNG))
	}
	if res.Width > 256 || res.Height > 256 {
		t.Fatalf("result over dimension limit: %dx%d", res.Width, res.Height)
	}
}

func TestConformLargeRoomPhoto(t *testing.T) {
	if testing.Short() {
		t.Skip("large fixture")
	}
	tr := New(Limits{MaxBytes: 4 * 1024 * 1024, MaxDimension: 4096})
	in := encode(t, noiseImage(5000, 5000))

	res, err := tr.Conform(in)
	if err != nil {
		t.Fatalf("Conform error: %v", err)
	}
	if len(res.PNG) > 4*1024*1024 {
		t.Fatalf("result over byte limit: %d", len(res.PNG))
	}
	if res.Width > 4096 || res.Height > 4096 {
		t.Fatalf("result over dimension limit: %dx%d", res.Width, res.Height)
	}
}

func TestConformClampsDimensionsEvenWhenSmall(t *testing.T) {
	tr := New(Limits{MaxBytes: 1 << 20, MaxDimension: 64})
	in := encode(t, gradientImage(200, 100))

	res, err := tr.Conform(in)
	if err != nil {
		t.Fatalf("Conform error: %v", err)
	}
	if res.Width > 64 || res.Height > 64 {
		t.Fatalf("dimension clamp not applied: %dx%d", res.Width, res.Height)
	}
	// Aspect ratio preserved within rounding.
	if res.Width != 64 || res.Height != 32 {
		t.Fatalf("unexpected fit: %dx%d", res.Width, res.Height)
	}
}

func TestConformRejectsGarbage(t *testing.T) {
	tr := New(Limits{MaxBytes: 1 << 20, MaxDimension: 2048})
	if _, err := tr.Conform([]byte("not an image")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := tr.Conform(nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for empty input, got %v", err)
	}
}
