package mask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func roomPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(40 + x%40), G: uint8(60 + y%30), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func alphaAt(t *testing.T, maskPNG []byte, x, y int) uint8 {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(maskPNG))
	if err != nil {
		t.Fatalf("decode mask: %v", err)
	}
	n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return n.A
}

func newHeuristicGenerator(store Store) *Generator {
	defaults := DefaultOptions().Merge(map[string]any{"useExternal": false})
	return NewGenerator(defaults, nil, store, time.Hour, zerolog.Nop())
}

func TestGenerateRejectsEmptyImage(t *testing.T) {
	g := newHeuristicGenerator(NewMemoryStore(time.Hour))
	if _, err := g.Generate(context.Background(), nil, nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := g.Generate(context.Background(), []byte{}, nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestGenerateMatchesInputDimensions(t *testing.T) {
	g := newHeuristicGenerator(nil)
	in := roomPNG(t, 120, 90)

	out, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode mask: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 90 {
		t.Fatalf("mask dimensions %dx%d, want 120x90", cfg.Width, cfg.Height)
	}
}

func TestGenerateWarmCacheIsByteIdentical(t *testing.T) {
	g := newHeuristicGenerator(NewMemoryStore(time.Hour))
	in := roomPNG(t, 64, 64)

	first, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("first Generate error: %v", err)
	}
	second, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("second Generate error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("warm cache returned different bytes")
	}
	// Mutating the returned slice must not corrupt the cached entry.
	second[0] ^= 0xFF
	third, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("third Generate error: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Fatalf("cache entry was corrupted by caller mutation")
	}
}

func TestGenerateDifferentOptionsMissCache(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	g := newHeuristicGenerator(store)
	in := roomPNG(t, 64, 64)

	withFeather, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	without, err := g.Generate(context.Background(), in, map[string]any{"feather": false})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if bytes.Equal(withFeather, without) {
		t.Fatalf("distinct option sets returned the cached mask")
	}
}

func TestGenerateExternalStrategy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/segment" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "image/png" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version": "v1",
			"regions": []map[string]any{
				{"class": "wall", "confidence": 0.95, "x": 0, "y": 0, "width": 100, "height": 30},
				{"class": "sofa", "confidence": 0.99, "x": 10, "y": 50, "width": 60, "height": 30},
				{"class": "floor", "confidence": 0.60, "x": 0, "y": 80, "width": 100, "height": 20},
			},
		})
	}))
	defer ts.Close()

	seg := NewSegmentationClient(SegmentationOptions{BaseURL: ts.URL})
	g := NewGenerator(DefaultOptions(), seg, nil, time.Hour, zerolog.Nop())
	in := roomPNG(t, 100, 100)

	out, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if a := alphaAt(t, out, 50, 10); a != 255 {
		t.Fatalf("confident wall not preserved: alpha %d", a)
	}
	if a := alphaAt(t, out, 40, 60); a != 0 {
		t.Fatalf("sofa should stay editable: alpha %d", a)
	}
	if a := alphaAt(t, out, 50, 90); a != 128 {
		t.Fatalf("medium-confidence floor should be feathered: alpha %d", a)
	}
}

func TestGenerateFallsBackToHeuristicWhenServiceDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	seg := NewSegmentationClient(SegmentationOptions{BaseURL: ts.URL})
	g := NewGenerator(DefaultOptions(), seg, nil, time.Hour, zerolog.Nop())
	in := roomPNG(t, 60, 60)

	out, err := g.Generate(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Generate should degrade, got error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode mask: %v", err)
	}
	if cfg.Width != 60 || cfg.Height != 60 {
		t.Fatalf("fallback mask dimensions %dx%d", cfg.Width, cfg.Height)
	}
}
