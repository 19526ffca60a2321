// Package conform normalizes arbitrary input images into PNGs that satisfy
// the generation API's byte-size and pixel-dimension ceilings.
package conform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrDecode indicates the input bytes are not a decodable raster image.
	ErrDecode = errors.New("conform: undecodable image")
	// ErrSizeConstraintUnsatisfiable indicates every compression strategy was
	// exhausted without meeting the byte-size ceiling.
	ErrSizeConstraintUnsatisfiable = errors.New("conform: size constraint unsatisfiable")
)

const (
	// minDimensionFloor keeps aggressive passes from shrinking images below a
	// usable size.
	minDimensionFloor = 512
	// fallbackLongestEdge is the fixed safe target for the final pass.
	fallbackLongestEdge = 1024
)

// Limits are the ceilings the output must satisfy.
type Limits struct {
	MaxBytes     int
	MaxDimension int
}

// Result is the outcome of a successful conformance pass. The buffer is
// always PNG-encoded and within both limits.
type Result struct {
	PNG    []byte
	Width  int
	Height int
}

// Transformer converts input images to conforming PNGs.
type Transformer struct {
	limits Limits
}

// New creates a Transformer for the given limits.
func New(limits Limits) *Transformer {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = 4 * 1024 * 1024
	}
	if limits.MaxDimension <= 0 {
		limits.MaxDimension = 4096
	}
	return &Transformer{limits: limits}
}

// Conform runs escalating passes until the output fits both ceilings,
// stopping at the first pass that succeeds. Each pass clamps dimensions to
// the maximum axis length independent of the byte-size logic.
func (t *Transformer) Conform(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img = t.clamp(img)

	// Pass 1: format normalization only.
	encoded, err := encodePNG(img, png.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= t.limits.MaxBytes {
		return t.result(img, encoded), nil
	}

	// Passes 2-4: sqrt-derived linear scale, recomputed against each
	// over-budget encoding; byte size grows roughly with the square of the
	// linear dimension.
	floors := []int{0, 0, minDimensionFloor}
	for _, floor := range floors {
		scale := math.Sqrt(float64(t.limits.MaxBytes) / float64(len(encoded)))
		img = t.rescale(img, scale, floor)
		encoded, err = encodePNG(img, png.BestCompression)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= t.limits.MaxBytes {
			return t.result(img, encoded), nil
		}
	}

	// Final pass: fixed safe target.
	img = imaging.Fit(img, fallbackLongestEdge, fallbackLongestEdge, imaging.Lanczos)
	encoded, err = encodePNG(img, png.BestCompression)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= t.limits.MaxBytes {
		return t.result(img, encoded), nil
	}
	return nil, fmt.Errorf("%w: %d bytes after final pass (limit %d)",
		ErrSizeConstraintUnsatisfiable, len(encoded), t.limits.MaxBytes)
}

// clamp bounds both axes to the maximum pixel dimension, preserving aspect
// ratio.
func (t *Transformer) clamp(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= t.limits.MaxDimension && b.Dy() <= t.limits.MaxDimension {
		return img
	}
	return imaging.Fit(img, t.limits.MaxDimension, t.limits.MaxDimension, imaging.Lanczos)
}

// rescale applies a linear scale factor, respecting the optional minimum
// dimension floor.
func (t *Transformer) rescale(img image.Image, scale float64, floor int) image.Image {
	if scale >= 1 {
		// Never upscale while over budget; nudge downward instead.
		scale = 0.9
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if floor > 0 {
		if w < floor && b.Dx() >= floor {
			w = floor
		}
		if h < floor && b.Dy() >= floor {
			h = floor
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w >= b.Dx() && h >= b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func (t *Transformer) result(img image.Image, encoded []byte) *Result {
	b := img.Bounds()
	return &Result{PNG: encoded, Width: b.Dx(), Height: b.Dy()}
}

func encodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("conform: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
