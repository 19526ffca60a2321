// Package mask produces editable/preserve alpha masks for room photos. Areas
// with alpha zero are open for redecoration; opaque areas (walls, windows,
// ceiling, floor) are left untouched by the generation API.
package mask

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"

	"server/internal/infra"
)

// ErrEmptyImage indicates a nil or empty input image.
var ErrEmptyImage = errors.New("mask: empty image")

// Generator produces masks, caching results by content fingerprint.
type Generator struct {
	defaults Options
	seg      *SegmentationClient
	store    Store
	ttl      time.Duration
	logger   infra.Logger
}

// NewGenerator wires a Generator. seg may be nil, in which case every call
// uses the heuristic strategy regardless of options.
func NewGenerator(defaults Options, seg *SegmentationClient, store Store, ttl time.Duration, logger infra.Logger) *Generator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Generator{defaults: defaults, seg: seg, store: store, ttl: ttl, logger: logger}
}

// Generate returns a PNG-encoded mask for the image. Per-call overrides take
// key-by-key precedence over the generator defaults; unknown keys are
// ignored. Results are cached by (content hash, effective options) with a
// fixed TTL; a cache miss always regenerates.
func (g *Generator) Generate(ctx context.Context, imageBytes []byte, overrides map[string]any) ([]byte, error) {
	if len(imageBytes) == 0 {
		return nil, ErrEmptyImage
	}
	opts := g.defaults.Merge(overrides)
	key := fingerprint(imageBytes, opts)

	if g.store != nil {
		if cached, ok := g.store.Get(ctx, key); ok {
			// Hand back a private copy so callers cannot corrupt the entry.
			return append([]byte(nil), cached...), nil
		}
	}

	src, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("mask: decode image: %w", err)
	}

	m := g.buildMask(ctx, src, imageBytes, opts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, fmt.Errorf("mask: encode mask: %w", err)
	}
	encoded := buf.Bytes()
	if g.store != nil {
		g.store.Set(ctx, key, encoded, g.ttl)
	}
	return encoded, nil
}

// buildMask selects the detection strategy. An unavailable external service
// degrades to the heuristic rather than failing the call.
func (g *Generator) buildMask(ctx context.Context, src image.Image, imageBytes []byte, opts Options) *image.NRGBA {
	if opts.UseExternal && g.seg != nil {
		regions, err := g.seg.Segment(ctx, imageBytes)
		if err == nil {
			return renderRegions(src.Bounds(), regions, opts)
		}
		g.logger.Warn().Err(err).Msg("mask: segmentation unavailable, using heuristic")
	}
	return heuristicMask(src, opts)
}

// renderRegions rasterizes classified regions into an alpha mask. Structural
// classes above their confidence threshold become opaque (preserve); a
// medium-confidence band gets partial alpha when feathering is enabled;
// everything else stays editable.
func renderRegions(bounds image.Rectangle, regions []Region, opts Options) *image.NRGBA {
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i-3] = 255
		out.Pix[i-2] = 255
		out.Pix[i-1] = 255
		out.Pix[i] = 0
	}

	for _, region := range regions {
		if !StructuralClasses[region.Class] {
			continue
		}
		threshold := opts.thresholdFor(region.Class)
		var alpha uint8
		switch {
		case region.Confidence >= threshold:
			alpha = 255
		case opts.Feather && region.Confidence >= opts.MediumConfidence:
			alpha = 128
		default:
			continue
		}
		grow := 0
		if opts.MultiPass {
			// Refinement pass widens confident structural regions slightly so
			// boundaries do not leave slivers of editable wall.
			grow = 4
		}
		fillRect(out, region.X-grow, region.Y-grow, region.Width+2*grow, region.Height+2*grow, alpha)
	}
	return out
}

func fillRect(img *image.NRGBA, x, y, w, h int, alpha uint8) {
	b := img.Bounds()
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.Dx()), min(y+h, b.Dy())
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			i := img.PixOffset(xx, yy)
			if img.Pix[i+3] < alpha {
				img.Pix[i+3] = alpha
			}
		}
	}
}

// fingerprint derives the cache key from the image content hash and the
// canonical form of the effective options.
func fingerprint(imageBytes []byte, opts Options) string {
	sum := sha256.New()
	sum.Write(imageBytes)
	sum.Write([]byte{0})
	sum.Write([]byte(opts.canonical()))
	return fmt.Sprintf("mask:%x", sum.Sum(nil))
}
