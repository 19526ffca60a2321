package mask

import (
	"image"

	"github.com/disintegration/imaging"
)

// heuristicMask derives a plausible preserve/edit mask without calling any
// remote service. Rooms photographed straight-on put walls and ceiling in the
// upper third and floor in the lowest band, with furniture in between, so the
// heuristic preserves those bands and keeps the middle editable except where
// the local luminance is very flat (large uniform surfaces are usually
// structure, not decor). Output dimensions always equal the input's.
func heuristicMask(src image.Image, opts Options) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := imaging.Grayscale(src)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	ceilingBand := h / 3
	floorBand := h - h/7

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha := uint8(0) // editable by default
			switch {
			case y < ceilingBand || y >= floorBand:
				alpha = 255 // structural band: preserve
			case flatNeighborhood(gray, x, y):
				alpha = 255 // uniform surface inside the band, likely wall
			}
			if opts.Feather {
				alpha = featherBand(alpha, y, ceilingBand, floorBand)
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = 255
			out.Pix[i+1] = 255
			out.Pix[i+2] = 255
			out.Pix[i+3] = alpha
		}
	}
	return out
}

// flatNeighborhood reports whether the horizontal and vertical luminance
// deltas around (x, y) are both negligible.
func flatNeighborhood(gray *image.NRGBA, x, y int) bool {
	b := gray.Bounds()
	if x <= 0 || y <= 0 || x >= b.Dx()-1 || y >= b.Dy()-1 {
		return false
	}
	const tolerance = 2
	c := gray.Pix[gray.PixOffset(x, y)]
	dx := absDiff(c, gray.Pix[gray.PixOffset(x+1, y)]) + absDiff(c, gray.Pix[gray.PixOffset(x-1, y)])
	dy := absDiff(c, gray.Pix[gray.PixOffset(x, y+1)]) + absDiff(c, gray.Pix[gray.PixOffset(x, y-1)])
	return dx <= tolerance && dy <= tolerance
}

// featherBand softens the hard alpha step within a few rows of each band
// boundary.
func featherBand(alpha uint8, y, ceilingBand, floorBand int) uint8 {
	const featherRows = 8
	dist := y - ceilingBand
	if dist < 0 {
		dist = -dist
	}
	if d := y - floorBand; d < 0 && -d < dist {
		dist = -d
	} else if d >= 0 && d < dist {
		dist = d
	}
	if dist >= featherRows {
		return alpha
	}
	// Blend toward half opacity near the boundary.
	if alpha == 255 {
		return uint8(128 + (127*dist)/featherRows)
	}
	return uint8(128 - (128*dist)/featherRows)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
