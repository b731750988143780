package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrPaletteSize is returned when a palette is asked to compress to a
// larger size or pad to a size that is not larger.
var ErrPaletteSize = errors.New("bitmap: invalid palette size")

// Colors seeded into the pool before reduction so flat primaries survive
// merging.
var anchors = []color.RGBA{
	{0x00, 0x00, 0x00, 0xff},
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0x00, 0x00, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0x00, 0xff, 0xff, 0xff},
	{0xff, 0x00, 0xff, 0xff},
}

// PaletteReducer builds a color table for an image and maps every pixel to
// an entry in it.
//
// Reduction is a greedy pass that folds each color into the closest color
// already kept whenever they are within a threshold, raising the threshold
// after each full pass. It is deterministic but approximate; an image that
// already fits in the target size is never altered.
type PaletteReducer struct {
	bounds image.Rectangle
	colors []color.RGBA
	index  []int
}

func toRGB(c color.Color) color.RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{n.R, n.G, n.B, 0xff}
}

// NewPaletteReducer scans m and returns a reducer holding each distinct
// color in the order first seen. Alpha is discarded.
func NewPaletteReducer(m image.Image) *PaletteReducer {
	b := m.Bounds()
	p := &PaletteReducer{
		bounds: b,
		index:  make([]int, 0, b.Dx()*b.Dy()),
	}

	seen := make(map[color.RGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := toRGB(m.At(x, y))
			i, ok := seen[c]
			if !ok {
				i = len(p.colors)
				seen[c] = i
				p.colors = append(p.colors, c)
			}
			p.index = append(p.index, i)
		}
	}

	return p
}

// Len returns the current number of colors.
func (p *PaletteReducer) Len() int {
	return len(p.colors)
}

// Palette returns the current color table.
func (p *PaletteReducer) Palette() color.Palette {
	out := make(color.Palette, len(p.colors))
	for i, c := range p.colors {
		out[i] = c
	}
	return out
}

// ColorIndexAt returns the table index of the pixel at (x, y).
func (p *PaletteReducer) ColorIndexAt(x, y int) int {
	return p.index[(y-p.bounds.Min.Y)*p.bounds.Dx()+x-p.bounds.Min.X]
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func distance(c1, c2 color.RGBA) int {
	return (absDiff(c1.R, c2.R) + absDiff(c1.G, c2.G) + absDiff(c1.B, c2.B)) / 3
}

// Return the index of the closest color in p and its distance
func nearest(p []color.RGBA, c color.RGBA) (int, int) {
	best, bestDist := -1, 1<<31-1
	for i, k := range p {
		if d := distance(k, c); d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best, bestDist
}

func (p *PaletteReducer) remap(m []int) {
	for i, v := range p.index {
		p.index[i] = m[v]
	}
}

// Compress reduces the table to at most n colors.
func (p *PaletteReducer) Compress(n int) error {
	if n < 1 || n > len(p.colors) {
		return fmt.Errorf("%w: cannot compress %d colors to %d", ErrPaletteSize, len(p.colors), n)
	}
	if n == len(p.colors) {
		return nil
	}

	// Seed the pool with the anchor colors
	pool := make([]color.RGBA, 0, len(anchors)+len(p.colors))
	pos := make(map[color.RGBA]int)
	for _, c := range append(append([]color.RGBA(nil), anchors...), p.colors...) {
		if _, ok := pos[c]; !ok {
			pos[c] = len(pool)
			pool = append(pool, c)
		}
	}
	m := make([]int, len(p.colors))
	for i, c := range p.colors {
		m[i] = pos[c]
	}
	p.remap(m)

	for threshold := 0; len(pool) > n; threshold++ {
		m = make([]int, len(pool))
		kept := make([]color.RGBA, 0, len(pool))
		for i, c := range pool {
			// Stop merging once the remainder fits
			if len(kept)+len(pool)-i > n {
				if j, d := nearest(kept, c); j >= 0 && d <= threshold {
					m[i] = j
					continue
				}
			}
			m[i] = len(kept)
			kept = append(kept, c)
		}
		p.remap(m)
		pool = kept
	}

	p.colors = pool
	return nil
}

// Pad appends filler until the table holds n colors, rounded up to a
// multiple of four.
func (p *PaletteReducer) Pad(n int, filler color.Color) error {
	if n <= len(p.colors) {
		return fmt.Errorf("%w: cannot pad %d colors to %d", ErrPaletteSize, len(p.colors), n)
	}
	if mod := n % 4; mod > 0 {
		n += 4 - mod
	}
	c := toRGB(filler)
	for len(p.colors) < n {
		p.colors = append(p.colors, c)
	}
	return nil
}

// Quantize implements draw.Quantizer. It appends up to cap(pal)-len(pal)
// colors reduced from m, or MaxColors if pal has no spare capacity. The
// receiver is unused so the zero value works.
func (p *PaletteReducer) Quantize(pal color.Palette, m image.Image) color.Palette {
	r := NewPaletteReducer(m)
	n := cap(pal) - len(pal)
	if n == 0 {
		n = MaxColors
	}
	if r.Len() > n {
		if err := r.Compress(n); err != nil {
			return pal
		}
	}
	return append(pal, r.Palette()...)
}
