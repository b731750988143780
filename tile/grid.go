package tile

import "image"

// Grid is a width by height matrix of tile ids with dirty region
// tracking. The zero value is not usable, use New.
type Grid struct {
	width, height int
	cells         []byte

	dirty   bool
	regions []image.Rectangle
}

// New returns an empty grid of the given dimensions.
func New(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]byte, width*height),
	}
}

// NewLevel returns an empty grid the size of a level.
func NewLevel() *Grid {
	return New(Width, Height)
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	return g.width
}

// Height returns the number of rows.
func (g *Grid) Height() int {
	return g.height
}

// Bounds returns the grid as a rectangle anchored at (0, 0).
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.width, g.height)
}

func (g *Grid) checkPoint(x, y int) error {
	if err := CheckRange("x", x, 0, g.width-1); err != nil {
		return err
	}
	return CheckRange("y", y, 0, g.height-1)
}

// Get returns the tile id at (x, y).
func (g *Grid) Get(x, y int) (byte, error) {
	if err := g.checkPoint(x, y); err != nil {
		return 0, err
	}
	return g.cells[y*g.width+x], nil
}

// At returns the tile id at (x, y), or 0 if the point is outside the grid.
func (g *Grid) At(x, y int) byte {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return 0
	}
	return g.cells[y*g.width+x]
}

func (g *Grid) markDirty(r image.Rectangle) {
	g.dirty = true
	g.regions = append(g.regions, r)
}

// Set stores id at (x, y). Nothing is modified if either the point or the
// id is out of range.
func (g *Grid) Set(x, y, id int) error {
	if err := g.checkPoint(x, y); err != nil {
		return err
	}
	if err := CheckRange("tile id", id, 0, MaxID); err != nil {
		return err
	}
	g.cells[y*g.width+x] = byte(id)
	g.markDirty(image.Rect(x, y, x+1, y+1))
	return nil
}

// Fill stores id in every cell of r.
func (g *Grid) Fill(r image.Rectangle, id int) error {
	if err := CheckRange("tile id", id, 0, MaxID); err != nil {
		return err
	}
	r = r.Canon()
	if r.Empty() {
		return nil
	}
	if err := g.checkPoint(r.Min.X, r.Min.Y); err != nil {
		return err
	}
	if err := g.checkPoint(r.Max.X-1, r.Max.Y-1); err != nil {
		return err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := g.cells[y*g.width:]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = byte(id)
		}
	}
	g.markDirty(r)
	return nil
}

// Apply stamps src onto the grid with its top-left corner at p. Empty
// cells in src leave the destination untouched. src must fit entirely
// within the grid.
func (g *Grid) Apply(p image.Point, src *Grid) error {
	r := src.Bounds().Add(p)
	if r.Empty() {
		return nil
	}
	if err := g.checkPoint(r.Min.X, r.Min.Y); err != nil {
		return err
	}
	if err := g.checkPoint(r.Max.X-1, r.Max.Y-1); err != nil {
		return err
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			if id := src.cells[y*src.width+x]; id != Empty {
				g.cells[(y+p.Y)*g.width+x+p.X] = id
			}
		}
	}
	g.markDirty(r)
	return nil
}

// Dirty reports whether the grid has been modified since the last call to
// ClearDirty.
func (g *Grid) Dirty() bool {
	return g.dirty
}

// DirtyRegions returns the rectangles modified since the last call to
// ClearDirty. Regions may overlap.
func (g *Grid) DirtyRegions() []image.Rectangle {
	return append([]image.Rectangle(nil), g.regions...)
}

// ClearDirty resets the dirty flag and forgets all dirty regions.
func (g *Grid) ClearDirty() {
	g.dirty = false
	g.regions = nil
}

// Count returns the number of non-empty cells.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c != Empty {
			n++
		}
	}
	return n
}

// Each calls fn for every non-empty cell in ascending x then y order.
func (g *Grid) Each(fn func(x, y int, id byte)) {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if id := g.cells[y*g.width+x]; id != Empty {
				fn(x, y, id)
			}
		}
	}
}

// Equal reports whether both grids have the same dimensions and contents.
// Dirty state is ignored.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the grid with a clean dirty state.
func (g *Grid) Clone() *Grid {
	dup := New(g.width, g.height)
	copy(dup.cells, g.cells)
	return dup
}
