package tile

// Mask is a level-sized boolean bitmap recording which tiles belong to a
// region.
type Mask struct {
	cells [Width * Height]bool
}

// NewMask returns an empty mask.
func NewMask() *Mask {
	return new(Mask)
}

// Has reports whether (x, y) is set. Points outside the level are never
// set.
func (m *Mask) Has(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return m.cells[y*Width+x]
}

// Set sets or clears (x, y).
func (m *Mask) Set(x, y int, v bool) error {
	if err := CheckRange("x", x, 0, Width-1); err != nil {
		return err
	}
	if err := CheckRange("y", y, 0, Height-1); err != nil {
		return err
	}
	m.cells[y*Width+x] = v
	return nil
}

// Row returns row y. The slice aliases the mask.
func (m *Mask) Row(y int) []bool {
	return m.cells[y*Width : (y+1)*Width]
}

// Count returns the number of set tiles.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.cells {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether both masks have the same tiles set.
func (m *Mask) Equal(o *Mask) bool {
	return m.cells == o.cells
}
