/*
Package radar renders a small overview of a level, coloured the way the
in-game radar shows it.

Each output pixel covers a block of cells. When a block holds more than one
kind of tile the most significant kind wins, so a single flag or goal tile
is never lost to the walls around it.
*/
package radar

import (
	"image"
	"image/color"

	"github.com/bodgit/subspace/tile"
)

// Tile kinds, in increasing order of significance.
const (
	Space uint8 = iota
	Wall
	FlyOver
	FlyUnder
	Asteroid
	Door
	SafeZone
	Station
	Wormhole
	Goal
	Flag
)

// Palette is indexed by tile kind.
var Palette = color.Palette{
	Space:    color.RGBA{0x00, 0x00, 0x00, 0xff},
	Wall:     color.RGBA{0x5a, 0x5a, 0x5a, 0xff},
	FlyOver:  color.RGBA{0x3a, 0x3a, 0x5a, 0xff},
	FlyUnder: color.RGBA{0x2a, 0x2a, 0x3a, 0xff},
	Asteroid: color.RGBA{0x80, 0x60, 0x40, 0xff},
	Door:     color.RGBA{0x80, 0x80, 0x00, 0xff},
	SafeZone: color.RGBA{0x18, 0x52, 0x18, 0xff},
	Station:  color.RGBA{0x90, 0x90, 0xb0, 0xff},
	Wormhole: color.RGBA{0x80, 0x00, 0x80, 0xff},
	Goal:     color.RGBA{0xff, 0x00, 0x00, 0xff},
	Flag:     color.RGBA{0xff, 0xff, 0x00, 0xff},
}

// Kind classifies a tile id.
func Kind(id byte) uint8 {
	switch {
	case id == tile.Empty:
		return Space
	case id >= tile.VerticalDoorFirst && id <= tile.HorizontalDoorLast:
		return Door
	case id == tile.Flag:
		return Flag
	case id == tile.SafeZone:
		return SafeZone
	case id == tile.Goal:
		return Goal
	case id >= tile.FlyOverFirst && id <= tile.FlyOverLast:
		return FlyOver
	case id >= tile.FlyUnderFirst && id <= tile.FlyUnderLast:
		return FlyUnder
	case id == tile.SmallAsteroid, id == tile.LargeAsteroid, id == tile.SmallAsteroid2:
		return Asteroid
	case id == tile.Station:
		return Station
	case id == tile.Wormhole:
		return Wormhole
	case id < tile.VerticalDoorFirst:
		return Wall
	}
	// Anything else is invisible to ships
	return Space
}

// Render draws g into a size by size image. A size of zero or less
// renders one pixel per cell.
func Render(g *tile.Grid, size int) *image.Paletted {
	w, h := g.Width(), g.Height()
	sw, sh := size, size
	if size <= 0 {
		sw, sh = w, h
	}

	m := image.NewPaletted(image.Rect(0, 0, sw, sh), Palette)

	g.Each(func(x, y int, id byte) {
		k := Kind(id)
		if k == Space {
			return
		}

		n := tile.Footprint(id)
		for dy := 0; dy < n && y+dy < h; dy++ {
			for dx := 0; dx < n && x+dx < w; dx++ {
				i := m.PixOffset((x+dx)*sw/w, (y+dy)*sh/h)
				if k > m.Pix[i] {
					m.Pix[i] = k
				}
			}
		}
	})

	return m
}
