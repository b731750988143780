package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"log"

	"github.com/bodgit/subspace/internal/cursor"
	"github.com/bodgit/subspace/tile"
)

// Region sub-chunk tags.
const (
	TagRegionName        = "rNAM"
	TagRegionTiles       = "rTIL"
	TagRegionBase        = "rBSE"
	TagRegionNoAntiwarp  = "rNAW"
	TagRegionNoWeapons   = "rNWP"
	TagRegionNoFlagDrops = "rNFL"
	TagRegionAutoWarp    = "rAWP"
	TagRegionPython      = "rPYC"
	TagRegionColor       = "rCOL"
)

const (
	// MaxArenaLength is the longest arena name an auto-warp may carry.
	MaxArenaLength = 16

	// WarpCurrent keeps the player's current coordinate on that axis.
	WarpCurrent = -1
	// WarpSpawn sends the player to their spawn coordinate on that axis.
	WarpSpawn = 0
)

// AutoWarp moves a player entering the region.
type AutoWarp struct {
	X, Y  int
	Arena string
}

func (a *AutoWarp) validate() error {
	if err := tile.CheckRange("auto-warp x", a.X, WarpCurrent, tile.Width-1); err != nil {
		return err
	}
	if err := tile.CheckRange("auto-warp y", a.Y, WarpCurrent, tile.Height-1); err != nil {
		return err
	}
	return tile.CheckRange("auto-warp arena length", len(a.Arena), 0, MaxArenaLength)
}

// Region is a named set of tiles with gameplay properties.
type Region struct {
	Name string

	// Tiles is nil if the region has no tile data.
	Tiles *tile.Mask

	// AutoWarp is nil unless the region warps players.
	AutoWarp *AutoWarp

	IsBase      bool
	NoAntiwarp  bool
	NoWeapons   bool
	NoFlagDrops bool

	// Color is nil unless a display color was set.
	Color *color.RGBA

	Python string

	// Unknown holds sub-chunks kept verbatim.
	Unknown []RawChunk
}

// Tag implements Chunk.
func (r *Region) Tag() string { return TagRegion }

// TileCount returns the number of tiles in the region.
func (r *Region) TileCount() int {
	if r.Tiles == nil {
		return 0
	}
	return r.Tiles.Count()
}

func decodeAutoWarp(data []byte) (*AutoWarp, error) {
	r := cursor.New(data)
	x, err := r.Int16()
	if err != nil {
		return nil, fmt.Errorf("metadata: auto-warp: %w", err)
	}
	y, err := r.Int16()
	if err != nil {
		return nil, fmt.Errorf("metadata: auto-warp: %w", err)
	}
	rest, _ := r.Bytes(r.Len())

	a := &AutoWarp{X: int(x), Y: int(y), Arena: decodeText(rest)}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeRegion(data []byte, logger *log.Logger) (*Region, error) {
	region := new(Region)

	err := eachChunk(cursor.New(data), func(tag string, data []byte) error {
		switch tag {
		case TagRegionName:
			region.Name = decodeText(data)
		case TagRegionTiles:
			region.Tiles = DecodeRegionTiles(data)
		case TagRegionBase:
			region.IsBase = true
		case TagRegionNoAntiwarp:
			region.NoAntiwarp = true
		case TagRegionNoWeapons:
			region.NoWeapons = true
		case TagRegionNoFlagDrops:
			region.NoFlagDrops = true
		case TagRegionAutoWarp:
			a, err := decodeAutoWarp(data)
			if err != nil {
				return err
			}
			region.AutoWarp = a
		case TagRegionPython:
			region.Python = decodeText(data)
		case TagRegionColor:
			if len(data) < 3 {
				return FormatError("region color too short")
			}
			region.Color = &color.RGBA{data[0], data[1], data[2], 0xff}
		default:
			logger.Printf("metadata: preserving unknown region chunk %q (%d bytes)", tag, len(data))
			region.Unknown = append(region.Unknown, RawChunk{ID: tag, Data: append([]byte(nil), data...)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return region, nil
}

func (r *Region) marshal() ([]byte, error) {
	b := new(bytes.Buffer)

	name, err := encodeText(r.Name)
	if err != nil {
		return nil, err
	}
	if err := writeChunk(b, TagRegionName, name); err != nil {
		return nil, err
	}

	if r.Tiles != nil {
		if err := writeChunk(b, TagRegionTiles, EncodeRegionTiles(r.Tiles)); err != nil {
			return nil, err
		}
	}

	for _, flag := range []struct {
		set bool
		tag string
	}{
		{r.IsBase, TagRegionBase},
		{r.NoAntiwarp, TagRegionNoAntiwarp},
		{r.NoWeapons, TagRegionNoWeapons},
		{r.NoFlagDrops, TagRegionNoFlagDrops},
	} {
		if flag.set {
			if err := writeChunk(b, flag.tag, nil); err != nil {
				return nil, err
			}
		}
	}

	if a := r.AutoWarp; a != nil {
		if err := a.validate(); err != nil {
			return nil, err
		}
		body := new(bytes.Buffer)
		if err := binary.Write(body, binary.LittleEndian, []int16{int16(a.X), int16(a.Y)}); err != nil {
			return nil, err
		}
		if a.Arena != "" {
			arena, err := encodeText(a.Arena)
			if err != nil {
				return nil, err
			}
			var tmp [MaxArenaLength]byte
			copy(tmp[:], arena)
			body.Write(tmp[:])
		}
		if err := writeChunk(b, TagRegionAutoWarp, body.Bytes()); err != nil {
			return nil, err
		}
	}

	if r.Python != "" {
		python, err := encodeText(r.Python)
		if err != nil {
			return nil, err
		}
		if err := writeChunk(b, TagRegionPython, python); err != nil {
			return nil, err
		}
	}

	if c := r.Color; c != nil {
		if err := writeChunk(b, TagRegionColor, []byte{c.R, c.G, c.B}); err != nil {
			return nil, err
		}
	}

	for _, u := range r.Unknown {
		if err := writeChunk(b, u.ID, u.Data); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}
