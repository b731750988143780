/*
Package lvl implements the SubSpace level file format.

A level optionally starts with a tileset bitmap. The bitmap's file size
field covers the bitmap and any metadata section that follows it; the
pointer at offset 6 locates that metadata. The rest of the file is a flat
list of 32-bit little-endian tile records:

	bits 31-24  tile id
	bits 21-12  y
	bits  9-0   x

Only non-empty tiles are stored.
*/
package lvl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/bodgit/subspace/bitmap"
	"github.com/bodgit/subspace/metadata"
	"github.com/bodgit/subspace/tile"
)

const recordSize = 4

// FormatError reports a malformed level file.
type FormatError string

func (e FormatError) Error() string { return "lvl: invalid format: " + string(e) }

// Map is a decoded level.
type Map struct {
	Tiles *tile.Grid

	// Tileset is nil when the level uses the default tileset.
	Tileset *bitmap.Bitmap

	Metadata *metadata.Collection
}

// New returns an empty level with the default tileset and no metadata.
func New() *Map {
	return &Map{
		Tiles:    tile.NewLevel(),
		Metadata: metadata.New(),
	}
}

// PackRecord packs a single tile record.
func PackRecord(x, y int, id byte) uint32 {
	return uint32(id)<<24 | uint32(y&0x3ff)<<12 | uint32(x&0x3ff)
}

// UnpackRecord unpacks a single tile record.
func UnpackRecord(v uint32) (x, y int, id byte) {
	return int(v & 0x3ff), int(v >> 12 & 0x3ff), byte(v >> 24)
}

func hasTileset(b []byte) bool {
	return len(b) >= 2 && b[0] == 'B' && b[1] == 'M'
}

// A 1x1 bitmap only exists to host metadata
func isPlaceholder(bm *bitmap.Bitmap) bool {
	return bm.Width == 1 && bm.Height == 1
}

// Decode decodes the level held in b. A metadata section that cannot be
// parsed is logged and dropped rather than failing the whole level.
func Decode(b []byte, logger *log.Logger) (*Map, error) {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	m := New()
	start := 0

	if hasTileset(b) {
		bm, err := bitmap.Parse(b, nil)
		if err != nil {
			return nil, fmt.Errorf("lvl: tileset: %w", err)
		}

		end := uint64(bm.PixelOffset) + uint64(len(bm.Pix))
		switch {
		case uint64(bm.FileSize) > uint64(len(b)):
			return nil, fmt.Errorf("lvl: tileset size %d exceeds file size %d: %w", bm.FileSize, len(b), io.ErrUnexpectedEOF)
		case uint64(bm.FileSize) < end:
			return nil, FormatError("tileset size smaller than its pixel data")
		}
		start = int(bm.FileSize)

		md, err := metadata.Read(b, logger)
		if err != nil {
			logger.Printf("lvl: discarding metadata: %v", err)
			md = metadata.New()
		}
		m.Metadata = md

		// A genuine 1x1 tileset is indistinguishable from the host
		// written for metadata-only levels and is dropped too
		if !isPlaceholder(bm) {
			m.Tileset = bm
		}
	}

	// A trailing partial record is ignored
	for i := start; i+recordSize <= len(b); i += recordSize {
		x, y, id := UnpackRecord(binary.LittleEndian.Uint32(b[i:]))
		if err := m.Tiles.Set(x, y, int(id)); err != nil {
			return nil, err
		}
	}
	m.Tiles.ClearDirty()

	return m, nil
}

// Read decodes a level from r.
func Read(r io.Reader, logger *log.Logger) (*Map, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(b, logger)
}

// Open decodes the level file called name.
func Open(name string, logger *log.Logger) (*Map, error) {
	b, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Decode(b, logger)
}

func (m *Map) header() ([]byte, error) {
	host := m.Tileset
	hasMetadata := m.Metadata != nil && !m.Metadata.Empty()

	if host == nil {
		if !hasMetadata {
			return nil, nil
		}
		var err error
		host, err = bitmap.FromImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)), &bitmap.Options{BitCount: 8, Dummy: true})
		if err != nil {
			return nil, err
		}
	}

	b, err := host.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("lvl: tileset: %w", err)
	}

	if hasMetadata {
		section, err := m.Metadata.MarshalBinary()
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(b[6:], uint32(len(b)))
		b = append(b, section...)
	}
	binary.LittleEndian.PutUint32(b[2:], uint32(len(b)))

	return b, nil
}

// MarshalBinary encodes the level. Records only have room for coordinates
// up to 1023, so a grid larger than a level is rejected.
func (m *Map) MarshalBinary() ([]byte, error) {
	if m.Tiles != nil {
		if err := tile.CheckRange("grid width", m.Tiles.Width(), 0, tile.Width); err != nil {
			return nil, err
		}
		if err := tile.CheckRange("grid height", m.Tiles.Height(), 0, tile.Height); err != nil {
			return nil, err
		}
	}

	h, err := m.header()
	if err != nil {
		return nil, err
	}

	b := bytes.NewBuffer(h)
	if m.Tiles != nil {
		var tmp [recordSize]byte
		m.Tiles.Each(func(x, y int, id byte) {
			binary.LittleEndian.PutUint32(tmp[:], PackRecord(x, y, id))
			b.Write(tmp[:])
		})
	}

	return b.Bytes(), nil
}

// Encode writes the level m to w.
func Encode(w io.Writer, m *Map) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Create writes the level m to the file called name.
func Create(name string, m *Map) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Encode(f, m); err != nil {
		return err
	}
	return f.Close()
}
