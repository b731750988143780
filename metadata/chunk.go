package metadata

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Chunk tags.
const (
	TagAttribute = "ATTR"
	TagRegion    = "REGN"
	TagWallTiles = "DCWT"
)

// Chunk is one top-level chunk. The concrete type is one of *Attribute,
// *Region, *WallTiles or *RawChunk.
type Chunk interface {
	Tag() string
	marshal() ([]byte, error)
}

// Attribute is a NAME=VALUE pair.
type Attribute struct {
	Name  string
	Value string

	// Set when decoded from a body with no separator
	bare bool
}

// Tag implements Chunk.
func (a *Attribute) Tag() string { return TagAttribute }

func (a *Attribute) marshal() ([]byte, error) {
	if a.bare && a.Value == "" {
		return encodeText(a.Name)
	}
	return encodeText(a.Name + "=" + a.Value)
}

// RawChunk is a chunk kept verbatim because its tag is not understood.
type RawChunk struct {
	ID   string
	Data []byte
}

// Tag implements Chunk.
func (r *RawChunk) Tag() string { return r.ID }

func (r *RawChunk) marshal() ([]byte, error) {
	return r.Data, nil
}

// WallTiles holds wall tile presets. Each set maps the 16 combinations of
// north, east, south and west neighbours to the tile id to draw.
type WallTiles struct {
	Sets [][16]byte
}

// Tag implements Chunk.
func (w *WallTiles) Tag() string { return TagWallTiles }

func (w *WallTiles) marshal() ([]byte, error) {
	b := make([]byte, 0, len(w.Sets)*16)
	for _, s := range w.Sets {
		b = append(b, s[:]...)
	}
	return b, nil
}

// Neighbour bits used to index a wall tile set.
const (
	WallNorth = 1 << iota
	WallEast
	WallSouth
	WallWest
)

// Text is stored as Windows-1252, optionally NUL padded
func decodeText(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func encodeText(s string) ([]byte, error) {
	b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("metadata: cannot encode %q: %w", s, err)
	}
	return b, nil
}

func decodeAttribute(b []byte) *Attribute {
	s := decodeText(b)
	if i := strings.IndexByte(s, '='); i >= 0 {
		return &Attribute{Name: s[:i], Value: s[i+1:]}
	}
	return &Attribute{Name: s, bare: true}
}

func decodeChunk(tag string, data []byte, logger *log.Logger) (Chunk, error) {
	switch tag {
	case TagAttribute:
		return decodeAttribute(data), nil
	case TagRegion:
		return decodeRegion(data, logger)
	case TagWallTiles:
		if len(data)%16 == 0 {
			w := &WallTiles{Sets: make([][16]byte, len(data)/16)}
			for i := range w.Sets {
				copy(w.Sets[i][:], data[i*16:])
			}
			return w, nil
		}
		logger.Printf("metadata: wall tile chunk of %d bytes is not a whole number of sets, preserving as is", len(data))
	default:
		logger.Printf("metadata: preserving unknown chunk %q (%d bytes)", tag, len(data))
	}
	return &RawChunk{ID: tag, Data: append([]byte(nil), data...)}, nil
}
