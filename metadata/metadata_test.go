package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"log"
	"testing"

	"github.com/bodgit/subspace/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollection(t *testing.T) *Collection {
	t.Helper()

	m := tile.NewMask()
	for x := 10; x < 20; x++ {
		require.NoError(t, m.Set(x, 5, true))
	}

	c := New()
	c.Add(&Attribute{Name: "NAME", Value: "Test=Map"})
	c.Add(&Region{
		Name:        "base",
		Tiles:       m,
		AutoWarp:    &AutoWarp{X: -1, Y: 512, Arena: "duel"},
		IsBase:      true,
		NoAntiwarp:  true,
		NoWeapons:   true,
		NoFlagDrops: true,
		Color:       &color.RGBA{0x12, 0x34, 0x56, 0xff},
		Python:      "print('hi')",
		Unknown:     []RawChunk{{ID: "rXYZ", Data: []byte{1, 2, 3}}},
	})
	c.Add(&RawChunk{ID: "ZZZZ", Data: []byte{0xde, 0xad, 0xbe, 0xef, 0x01}})
	c.Add(&WallTiles{Sets: [][16]byte{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}}})
	c.Add(&Region{Name: "empty"})
	return c
}

// Wrap a section in a minimal host file with the pointer at offset 6
func host(section []byte) []byte {
	b := make([]byte, 16, 16+len(section))
	copy(b, "BM")
	binary.LittleEndian.PutUint32(b[pointerOffset:], 16)
	return append(b, section...)
}

func TestRoundTrip(t *testing.T) {
	c := testCollection(t)

	b, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, Magic, string(b[:4]))
	assert.Equal(t, uint32(len(b)), binary.LittleEndian.Uint32(b[4:]))
	assert.Zero(t, len(b)%4)

	got, err := Read(host(b), nil)
	require.NoError(t, err)

	require.Len(t, got.Chunks(), 5)
	require.Len(t, got.Regions(), 2)

	v, ok := got.Attribute("name")
	assert.True(t, ok)
	assert.Equal(t, "Test=Map", v)

	r, ok := got.Region("base")
	require.True(t, ok)
	want := c.Regions()[0]
	assert.True(t, want.Tiles.Equal(r.Tiles))
	assert.Equal(t, 10, r.TileCount())
	assert.Equal(t, want.AutoWarp, r.AutoWarp)
	assert.Equal(t, want.Color, r.Color)
	assert.Equal(t, want.Python, r.Python)
	assert.Equal(t, want.Unknown, r.Unknown)
	assert.True(t, r.IsBase && r.NoAntiwarp && r.NoWeapons && r.NoFlagDrops)

	raw, ok := got.Chunks()[2].(*RawChunk)
	require.True(t, ok)
	assert.Equal(t, "ZZZZ", raw.ID)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x01}, raw.Data)

	wt, ok := got.Chunks()[3].(*WallTiles)
	require.True(t, ok)
	assert.Equal(t, byte(16), wt.Sets[0][WallNorth|WallEast|WallSouth|WallWest])

	empty, ok := got.Region("empty")
	require.True(t, ok)
	assert.Nil(t, empty.Tiles)
	assert.Nil(t, empty.AutoWarp)
	assert.Nil(t, empty.Color)

	// Byte for byte stable on a second pass
	again, err := got.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestUnknownChunkPreserved(t *testing.T) {
	section := []byte("elvl")
	section = append(section, 0, 0, 0, 0, 0, 0, 0, 0)
	section = append(section, "QQQQ"...)
	section = append(section, 3, 0, 0, 0, 'a', 'b', 'c', 0)
	binary.LittleEndian.PutUint32(section[4:], uint32(len(section)))

	logs := new(bytes.Buffer)
	c, err := Read(host(section), log.New(logs, "", 0))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"QQQQ"`)

	require.Len(t, c.Chunks(), 1)
	assert.Equal(t, &RawChunk{ID: "QQQQ", Data: []byte("abc")}, c.Chunks()[0])

	b, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, section, b)
}

func TestReadAbsent(t *testing.T) {
	section, err := testCollection(t).MarshalBinary()
	require.NoError(t, err)

	noPointer := host(section)
	binary.LittleEndian.PutUint32(noPointer[pointerOffset:], 0)

	badSignature := host(section)
	copy(badSignature[16:], "ELVL")

	beyond := host(section)
	binary.LittleEndian.PutUint32(beyond[pointerOffset:], 1<<20)

	tests := []struct {
		name string
		b    []byte
		logs bool
	}{
		{"too short", []byte("BM"), false},
		{"zero pointer", noPointer, false},
		{"bad signature", badSignature, true},
		{"beyond end", beyond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := new(bytes.Buffer)
			c, err := Read(tt.b, log.New(logs, "", 0))
			require.NoError(t, err)
			assert.True(t, c.Empty())
			assert.Equal(t, tt.logs, logs.Len() > 0)
		})
	}
}

func TestReadErrors(t *testing.T) {
	good, err := testCollection(t).MarshalBinary()
	require.NoError(t, err)

	reserved := append([]byte(nil), good...)
	reserved[8] = 1

	truncated := good[:len(good)-4]

	short := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(short[4:], 4)

	t.Run("reserved", func(t *testing.T) {
		_, err := Read(host(reserved), nil)
		var fe FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Read(host(truncated), nil)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})

	t.Run("length too small", func(t *testing.T) {
		var c Collection
		var fe FormatError
		assert.True(t, errors.As(c.UnmarshalBinary(short), &fe))
	})
}

func TestAutoWarpRange(t *testing.T) {
	tests := []struct {
		name string
		warp AutoWarp
		ok   bool
	}{
		{"current", AutoWarp{X: WarpCurrent, Y: WarpCurrent}, true},
		{"spawn", AutoWarp{X: WarpSpawn, Y: WarpSpawn}, true},
		{"max", AutoWarp{X: 1023, Y: 1023, Arena: "0123456789abcdef"}, true},
		{"x too small", AutoWarp{X: -2}, false},
		{"y too big", AutoWarp{Y: 1024}, false},
		{"arena too long", AutoWarp{Arena: "0123456789abcdefg"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.warp
			c := New()
			c.Add(&Region{Name: "r", AutoWarp: &w})
			b, err := c.MarshalBinary()
			if !tt.ok {
				var re *tile.RangeError
				assert.True(t, errors.As(err, &re))
				return
			}
			require.NoError(t, err)

			got := New()
			require.NoError(t, got.UnmarshalBinary(b))
			assert.Equal(t, &w, got.Regions()[0].AutoWarp)
		})
	}
}

func TestAutoWarpDecodeRange(t *testing.T) {
	// rAWP with x = -5
	region := []byte("rAWP")
	region = append(region, 4, 0, 0, 0, 0xfb, 0xff, 0, 0)

	c := New()
	c.Add(&RawChunk{ID: TagRegion, Data: region})
	b, err := c.MarshalBinary()
	require.NoError(t, err)

	var re *tile.RangeError
	assert.True(t, errors.As(New().UnmarshalBinary(b), &re))
	assert.Equal(t, -5, re.Value)
}

func TestAttributes(t *testing.T) {
	c := New()
	c.SetAttribute("Author", "a")
	c.SetAttribute("AUTHOR", "b")
	require.Len(t, c.Chunks(), 1)
	v, _ := c.Attribute("author")
	assert.Equal(t, "b", v)

	_, ok := c.Attribute("missing")
	assert.False(t, ok)

	a := decodeAttribute([]byte("NOVALUE"))
	assert.Equal(t, "NOVALUE", a.Name)
	assert.Empty(t, a.Value)
}

func TestBareAttributeRoundTrip(t *testing.T) {
	section := []byte("elvl")
	section = append(section, 0, 0, 0, 0, 0, 0, 0, 0)
	section = append(section, "ATTR"...)
	section = append(section, 4, 0, 0, 0, 'N', 'A', 'M', 'E')
	section = append(section, "ATTR"...)
	section = append(section, 5, 0, 0, 0, 'N', 'A', 'M', 'E', '=', 0, 0, 0)
	binary.LittleEndian.PutUint32(section[4:], uint32(len(section)))

	c, err := Read(host(section), nil)
	require.NoError(t, err)
	require.Len(t, c.Chunks(), 2)

	b, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, section, b)

	// Giving a bare attribute a value adds the separator
	c.Chunks()[0].(*Attribute).Value = "x"
	b, err = c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte("NAME=x"), b[20:26])
}

func TestRemoveRegion(t *testing.T) {
	c := testCollection(t)
	r, ok := c.Region("base")
	require.True(t, ok)

	assert.True(t, c.RemoveRegion(r))
	assert.False(t, c.RemoveRegion(r))
	assert.Len(t, c.Chunks(), 4)
	assert.Len(t, c.Regions(), 1)
}

func TestMalformedWallTiles(t *testing.T) {
	c := New()
	c.Add(&RawChunk{ID: TagWallTiles, Data: []byte{1, 2, 3}})
	b, err := c.MarshalBinary()
	require.NoError(t, err)

	got := New()
	require.NoError(t, got.UnmarshalBinary(b))
	assert.IsType(t, &RawChunk{}, got.Chunks()[0])
}
