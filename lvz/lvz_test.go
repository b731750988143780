package lvz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/bodgit/subspace/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() *Package {
	return &Package{
		Files: []File{
			{Name: "ship.bm2", Time: time.Unix(1600000000, 0).UTC(), Data: bytes.Repeat([]byte("pixels"), 100)},
			{Name: "café.wa2", Time: time.Unix(1600000001, 0).UTC(), Data: []byte{}},
		},
		Images: []Image{
			{Name: "ship.bm2", AnimationTime: 100, FramesX: 4, FramesY: 2},
			{Name: "logo.bm2", FramesX: 1, FramesY: 1},
		},
		MapObjects: []MapObject{
			{Object: Object{ID: 1, Image: 0, Layer: AfterTiles, Mode: ShowAlways}, X: 8192, Y: -16},
			{Object: Object{ID: maxID, Image: 1, Layer: TopMost, Mode: ServerControlled, Time: maxTime}, X: 0, Y: 0},
		},
		ScreenObjects: []ScreenObject{
			{Object: Object{ID: 7, Image: 1, Layer: AfterChat, Mode: Kill, Time: 50}, X: -1, Y: 2047, XAnchor: BottomRight, YAnchor: ScreenCenter},
			{Object: Object{ID: 0, Image: 0, Layer: BelowAll, Mode: EnterZone}, X: -2048, Y: 10, XAnchor: HelpTopRight},
		},
		Format: CLV2,
	}
}

func TestRoundTrip(t *testing.T) {
	p := testPackage()

	b, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, Magic, string(b[:4]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[4:]))

	got, err := Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	f, ok := got.File("café.wa2")
	require.True(t, ok)
	assert.Equal(t, time.Unix(1600000001, 0).UTC(), f.Time)
	_, ok = got.File("missing")
	assert.False(t, ok)
}

func TestPackSections(t *testing.T) {
	cp, err := Pack(testPackage())
	require.NoError(t, err)
	require.Len(t, cp.Sections, 3)

	assert.Equal(t, "ship.bm2", cp.Sections[0].Name)
	assert.Equal(t, uint32(1600000000), cp.Sections[0].Time)
	assert.Equal(t, uint32(600), cp.Sections[0].Size)
	assert.Less(t, len(cp.Sections[0].Data), 600)

	defs := cp.Sections[2]
	assert.Empty(t, defs.Name)
	assert.Zero(t, defs.Time)

	b, err := inflate(&defs)
	require.NoError(t, err)
	assert.Equal(t, CLV2, string(b[:4]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[8:]))
}

func TestDefaultFormat(t *testing.T) {
	p := testPackage()
	p.Format = ""

	b, err := p.MarshalBinary()
	require.NoError(t, err)
	got, err := Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, CLV2, got.Format)
}

func TestFilesOnly(t *testing.T) {
	p := &Package{Files: testPackage().Files}

	cp, err := Pack(p)
	require.NoError(t, err)
	assert.Len(t, cp.Sections, 2)

	b, err := cp.MarshalBinary()
	require.NoError(t, err)
	got, err := Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, p.Files, got.Files)
	assert.Empty(t, got.Format)
}

func TestFormatEquivalence(t *testing.T) {
	p := testPackage()
	for i := range p.ScreenObjects {
		p.ScreenObjects[i].XAnchor = TopLeft
		p.ScreenObjects[i].YAnchor = TopLeft
	}

	decode := func(format string) *Package {
		q := *p
		q.Format = format
		b, err := q.MarshalBinary()
		require.NoError(t, err)
		got, err := Decode(b, nil)
		require.NoError(t, err)
		assert.Equal(t, format, got.Format)
		return got
	}

	v1, v2 := decode(CLV1), decode(CLV2)
	assert.Equal(t, v1.MapObjects, v2.MapObjects)
	assert.Equal(t, v1.ScreenObjects, v2.ScreenObjects)
	assert.Equal(t, v1.Images, v2.Images)
	assert.Equal(t, p.MapObjects, v1.MapObjects)
	assert.Equal(t, p.ScreenObjects, v1.ScreenObjects)
}

func TestObjectRecordLayout(t *testing.T) {
	d := &definitions{
		format: CLV2,
		mapObjects: []MapObject{
			{Object: Object{ID: 3, Image: 2, Layer: AfterShips, Mode: Death, Time: 0x123}, X: -2, Y: 300},
		},
		screenObjects: []ScreenObject{
			{Object: Object{ID: 4}, X: -1, Y: 5, XAnchor: BottomRight, YAnchor: StatBox},
		},
	}
	b, err := d.marshal()
	require.NoError(t, err)

	assert.Equal(t, []byte{
		'C', 'L', 'V', '2', 2, 0, 0, 0, 0, 0, 0, 0,
		0x07, 0x00, 0xfe, 0xff, 0x2c, 0x01, 0x02, 0x04, 0x23, 0x41,
		0x08, 0x00, 0xf2, 0xff, 0x53, 0x00, 0x00, 0x00, 0x00, 0x00,
	}, b)

	// CLV1 stores screen coordinates as plain 16-bit values
	d.format = CLV1
	d.screenObjects[0].XAnchor, d.screenObjects[0].YAnchor = TopLeft, TopLeft
	b, err = d.marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x00, 0xff, 0xff, 0x05, 0x00}, b[22:28])
}

func TestRangeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Package)
	}{
		{"object id", func(p *Package) { p.MapObjects[0].ID = maxID + 1 }},
		{"image index", func(p *Package) { p.MapObjects[0].Image = 256 }},
		{"layer", func(p *Package) { p.MapObjects[0].Layer = TopMost + 1 }},
		{"display time", func(p *Package) { p.ScreenObjects[0].Time = maxTime + 1 }},
		{"map x", func(p *Package) { p.MapObjects[0].X = 40000 }},
		{"screen x", func(p *Package) { p.ScreenObjects[0].X = 2048 }},
		{"screen y", func(p *Package) { p.ScreenObjects[0].Y = -2049 }},
		{"frames", func(p *Package) { p.Images[0].FramesX = 1 << 15 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPackage()
			tt.mutate(p)
			_, err := Pack(p)
			var re *tile.RangeError
			assert.True(t, errors.As(err, &re), "%v", err)
		})
	}
}

func TestPackErrors(t *testing.T) {
	p := testPackage()
	p.Format = CLV1
	_, err := Pack(p)
	assert.Error(t, err, "anchors cannot be stored in CLV1")

	p = testPackage()
	p.Files[1].Time = time.Time{}
	_, err = Pack(p)
	assert.True(t, errors.Is(err, errNoTimestamp))

	p = testPackage()
	p.Format = "CLV3"
	_, err = Pack(p)
	var fe FormatError
	assert.True(t, errors.As(err, &fe))
}

func definitionSection(t *testing.T, d *definitions) CompressedSection {
	t.Helper()
	b, err := d.marshal()
	require.NoError(t, err)
	s, err := deflate("", b)
	require.NoError(t, err)
	return *s
}

func TestMergeRebasesImages(t *testing.T) {
	first := &definitions{
		format: CLV1,
		images: []Image{{Name: "a.bm2"}, {Name: "b.bm2"}},
		mapObjects: []MapObject{
			{Object: Object{ID: 1, Image: 1}},
		},
	}
	second := &definitions{
		format: CLV2,
		images: []Image{{Name: "c.bm2"}},
		mapObjects: []MapObject{
			{Object: Object{ID: 2, Image: 0}},
		},
		screenObjects: []ScreenObject{
			{Object: Object{ID: 3, Image: 0}},
		},
	}

	cp := &CompressedPackage{Sections: []CompressedSection{
		definitionSection(t, first),
		definitionSection(t, second),
	}}

	p, err := Decompress(cp)
	require.NoError(t, err)
	assert.Equal(t, CLV1, p.Format)
	require.Len(t, p.Images, 3)
	assert.Equal(t, "c.bm2", p.Images[2].Name)
	require.Len(t, p.MapObjects, 2)
	assert.Equal(t, 1, p.MapObjects[0].Image)
	assert.Equal(t, 2, p.MapObjects[1].Image)
	assert.Equal(t, 2, p.ScreenObjects[0].Image)

	many := &definitions{format: CLV2, images: make([]Image, 256)}
	for i := range many.images {
		many.images[i] = Image{Name: "x"}
	}
	cp.Sections = []CompressedSection{definitionSection(t, many), definitionSection(t, second)}
	_, err = Decompress(cp)
	var re *tile.RangeError
	assert.True(t, errors.As(err, &re))
}

func TestSkipForeignSection(t *testing.T) {
	cp, err := Pack(testPackage())
	require.NoError(t, err)
	b, err := cp.MarshalBinary()
	require.NoError(t, err)

	// Retag the first section
	copy(b[8:], "XXXX")

	logs := new(bytes.Buffer)
	got, err := ReadCompressed(b, log.New(logs, "", 0))
	require.NoError(t, err)
	assert.Len(t, got.Sections, 2)
	assert.Contains(t, logs.String(), "skipping section 0")
}

func TestDecodeErrors(t *testing.T) {
	good, err := testPackage().MarshalBinary()
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{2, 6, 20, len(good) - 1} {
			_, err := Decode(good[:n], nil)
			assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "length %d: %v", n, err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		cp, err := ReadCompressed(good, nil)
		require.NoError(t, err)
		cp.Sections[0].Size++
		_, err = Decompress(cp)
		var fe FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("corrupt stream", func(t *testing.T) {
		cp, err := ReadCompressed(good, nil)
		require.NoError(t, err)
		cp.Sections[0].Data = []byte("not zlib")
		_, err = Decompress(cp)
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		s, err := deflate("", []byte("CLV9\x00\x00\x00\x00\x00\x00\x00\x00"))
		require.NoError(t, err)
		_, err = Decompress(&CompressedPackage{Sections: []CompressedSection{*s}})
		var fe FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("object count", func(t *testing.T) {
		s, err := deflate("", []byte("CLV2\xff\x00\x00\x00\x00\x00\x00\x00"))
		require.NoError(t, err)
		_, err = Decompress(&CompressedPackage{Sections: []CompressedSection{*s}})
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "AfterGauges", AfterGauges.String())
	assert.Equal(t, "Layer(9)", Layer(9).String())
	assert.Equal(t, "EnterArena", EnterArena.String())
	assert.Equal(t, "WeaponsBottomLeft", WeaponsBottomLeft.String())
	assert.Equal(t, "Anchor(15)", Anchor(15).String())
}
