package metadata

import (
	"math/rand"
	"testing"

	"github.com/bodgit/subspace/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegionTilesScenario(t *testing.T) {
	b := []byte{
		0x89,       // 10 empty rows
		0x20, 0x63, // 100 empty tiles
		0x5f,       // 32 present tiles
		0x23, 0x7b, // 892 empty tiles
		0xe3, 0xf4, // repeat row 1013 times
	}

	m := DecodeRegionTiles(b)
	for y := 0; y < tile.Height; y++ {
		for x := 0; x < tile.Width; x++ {
			want := x >= 100 && x <= 131 && y >= 10
			if !assert.Equal(t, want, m.Has(x, y), "(%d, %d)", x, y) {
				return
			}
		}
	}
	assert.Equal(t, 32*1014, m.Count())

	assert.Equal(t, b, EncodeRegionTiles(m))
}

func TestEncodeRegionTilesEmpty(t *testing.T) {
	b := EncodeRegionTiles(tile.NewMask())
	assert.Equal(t, []byte{0xa3, 0xff}, b)
	assert.Equal(t, 0, DecodeRegionTiles(b).Count())
}

func TestDecodeRegionTilesTruncated(t *testing.T) {
	// Long op missing its second byte
	m := DecodeRegionTiles([]byte{0x41, 0x20})
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.Has(0, 0))
	assert.True(t, m.Has(1, 0))
}

func TestDecodeRegionTilesRunWraps(t *testing.T) {
	// 1020 empty, then 8 present spills onto the next row
	m := DecodeRegionTiles([]byte{0x23, 0xfb, 0x47})
	assert.True(t, m.Has(1023, 0))
	assert.True(t, m.Has(3, 1))
	assert.False(t, m.Has(4, 1))
}

func TestRegionTilesRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name string
		fill func(m *tile.Mask)
	}{
		{"full", func(m *tile.Mask) {
			for y := 0; y < tile.Height; y++ {
				for x := 0; x < tile.Width; x++ {
					m.Row(y)[x] = true
				}
			}
		}},
		{"corners", func(m *tile.Mask) {
			m.Row(0)[0] = true
			m.Row(1023)[1023] = true
		}},
		{"checkerboard", func(m *tile.Mask) {
			for y := 0; y < tile.Height; y++ {
				for x := (y & 1); x < tile.Width; x += 2 {
					m.Row(y)[x] = true
				}
			}
		}},
		{"random", func(m *tile.Mask) {
			for i := 0; i < 50000; i++ {
				m.Row(rng.Intn(tile.Height))[rng.Intn(tile.Width)] = true
			}
		}},
		{"blocks", func(m *tile.Mask) {
			for y := 200; y < 700; y++ {
				for x := 40; x < 1000; x++ {
					m.Row(y)[x] = (x/100+y/50)%2 == 0
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tile.NewMask()
			tt.fill(m)

			got := DecodeRegionTiles(EncodeRegionTiles(m))
			require.True(t, m.Equal(got))
		})
	}
}
