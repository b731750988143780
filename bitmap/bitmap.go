/*
Package bitmap implements the subset of the Windows bitmap format used for
SubSpace tilesets.

Only uncompressed images are supported, at 1, 4, 8 or 24 bits per pixel.
Images with 8 bits or fewer carry a color table. Pixel rows are stored
bottom to top and each row is padded to a multiple of four bytes. All
multi-byte fields are little-endian.

The two reserved 16-bit fields at offset 6 of the file header are treated
as a single 32-bit value; level files use it to point at their metadata
section.
*/
package bitmap

import (
	"image"
	"image/color"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	headerSize     = fileHeaderSize + infoHeaderSize

	// MaxColors is the size of a full color table.
	MaxColors = 256
)

var magic = [2]byte{'B', 'M'}

// FormatError reports that the input is not a valid bitmap.
type FormatError string

func (e FormatError) Error() string { return "bitmap: invalid format: " + string(e) }

// Header is the combined file and info header.
type Header struct {
	Type            [2]byte
	FileSize        uint32
	Reserved        uint32
	PixelOffset     uint32
	InfoSize        uint32
	Width           uint32
	Height          uint32
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	ImageSize       uint32
	XPelsPerMeter   int32
	YPelsPerMeter   int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Bitmap is a decoded bitmap with its pixel buffer left in file order.
type Bitmap struct {
	Header

	// Palette holds ARGB entries, empty for 24-bit images.
	Palette []uint32

	// Pix holds Height rows of Stride() bytes, bottom row first.
	Pix []byte
}

// Stride returns the padded row length in bytes for the given depth and
// width.
func Stride(bitCount, width int) int {
	return (bitCount*width + 31) / 32 * 4
}

// Stride returns the padded row length of b in bytes.
func (b *Bitmap) Stride() int {
	return Stride(int(b.BitCount), int(b.Width))
}

// Bounds returns the image dimensions.
func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(b.Width), int(b.Height))
}

func argbToColor(v uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: uint8(v >> 24),
	}
}

func colorToARGB(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return 0xff000000 | uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}

// row returns image row y counting from the top.
func (b *Bitmap) row(y int) []byte {
	stride := b.Stride()
	i := (int(b.Height) - 1 - y) * stride
	return b.Pix[i : i+stride]
}

func (b *Bitmap) colorIndexAt(x, y int) uint8 {
	row := b.row(y)
	switch b.BitCount {
	case 1:
		return row[x>>3] >> (7 - uint(x&7)) & 0x01
	case 4:
		if x&1 == 0 {
			return row[x>>1] >> 4
		}
		return row[x>>1] & 0x0f
	default:
		return row[x]
	}
}

// Image converts the bitmap to top-down RGBA pixels. 24-bit pixels are
// fully opaque; palette pixels take their color, including alpha, from the
// color table.
func (b *Bitmap) Image() *image.NRGBA {
	m := image.NewNRGBA(b.Bounds())
	for y := 0; y < int(b.Height); y++ {
		row := b.row(y)
		for x := 0; x < int(b.Width); x++ {
			var c color.NRGBA
			if b.BitCount == 24 {
				c = color.NRGBA{R: row[x*3+2], G: row[x*3+1], B: row[x*3], A: 0xff}
			} else if i := int(b.colorIndexAt(x, y)); i < len(b.Palette) {
				c = argbToColor(b.Palette[i])
			} else {
				c = color.NRGBA{A: 0xff}
			}
			m.SetNRGBA(x, y, c)
		}
	}
	return m
}

func (b *Bitmap) colorPalette() color.Palette {
	p := make(color.Palette, 1<<b.BitCount)
	for i := range p {
		if i < len(b.Palette) {
			p[i] = argbToColor(b.Palette[i])
		} else {
			p[i] = color.NRGBA{A: 0xff}
		}
	}
	return p
}

// Paletted returns a paletted image for bitmaps of 8 bits or fewer, nil
// otherwise. The palette is padded with opaque black so every possible
// index resolves.
func (b *Bitmap) Paletted() *image.Paletted {
	if b.BitCount > 8 {
		return nil
	}
	m := image.NewPaletted(b.Bounds(), b.colorPalette())
	for y := 0; y < int(b.Height); y++ {
		for x := 0; x < int(b.Width); x++ {
			m.SetColorIndex(x, y, b.colorIndexAt(x, y))
		}
	}
	return m
}
