package bitmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
)

var _ draw.Quantizer = (*PaletteReducer)(nil)

// Options are the encoding parameters.
type Options struct {
	// BitCount is 8 or 24. Zero means 24.
	BitCount int

	// Dummy shrinks the pixel data to a single pixel while still writing
	// a full color table.
	Dummy bool

	// Quantizer builds the 8-bit color table. Nil uses PaletteReducer,
	// which is lossless for images of 256 colors or fewer.
	Quantizer draw.Quantizer
}

func (o *Options) bitCount() int {
	if o == nil || o.BitCount == 0 {
		return 24
	}
	return o.BitCount
}

// Build the color table and per-pixel indices for an 8-bit encode
func buildPalette(m image.Image, q draw.Quantizer) ([]uint32, func(x, y int) uint8, error) {
	b := m.Bounds()

	if q == nil {
		r := NewPaletteReducer(m)
		switch {
		case r.Len() > MaxColors:
			if err := r.Compress(MaxColors); err != nil {
				return nil, nil, err
			}
		case r.Len() < MaxColors:
			if err := r.Pad(MaxColors, color.Black); err != nil {
				return nil, nil, err
			}
		}
		palette := make([]uint32, r.Len())
		for i, c := range r.colors {
			palette[i] = colorToARGB(c)
		}
		return palette, func(x, y int) uint8 { return uint8(r.ColorIndexAt(x, y)) }, nil
	}

	p := q.Quantize(make(color.Palette, 0, MaxColors), m)
	if len(p) == 0 || len(p) > MaxColors {
		return nil, nil, errors.New("bitmap: quantizer returned an unusable palette")
	}
	pm := image.NewPaletted(b, p)
	draw.Draw(pm, b, m, b.Min, draw.Src)

	palette := make([]uint32, MaxColors)
	for i := range palette {
		if i < len(p) {
			palette[i] = colorToARGB(p[i])
		} else {
			palette[i] = 0xff000000
		}
	}
	return palette, pm.ColorIndexAt, nil
}

// FromImage converts m into a bitmap. The result is always bottom-up with
// a 40 byte info header.
func FromImage(m image.Image, o *Options) (*Bitmap, error) {
	bitCount := o.bitCount()
	if bitCount != 8 && bitCount != 24 {
		return nil, errBadDepth
	}

	b := m.Bounds()
	width, height := b.Dx(), b.Dy()
	dummy := o != nil && o.Dummy
	if dummy {
		// The single pixel is left as zero
		width, height = 1, 1
	}

	bm := &Bitmap{}
	bm.Type = magic
	bm.InfoSize = infoHeaderSize
	bm.Width = uint32(width)
	bm.Height = uint32(height)
	bm.Planes = 1
	bm.BitCount = uint16(bitCount)

	stride := bm.Stride()
	bm.Pix = make([]byte, stride*height)

	switch {
	case bitCount == 24 && !dummy:
		for y := 0; y < height; y++ {
			row := bm.row(y)
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				row[x*3+0] = c.B
				row[x*3+1] = c.G
				row[x*3+2] = c.R
			}
		}
	case bitCount == 8:
		var q draw.Quantizer
		if o != nil {
			q = o.Quantizer
		}
		palette, index, err := buildPalette(m, q)
		if err != nil {
			return nil, err
		}
		bm.Palette = palette
		if dummy {
			break
		}
		for y := 0; y < height; y++ {
			row := bm.row(y)
			for x := 0; x < width; x++ {
				row[x] = index(b.Min.X+x, b.Min.Y+y)
			}
		}
	}

	bm.fixHeader()
	return bm, nil
}

// Recompute the derived header fields from the palette and pixels
func (b *Bitmap) fixHeader() {
	b.Type = magic
	b.InfoSize = infoHeaderSize
	b.Planes = 1
	b.Compression = 0
	b.PixelOffset = uint32(headerSize + 4*len(b.Palette))
	b.ImageSize = uint32(b.Stride()) * b.Height
	b.FileSize = b.PixelOffset + b.ImageSize
	if b.BitCount <= 8 {
		b.ColorsUsed = uint32(len(b.Palette))
	} else {
		b.ColorsUsed = 0
	}
}

// MarshalBinary encodes the bitmap. Derived header fields are recomputed
// and the reserved field is cleared.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	if len(b.Pix) != b.Stride()*int(b.Height) {
		return nil, errors.New("bitmap: pixel buffer does not match dimensions")
	}

	dup := *b
	dup.fixHeader()
	dup.Reserved = 0

	buf := new(bytes.Buffer)
	buf.Grow(int(dup.FileSize))

	if err := binary.Write(buf, binary.LittleEndian, &dup.Header); err != nil {
		return nil, err
	}
	if len(dup.Palette) > 0 {
		if err := binary.Write(buf, binary.LittleEndian, dup.Palette); err != nil {
			return nil, err
		}
	}
	if _, err := buf.Write(dup.Pix); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Encode writes the Image m to w in bitmap format.
func Encode(w io.Writer, m image.Image, o *Options) error {
	bm, err := FromImage(m, o)
	if err != nil {
		return err
	}
	b, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
