package bitmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"io/ioutil"

	"github.com/bodgit/subspace/internal/cursor"
)

var (
	errNotEnough = errors.New("bitmap: not enough image data")
	errBadDepth  = FormatError("unsupported bit depth")
)

// DecodeOptions alters how a bitmap is decoded.
type DecodeOptions struct {
	// TransparentBlack rewrites opaque black color table entries to fully
	// transparent.
	TransparentBlack bool
}

func init() {
	image.RegisterFormat("bmp", "BM", Decode, DecodeConfig)
}

// Larger than any tileset the game can load
const maxDimension = 1 << 15

type decoder struct {
	r    *cursor.Reader
	opts DecodeOptions
	bm   Bitmap
}

func (d *decoder) readHeader() error {
	b, err := d.r.Bytes(headerSize)
	if err != nil {
		return errNotEnough
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &d.bm.Header); err != nil {
		return err
	}

	h := &d.bm.Header
	if h.Type != magic {
		return FormatError("not a bitmap")
	}
	if h.Compression != 0 {
		return FormatError("compressed bitmaps are not supported")
	}
	if h.InfoSize < infoHeaderSize {
		return FormatError("info header too small")
	}
	switch h.BitCount {
	case 1, 4, 8, 24:
	default:
		return errBadDepth
	}
	if h.Width == 0 || h.Height == 0 || h.Width > maxDimension || h.Height > maxDimension {
		return FormatError("bad dimensions")
	}

	return nil
}

func (d *decoder) readPalette() error {
	h := &d.bm.Header
	if h.BitCount > 8 {
		return nil
	}

	n := int(h.ColorsUsed)
	if n == 0 {
		n = 1 << h.BitCount
	}
	if n > MaxColors {
		return FormatError("color table too large")
	}

	if err := d.r.Seek(fileHeaderSize + int(h.InfoSize)); err != nil {
		return errNotEnough
	}

	d.bm.Palette = make([]uint32, n)
	for i := range d.bm.Palette {
		v, err := d.r.Uint32()
		if err != nil {
			return errNotEnough
		}
		// Entries are stored as B, G, R, reserved
		v = 0xff000000 | v&0x00ffffff
		if d.opts.TransparentBlack && v == 0xff000000 {
			v = 0
		}
		d.bm.Palette[i] = v
	}

	return nil
}

func (d *decoder) readPixels() error {
	h := &d.bm.Header
	if err := d.r.Seek(int(h.PixelOffset)); err != nil {
		return errNotEnough
	}

	size := uint64(d.bm.Stride()) * uint64(h.Height)
	if size > uint64(d.r.Len()) {
		return errNotEnough
	}

	b, err := d.r.Bytes(int(size))
	if err != nil {
		return errNotEnough
	}
	d.bm.Pix = append([]byte(nil), b...)

	return nil
}

func (d *decoder) decode(b []byte, configOnly bool) error {
	d.r = cursor.New(b)

	if err := d.readHeader(); err != nil {
		return err
	}
	if err := d.readPalette(); err != nil {
		return err
	}
	if configOnly {
		return nil
	}
	return d.readPixels()
}

// Parse decodes the bitmap at the start of b. Trailing bytes beyond the
// pixel data are ignored.
func Parse(b []byte, o *DecodeOptions) (*Bitmap, error) {
	var d decoder
	if o != nil {
		d.opts = *o
	}
	if err := d.decode(b, false); err != nil {
		return nil, err
	}
	return &d.bm, nil
}

// Decode reads a bitmap from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	bm, err := Parse(b, nil)
	if err != nil {
		return nil, err
	}
	if m := bm.Paletted(); m != nil {
		return m, nil
	}
	return bm.Image(), nil
}

// DecodeConfig returns the color model and dimensions of a bitmap without
// decoding the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	var d decoder
	if err := d.decode(b, true); err != nil {
		return image.Config{}, err
	}

	bm := &d.bm
	cfg := image.Config{
		Width:  int(bm.Width),
		Height: int(bm.Height),
	}
	if bm.BitCount > 8 {
		cfg.ColorModel = color.NRGBAModel
	} else {
		cfg.ColorModel = bm.colorPalette()
	}
	return cfg, nil
}
