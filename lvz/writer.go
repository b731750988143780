package lvz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"
)

var errNoTimestamp = errors.New("lvz: auxiliary files need a non-zero timestamp")

func deflate(name string, b []byte) (*CompressedSection, error) {
	buf := new(bytes.Buffer)
	zw, err := zlib.NewWriterLevel(buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &CompressedSection{
		Name: name,
		Size: uint32(len(b)),
		Data: buf.Bytes(),
	}, nil
}

// Pack compresses p. Auxiliary files come first, each in its own section,
// followed by a single definition section in p.Format holding every image
// and object.
func Pack(p *Package) (*CompressedPackage, error) {
	cp := &CompressedPackage{}

	for _, f := range p.Files {
		t := f.Time.Unix()
		if f.Time.IsZero() || t <= 0 || t > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %q", errNoTimestamp, f.Name)
		}
		s, err := deflate(f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		s.Time = uint32(t)
		cp.Sections = append(cp.Sections, *s)
	}

	if p.hasDefinitions() {
		format := p.Format
		if format == "" {
			format = CLV2
		}
		d := &definitions{
			format:        format,
			images:        p.Images,
			mapObjects:    p.MapObjects,
			screenObjects: p.ScreenObjects,
		}
		b, err := d.marshal()
		if err != nil {
			return nil, err
		}
		s, err := deflate("", b)
		if err != nil {
			return nil, err
		}
		cp.Sections = append(cp.Sections, *s)
	}

	return cp, nil
}

// MarshalBinary encodes the package container.
func (cp *CompressedPackage) MarshalBinary() ([]byte, error) {
	w := new(bytes.Buffer)
	w.WriteString(Magic)
	binary.Write(w, binary.LittleEndian, uint32(len(cp.Sections)))

	for _, s := range cp.Sections {
		name, err := encodeName(s.Name)
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(name, 0) >= 0 {
			return nil, fmt.Errorf("lvz: section name %q contains a NUL", s.Name)
		}

		w.WriteString(Magic)
		for _, v := range []uint32{s.Size, s.Time, uint32(len(s.Data))} {
			binary.Write(w, binary.LittleEndian, v)
		}
		w.Write(name)
		w.WriteByte(0)
		w.Write(s.Data)
	}

	return w.Bytes(), nil
}

// MarshalBinary packs and encodes the package.
func (p *Package) MarshalBinary() ([]byte, error) {
	cp, err := Pack(p)
	if err != nil {
		return nil, err
	}
	return cp.MarshalBinary()
}

// Encode writes the package p to w.
func Encode(w io.Writer, p *Package) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Create writes the package p to the file called name.
func Create(name string, p *Package) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Encode(f, p); err != nil {
		return err
	}
	return f.Close()
}
