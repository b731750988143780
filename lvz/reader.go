package lvz

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"time"

	"github.com/bodgit/subspace/internal/cursor"
	"github.com/bodgit/subspace/tile"
	"github.com/klauspost/compress/zlib"
)

func discard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(ioutil.Discard, "", 0)
	}
	return logger
}

// ReadCompressed splits b into its sections without decompressing them.
// Sections that don't carry the container tag are logged and skipped.
func ReadCompressed(b []byte, logger *log.Logger) (*CompressedPackage, error) {
	logger = discard(logger)
	r := cursor.New(b)

	magic, err := r.Tag()
	if err != nil {
		return nil, truncated("container header")
	}
	if magic != Magic {
		logger.Printf("lvz: unexpected container tag %q", magic)
	}

	count, err := r.Uint32()
	if err != nil {
		return nil, truncated("container header")
	}

	cp := &CompressedPackage{}
	for i := 0; i < int(count); i++ {
		var (
			tag                string
			size, stamp, csize uint32
			name, data         []byte
		)
		if tag, err = r.Tag(); err != nil {
			return nil, truncated("section header")
		}
		for _, v := range []*uint32{&size, &stamp, &csize} {
			if *v, err = r.Uint32(); err != nil {
				return nil, truncated("section header")
			}
		}
		if name, err = r.CString(); err != nil {
			return nil, truncated("section name")
		}
		if data, err = r.Bytes(int(csize)); err != nil {
			return nil, truncated(fmt.Sprintf("section %q", decodeName(name)))
		}

		if tag != Magic {
			logger.Printf("lvz: skipping section %d with tag %q", i, tag)
			continue
		}

		cp.Sections = append(cp.Sections, CompressedSection{
			Name: decodeName(name),
			Time: stamp,
			Size: size,
			Data: append([]byte(nil), data...),
		})
	}

	return cp, nil
}

func inflate(s *CompressedSection) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("lvz: section %q: %w", s.Name, err)
	}
	defer zr.Close()

	b, err := ioutil.ReadAll(io.LimitReader(zr, int64(s.Size)+1))
	if err != nil {
		return nil, fmt.Errorf("lvz: section %q: %w", s.Name, err)
	}
	if len(b) != int(s.Size) {
		return nil, FormatError(fmt.Sprintf("section %q inflates to %d bytes, expected %d", s.Name, len(b), s.Size))
	}

	return b, nil
}

// Decompress inflates every section of cp. Definition sections are merged
// in order with image indices rebased onto the combined image list.
func Decompress(cp *CompressedPackage) (*Package, error) {
	p := &Package{}

	for i := range cp.Sections {
		s := &cp.Sections[i]
		b, err := inflate(s)
		if err != nil {
			return nil, err
		}

		if s.Time != 0 {
			p.Files = append(p.Files, File{
				Name: s.Name,
				Time: time.Unix(int64(s.Time), 0).UTC(),
				Data: b,
			})
			continue
		}

		d, err := decodeDefinitions(b)
		if err != nil {
			return nil, err
		}
		if err := p.merge(d); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Package) merge(d *definitions) error {
	base := len(p.Images)

	rebase := func(o *Object) error {
		o.Image += base
		return tile.CheckRange("image index", o.Image, 0, 255)
	}
	for i := range d.mapObjects {
		if err := rebase(&d.mapObjects[i].Object); err != nil {
			return err
		}
	}
	for i := range d.screenObjects {
		if err := rebase(&d.screenObjects[i].Object); err != nil {
			return err
		}
	}

	if p.Format == "" {
		p.Format = d.format
	}
	p.Images = append(p.Images, d.images...)
	p.MapObjects = append(p.MapObjects, d.mapObjects...)
	p.ScreenObjects = append(p.ScreenObjects, d.screenObjects...)

	return nil
}

// Decode reads and decompresses the package held in b.
func Decode(b []byte, logger *log.Logger) (*Package, error) {
	cp, err := ReadCompressed(b, logger)
	if err != nil {
		return nil, err
	}
	return Decompress(cp)
}

// Read decodes a package from r.
func Read(r io.Reader, logger *log.Logger) (*Package, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(b, logger)
}

// Open decodes the package file called name.
func Open(name string, logger *log.Logger) (*Package, error) {
	b, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Decode(b, logger)
}
