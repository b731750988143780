/*
Package metadata implements the extended level metadata section that may be
embedded in a SubSpace level file.

The section is located through a 32-bit pointer at offset 6 of the level's
tileset bitmap. It starts with a 12 byte header, the "elvl" signature, the
total section length including the header and a reserved zero value,
followed by a stream of chunks. Each chunk is a four character tag, a
32-bit body length and the body, padded with zeroes to a multiple of four
bytes. Regions nest their own sub-chunks using the same framing.

Chunks that are not understood are kept verbatim so a section always
survives a read and write unchanged.
*/
package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"strings"

	"github.com/bodgit/subspace/internal/cursor"
)

const (
	// Magic is the section signature.
	Magic = "elvl"

	sectionHeaderSize = 12
	chunkHeaderSize   = 8
	pointerOffset     = 6
)

// FormatError reports a malformed metadata section.
type FormatError string

func (e FormatError) Error() string { return "metadata: invalid format: " + string(e) }

// Collection is the decoded metadata section. Regions are additionally
// indexed in the order they appear.
type Collection struct {
	chunks  []Chunk
	regions []*Region
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{}
}

// Empty reports whether the collection holds no chunks.
func (c *Collection) Empty() bool {
	return len(c.chunks) == 0
}

// Chunks returns every chunk in file order.
func (c *Collection) Chunks() []Chunk {
	return append([]Chunk(nil), c.chunks...)
}

// Regions returns the region chunks in file order.
func (c *Collection) Regions() []*Region {
	return append([]*Region(nil), c.regions...)
}

// Add appends a chunk.
func (c *Collection) Add(ch Chunk) {
	c.chunks = append(c.chunks, ch)
	if r, ok := ch.(*Region); ok {
		c.regions = append(c.regions, r)
	}
}

// Region returns the first region called name.
func (c *Collection) Region(name string) (*Region, bool) {
	for _, r := range c.regions {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// RemoveRegion removes the region r, reporting whether it was present.
func (c *Collection) RemoveRegion(r *Region) bool {
	found := false
	for i, ch := range c.chunks {
		if ch == Chunk(r) {
			c.chunks = append(c.chunks[:i], c.chunks[i+1:]...)
			found = true
			break
		}
	}
	for i, rr := range c.regions {
		if rr == r {
			c.regions = append(c.regions[:i], c.regions[i+1:]...)
			break
		}
	}
	return found
}

// Attribute returns the value of the first attribute matching name,
// ignoring case.
func (c *Collection) Attribute(name string) (string, bool) {
	for _, ch := range c.chunks {
		if a, ok := ch.(*Attribute); ok && strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute replaces the value of an existing attribute or appends a
// new one.
func (c *Collection) SetAttribute(name, value string) {
	for _, ch := range c.chunks {
		if a, ok := ch.(*Attribute); ok && strings.EqualFold(a.Name, name) {
			a.Value = value
			return
		}
	}
	c.Add(&Attribute{Name: name, Value: value})
}

func discard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(ioutil.Discard, "", 0)
	}
	return logger
}

// Read locates and decodes the metadata section of a level file held in b.
// A zero pointer or a missing signature yields an empty collection; the
// latter is logged as the file may be damaged.
func Read(b []byte, logger *log.Logger) (*Collection, error) {
	logger = discard(logger)

	r := cursor.New(b)
	if err := r.Seek(pointerOffset); err != nil {
		return New(), nil
	}
	off, err := r.Uint32()
	if err != nil || off == 0 {
		return New(), nil
	}

	if uint64(off)+sectionHeaderSize > uint64(len(b)) {
		logger.Printf("metadata: section offset %d is beyond the end of the file, ignoring", off)
		return New(), nil
	}
	if sig := string(b[off : off+4]); sig != Magic {
		logger.Printf("metadata: bad signature %q at offset %d, ignoring section", sig, off)
		return New(), nil
	}

	return decode(b[off:], logger)
}

// UnmarshalBinary decodes a bare metadata section starting with the
// signature.
func (c *Collection) UnmarshalBinary(b []byte) error {
	dup, err := decode(b, nil)
	if err != nil {
		return err
	}
	*c = *dup
	return nil
}

func decode(b []byte, logger *log.Logger) (*Collection, error) {
	logger = discard(logger)

	r := cursor.New(b)
	sig, err := r.Tag()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if sig != Magic {
		return nil, FormatError("bad signature")
	}

	length, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	reserved, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if reserved != 0 {
		return nil, FormatError("reserved field is not zero")
	}
	if length < sectionHeaderSize {
		return nil, FormatError("section length too small")
	}

	body, err := r.Sub(int(length) - sectionHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("metadata: section: %w", err)
	}

	c := New()
	err = eachChunk(body, func(tag string, data []byte) error {
		ch, err := decodeChunk(tag, data, logger)
		if err != nil {
			return err
		}
		c.Add(ch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Iterate over tag, length, body and padding framed chunks
func eachChunk(r *cursor.Reader, fn func(string, []byte) error) error {
	for r.Len() > 0 {
		tag, err := r.Tag()
		if err != nil {
			return fmt.Errorf("metadata: chunk header: %w", err)
		}
		n, err := r.Uint32()
		if err != nil {
			return fmt.Errorf("metadata: chunk %q header: %w", tag, err)
		}
		data, err := r.Bytes(int(n))
		if err != nil {
			return fmt.Errorf("metadata: chunk %q: %w", tag, io.ErrUnexpectedEOF)
		}
		r.Align(4)

		if err := fn(tag, data); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w *bytes.Buffer, tag string, body []byte) error {
	if len(tag) != 4 {
		return fmt.Errorf("metadata: chunk tag %q is not four bytes", tag)
	}
	w.WriteString(tag)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(body))); err != nil {
		return err
	}
	w.Write(body)
	if mod := len(body) % 4; mod > 0 {
		w.Write(make([]byte, 4-mod))
	}
	return nil
}

// MarshalBinary encodes the collection as a complete section including the
// signature.
func (c *Collection) MarshalBinary() ([]byte, error) {
	body := new(bytes.Buffer)
	for _, ch := range c.chunks {
		data, err := ch.marshal()
		if err != nil {
			return nil, err
		}
		if err := writeChunk(body, ch.Tag(), data); err != nil {
			return nil, err
		}
	}

	b := new(bytes.Buffer)
	b.WriteString(Magic)
	if err := binary.Write(b, binary.LittleEndian, []uint32{uint32(sectionHeaderSize + body.Len()), 0}); err != nil {
		return nil, err
	}
	b.Write(body.Bytes())

	return b.Bytes(), nil
}
