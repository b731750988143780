/*
Package cursor implements a bounds-checked little-endian reader over an
in-memory byte slice.

Every read either consumes exactly the requested bytes and advances the
position or fails with io.ErrUnexpectedEOF and leaves the position alone.
*/
package cursor

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Reader reads little-endian values from a byte slice.
type Reader struct {
	buf []byte
	pos int
}

// New returns a Reader positioned at the start of b.
func New(b []byte) *Reader {
	return &Reader{buf: b}
}

// Pos returns the current offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Seek moves to the absolute offset off.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return io.ErrUnexpectedEOF
	}
	r.pos = off
	return nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}

// Align advances to the next multiple of n. Running out of data while
// aligning is not an error as trailing padding is sometimes omitted.
func (r *Reader) Align(n int) {
	if mod := r.pos % n; mod > 0 {
		r.pos += n - mod
	}
	if r.pos > len(r.buf) {
		r.pos = len(r.buf)
	}
}

// Bytes returns the next n bytes. The returned slice aliases the
// underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads an unsigned 16-bit value.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int16 reads a signed 16-bit value.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Uint32 reads an unsigned 32-bit value.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Tag reads a four character chunk tag.
func (r *Reader) Tag() (string, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CString reads a NUL-terminated string and consumes the terminator. The
// terminator is not included in the result.
func (r *Reader) CString() ([]byte, error) {
	i := bytes.IndexByte(r.buf[r.pos:], 0)
	if i < 0 {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+i]
	r.pos += i + 1
	return b, nil
}

// Sub returns a Reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}
