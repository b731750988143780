package cursor

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	r := New([]byte{0x01, 0x34, 0x12, 0xfe, 0xff, 0x78, 0x56, 0x34, 0x12, 'C', 'O', 'N', 'T', 'h', 'i', 0x00, 0xaa})

	u8, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u8)

	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	i16, err := r.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	u32, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	tag, err := r.Tag()
	require.NoError(t, err)
	assert.Equal(t, "CONT", tag)

	s, err := r.CString()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(s))

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 16, r.Pos())
}

func TestReaderTruncated(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03})

	_, err := r.Uint32()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, 0, r.Pos(), "failed read must not advance")

	_, err = r.CString()
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	assert.Equal(t, io.ErrUnexpectedEOF, r.Seek(4))
	assert.Equal(t, io.ErrUnexpectedEOF, r.Skip(-1))
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		pos  int
		want int
	}{
		{"aligned", 4, 4},
		{"one over", 5, 8},
		{"three over", 7, 8},
		{"clamped", 9, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(make([]byte, 10))
			require.NoError(t, r.Seek(tt.pos))
			r.Align(4)
			assert.Equal(t, tt.want, r.Pos())
		})
	}
}

func TestSub(t *testing.T) {
	r := New([]byte{1, 2, 3, 4, 5})
	s, err := r.Sub(3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, r.Len())

	_, err = s.Uint32()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
