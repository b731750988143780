package metadata

import (
	"github.com/bodgit/subspace/internal/cursor"
	"github.com/bodgit/subspace/tile"
)

// Region tiles are run-length encoded. The top three bits of the first byte
// select the operation and the remaining bits hold n, the count minus one.
// Odd operations are the long form where the low two bits of the first byte
// and all of a second byte make a 10-bit n.
//
//	000nnnnn          n+1 empty tiles
//	001000nn nnnnnnnn n+1 empty tiles
//	010nnnnn          n+1 present tiles
//	011000nn nnnnnnnn n+1 present tiles
//	100nnnnn          n+1 empty rows
//	101000nn nnnnnnnn n+1 empty rows
//	110nnnnn          repeat the previous row n+1 times
//	111000nn nnnnnnnn repeat the previous row n+1 times
const (
	opEmptyTiles   = 0
	opPresentTiles = 2
	opEmptyRows    = 4
	opRepeatRow    = 6

	shortMax = 32
	longMax  = 1024
)

// DecodeRegionTiles decodes a run-length encoded region bitmap. Decoding
// stops when the data runs out or every row has been produced.
func DecodeRegionTiles(b []byte) *tile.Mask {
	m := tile.NewMask()
	r := cursor.New(b)

	x, y := 0, 0
	for y < tile.Height {
		b0, err := r.Uint8()
		if err != nil {
			break
		}
		op := b0 >> 5
		n := int(b0 & 0x1f)
		if op&1 != 0 {
			b1, err := r.Uint8()
			if err != nil {
				break
			}
			n = int(b0&0x03)<<8 | int(b1)
		}
		count := n + 1

		switch op &^ 1 {
		case opEmptyTiles, opPresentTiles:
			present := op&^1 == opPresentTiles
			for i := 0; i < count && y < tile.Height; i++ {
				if present {
					m.Row(y)[x] = true
				}
				if x++; x == tile.Width {
					x = 0
					y++
				}
			}
		case opEmptyRows:
			y += count
		case opRepeatRow:
			for i := 0; i < count && y < tile.Height; i++ {
				if y > 0 {
					copy(m.Row(y), m.Row(y-1))
				}
				y++
			}
		}
	}

	return m
}

func appendOp(b []byte, op byte, count int) []byte {
	for count > 0 {
		n := count
		if n > longMax {
			n = longMax
		}
		if n <= shortMax {
			b = append(b, op<<5|byte(n-1))
		} else {
			b = append(b, (op|1)<<5|byte((n-1)>>8), byte(n-1))
		}
		count -= n
	}
	return b
}

func emptyRow(row []bool) bool {
	for _, v := range row {
		if v {
			return false
		}
	}
	return true
}

func equalRows(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EncodeRegionTiles run-length encodes a region bitmap. Empty rows and rows
// identical to the one above are collapsed, other rows are written as
// alternating runs using the short form whenever a run fits.
func EncodeRegionTiles(m *tile.Mask) []byte {
	var b []byte

	for y := 0; y < tile.Height; {
		row := m.Row(y)

		if emptyRow(row) {
			n := 1
			for y+n < tile.Height && emptyRow(m.Row(y+n)) {
				n++
			}
			b = appendOp(b, opEmptyRows, n)
			y += n
			continue
		}

		if y > 0 && equalRows(row, m.Row(y-1)) {
			n := 1
			for y+n < tile.Height && equalRows(m.Row(y+n), row) {
				n++
			}
			b = appendOp(b, opRepeatRow, n)
			y += n
			continue
		}

		for x := 0; x < tile.Width; {
			v := row[x]
			n := 1
			for x+n < tile.Width && row[x+n] == v {
				n++
			}
			op := byte(opEmptyTiles)
			if v {
				op = opPresentTiles
			}
			b = appendOp(b, op, n)
			x += n
		}
		y++
	}

	return b
}
