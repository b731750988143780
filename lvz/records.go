package lvz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/bodgit/subspace/internal/cursor"
	"github.com/bodgit/subspace/tile"
)

const (
	maxID   = 0x7fff
	maxTime = 0x0fff

	// Every object record is at least this long in either layout
	objectSize = 10

	// Screen coordinates in CLV2 share 16 bits with the anchor
	minScreenCoord = -2048
	maxScreenCoord = 2047
)

// One record layout for map objects in both formats and screen objects
// in CLV1. CLV2 screen objects reuse it with the coordinates repacked.
type objectRecord struct {
	ID       uint16
	X, Y     int16
	Image    uint8
	Layer    uint8
	TimeMode uint16
}

type imageRecord struct {
	AnimationTime int16
	FramesX       int16
	FramesY       int16
}

// The decoded contents of one definition section
type definitions struct {
	format        string
	images        []Image
	mapObjects    []MapObject
	screenObjects []ScreenObject
}

func packID(id int, isMap bool) uint16 {
	v := uint16(id) << 1
	if isMap {
		v |= 1
	}
	return v
}

func packTimeMode(o *Object) uint16 {
	return uint16(o.Mode)<<12 | uint16(o.Time)&maxTime
}

func unpackTimeMode(v uint16) (int, Mode) {
	return int(v & maxTime), Mode(v >> 12)
}

func packScreenCoord(v int, a Anchor) uint16 {
	return uint16(int16(v)<<4) | uint16(a&0xf)
}

func unpackScreenCoord(v uint16) (int, Anchor) {
	return int(int16(v) >> 4), Anchor(v & 0xf)
}

func truncated(what string) error {
	return fmt.Errorf("lvz: %s: %w", what, io.ErrUnexpectedEOF)
}

func decodeDefinitions(b []byte) (*definitions, error) {
	r := cursor.New(b)

	format, err := r.Tag()
	if err != nil {
		return nil, truncated("definition header")
	}
	if format != CLV1 && format != CLV2 {
		return nil, FormatError(fmt.Sprintf("unknown definition format %q", format))
	}

	objects, err := r.Uint32()
	if err != nil {
		return nil, truncated("definition header")
	}
	images, err := r.Uint32()
	if err != nil {
		return nil, truncated("definition header")
	}
	if uint64(objects)*objectSize > uint64(r.Len()) {
		return nil, truncated("object records")
	}

	d := &definitions{format: format}
	for i := 0; i < int(objects); i++ {
		if err := d.readObject(r); err != nil {
			return nil, err
		}
	}

	// Image records are at least 7 bytes
	if uint64(images)*7 > uint64(r.Len()) {
		return nil, truncated("image records")
	}
	d.images = make([]Image, 0, images)
	for i := 0; i < int(images); i++ {
		var ir imageRecord
		h, err := r.Bytes(6)
		if err != nil {
			return nil, truncated("image record")
		}
		if err := binary.Read(bytes.NewReader(h), binary.LittleEndian, &ir); err != nil {
			return nil, err
		}
		name, err := r.CString()
		if err != nil {
			return nil, truncated("image name")
		}
		d.images = append(d.images, Image{
			Name:          decodeName(name),
			AnimationTime: int(ir.AnimationTime),
			FramesX:       int(ir.FramesX),
			FramesY:       int(ir.FramesY),
		})
	}

	return d, nil
}

func (d *definitions) readObject(r *cursor.Reader) error {
	b, err := r.Bytes(objectSize)
	if err != nil {
		return truncated("object record")
	}
	var rec objectRecord
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &rec); err != nil {
		return err
	}

	t, mode := unpackTimeMode(rec.TimeMode)
	o := Object{
		ID:    int(rec.ID >> 1),
		Image: int(rec.Image),
		Layer: Layer(rec.Layer),
		Mode:  mode,
		Time:  t,
	}

	if rec.ID&1 != 0 {
		d.mapObjects = append(d.mapObjects, MapObject{Object: o, X: int(rec.X), Y: int(rec.Y)})
		return nil
	}

	so := ScreenObject{Object: o}
	if d.format == CLV1 {
		so.X, so.Y = int(rec.X), int(rec.Y)
	} else {
		so.X, so.XAnchor = unpackScreenCoord(uint16(rec.X))
		so.Y, so.YAnchor = unpackScreenCoord(uint16(rec.Y))
	}
	d.screenObjects = append(d.screenObjects, so)

	return nil
}

func (d *definitions) writeScreenObject(w *bytes.Buffer, so *ScreenObject) error {
	if err := so.validate(); err != nil {
		return err
	}

	rec := objectRecord{
		ID:       packID(so.ID, false),
		Image:    uint8(so.Image),
		Layer:    uint8(so.Layer),
		TimeMode: packTimeMode(&so.Object),
	}

	if d.format == CLV1 {
		if so.XAnchor != TopLeft || so.YAnchor != TopLeft {
			return fmt.Errorf("lvz: screen object %d: %s cannot store anchors", so.ID, CLV1)
		}
		if err := checkInt16("x", so.X); err != nil {
			return err
		}
		if err := checkInt16("y", so.Y); err != nil {
			return err
		}
		rec.X, rec.Y = int16(so.X), int16(so.Y)
	} else {
		for _, c := range []struct {
			name string
			v    int
			a    Anchor
		}{
			{"x", so.X, so.XAnchor},
			{"y", so.Y, so.YAnchor},
		} {
			if err := tile.CheckRange(c.name, c.v, minScreenCoord, maxScreenCoord); err != nil {
				return err
			}
			if err := tile.CheckRange(c.name+" anchor", int(c.a), 0, 0xf); err != nil {
				return err
			}
		}
		rec.X = int16(packScreenCoord(so.X, so.XAnchor))
		rec.Y = int16(packScreenCoord(so.Y, so.YAnchor))
	}

	return binary.Write(w, binary.LittleEndian, &rec)
}

func checkInt16(name string, v int) error {
	return tile.CheckRange(name, v, math.MinInt16, math.MaxInt16)
}

func (d *definitions) marshal() ([]byte, error) {
	if d.format != CLV1 && d.format != CLV2 {
		return nil, FormatError(fmt.Sprintf("unknown definition format %q", d.format))
	}

	w := new(bytes.Buffer)
	w.WriteString(d.format)
	binary.Write(w, binary.LittleEndian, uint32(len(d.mapObjects)+len(d.screenObjects)))
	binary.Write(w, binary.LittleEndian, uint32(len(d.images)))

	for i := range d.mapObjects {
		mo := &d.mapObjects[i]
		if err := mo.validate(); err != nil {
			return nil, err
		}
		if err := checkInt16("x", mo.X); err != nil {
			return nil, err
		}
		if err := checkInt16("y", mo.Y); err != nil {
			return nil, err
		}
		rec := objectRecord{
			ID:       packID(mo.ID, true),
			X:        int16(mo.X),
			Y:        int16(mo.Y),
			Image:    uint8(mo.Image),
			Layer:    uint8(mo.Layer),
			TimeMode: packTimeMode(&mo.Object),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
	}

	for i := range d.screenObjects {
		if err := d.writeScreenObject(w, &d.screenObjects[i]); err != nil {
			return nil, err
		}
	}

	for _, img := range d.images {
		for _, err := range []error{
			checkInt16("animation time", img.AnimationTime),
			checkInt16("x frames", img.FramesX),
			checkInt16("y frames", img.FramesY),
		} {
			if err != nil {
				return nil, err
			}
		}
		ir := imageRecord{
			AnimationTime: int16(img.AnimationTime),
			FramesX:       int16(img.FramesX),
			FramesY:       int16(img.FramesY),
		}
		if err := binary.Write(w, binary.LittleEndian, &ir); err != nil {
			return nil, err
		}
		name, err := encodeName(img.Name)
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(name, 0) >= 0 {
			return nil, fmt.Errorf("lvz: image name %q contains a NUL", img.Name)
		}
		w.Write(name)
		w.WriteByte(0)
	}

	return w.Bytes(), nil
}
