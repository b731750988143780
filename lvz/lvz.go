/*
Package lvz implements the SubSpace object package format.

A package is a container of independently zlib compressed sections:

	"CONT" u32 count
	{ "CONT" u32 size u32 time u32 compressed name\0 data }*

A section with a time of zero holds image definitions and object
placements, every other section is an auxiliary file. Definitions come in
two record layouts, tagged "CLV1" and "CLV2".
*/
package lvz

import (
	"fmt"
	"time"

	"github.com/bodgit/subspace/tile"
	"golang.org/x/text/encoding/charmap"
)

// Container and definition tags.
const (
	Magic = "CONT"
	CLV1  = "CLV1"
	CLV2  = "CLV2"
)

// FormatError reports a malformed package.
type FormatError string

func (e FormatError) Error() string { return "lvz: invalid format: " + string(e) }

// Layer is the z-order an object is drawn at.
type Layer uint8

// Layers from bottom to top.
const (
	BelowAll Layer = iota
	AfterBackground
	AfterTiles
	AfterWeapons
	AfterShips
	AfterGauges
	AfterChat
	TopMost
)

var layerNames = [...]string{
	"BelowAll",
	"AfterBackground",
	"AfterTiles",
	"AfterWeapons",
	"AfterShips",
	"AfterGauges",
	"AfterChat",
	"TopMost",
}

func (l Layer) String() string {
	if int(l) < len(layerNames) {
		return layerNames[l]
	}
	return fmt.Sprintf("Layer(%d)", uint8(l))
}

// Mode decides when an object is displayed.
type Mode uint8

// Display modes.
const (
	ShowAlways Mode = iota
	EnterZone
	EnterArena
	Kill
	Death
	ServerControlled
)

var modeNames = [...]string{
	"ShowAlways",
	"EnterZone",
	"EnterArena",
	"Kill",
	"Death",
	"ServerControlled",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Anchor is the point on screen a screen object is positioned relative to.
// Each axis has its own anchor.
type Anchor uint8

// Screen anchors.
const (
	TopLeft Anchor = iota
	ScreenCenter
	BottomRight
	StatBox
	SpecHelp
	ChatTopRight
	RadarTopLeft
	RadarTextTopLeft
	WeaponsTopLeft
	WeaponsBottomLeft
	TeamChatTopLeft
	HelpTopRight
)

var anchorNames = [...]string{
	"TopLeft",
	"ScreenCenter",
	"BottomRight",
	"StatBox",
	"SpecHelp",
	"ChatTopRight",
	"RadarTopLeft",
	"RadarTextTopLeft",
	"WeaponsTopLeft",
	"WeaponsBottomLeft",
	"TeamChatTopLeft",
	"HelpTopRight",
}

func (a Anchor) String() string {
	if int(a) < len(anchorNames) {
		return anchorNames[a]
	}
	return fmt.Sprintf("Anchor(%d)", uint8(a))
}

// Object holds the fields common to map and screen objects.
type Object struct {
	ID    int
	Image int
	Layer Layer
	Mode  Mode

	// Time is the display duration in tenths of a second, zero means
	// indefinitely.
	Time int
}

func (o *Object) validate() error {
	for _, c := range []struct {
		name     string
		v        int
		min, max int
	}{
		{"object id", o.ID, 0, maxID},
		{"image index", o.Image, 0, 255},
		{"layer", int(o.Layer), 0, int(TopMost)},
		{"mode", int(o.Mode), 0, 0xf},
		{"display time", o.Time, 0, maxTime},
	} {
		if err := tile.CheckRange(c.name, c.v, c.min, c.max); err != nil {
			return err
		}
	}
	return nil
}

// MapObject is placed at absolute map pixel coordinates.
type MapObject struct {
	Object
	X, Y int
}

// ScreenObject is placed relative to a screen anchor.
type ScreenObject struct {
	Object
	X, Y             int
	XAnchor, YAnchor Anchor
}

// Image is an image definition. The file is sliced into FramesX by FramesY
// frames played over AnimationTime hundredths of a second.
type Image struct {
	Name          string
	AnimationTime int
	FramesX       int
	FramesY       int
}

// File is an auxiliary file carried by the package.
type File struct {
	Name string
	Time time.Time
	Data []byte
}

// Package is a decompressed object package.
type Package struct {
	Files         []File
	Images        []Image
	MapObjects    []MapObject
	ScreenObjects []ScreenObject

	// Format is the record layout used when packing. Empty means CLV2.
	Format string
}

// File returns the auxiliary file called name, if present.
func (p *Package) File(name string) (*File, bool) {
	for i := range p.Files {
		if p.Files[i].Name == name {
			return &p.Files[i], true
		}
	}
	return nil, false
}

func (p *Package) hasDefinitions() bool {
	return len(p.Images) > 0 || len(p.MapObjects) > 0 || len(p.ScreenObjects) > 0
}

// CompressedSection is a single section as stored on disk.
type CompressedSection struct {
	Name string

	// Time is a unix timestamp, zero for definition sections.
	Time uint32

	// Size is the decompressed size of Data.
	Size uint32

	Data []byte
}

// CompressedPackage is a package with all of its sections still
// compressed.
type CompressedPackage struct {
	Sections []CompressedSection
}

// Names are stored as Windows-1252
func decodeName(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func encodeName(s string) ([]byte, error) {
	b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("lvz: cannot encode %q: %w", s, err)
	}
	return b, nil
}
