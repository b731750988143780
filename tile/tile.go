/*
Package tile implements the in-memory tile grid of a SubSpace level.

A level is 1024 by 1024 tiles, each holding an 8-bit tile id. Id 0 is an
empty tile, 1 to 190 index the tileset image and the remaining ids have a
fixed meaning in the game regardless of the tileset. A few of those special
tiles occupy more than one cell; only the top-left cell is stored and the
rest of the footprint is implied.
*/
package tile

const (
	// Width is the number of tiles across a level.
	Width = 1024
	// Height is the number of tiles down a level.
	Height = 1024

	// MaxID is the largest valid tile id.
	MaxID = 255
)

// Special tile ids.
const (
	Empty = 0

	// LastTileset is the last id drawn from the tileset image.
	LastTileset = 190

	VerticalDoorFirst   = 162
	VerticalDoorLast    = 165
	HorizontalDoorFirst = 166
	HorizontalDoorLast  = 169
	Flag                = 170
	SafeZone            = 171
	Goal                = 172
	FlyOverFirst        = 173
	FlyOverLast         = 175
	FlyUnderFirst       = 176
	FlyUnderLast        = 190

	SmallAsteroid  = 216
	LargeAsteroid  = 217
	SmallAsteroid2 = 218
	Station        = 219
	Wormhole       = 220
)

// Footprint returns the side length in cells of the square occupied by a
// tile placed with the given id.
func Footprint(id byte) int {
	switch id {
	case LargeAsteroid:
		return 2
	case Station:
		return 6
	case Wormhole:
		return 5
	default:
		return 1
	}
}

// IsSpecial reports whether id has a fixed meaning rather than indexing
// the tileset image.
func IsSpecial(id byte) bool {
	return id > LastTileset
}
