package subspace

import (
	"fmt"
	"sort"
	"time"

	"github.com/bodgit/subspace/lvl"
	"github.com/bodgit/subspace/lvz"
	"github.com/bodgit/subspace/metadata"
	"github.com/bodgit/subspace/tile"
)

// RegionSummary describes a single region of a level.
type RegionSummary struct {
	Name        string             `yaml:"name"`
	Tiles       int                `yaml:"tiles"`
	Base        bool               `yaml:"base,omitempty"`
	NoAntiwarp  bool               `yaml:"no_antiwarp,omitempty"`
	NoWeapons   bool               `yaml:"no_weapons,omitempty"`
	NoFlagDrops bool               `yaml:"no_flag_drops,omitempty"`
	Color       string             `yaml:"color,omitempty"`
	AutoWarp    *metadata.AutoWarp `yaml:"auto_warp,omitempty"`
}

// LevelSummary describes a level file.
type LevelSummary struct {
	Path       string            `yaml:"path,omitempty"`
	CRC        string            `yaml:"crc,omitempty"`
	Tiles      int               `yaml:"tiles"`
	Tileset    bool              `yaml:"tileset"`
	Specials   map[string]int    `yaml:"specials,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Regions    []RegionSummary   `yaml:"regions,omitempty"`
}

// FileSummary describes a file carried by an object package.
type FileSummary struct {
	Name string    `yaml:"name"`
	Size int       `yaml:"size"`
	Time time.Time `yaml:"time"`
}

// PackageSummary describes an object package file.
type PackageSummary struct {
	Path          string        `yaml:"path,omitempty"`
	CRC           string        `yaml:"crc,omitempty"`
	Format        string        `yaml:"format,omitempty"`
	Files         []FileSummary `yaml:"files,omitempty"`
	Images        int           `yaml:"images"`
	MapObjects    int           `yaml:"map_objects"`
	ScreenObjects int           `yaml:"screen_objects"`
}

func specialName(id byte) string {
	switch {
	case id >= tile.VerticalDoorFirst && id <= tile.HorizontalDoorLast:
		return "door"
	case id == tile.Flag:
		return "flag"
	case id == tile.SafeZone:
		return "safe_zone"
	case id == tile.Goal:
		return "goal"
	case id >= tile.FlyOverFirst && id <= tile.FlyOverLast:
		return "fly_over"
	case id >= tile.FlyUnderFirst && id <= tile.FlyUnderLast:
		return "fly_under"
	case id == tile.SmallAsteroid, id == tile.LargeAsteroid, id == tile.SmallAsteroid2:
		return "asteroid"
	case id == tile.Station:
		return "station"
	case id == tile.Wormhole:
		return "wormhole"
	}
	return ""
}

// SummarizeLevel collects the interesting facts about m.
func SummarizeLevel(m *lvl.Map) *LevelSummary {
	s := &LevelSummary{
		Tileset: m.Tileset != nil,
	}

	if m.Tiles != nil {
		m.Tiles.Each(func(_, _ int, id byte) {
			s.Tiles++
			if name := specialName(id); name != "" {
				if s.Specials == nil {
					s.Specials = make(map[string]int)
				}
				s.Specials[name]++
			}
		})
	}

	if m.Metadata == nil {
		return s
	}

	for _, c := range m.Metadata.Chunks() {
		if a, ok := c.(*metadata.Attribute); ok {
			if s.Attributes == nil {
				s.Attributes = make(map[string]string)
			}
			s.Attributes[a.Name] = a.Value
		}
	}

	for _, r := range m.Metadata.Regions() {
		rs := RegionSummary{
			Name:        r.Name,
			Tiles:       r.TileCount(),
			Base:        r.IsBase,
			NoAntiwarp:  r.NoAntiwarp,
			NoWeapons:   r.NoWeapons,
			NoFlagDrops: r.NoFlagDrops,
			AutoWarp:    r.AutoWarp,
		}
		if r.Color != nil {
			rs.Color = fmt.Sprintf("#%02x%02x%02x", r.Color.R, r.Color.G, r.Color.B)
		}
		s.Regions = append(s.Regions, rs)
	}

	return s
}

// SummarizePackage collects the interesting facts about p.
func SummarizePackage(p *lvz.Package) *PackageSummary {
	s := &PackageSummary{
		Format:        p.Format,
		Images:        len(p.Images),
		MapObjects:    len(p.MapObjects),
		ScreenObjects: len(p.ScreenObjects),
	}
	for _, f := range p.Files {
		s.Files = append(s.Files, FileSummary{Name: f.Name, Size: len(f.Data), Time: f.Time})
	}
	sort.Slice(s.Files, func(i, j int) bool { return s.Files[i].Name < s.Files[j].Name })
	return s
}
