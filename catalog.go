package subspace

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/bodgit/subspace/metadata"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	"CREATE TABLE IF NOT EXISTS preview (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, png BLOB NOT NULL)",
	"CREATE TABLE IF NOT EXISTS level (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, crc TEXT NOT NULL, tiles INTEGER NOT NULL, tileset INTEGER NOT NULL, preview_id INTEGER, FOREIGN KEY(preview_id) REFERENCES preview(id))",
	"CREATE TABLE IF NOT EXISTS attribute (level_id INTEGER NOT NULL, name TEXT NOT NULL, value TEXT NOT NULL, FOREIGN KEY(level_id) REFERENCES level(id) ON DELETE CASCADE)",
	"CREATE TABLE IF NOT EXISTS special (level_id INTEGER NOT NULL, name TEXT NOT NULL, count INTEGER NOT NULL, FOREIGN KEY(level_id) REFERENCES level(id) ON DELETE CASCADE)",
	"CREATE TABLE IF NOT EXISTS region (level_id INTEGER NOT NULL, name TEXT NOT NULL, tiles INTEGER NOT NULL, base INTEGER NOT NULL, no_antiwarp INTEGER NOT NULL, no_weapons INTEGER NOT NULL, no_flag_drops INTEGER NOT NULL, color TEXT, warp_x INTEGER, warp_y INTEGER, warp_arena TEXT, FOREIGN KEY(level_id) REFERENCES level(id) ON DELETE CASCADE)",
	"CREATE TABLE IF NOT EXISTS lvz (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, crc TEXT NOT NULL, format TEXT NOT NULL, images INTEGER NOT NULL, map_objects INTEGER NOT NULL, screen_objects INTEGER NOT NULL)",
	"CREATE TABLE IF NOT EXISTS lvz_file (lvz_id INTEGER NOT NULL, name TEXT NOT NULL, size INTEGER NOT NULL, time INTEGER NOT NULL, FOREIGN KEY(lvz_id) REFERENCES lvz(id) ON DELETE CASCADE)",
	"CREATE INDEX IF NOT EXISTS region_name ON region (name COLLATE NOCASE)",
}

// Catalog is a sqlite database of scanned levels and object packages.
type Catalog struct {
	db *sql.DB

	// Serialises writers, sqlite only allows one at a time
	mu sync.Mutex
}

// NewCatalog opens or creates the catalog stored in file.
func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	for _, stmt := range schema {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) update(fn func(*sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Identical previews are only stored once
func addPreview(tx *sql.Tx, b []byte) (sql.NullInt64, error) {
	var id sql.NullInt64
	if b == nil {
		return id, nil
	}

	sha := fmt.Sprintf("%X", sha1.Sum(b))
	switch err := tx.QueryRow("SELECT id FROM preview WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO preview (sha1, png) VALUES (?, ?)", sha, b)
		if err != nil {
			return id, err
		}
		id.Int64, err = result.LastInsertId()
		id.Valid = err == nil
		return id, err
	case nil:
		return id, nil
	default:
		return id, err
	}
}

// AddLevel stores s along with an optional PNG preview, replacing any
// earlier entry with the same path.
func (c *Catalog) AddLevel(s *LevelSummary, preview []byte) error {
	return c.update(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM level WHERE path = ?", s.Path); err != nil {
			return err
		}

		previewID, err := addPreview(tx, preview)
		if err != nil {
			return err
		}

		result, err := tx.Exec("INSERT INTO level (path, crc, tiles, tileset, preview_id) VALUES (?, ?, ?, ?, ?)", s.Path, s.CRC, s.Tiles, s.Tileset, previewID)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		for k, v := range s.Attributes {
			if _, err := tx.Exec("INSERT INTO attribute (level_id, name, value) VALUES (?, ?, ?)", id, k, v); err != nil {
				return err
			}
		}

		for k, v := range s.Specials {
			if _, err := tx.Exec("INSERT INTO special (level_id, name, count) VALUES (?, ?, ?)", id, k, v); err != nil {
				return err
			}
		}

		for _, r := range s.Regions {
			var color sql.NullString
			if r.Color != "" {
				color.String = r.Color
				color.Valid = true
			}

			var x, y sql.NullInt64
			var arena sql.NullString
			if r.AutoWarp != nil {
				x.Int64, x.Valid = int64(r.AutoWarp.X), true
				y.Int64, y.Valid = int64(r.AutoWarp.Y), true
				arena.String, arena.Valid = r.AutoWarp.Arena, true
			}

			if _, err := tx.Exec("INSERT INTO region (level_id, name, tiles, base, no_antiwarp, no_weapons, no_flag_drops, color, warp_x, warp_y, warp_arena) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", id, r.Name, r.Tiles, r.Base, r.NoAntiwarp, r.NoWeapons, r.NoFlagDrops, color, x, y, arena); err != nil {
				return err
			}
		}

		return nil
	})
}

// AddPackage stores s, replacing any earlier entry with the same path.
func (c *Catalog) AddPackage(s *PackageSummary) error {
	return c.update(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM lvz WHERE path = ?", s.Path); err != nil {
			return err
		}

		result, err := tx.Exec("INSERT INTO lvz (path, crc, format, images, map_objects, screen_objects) VALUES (?, ?, ?, ?, ?, ?)", s.Path, s.CRC, s.Format, s.Images, s.MapObjects, s.ScreenObjects)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		for _, f := range s.Files {
			if _, err := tx.Exec("INSERT INTO lvz_file (lvz_id, name, size, time) VALUES (?, ?, ?, ?)", id, f.Name, f.Size, f.Time.Unix()); err != nil {
				return err
			}
		}

		return nil
	})
}

func (c *Catalog) levelDetails(id int64, s *LevelSummary) error {
	rows, err := c.db.Query("SELECT name, value FROM attribute WHERE level_id = ?", id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if s.Attributes == nil {
			s.Attributes = make(map[string]string)
		}
		s.Attributes[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = c.db.Query("SELECT name, count FROM special WHERE level_id = ?", id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if s.Specials == nil {
			s.Specials = make(map[string]int)
		}
		s.Specials[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = c.db.Query("SELECT name, tiles, base, no_antiwarp, no_weapons, no_flag_drops, color, warp_x, warp_y, warp_arena FROM region WHERE level_id = ? ORDER BY rowid", id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRegion(rows)
		if err != nil {
			return err
		}
		s.Regions = append(s.Regions, *r)
	}
	return rows.Err()
}

type scanner interface {
	Scan(...interface{}) error
}

func scanRegion(row scanner, extra ...interface{}) (*RegionSummary, error) {
	var r RegionSummary
	var color, arena sql.NullString
	var x, y sql.NullInt64

	dest := append([]interface{}{&r.Name, &r.Tiles, &r.Base, &r.NoAntiwarp, &r.NoWeapons, &r.NoFlagDrops, &color, &x, &y, &arena}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if color.Valid {
		r.Color = color.String
	}
	if x.Valid && y.Valid {
		r.AutoWarp = &metadata.AutoWarp{X: int(x.Int64), Y: int(y.Int64), Arena: arena.String}
	}

	return &r, nil
}

func (c *Catalog) queryLevels(query string, args ...interface{}) ([]*LevelSummary, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	var levels []*LevelSummary
	for rows.Next() {
		var id int64
		s := new(LevelSummary)
		if err := rows.Scan(&id, &s.Path, &s.CRC, &s.Tiles, &s.Tileset); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		levels = append(levels, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if err := c.levelDetails(id, levels[i]); err != nil {
			return nil, err
		}
	}

	return levels, nil
}

// Levels returns every catalogued level ordered by path.
func (c *Catalog) Levels() ([]*LevelSummary, error) {
	return c.queryLevels("SELECT id, path, crc, tiles, tileset FROM level ORDER BY path")
}

// Level returns the catalogued level at path, or nil if there isn't one.
func (c *Catalog) Level(path string) (*LevelSummary, error) {
	levels, err := c.queryLevels("SELECT id, path, crc, tiles, tileset FROM level WHERE path = ?", path)
	if err != nil || len(levels) == 0 {
		return nil, err
	}
	return levels[0], nil
}

// Preview returns the PNG preview of the catalogued level at path, or nil
// if there isn't one.
func (c *Catalog) Preview(path string) ([]byte, error) {
	var b []byte
	switch err := c.db.QueryRow("SELECT p.png FROM level AS l JOIN preview AS p ON l.preview_id = p.id WHERE l.path = ?", path).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return b, nil
	default:
		return nil, err
	}
}

// RegionMatch is a region found in a catalogued level.
type RegionMatch struct {
	Path   string
	Region RegionSummary
}

// FindRegion returns every region called name, ignoring case.
func (c *Catalog) FindRegion(name string) ([]RegionMatch, error) {
	rows, err := c.db.Query("SELECT r.name, r.tiles, r.base, r.no_antiwarp, r.no_weapons, r.no_flag_drops, r.color, r.warp_x, r.warp_y, r.warp_arena, l.path FROM region AS r JOIN level AS l ON r.level_id = l.id WHERE r.name = ? COLLATE NOCASE ORDER BY l.path", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []RegionMatch
	for rows.Next() {
		var path string
		r, err := scanRegion(rows, &path)
		if err != nil {
			return nil, err
		}
		matches = append(matches, RegionMatch{Path: path, Region: *r})
	}

	return matches, rows.Err()
}

// Packages returns every catalogued object package ordered by path.
func (c *Catalog) Packages() ([]*PackageSummary, error) {
	rows, err := c.db.Query("SELECT id, path, crc, format, images, map_objects, screen_objects FROM lvz ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	var packages []*PackageSummary
	for rows.Next() {
		var id int64
		s := new(PackageSummary)
		if err := rows.Scan(&id, &s.Path, &s.CRC, &s.Format, &s.Images, &s.MapObjects, &s.ScreenObjects); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		packages = append(packages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if err := c.packageFiles(id, packages[i]); err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func (c *Catalog) packageFiles(id int64, s *PackageSummary) error {
	rows, err := c.db.Query("SELECT name, size, time FROM lvz_file WHERE lvz_id = ? ORDER BY name", id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FileSummary
		var t int64
		if err := rows.Scan(&f.Name, &f.Size, &t); err != nil {
			return err
		}
		f.Time = time.Unix(t, 0).UTC()
		s.Files = append(s.Files, f)
	}

	return rows.Err()
}
