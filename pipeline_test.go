package subspace

import (
	"bytes"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bodgit/subspace/lvl"
	"github.com/bodgit/subspace/lvz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	dir, err := ioutil.TempDir("", "subspace")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zone", "maps"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0755))

	m := testLevel(t)
	for _, name := range []string{
		filepath.Join(dir, "zone", "one.lvl"),
		filepath.Join(dir, "zone", "maps", "TWO.LVL"),
		filepath.Join(dir, ".hidden", "three.lvl"),
	} {
		require.NoError(t, lvl.Create(name, m))
	}

	p := &lvz.Package{
		Files: []lvz.File{{Name: "x.bm2", Time: time.Unix(1500000000, 0), Data: []byte("x")}},
	}
	require.NoError(t, lvz.Create(filepath.Join(dir, "zone", "maps", "objects.lvz"), p))

	// Not a valid package, logged and skipped
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "zone", "broken.lvz"), []byte("CONT"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "zone", "readme.txt"), []byte("hello"), 0644))

	logs := new(bytes.Buffer)
	w, err := New(filepath.Join(dir, "test.db"), log.New(logs, "", 0))
	require.NoError(t, err)
	defer w.Close()
	w.SetWorkers(3)

	require.NoError(t, w.Scan(dir))
	assert.Contains(t, logs.String(), "broken.lvz")

	levels, err := w.Catalog().Levels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	for _, l := range levels {
		assert.Equal(t, 5, l.Tiles)
		assert.Len(t, l.CRC, 8)
	}
	assert.Equal(t, levels[0].CRC, levels[1].CRC)

	b, err := w.Catalog().Preview(levels[0].Path)
	require.NoError(t, err)
	m2, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, PreviewSize, m2.Bounds().Dx())

	packages, err := w.Catalog().Packages()
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, filepath.Join(dir, "zone", "maps", "objects.lvz"), packages[0].Path)

	matches, err := w.Catalog().FindRegion("CENTER")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// Scanning again doesn't duplicate anything
	require.NoError(t, w.Scan(dir))
	levels, err = w.Catalog().Levels()
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}
