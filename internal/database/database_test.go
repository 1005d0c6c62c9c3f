package database

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

const regions = 3

func exitRec(i uint64) *ExitRecord {
	f := float64(i)
	return &ExitRecord{
		Index:  i,
		State:  ExitedTop,
		Pos:    geom.Point3{X: f * 0.1, Y: -f / 3, Z: 0},
		Dir:    geom.Vector3{X: 0.6, Y: 0, Z: -0.8},
		Weight: 1 / (f + 3),
		Time:   math.Pi * f,
	}
}

func collRec(i uint64) *CollisionRecord {
	f := float64(i)
	return &CollisionRecord{Index: i, PathLength: []Real{0, f / 7, 0}, Collisions: []uint64{0, i * 2, 0}}
}

// writeDB writes indices split into per-worker contiguous ranges.
func writeDB(t *testing.T, dir string, text bool, ranges [][]uint64) {
	t.Helper()
	w := NewWriter(dir, regions, text)
	require.NoError(t, w.Begin(len(ranges)))
	for wk, idx := range ranges {
		for _, i := range idx {
			require.NoError(t, w.Write(wk, exitRec(i), collRec(i)))
		}
	}
	require.NoError(t, w.Close())
}

func TestWriterConcatenatesSegmentsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, false, [][]uint64{{0, 2, 3}, {}, {5, 9}, {10}})

	db, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, regions, db.Regions)
	require.Len(t, db.Exits, 6)
	var got []uint64
	for i, e := range db.Exits {
		got = append(got, e.Index)
		assert.Equal(t, *exitRec(e.Index), e)
		assert.Equal(t, *collRec(e.Index), db.Collisions[i])
	}
	assert.Equal(t, []uint64{0, 2, 3, 5, 9, 10}, got)

	parts, _ := filepath.Glob(filepath.Join(dir, ".*part*"))
	assert.Empty(t, parts, "part files must be removed")

	info, err := os.Stat(filepath.Join(dir, ExitFileName))
	require.NoError(t, err)
	assert.Equal(t, int64(headerSize+6*exitSize), info.Size())
}

func TestWriterRejectsOutOfOrder(t *testing.T) {
	w := NewWriter(t.TempDir(), regions, false)
	require.NoError(t, w.Begin(1))
	defer w.Abort()
	require.NoError(t, w.Write(0, exitRec(4), collRec(4)))
	assert.ErrorIs(t, w.Write(0, exitRec(4), collRec(4)), ErrDatabaseWrite)
	assert.ErrorIs(t, w.Write(0, exitRec(5), collRec(6)), ErrDatabaseWrite)
}

func TestWriterRejectsOverlappingSegments(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, regions, false)
	require.NoError(t, w.Begin(2))
	require.NoError(t, w.Write(0, exitRec(4), collRec(4)))
	require.NoError(t, w.Write(1, exitRec(2), collRec(2)))
	assert.ErrorIs(t, w.Close(), ErrDatabaseWrite)
	parts, _ := filepath.Glob(filepath.Join(dir, ".*part*"))
	assert.Empty(t, parts)
}

func TestWriterRemovesSegmentsOnCloseAndAbort(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, true, [][]uint64{{0}, {1}, {2}})
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		ExitFileName, CollisionFileName,
		ExitFileName + TextSuffix, CollisionFileName + TextSuffix,
	}, names)

	dir = t.TempDir()
	w := NewWriter(dir, regions, false)
	require.NoError(t, w.Begin(3))
	require.NoError(t, w.Write(2, exitRec(7), collRec(7)))
	w.Abort()
	parts, _ := filepath.Glob(filepath.Join(dir, ".*part*"))
	assert.Empty(t, parts)
}

func TestReaderIgnoresTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, false, [][]uint64{{1, 2, 3}})
	for _, name := range []string{ExitFileName, CollisionFileName} {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(p, info.Size()-5))
	}
	db, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, db.Exits, 2)
	assert.Equal(t, uint64(2), db.Exits[1].Index)
	assert.Len(t, db.Collisions, 2)
}

func TestOpenRejectsBadHeader(t *testing.T) {
	p := filepath.Join(t.TempDir(), "junk")
	require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("x", 64)), 0o644))
	_, err := Open(p)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(p, []byte("TMCX"), 0o644))
	_, err = Open(p)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTextRoundTripIsExact(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, true, [][]uint64{{0, 1, 7}, {11}})

	f, err := os.Open(filepath.Join(dir, ExitFileName+TextSuffix))
	require.NoError(t, err)
	defer f.Close()
	exits, _, err := ParseText(f, ExitStream)
	require.NoError(t, err)
	require.Len(t, exits, 4)
	for _, e := range exits {
		want := exitRec(e.Index)
		assert.Equal(t, math.Float64bits(want.Weight), math.Float64bits(e.Weight))
		assert.Equal(t, *want, e)
	}

	g, err := os.Open(filepath.Join(dir, CollisionFileName+TextSuffix))
	require.NoError(t, err)
	defer g.Close()
	_, colls, err := ParseText(g, CollisionStream)
	require.NoError(t, err)
	require.Len(t, colls, 4)
	assert.Equal(t, *collRec(11), colls[3])

	_, err = ParseExitText("1 2 3")
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = ParseCollisionText("1 0.5")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestExportSQLite(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, false, [][]uint64{{0, 1}, {2, 3, 4}})
	dsn := filepath.Join(dir, "pmc.sqlite")

	n, err := ExportSQLite(context.Background(), dir, dsn)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	// exporting twice replaces rows
	_, err = ExportSQLite(context.Background(), dir, dsn)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	var exits, colls int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM exits").Scan(&exits))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM collisions").Scan(&colls))
	assert.Equal(t, 5, exits)
	assert.Equal(t, 4, colls, "photon 0 has no collisions")
	var w float64
	require.NoError(t, db.QueryRow("SELECT weight FROM exits WHERE photon = 3").Scan(&w))
	assert.Equal(t, exitRec(3).Weight, w)
}
