package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const exportDDL = `
CREATE TABLE IF NOT EXISTS exits (
	photon INTEGER PRIMARY KEY,
	state  INTEGER NOT NULL,
	x      REAL NOT NULL,
	y      REAL NOT NULL,
	z      REAL NOT NULL,
	ux     REAL NOT NULL,
	uy     REAL NOT NULL,
	uz     REAL NOT NULL,
	weight REAL NOT NULL,
	time   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS collisions (
	photon      INTEGER NOT NULL REFERENCES exits(photon) ON DELETE CASCADE,
	region      INTEGER NOT NULL,
	path_length REAL NOT NULL,
	collisions  INTEGER NOT NULL,
	CONSTRAINT uq_collision UNIQUE (photon, region)
);

CREATE INDEX IF NOT EXISTS idx_exits_state ON exits (state);
CREATE INDEX IF NOT EXISTS idx_collisions_region ON collisions (region);
`

// ExportSQLite copies the binary database in dir into a SQLite file at dsn
// (a path), replacing earlier rows. It returns the number of photons copied.
func ExportSQLite(ctx context.Context, dir, dsn string) (int, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, fmt.Errorf("%w: opening sqlite database: %v", ErrDatabaseWrite, err)
	}
	defer db.Close()

	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return 0, fmt.Errorf("%w: pinging sqlite: %v", ErrDatabaseWrite, err)
	}
	for _, pragma := range []string{"PRAGMA busy_timeout = 30000;", "PRAGMA journal_mode = WAL;", "PRAGMA foreign_keys = ON;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return 0, fmt.Errorf("%w: setting pragma %q: %v", ErrDatabaseWrite, pragma, err)
		}
	}

	er, err := Open(filepath.Join(dir, ExitFileName))
	if err != nil {
		return 0, err
	}
	defer er.Close()
	cr, err := Open(filepath.Join(dir, CollisionFileName))
	if err != nil {
		return 0, err
	}
	defer cr.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", ErrDatabaseWrite, err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(exportDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("%w: executing DDL: %v", ErrDatabaseWrite, err)
		}
	}
	for _, stmt := range []string{"DELETE FROM collisions", "DELETE FROM exits"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("%w: clearing tables: %v", ErrDatabaseWrite, err)
		}
	}

	insExit, err := tx.PrepareContext(ctx, `INSERT INTO exits (photon, state, x, y, z, ux, uy, uz, weight, time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing insert: %v", ErrDatabaseWrite, err)
	}
	defer insExit.Close()
	insColl, err := tx.PrepareContext(ctx, `INSERT INTO collisions (photon, region, path_length, collisions) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing insert: %v", ErrDatabaseWrite, err)
	}
	defer insColl.Close()

	var e ExitRecord
	var c CollisionRecord
	n := 0
	for {
		okE, err := er.NextExit(&e)
		if err != nil {
			return n, err
		}
		okC, err := cr.NextCollision(&c)
		if err != nil {
			return n, err
		}
		if !okE || !okC {
			break
		}
		if e.Index != c.Index {
			return n, fmt.Errorf("%w: exit photon %d paired with collision photon %d", ErrCorrupt, e.Index, c.Index)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := insExit.ExecContext(ctx, int64(e.Index), int64(e.State), e.Pos.X, e.Pos.Y, e.Pos.Z, e.Dir.X, e.Dir.Y, e.Dir.Z, e.Weight, e.Time); err != nil {
			return n, fmt.Errorf("%w: inserting photon %d: %v", ErrDatabaseWrite, e.Index, err)
		}
		for r := range c.PathLength {
			if c.PathLength[r] == 0 && c.Collisions[r] == 0 {
				continue
			}
			if _, err := insColl.ExecContext(ctx, int64(c.Index), r, c.PathLength[r], int64(c.Collisions[r])); err != nil {
				return n, fmt.Errorf("%w: inserting collisions of photon %d: %v", ErrDatabaseWrite, c.Index, err)
			}
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("%w: committing export: %v", ErrDatabaseWrite, err)
	}
	return n, nil
}
