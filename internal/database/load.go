package database

import (
	"fmt"
	"path/filepath"
)

// Database is a fully loaded pair of streams. Exits[i] and Collisions[i]
// belong to the same photon.
type Database struct {
	Regions    int
	Exits      []ExitRecord
	Collisions []CollisionRecord
}

// Load reads both binary streams from dir.
func Load(dir string) (*Database, error) {
	er, err := Open(filepath.Join(dir, ExitFileName))
	if err != nil {
		return nil, err
	}
	defer er.Close()
	cr, err := Open(filepath.Join(dir, CollisionFileName))
	if err != nil {
		return nil, err
	}
	defer cr.Close()
	if er.Header.Kind != ExitStream || cr.Header.Kind != CollisionStream {
		return nil, fmt.Errorf("%w: %s: streams swapped", ErrCorrupt, dir)
	}

	db := &Database{Regions: int(cr.Header.Regions)}
	var e ExitRecord
	for {
		ok, err := er.NextExit(&e)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		db.Exits = append(db.Exits, e)
	}
	var c CollisionRecord
	for {
		ok, err := cr.NextCollision(&c)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		db.Collisions = append(db.Collisions, c.Clone())
	}
	// a crash can leave one stream a record longer than the other
	n := min(len(db.Exits), len(db.Collisions))
	db.Exits, db.Collisions = db.Exits[:n], db.Collisions[:n]
	for i := range db.Exits {
		if db.Exits[i].Index != db.Collisions[i].Index {
			return nil, fmt.Errorf("%w: record %d: exit photon %d, collision photon %d", ErrCorrupt, i, db.Exits[i].Index, db.Collisions[i].Index)
		}
	}
	return db, nil
}
