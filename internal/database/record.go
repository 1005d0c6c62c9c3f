// Package database persists per-photon exit and collision histories for
// perturbation Monte Carlo post-processing.
//
// Each database is a pair of streams: DiffuseReflectanceDatabase holds one
// ExitRecord per exiting history and CollisionInfoDatabase the matching
// CollisionRecord. Records are fixed size and strictly ordered by photon
// index.
package database

import (
	"errors"
	"fmt"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

const (
	ExitFileName      = "DiffuseReflectanceDatabase"
	CollisionFileName = "CollisionInfoDatabase"
	TextSuffix        = ".txt"
)

var (
	// ErrDatabaseWrite wraps any failure to persist a record.
	ErrDatabaseWrite = errors.New("database write failed")
	// ErrCorrupt is returned for files with a bad header or out-of-order records.
	ErrCorrupt = errors.New("corrupt database")
)

// ExitState tells through which surface a history left.
type ExitState uint32

const (
	ExitedTop    ExitState = 1
	ExitedBottom ExitState = 2
)

func (s ExitState) String() string {
	switch s {
	case ExitedTop:
		return "ExitedTop"
	case ExitedBottom:
		return "ExitedBottom"
	}
	return fmt.Sprintf("ExitState(%d)", uint32(s))
}

// ExitRecord is the exit state of one photon.
type ExitRecord struct {
	Index  uint64
	State  ExitState
	Pos    geom.Point3
	Dir    geom.Vector3
	Weight Real
	Time   Real
}

// CollisionRecord holds per-region path length and collision counts of one
// photon, indexed by region id.
type CollisionRecord struct {
	Index      uint64
	PathLength []Real
	Collisions []uint64
}

// Clone deep-copies the per-region slices.
func (c *CollisionRecord) Clone() CollisionRecord {
	return CollisionRecord{
		Index:      c.Index,
		PathLength: append([]Real(nil), c.PathLength...),
		Collisions: append([]uint64(nil), c.Collisions...),
	}
}

// Kind selects a stream.
type Kind uint8

const (
	ExitStream Kind = iota
	CollisionStream
)

func (k Kind) FileName() string {
	if k == CollisionStream {
		return CollisionFileName
	}
	return ExitFileName
}

const (
	headerSize    = 32
	formatVersion = 1
	exitSize      = 8 + 4 + 4 + 8*8
)

var magic = [2][4]byte{{'T', 'M', 'C', 'X'}, {'T', 'M', 'C', 'C'}}

func collisionSize(regions int) int { return 8 + regions*16 }

// RecordSize is the encoded size of one record of kind k.
func RecordSize(k Kind, regions int) int {
	if k == CollisionStream {
		return collisionSize(regions)
	}
	return exitSize
}
