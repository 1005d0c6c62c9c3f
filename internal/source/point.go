package source

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// DirectionalPoint launches from a fixed point into a cone of half-angle
// HalfAngle around Direction; HalfAngle 0 is a pencil beam.
type DirectionalPoint struct {
	Position  geom.Point3
	Direction geom.Vector3 // unit
	HalfAngle Real         // radians, [0, π]

	oneMinusCos Real
	u, v        geom.Vector3
}

// NewDirectionalPoint validates and caches the cone basis.
func NewDirectionalPoint(pos geom.Point3, dir geom.Vector3, halfAngle Real) (*DirectionalPoint, error) {
	n, ok := unitDirection(dir)
	if !ok {
		return nil, fmt.Errorf("%w: direction must be non-zero", ErrInvalidSource)
	}
	if halfAngle < 0 || halfAngle > math.Pi {
		return nil, fmt.Errorf("%w: half-angle must be in [0, π], got %g", ErrInvalidSource, halfAngle)
	}
	s := &DirectionalPoint{Position: pos, Direction: n, HalfAngle: halfAngle, oneMinusCos: 1 - math.Cos(halfAngle)}
	s.u, s.v = orthonormal2(n)
	logging.DebugLog("Created directional point source %+v", s)
	return s, nil
}

func (s *DirectionalPoint) Launch(rng *rand.Rand) (geom.Point3, geom.Vector3) {
	return s.Position, sampleCone(rng, s.Direction, s.u, s.v, s.oneMinusCos)
}

// IsotropicPoint emits uniformly over the full sphere, typically from inside
// the tissue.
type IsotropicPoint struct {
	Position geom.Point3
}

func (s *IsotropicPoint) Launch(rng *rand.Rand) (geom.Point3, geom.Vector3) {
	return s.Position, sampleS2(rng)
}
