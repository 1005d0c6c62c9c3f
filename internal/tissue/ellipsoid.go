package tissue

import (
	"fmt"
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

// SingleEllipsoid is a multilayer stack with one axis-aligned ellipsoidal
// inclusion fully inside one layer. The inclusion is the last region.
type SingleEllipsoid struct {
	layers    *MultiLayer
	ellipsoid geom.Ellipsoid
	host      int // layer region enclosing the inclusion
	inclusion int
	regions   []Region
}

// NewSingleEllipsoid embeds an inclusion with properties op into layers.
func NewSingleEllipsoid(layers *MultiLayer, e geom.Ellipsoid, op OpticalProperties) (*SingleEllipsoid, error) {
	if !(e.Radii.X > 0 && e.Radii.Y > 0 && e.Radii.Z > 0) {
		return nil, fmt.Errorf("%w: ellipsoid radii must be > 0, got %+v", ErrInvalidGeometry, e.Radii)
	}
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("ellipsoid: %w", err)
	}
	host := layers.Locate(e.Center)
	hr := layers.regions[host]
	if hr.Kind != Layer || e.MinZ() < hr.ZTop || e.MaxZ() > hr.ZBottom {
		return nil, fmt.Errorf("%w: ellipsoid z range [%g,%g] must lie inside a single tissue layer", ErrInvalidGeometry, e.MinZ(), e.MaxZ())
	}
	regions := make([]Region, 0, len(layers.regions)+1)
	regions = append(regions, layers.regions...)
	regions = append(regions, Region{Kind: Inclusion, OP: op, ZTop: e.MinZ(), ZBottom: e.MaxZ()})
	return &SingleEllipsoid{
		layers:    layers,
		ellipsoid: e,
		host:      host,
		inclusion: len(regions) - 1,
		regions:   regions,
	}, nil
}

func (s *SingleEllipsoid) Regions() []Region { return s.regions }

// InclusionRegion is the id of the ellipsoid region.
func (s *SingleEllipsoid) InclusionRegion() int { return s.inclusion }

func (s *SingleEllipsoid) Locate(p geom.Point3) int {
	if s.ellipsoid.Contains(p) {
		return s.inclusion
	}
	return s.layers.Locate(p)
}

func (s *SingleEllipsoid) DistanceToBoundary(p geom.Point3, d geom.Vector3, region int) Boundary {
	const eps = 1e-10
	if region == s.inclusion {
		_, t1, ok := s.ellipsoid.Roots(p, d)
		if !ok || t1 < 0 {
			// numerically on the surface heading out
			t1 = 0
		}
		q := p.Add(d.Mul(t1))
		return Boundary{Distance: t1, Next: s.host, Normal: s.ellipsoid.Normal(q)}
	}
	b := s.layers.DistanceToBoundary(p, d, region)
	if region != s.host {
		return b
	}
	t0, t1, ok := s.ellipsoid.Roots(p, d)
	if !ok || t1 <= eps {
		return b
	}
	t := math.Max(t0, 0)
	if t < b.Distance {
		q := p.Add(d.Mul(t))
		return Boundary{Distance: t, Next: s.inclusion, Normal: s.ellipsoid.Normal(q)}
	}
	return b
}
