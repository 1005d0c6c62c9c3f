// Package tissue models the turbid medium: an ordered list of regions with
// optical properties and the geometry needed to walk photons between them.
package tissue

import (
	"errors"
	"fmt"
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// Escaped is the region id of any position outside all defined regions.
const Escaped = -1

// ErrInvalidGeometry is returned for tissue definitions that cannot be walked.
var ErrInvalidGeometry = errors.New("invalid geometry")

// OpticalProperties of one region.
type OpticalProperties struct {
	Mua Real `json:"mua" yaml:"mua"` // absorption coefficient, 1/mm
	Mus Real `json:"mus" yaml:"mus"` // scattering coefficient, 1/mm
	G   Real `json:"g" yaml:"g"`     // anisotropy
	N   Real `json:"n" yaml:"n"`     // refractive index
}

// Mut is the total interaction coefficient.
func (op OpticalProperties) Mut() Real { return op.Mua + op.Mus }

// Validate checks physical ranges.
func (op OpticalProperties) Validate() error {
	if op.Mua < 0 || op.Mus < 0 || !geom.IsFinite(op.Mua) || !geom.IsFinite(op.Mus) {
		return fmt.Errorf("%w: optical coefficients must be finite and >= 0, got mua=%g mus=%g", ErrInvalidGeometry, op.Mua, op.Mus)
	}
	if op.G <= -1 || op.G >= 1 {
		return fmt.Errorf("%w: anisotropy must be in (-1,1), got %g", ErrInvalidGeometry, op.G)
	}
	if op.N <= 0 {
		return fmt.Errorf("%w: refractive index must be > 0, got %g", ErrInvalidGeometry, op.N)
	}
	return nil
}

// Air is the default ambient medium.
var Air = OpticalProperties{Mua: 0, Mus: 0, G: 0, N: 1}

type RegionKind uint8

const (
	AmbientAbove RegionKind = iota // exit through the top surface (reflectance)
	AmbientBelow                   // exit through the bottom surface (transmittance)
	Layer
	Inclusion
	VoxelMaterial
)

func (k RegionKind) String() string {
	switch k {
	case AmbientAbove:
		return "ambient-above"
	case AmbientBelow:
		return "ambient-below"
	case Layer:
		return "layer"
	case Inclusion:
		return "inclusion"
	case VoxelMaterial:
		return "voxel-material"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Region is one subregion of the tissue.
type Region struct {
	Kind RegionKind
	OP   OpticalProperties
	// ZTop/ZBottom bound layer regions; ambient regions extend to ±Inf.
	ZTop, ZBottom Real
}

// IsAmbient reports whether entering the region ends the photon history.
func (r Region) IsAmbient() bool { return r.Kind == AmbientAbove || r.Kind == AmbientBelow }

// Boundary describes the next region crossing along a direction.
type Boundary struct {
	Distance Real         // +Inf when no boundary lies ahead
	Next     int          // region on the other side, or Escaped
	Normal   geom.Vector3 // unit surface normal (either orientation)
}

// Tissue is the geometry capability consumed by the transport engine.
type Tissue interface {
	// Regions lists every region; index is the region id.
	Regions() []Region
	// Locate returns the region containing p, or Escaped.
	Locate(p geom.Point3) int
	// DistanceToBoundary returns the nearest region boundary from p along
	// unit d, given the photon's current region.
	DistanceToBoundary(p geom.Point3, d geom.Vector3, region int) Boundary
}

func noBoundary(region int) Boundary {
	return Boundary{Distance: math.Inf(1), Next: region}
}

// OpticalPropertiesOf extracts per-region properties in region order.
func OpticalPropertiesOf(t Tissue) []OpticalProperties {
	regs := t.Regions()
	ops := make([]OpticalProperties, len(regs))
	for i, r := range regs {
		ops[i] = r.OP
	}
	return ops
}
