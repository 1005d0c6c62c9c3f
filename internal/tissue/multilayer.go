package tissue

import (
	"fmt"
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

// MultiLayer is a laterally infinite stack of layers along z. Region 0 is the
// ambient medium above the first boundary, region len(regions)-1 the ambient
// medium below the last one.
type MultiLayer struct {
	regions    []Region
	boundaries []Real
}

// NewMultiLayer builds a stack from boundaries z_0 <= z_1 <= ... <= z_L and
// properties for ambient-above, the L layers and ambient-below
// (len(props) == len(boundaries)+1). Zero-thickness layers are allowed;
// decreasing boundaries are not.
func NewMultiLayer(boundaries []Real, props []OpticalProperties) (*MultiLayer, error) {
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("%w: layer list is empty", ErrInvalidGeometry)
	}
	if len(props) != len(boundaries)+1 {
		return nil, fmt.Errorf("%w: need %d region property sets for %d boundaries, got %d", ErrInvalidGeometry, len(boundaries)+1, len(boundaries), len(props))
	}
	for i, z := range boundaries {
		if !geom.IsFinite(z) {
			return nil, fmt.Errorf("%w: boundary %d is not finite", ErrInvalidGeometry, i)
		}
		if i > 0 && z < boundaries[i-1] {
			return nil, fmt.Errorf("%w: boundaries not monotonic at %d (%g < %g)", ErrInvalidGeometry, i, z, boundaries[i-1])
		}
	}
	if boundaries[len(boundaries)-1] <= boundaries[0] {
		return nil, fmt.Errorf("%w: total tissue thickness must be > 0", ErrInvalidGeometry)
	}
	for i, op := range props {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
	}

	L := len(boundaries) - 1
	regions := make([]Region, 0, L+2)
	regions = append(regions, Region{Kind: AmbientAbove, OP: props[0], ZTop: math.Inf(-1), ZBottom: boundaries[0]})
	for i := 1; i <= L; i++ {
		regions = append(regions, Region{Kind: Layer, OP: props[i], ZTop: boundaries[i-1], ZBottom: boundaries[i]})
	}
	regions = append(regions, Region{Kind: AmbientBelow, OP: props[L+1], ZTop: boundaries[L], ZBottom: math.Inf(1)})

	bs := make([]Real, len(boundaries))
	copy(bs, boundaries)
	return &MultiLayer{regions: regions, boundaries: bs}, nil
}

// NewMultiLayerFromThickness stacks layers of the given thicknesses starting
// at z=0, with the given ambient media above and below.
func NewMultiLayerFromThickness(above OpticalProperties, thickness []Real, layers []OpticalProperties, below OpticalProperties) (*MultiLayer, error) {
	if len(thickness) == 0 {
		return nil, fmt.Errorf("%w: layer list is empty", ErrInvalidGeometry)
	}
	if len(thickness) != len(layers) {
		return nil, fmt.Errorf("%w: %d thicknesses for %d layers", ErrInvalidGeometry, len(thickness), len(layers))
	}
	bounds := make([]Real, len(thickness)+1)
	for i, d := range thickness {
		bounds[i+1] = bounds[i] + d
	}
	props := make([]OpticalProperties, 0, len(layers)+2)
	props = append(props, above)
	props = append(props, layers...)
	props = append(props, below)
	return NewMultiLayer(bounds, props)
}

func (m *MultiLayer) Regions() []Region { return m.regions }

// Boundaries returns z_0..z_L.
func (m *MultiLayer) Boundaries() []Real { return m.boundaries }

// NumLayers excludes the two ambient regions.
func (m *MultiLayer) NumLayers() int { return len(m.regions) - 2 }

func (m *MultiLayer) Locate(p geom.Point3) int {
	if p.Z < m.boundaries[0] {
		return 0
	}
	for i := 1; i < len(m.boundaries); i++ {
		if p.Z < m.boundaries[i] {
			return i
		}
	}
	return len(m.regions) - 1
}

func (m *MultiLayer) DistanceToBoundary(p geom.Point3, d geom.Vector3, region int) Boundary {
	if region <= 0 || region >= len(m.regions)-1 {
		return noBoundary(region)
	}
	r := m.regions[region]
	switch {
	case d.Z > 0:
		return Boundary{Distance: math.Max(0, (r.ZBottom-p.Z)/d.Z), Next: region + 1, Normal: geom.Vector3{Z: 1}}
	case d.Z < 0:
		return Boundary{Distance: math.Max(0, (r.ZTop-p.Z)/d.Z), Next: region - 1, Normal: geom.Vector3{Z: -1}}
	}
	return noBoundary(region)
}
