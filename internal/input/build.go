package input

import (
	"fmt"
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/engine"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/source"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

// Simulation is everything a transport run needs, built from an infile.
type Simulation struct {
	Tissue    tissue.Tissue
	Source    source.Source
	Detectors *detector.Set
	Options   engine.Options
}

// Build turns the infile into a ready to run simulation. Geometry errors
// wrap tissue.ErrInvalidGeometry, every other field error ErrInvalidInput.
func (in *SimulationInput) Build() (*Simulation, error) {
	t, err := in.BuildTissue()
	if err != nil {
		return nil, err
	}
	src, err := in.BuildSource()
	if err != nil {
		return nil, err
	}
	dets, err := detector.NewSet(in.DetectorConfigs(), t.Regions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	opts, err := in.EngineOptions()
	if err != nil {
		return nil, err
	}
	logging.DebugLog("Built simulation %s: tissue=%s regions=%d source=%s detectors=%d", in.OutputName, in.Tissue.Type, len(t.Regions()), in.Source.Type, len(dets.All))
	return &Simulation{Tissue: t, Source: src, Detectors: dets, Options: opts}, nil
}

func (in *SimulationInput) ambient() (above, below tissue.OpticalProperties) {
	above, below = tissue.Air, tissue.Air
	if in.Tissue.Above != nil {
		above = *in.Tissue.Above
	}
	if in.Tissue.Below != nil {
		below = *in.Tissue.Below
	}
	return above, below
}

func (in *SimulationInput) layers() (thickness []Real, props []tissue.OpticalProperties) {
	for _, l := range in.Tissue.Layers {
		thickness = append(thickness, l.Thickness)
		props = append(props, l.OpticalProperties)
	}
	return thickness, props
}

// BuildTissue builds the geometry named by Tissue.Type.
func (in *SimulationInput) BuildTissue() (tissue.Tissue, error) {
	above, below := in.ambient()
	thickness, props := in.layers()
	switch in.Tissue.Type {
	case MultiLayerTissue:
		return tissue.NewMultiLayerFromThickness(above, thickness, props, below)
	case SingleEllipsoidTissue:
		e := in.Tissue.Ellipsoid
		if e == nil {
			return nil, fmt.Errorf("%w: %s tissue needs an ellipsoid", ErrInvalidInput, in.Tissue.Type)
		}
		m, err := tissue.NewMultiLayerFromThickness(above, thickness, props, below)
		if err != nil {
			return nil, err
		}
		return tissue.NewSingleEllipsoid(m, geom.Ellipsoid{Center: e.Center, Radii: e.Radii}, e.OpticalProperties)
	case VoxelTissue:
		return in.buildVoxel(above, below, thickness, props)
	}
	return nil, fmt.Errorf("%w: unknown tissue type %q", ErrInvalidInput, in.Tissue.Type)
}

func (in *SimulationInput) buildVoxel(above, below tissue.OpticalProperties, thickness []Real, layers []tissue.OpticalProperties) (tissue.Tissue, error) {
	v := in.Tissue.Voxel
	if v == nil {
		return nil, fmt.Errorf("%w: %s tissue needs a voxel grid", ErrInvalidInput, in.Tissue.Type)
	}
	if v.Nx <= 0 || v.Ny <= 0 || v.Nz <= 0 {
		return nil, fmt.Errorf("%w: voxel resolution must be positive, got %dx%dx%d", tissue.ErrInvalidGeometry, v.Nx, v.Ny, v.Nz)
	}
	materials, mats, depth := v.Materials, v.Properties, v.Depth
	if len(materials) == 0 {
		materials, depth = voxelize(thickness, v.Nx, v.Ny, v.Nz)
		mats = layers
	} else if depth == 0 {
		for _, d := range thickness {
			depth += d
		}
	}
	props := make([]tissue.OpticalProperties, 0, len(mats)+2)
	props = append(props, above)
	props = append(props, mats...)
	props = append(props, below)
	return tissue.NewVoxel(v.MinX, v.MaxX, v.MinY, v.MaxY, depth, v.Nx, v.Ny, v.Nz, materials, props)
}

// voxelize assigns every voxel the 1-based layer at its center depth.
func voxelize(thickness []Real, nx, ny, nz int) ([]uint16, Real) {
	depth := 0.0
	for _, d := range thickness {
		depth += d
	}
	column := make([]uint16, nz)
	dz := depth / Real(nz)
	for k := range column {
		z := (Real(k) + 0.5) * dz
		top, layer := 0.0, len(thickness)
		for i, d := range thickness {
			if z < top+d {
				layer = i + 1
				break
			}
			top += d
		}
		column[k] = uint16(layer)
	}
	materials := make([]uint16, 0, nx*ny*nz)
	for range nx * ny {
		materials = append(materials, column...)
	}
	return materials, depth
}

// BuildSource builds the source named by Source.Type.
func (in *SimulationInput) BuildSource() (source.Source, error) {
	s := in.Source
	var (
		src source.Source
		err error
	)
	switch s.Type {
	case DirectionalPointSource:
		src, err = source.NewDirectionalPoint(s.Position, s.Direction, s.HalfAngleDeg*math.Pi/180)
	case IsotropicPointSource:
		src = &source.IsotropicPoint{Position: s.Position}
	case CircularSource:
		profile, perr := source.ParseBeamProfile(s.BeamProfile)
		if perr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, perr)
		}
		angular, aerr := source.ParseAngularDistribution(s.Angular)
		if aerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, aerr)
		}
		src, err = source.NewCircular(s.Position, s.Direction, s.InnerRadius, s.OuterRadius, profile, s.FWHM, angular)
	default:
		err = fmt.Errorf("unknown source type %q", s.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: source: %w", ErrInvalidInput, err)
	}
	return src, nil
}

// EngineOptions maps the infile options onto the engine.
func (in *SimulationInput) EngineOptions() (engine.Options, error) {
	o := in.Options
	aw, err := engine.ParseAbsorptionWeighting(o.AbsorptionWeighting)
	if err != nil {
		return engine.Options{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if o.Workers < 0 || o.MaxCollisions < 0 || o.MaxZeroStepCrossings < 0 {
		return engine.Options{}, fmt.Errorf("%w: workers and guards must not be negative", ErrInvalidInput)
	}
	return engine.Options{
		Seed:                 o.Seed,
		AbsorptionWeighting:  aw,
		RouletteThreshold:    o.RouletteThreshold,
		RouletteChance:       o.RouletteChance,
		MaxCollisions:        o.MaxCollisions,
		MaxZeroStepCrossings: o.MaxZeroStepCrossings,
		Workers:              o.Workers,
	}, nil
}

// PerturbedProperties applies the post processor perturbations to the region
// properties of t.
func (in *SimulationInput) PerturbedProperties(t tissue.Tissue) ([]tissue.OpticalProperties, error) {
	props := tissue.OpticalPropertiesOf(t)
	if in.PostProcessor == nil {
		return props, nil
	}
	for _, p := range in.PostProcessor.Perturbations {
		if p.Region < 0 || p.Region >= len(props) {
			return nil, fmt.Errorf("%w: perturbation region %d outside 0..%d", ErrInvalidInput, p.Region, len(props)-1)
		}
		if p.Mua != nil {
			props[p.Region].Mua = *p.Mua
		}
		if p.Mus != nil {
			props[p.Region].Mus = *p.Mus
		}
	}
	return props, nil
}
