// Package input loads simulation infiles and turns them into the tissue,
// source, detectors and engine options of a run.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

type Real = geom.Real

// ErrInvalidInput is returned for infile fields that cannot be used.
var ErrInvalidInput = errors.New("invalid input")

// Database names accepted in OptionsCfg.Databases.
const (
	DiffuseReflectanceDatabase    = "DiffuseReflectance"
	PMCDiffuseReflectanceDatabase = "pMCDiffuseReflectance"
)

type LayerCfg struct {
	Thickness                Real `json:"thickness" yaml:"thickness"`
	tissue.OpticalProperties `yaml:",inline"`
}

type EllipsoidCfg struct {
	Center                   geom.Point3  `json:"center" yaml:"center"`
	Radii                    geom.Vector3 `json:"radii" yaml:"radii"`
	tissue.OpticalProperties `yaml:",inline"`
}

// VoxelCfg describes a voxel grid over [MinX,MaxX]×[MinY,MaxY]×[0,Depth].
// Materials index Properties from 1 with z varying fastest. When Materials
// is empty every voxel takes the layer at its center depth, Properties are
// the layers and Depth is their total thickness.
type VoxelCfg struct {
	MinX       Real                       `json:"minX" yaml:"minX"`
	MaxX       Real                       `json:"maxX" yaml:"maxX"`
	MinY       Real                       `json:"minY" yaml:"minY"`
	MaxY       Real                       `json:"maxY" yaml:"maxY"`
	Nx         int                        `json:"nx" yaml:"nx"`
	Ny         int                        `json:"ny" yaml:"ny"`
	Nz         int                        `json:"nz" yaml:"nz"`
	Depth      Real                       `json:"depth,omitempty" yaml:"depth,omitempty"`
	Materials  []uint16                   `json:"materials,omitempty" yaml:"materials,omitempty"`
	Properties []tissue.OpticalProperties `json:"properties,omitempty" yaml:"properties,omitempty"`
}

type TissueCfg struct {
	Type      string                    `json:"type,omitempty" yaml:"type,omitempty"`
	Above     *tissue.OpticalProperties `json:"above,omitempty" yaml:"above,omitempty"`
	Below     *tissue.OpticalProperties `json:"below,omitempty" yaml:"below,omitempty"`
	Layers    []LayerCfg                `json:"layers" yaml:"layers"`
	Ellipsoid *EllipsoidCfg             `json:"ellipsoid,omitempty" yaml:"ellipsoid,omitempty"`
	Voxel     *VoxelCfg                 `json:"voxel,omitempty" yaml:"voxel,omitempty"`
}

type SourceCfg struct {
	Type      string       `json:"type,omitempty" yaml:"type,omitempty"`
	Position  geom.Point3  `json:"position" yaml:"position"`
	Direction geom.Vector3 `json:"direction" yaml:"direction"`
	// Cone half angle of DirectionalPoint, degrees (friendlier than radians).
	HalfAngleDeg Real   `json:"halfAngleDeg,omitempty" yaml:"halfAngleDeg,omitempty"`
	InnerRadius  Real   `json:"innerRadius,omitempty" yaml:"innerRadius,omitempty"`
	OuterRadius  Real   `json:"outerRadius,omitempty" yaml:"outerRadius,omitempty"`
	BeamProfile  string `json:"beamProfile,omitempty" yaml:"beamProfile,omitempty"`
	FWHM         Real   `json:"fwhm,omitempty" yaml:"fwhm,omitempty"`
	Angular      string `json:"angular,omitempty" yaml:"angular,omitempty"`
}

type OptionsCfg struct {
	Seed                 uint64   `json:"seed" yaml:"seed"`
	AbsorptionWeighting  string   `json:"absorptionWeighting,omitempty" yaml:"absorptionWeighting,omitempty"`
	RouletteThreshold    Real     `json:"rouletteThreshold,omitempty" yaml:"rouletteThreshold,omitempty"`
	RouletteChance       Real     `json:"rouletteChance,omitempty" yaml:"rouletteChance,omitempty"`
	MaxCollisions        int      `json:"maxCollisions,omitempty" yaml:"maxCollisions,omitempty"`
	MaxZeroStepCrossings int      `json:"maxZeroStepCrossings,omitempty" yaml:"maxZeroStepCrossings,omitempty"`
	Workers              int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	Databases            []string `json:"databases,omitempty" yaml:"databases,omitempty"`
	TextDatabase         bool     `json:"textDatabase,omitempty" yaml:"textDatabase,omitempty"`
	// TallySecondMoment turns on second moments for every surface detector.
	TallySecondMoment bool `json:"tallySecondMoment,omitempty" yaml:"tallySecondMoment,omitempty"`
	Images            bool `json:"images,omitempty" yaml:"images,omitempty"`
	ImageGamma        Real `json:"imageGamma,omitempty" yaml:"imageGamma,omitempty"`
}

// Perturbation replaces μa and/or μs of one region (index into the tissue
// region list, so layer i is region i).
type Perturbation struct {
	Region int   `json:"region" yaml:"region"`
	Mua    *Real `json:"mua,omitempty" yaml:"mua,omitempty"`
	Mus    *Real `json:"mus,omitempty" yaml:"mus,omitempty"`
}

type PostProcessorCfg struct {
	// InputFolder holds the database; defaults to the run output folder.
	InputFolder   string            `json:"inputFolder,omitempty" yaml:"inputFolder,omitempty"`
	Perturbations []Perturbation    `json:"perturbations,omitempty" yaml:"perturbations,omitempty"`
	Detectors     []detector.Config `json:"detectors" yaml:"detectors"`
}

// SimulationInput is one infile. It is not modified by a run; sweeps work on
// clones.
type SimulationInput struct {
	OutputName    string            `json:"outputName" yaml:"outputName"`
	N             uint64            `json:"n" yaml:"n"`
	Options       OptionsCfg        `json:"options" yaml:"options"`
	Tissue        TissueCfg         `json:"tissue" yaml:"tissue"`
	Source        SourceCfg         `json:"source" yaml:"source"`
	Detectors     []detector.Config `json:"detectors" yaml:"detectors"`
	PostProcessor *PostProcessorCfg `json:"postProcessor,omitempty" yaml:"postProcessor,omitempty"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a JSON or YAML (.yaml/.yml) infile, fills defaults and
// validates it.
func Load(path string) (*SimulationInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading infile: %w", err)
	}
	in, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.DebugLog("Loaded infile from %s: output=%s, n=%d, layers=%d, detectors=%d", path, in.OutputName, in.N, len(in.Tissue.Layers), len(in.Detectors))
	return in, nil
}

// Parse decodes an infile body, fills defaults and validates it.
func Parse(data []byte, asYAML bool) (*SimulationInput, error) {
	var in SimulationInput
	if asYAML {
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%w: parsing yaml: %w", ErrInvalidInput, err)
		}
	} else if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: parsing json: %w", ErrInvalidInput, err)
	}
	in.applyDefaults()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *SimulationInput) applyDefaults() {
	if in.OutputName == "" {
		in.OutputName = DefaultOutputName
	}
	if in.N == 0 {
		in.N = DefaultN
	}
	o := &in.Options
	if o.AbsorptionWeighting == "" {
		o.AbsorptionWeighting = DefaultAbsorptionWeighting
	}
	if o.RouletteThreshold == 0 {
		o.RouletteThreshold = DefaultRouletteThreshold
	}
	if o.RouletteChance == 0 {
		o.RouletteChance = DefaultRouletteChance
	}
	if o.ImageGamma == 0 {
		o.ImageGamma = DefaultImageGamma
	}
	if in.Tissue.Type == "" {
		switch {
		case in.Tissue.Voxel != nil:
			in.Tissue.Type = VoxelTissue
		case in.Tissue.Ellipsoid != nil:
			in.Tissue.Type = SingleEllipsoidTissue
		default:
			in.Tissue.Type = DefaultTissueType
		}
	}
	s := &in.Source
	if s.Type == "" {
		s.Type = DefaultSourceType
	}
	if s.Direction == (geom.Vector3{}) {
		s.Direction = geom.Vector3{X: 0, Y: 0, Z: 1}
	}
	if s.BeamProfile == "" {
		s.BeamProfile = DefaultBeamProfile
	}
	if s.Angular == "" {
		s.Angular = DefaultAngular
	}
}

// Validate checks the fields Build cannot check on its own.
func (in *SimulationInput) Validate() error {
	if len(in.Tissue.Layers) == 0 {
		return fmt.Errorf("%w: tissue needs at least one layer", tissue.ErrInvalidGeometry)
	}
	if strings.ContainsAny(in.OutputName, `/\`) {
		return fmt.Errorf("%w: output name %q must not contain path separators", ErrInvalidInput, in.OutputName)
	}
	switch in.Tissue.Type {
	case MultiLayerTissue:
	case SingleEllipsoidTissue:
		if in.Tissue.Ellipsoid == nil {
			return fmt.Errorf("%w: %s tissue needs an ellipsoid", ErrInvalidInput, in.Tissue.Type)
		}
	case VoxelTissue:
		if in.Tissue.Voxel == nil {
			return fmt.Errorf("%w: %s tissue needs a voxel grid", ErrInvalidInput, in.Tissue.Type)
		}
	default:
		return fmt.Errorf("%w: unknown tissue type %q", ErrInvalidInput, in.Tissue.Type)
	}
	for _, db := range in.Options.Databases {
		if db != DiffuseReflectanceDatabase && db != PMCDiffuseReflectanceDatabase {
			return fmt.Errorf("%w: unknown database %q", ErrInvalidInput, db)
		}
	}
	if in.PostProcessor != nil && len(in.PostProcessor.Detectors) == 0 {
		return fmt.Errorf("%w: post processor lists no detectors", ErrInvalidInput)
	}
	return nil
}

// WantsDatabase reports whether the run records pMC histories.
func (in *SimulationInput) WantsDatabase() bool { return len(in.Options.Databases) > 0 }

// DetectorConfigs returns the run detectors with the global second moment
// option applied.
func (in *SimulationInput) DetectorConfigs() []detector.Config {
	cfgs := slices.Clone(in.Detectors)
	if in.Options.TallySecondMoment {
		for i := range cfgs {
			if detector.IsSurface(cfgs[i].TallyType) {
				cfgs[i].TallySecondMoment = true
			}
		}
	}
	return cfgs
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDetectors(cfgs []detector.Config) []detector.Config {
	if cfgs == nil {
		return nil
	}
	out := make([]detector.Config, len(cfgs))
	for i, c := range cfgs {
		c.Rho = clonePtr(c.Rho)
		c.Angle = clonePtr(c.Angle)
		c.Time = clonePtr(c.Time)
		c.X = clonePtr(c.X)
		c.Y = clonePtr(c.Y)
		c.Z = clonePtr(c.Z)
		c.MomentumTransfer = clonePtr(c.MomentumTransfer)
		out[i] = c
	}
	return out
}

// Clone returns a deep copy sharing no memory with in.
func (in *SimulationInput) Clone() *SimulationInput {
	out := *in
	out.Options.Databases = slices.Clone(in.Options.Databases)
	out.Tissue.Above = clonePtr(in.Tissue.Above)
	out.Tissue.Below = clonePtr(in.Tissue.Below)
	out.Tissue.Layers = slices.Clone(in.Tissue.Layers)
	out.Tissue.Ellipsoid = clonePtr(in.Tissue.Ellipsoid)
	if v := in.Tissue.Voxel; v != nil {
		vc := *v
		vc.Materials = slices.Clone(v.Materials)
		vc.Properties = slices.Clone(v.Properties)
		out.Tissue.Voxel = &vc
	}
	out.Detectors = cloneDetectors(in.Detectors)
	if p := in.PostProcessor; p != nil {
		pc := *p
		pc.Perturbations = make([]Perturbation, len(p.Perturbations))
		for i, pt := range p.Perturbations {
			pt.Mua = clonePtr(pt.Mua)
			pt.Mus = clonePtr(pt.Mus)
			pc.Perturbations[i] = pt
		}
		pc.Detectors = cloneDetectors(p.Detectors)
		out.PostProcessor = &pc
	}
	return &out
}

// Marshal renders in as JSON or YAML.
func (in *SimulationInput) Marshal(asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(in)
	}
	return json.MarshalIndent(in, "", "  ")
}

// Save writes in to path, as YAML when the extension says so.
func (in *SimulationInput) Save(path string) error {
	data, err := in.Marshal(isYAML(path))
	if err != nil {
		return fmt.Errorf("encoding infile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing infile: %w", err)
	}
	return nil
}
