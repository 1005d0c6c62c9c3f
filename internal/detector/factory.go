package detector

import (
	"fmt"
	"math"
	"slices"

	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

// Tally type names as they appear in infiles.
const (
	RSpecularType                          = "RSpecular"
	RDiffuseType                           = "RDiffuse"
	TDiffuseType                           = "TDiffuse"
	ROfRhoType                             = "ROfRho"
	TOfRhoType                             = "TOfRho"
	ROfAngleType                           = "ROfAngle"
	TOfAngleType                           = "TOfAngle"
	ROfRhoAndTimeType                      = "ROfRhoAndTime"
	ROfRhoAndAngleType                     = "ROfRhoAndAngle"
	ROfXAndYType                           = "ROfXAndY"
	ATotalType                             = "ATotal"
	AOfRhoAndZType                         = "AOfRhoAndZ"
	FluenceOfRhoAndZType                   = "FluenceOfRhoAndZ"
	FluenceOfXAndYAndZType                 = "FluenceOfXAndYAndZ"
	RadianceOfRhoAndZAndAngleType          = "RadianceOfRhoAndZAndAngle"
	ReflectedTimeOfRhoAndSubregionHistType = "ReflectedTimeOfRhoAndSubregionHist"
	ReflectedMTOfRhoAndSubregionHistType   = "ReflectedMTOfRhoAndSubregionHist"
)

// TallyTypes lists every supported tally type.
var TallyTypes = []string{
	RSpecularType, RDiffuseType, TDiffuseType,
	ROfRhoType, TOfRhoType, ROfAngleType, TOfAngleType,
	ROfRhoAndTimeType, ROfRhoAndAngleType, ROfXAndYType,
	ATotalType, AOfRhoAndZType, FluenceOfRhoAndZType, FluenceOfXAndYAndZType,
	RadianceOfRhoAndZAndAngleType,
	ReflectedTimeOfRhoAndSubregionHistType, ReflectedMTOfRhoAndSubregionHistType,
}

// IsSurface reports whether tallyType is fed by exit events. Only surface
// detectors can tally second moments.
func IsSurface(tallyType string) bool {
	switch tallyType {
	case RSpecularType, RDiffuseType, TDiffuseType,
		ROfRhoType, TOfRhoType, ROfAngleType, TOfAngleType,
		ROfRhoAndTimeType, ROfRhoAndAngleType, ROfXAndYType:
		return true
	}
	return false
}

// Config describes one detector. Only the ranges its tally type uses need to
// be set.
type Config struct {
	TallyType         string `json:"tallyType" yaml:"tallyType"`
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	Rho               *Range `json:"rho,omitempty" yaml:"rho,omitempty"`
	Angle             *Range `json:"angle,omitempty" yaml:"angle,omitempty"`
	Time              *Range `json:"time,omitempty" yaml:"time,omitempty"`
	X                 *Range `json:"x,omitempty" yaml:"x,omitempty"`
	Y                 *Range `json:"y,omitempty" yaml:"y,omitempty"`
	Z                 *Range `json:"z,omitempty" yaml:"z,omitempty"`
	MomentumTransfer  *Range `json:"mt,omitempty" yaml:"mt,omitempty"`
	OutOfRange        string `json:"outOfRange,omitempty" yaml:"outOfRange,omitempty"`
	TallySecondMoment bool   `json:"tallySecondMoment,omitempty" yaml:"tallySecondMoment,omitempty"`
}

// DisplayName is Name or, when empty, the tally type.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.TallyType
}

func need(c Config, field string, r *Range) (Range, error) {
	if r == nil {
		return Range{}, fmt.Errorf("%w: %s needs a %s range", ErrInvalidDetector, c.TallyType, field)
	}
	if err := r.Validate(); err != nil {
		return Range{}, fmt.Errorf("%s %s: %w", c.TallyType, field, err)
	}
	return *r, nil
}

// New builds the detector described by c for a tissue with the given regions.
// The returned value implements ExitDetector or VolumeDetector.
func New(c Config, regions []tissue.Region) (Detector, error) {
	policy, err := ParsePolicy(c.OutOfRange)
	if err != nil {
		return nil, err
	}
	name := c.DisplayName()
	second := c.TallySecondMoment
	surface := func(kind ExitKind, axes ...axis) (Detector, error) {
		return newSurface(name, c.TallyType, kind, policy, second, axes...), nil
	}
	volume := func(q Quantity, axes ...axis) (Detector, error) {
		if second {
			return nil, fmt.Errorf("%w: %s: second moments are only tallied for surface detectors", ErrInvalidDetector, c.TallyType)
		}
		return newVolume(name, c.TallyType, q, policy, axes...), nil
	}

	var rho, angle, tm, x, y, z, mt Range
	var rangeErr error
	use := func(field string, src, dst *Range, types ...string) {
		if rangeErr != nil || !slices.Contains(types, c.TallyType) {
			return
		}
		*dst, rangeErr = need(c, field, src)
	}
	use("rho", c.Rho, &rho, ROfRhoType, TOfRhoType, ROfRhoAndTimeType, ROfRhoAndAngleType,
		AOfRhoAndZType, FluenceOfRhoAndZType, RadianceOfRhoAndZAndAngleType,
		ReflectedTimeOfRhoAndSubregionHistType, ReflectedMTOfRhoAndSubregionHistType)
	use("angle", c.Angle, &angle, ROfAngleType, TOfAngleType, ROfRhoAndAngleType, RadianceOfRhoAndZAndAngleType)
	use("time", c.Time, &tm, ROfRhoAndTimeType, ReflectedTimeOfRhoAndSubregionHistType)
	use("x", c.X, &x, ROfXAndYType, FluenceOfXAndYAndZType)
	use("y", c.Y, &y, ROfXAndYType, FluenceOfXAndYAndZType)
	use("z", c.Z, &z, AOfRhoAndZType, FluenceOfRhoAndZType, FluenceOfXAndYAndZType, RadianceOfRhoAndZAndAngleType)
	use("mt", c.MomentumTransfer, &mt, ReflectedMTOfRhoAndSubregionHistType)
	if rangeErr != nil {
		return nil, rangeErr
	}

	rhoAxis := axis{name: "rho", coord: CoordRho, r: rho, measure: Annulus}
	exitAngle := axis{name: "angle", coord: CoordExitAngle, r: angle, measure: SolidAngle}
	timeAxis := axis{name: "time", coord: CoordTime, r: tm, measure: Linear}
	xAxis := axis{name: "x", coord: CoordX, r: x, measure: Linear}
	yAxis := axis{name: "y", coord: CoordY, r: y, measure: Linear}
	zAxis := axis{name: "z", coord: CoordZ, r: z, measure: Linear}

	switch c.TallyType {
	case RSpecularType:
		return surface(Specular)
	case RDiffuseType:
		return surface(Reflected)
	case TDiffuseType:
		return surface(Transmitted)
	case ROfRhoType:
		return surface(Reflected, rhoAxis)
	case TOfRhoType:
		return surface(Transmitted, rhoAxis)
	case ROfAngleType:
		return surface(Reflected, exitAngle)
	case TOfAngleType:
		return surface(Transmitted, exitAngle)
	case ROfRhoAndTimeType:
		return surface(Reflected, rhoAxis, timeAxis)
	case ROfRhoAndAngleType:
		return surface(Reflected, rhoAxis, exitAngle)
	case ROfXAndYType:
		return surface(Reflected, xAxis, yAxis)
	case ATotalType:
		return volume(Absorption)
	case AOfRhoAndZType:
		return volume(Absorption, rhoAxis, zAxis)
	case FluenceOfRhoAndZType:
		return volume(Fluence, rhoAxis, zAxis)
	case FluenceOfXAndYAndZType:
		return volume(Fluence, xAxis, yAxis, zAxis)
	case RadianceOfRhoAndZAndAngleType:
		if angle.Start < 0 || angle.Stop > math.Pi+1e-12 {
			return nil, fmt.Errorf("%w: %s angle range must lie in [0, π]", ErrInvalidDetector, c.TallyType)
		}
		polar := axis{name: "angle", coord: CoordPolarAngle, r: angle, measure: SolidAngle}
		return volume(Fluence, rhoAxis, zAxis, polar)
	case ReflectedTimeOfRhoAndSubregionHistType:
		if second {
			return nil, fmt.Errorf("%w: %s does not tally second moments", ErrInvalidDetector, c.TallyType)
		}
		return newSubregionHist(name, c.TallyType, rhoAxis, timeAxis, regions, false, policy), nil
	case ReflectedMTOfRhoAndSubregionHistType:
		if second {
			return nil, fmt.Errorf("%w: %s does not tally second moments", ErrInvalidDetector, c.TallyType)
		}
		mtAxis := axis{name: "mt", r: mt, measure: Linear}
		return newSubregionHist(name, c.TallyType, rhoAxis, mtAxis, regions, true, policy), nil
	}
	return nil, fmt.Errorf("%w: unknown tally type %q", ErrInvalidDetector, c.TallyType)
}

// Set is the detector list of one run, split by event kind.
type Set struct {
	All    []Detector
	Exit   []ExitDetector
	Volume []VolumeDetector
}

// NewSet builds all detectors, rejecting duplicate names.
func NewSet(cfgs []Config, regions []tissue.Region) (*Set, error) {
	s := &Set{}
	seen := map[string]bool{}
	for i, c := range cfgs {
		name := c.DisplayName()
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate detector name %q", ErrInvalidDetector, name)
		}
		seen[name] = true
		d, err := New(c, regions)
		if err != nil {
			return nil, fmt.Errorf("detector %d: %w", i, err)
		}
		s.add(d)
	}
	return s, nil
}

func (s *Set) add(d Detector) {
	s.All = append(s.All, d)
	switch v := d.(type) {
	case ExitDetector:
		s.Exit = append(s.Exit, v)
	case VolumeDetector:
		s.Volume = append(s.Volume, v)
	}
}

// Clone returns an empty shard with the same detectors.
func (s *Set) Clone() *Set {
	c := &Set{}
	for _, d := range s.All {
		c.add(d.Clone())
	}
	return c
}

// Merge adds a shard produced by Clone.
func (s *Set) Merge(o *Set) error {
	if len(o.All) != len(s.All) {
		return fmt.Errorf("%w: merging sets of %d and %d detectors", ErrInvalidDetector, len(s.All), len(o.All))
	}
	for i, d := range s.All {
		if err := d.Merge(o.All[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) TallyExit(e *Exit) {
	for _, d := range s.Exit {
		d.TallyExit(e)
	}
}

func (s *Set) TallyDeposit(d *Deposit) {
	for _, v := range s.Volume {
		v.TallyDeposit(d)
	}
}

// HasVolume reports whether any detector needs in-medium events.
func (s *Set) HasVolume() bool { return len(s.Volume) > 0 }

// Normalize returns results in configuration order.
func (s *Set) Normalize(n uint64) []*Result {
	out := make([]*Result, len(s.All))
	for i, d := range s.All {
		out[i] = d.Normalize(n)
	}
	return out
}
