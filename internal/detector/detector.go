// Package detector tallies photon events into binned estimates of
// reflectance, transmittance, absorption, fluence and radiance.
//
// Detectors are not safe for concurrent use: each worker tallies into its own
// Clone and the shards are merged in worker order at the end of a run.
package detector

import (
	"errors"
	"fmt"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// ErrInvalidDetector is returned for detector definitions that cannot tally.
var ErrInvalidDetector = errors.New("invalid detector")

// ExitKind tells where a photon left the tissue.
type ExitKind uint8

const (
	Specular    ExitKind = iota // launch-time specular reflection
	Reflected                   // diffusely reflected through the top surface
	Transmitted                 // transmitted through the bottom surface
)

func (k ExitKind) String() string {
	switch k {
	case Specular:
		return "specular"
	case Reflected:
		return "reflected"
	case Transmitted:
		return "transmitted"
	}
	return fmt.Sprintf("ExitKind(%d)", uint8(k))
}

// Exit is a terminal surface event. The per-region slices are only valid
// for the duration of the Tally call.
type Exit struct {
	Kind   ExitKind
	Pos    geom.Point3
	Dir    geom.Vector3
	Weight Real
	Time   Real

	PathLength       []Real
	Collisions       []uint64
	MomentumTransfer []Real
}

// Deposit is an in-medium event: absorbed weight and fluence contribution at
// a point. Fluence is w/μt for collision estimators and w·d for track
// estimators.
type Deposit struct {
	Pos      geom.Point3
	Dir      geom.Vector3
	Region   int
	Absorbed Real
	Fluence  Real
}

// Detector is the common part of all tallies.
type Detector interface {
	Name() string
	TallyType() string
	// Clone returns an empty detector with the same binning.
	Clone() Detector
	// Merge adds the tallies of other, which must be a Clone of the same
	// detector.
	Merge(other Detector) error
	// Normalize turns raw sums into estimates for n launched photons.
	Normalize(n uint64) *Result
}

// ExitDetector tallies surface events.
type ExitDetector interface {
	Detector
	TallyExit(e *Exit)
}

// VolumeDetector tallies in-medium events.
type VolumeDetector interface {
	Detector
	TallyDeposit(d *Deposit)
}

// Axis labels one dimension of a result.
type Axis struct {
	Name  string `json:"name"`
	Edges []Real `json:"edges"`
}

// Result is a normalized detector output. Mean is flattened row-major over
// Axes; a scalar result has no axes and one value.
type Result struct {
	Name      string    `json:"name"`
	TallyType string    `json:"tallyType"`
	Axes      []Axis    `json:"axes,omitempty"`
	Mean      []Real    `json:"mean"`
	StdErr    []Real    `json:"stdErr,omitempty"`
	Extra     []*Result `json:"extra,omitempty"`
}

// Dims returns the bin count along each axis.
func (r *Result) Dims() []int {
	d := make([]int, len(r.Axes))
	for i, a := range r.Axes {
		d[i] = len(a.Edges) - 1
	}
	return d
}

// At returns the value at the given bin indices.
func (r *Result) At(idx ...int) Real {
	return r.Mean[flatIndex(r.Dims(), idx)]
}

func flatIndex(dims, idx []int) int {
	f := 0
	for i, n := range dims {
		f = f*n + idx[i]
	}
	return f
}

func mergeMismatch(a, b Detector) error {
	return fmt.Errorf("%w: cannot merge %s (%s) with %s (%s)", ErrInvalidDetector, a.Name(), a.TallyType(), b.Name(), b.TallyType())
}
