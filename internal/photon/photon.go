// Package photon holds the per-history state of one photon packet and the
// sampling primitives of its random walk.
package photon

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// C is the speed of light in vacuum, mm/ns.
const C = 299.792458

type State uint8

const (
	Launched State = iota
	InFlight
	Absorbing
	Scattering
	CrossingBoundary
	Terminated
	numStates
)

func (s State) String() string {
	switch s {
	case Launched:
		return "Launched"
	case InFlight:
		return "InFlight"
	case Absorbing:
		return "Absorbing"
	case Scattering:
		return "Scattering"
	case CrossingBoundary:
		return "CrossingBoundary"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Reason is why a history terminated.
type Reason uint8

const (
	Alive Reason = iota
	ExitedTop
	ExitedBottom
	Absorbed
	Killed // by roulette
	Escaped
	Truncated
	numReasons
)

func (r Reason) String() string {
	switch r {
	case Alive:
		return "Alive"
	case ExitedTop:
		return "ExitedTop"
	case ExitedBottom:
		return "ExitedBottom"
	case Absorbed:
		return "Absorbed"
	case Killed:
		return "Killed"
	case Escaped:
		return "Escaped"
	case Truncated:
		return "Truncated"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Photon is one history. Per-region slices are indexed by region id and
// reused across histories by Reset.
type Photon struct {
	Index  uint64
	Pos    geom.Point3
	Dir    geom.Vector3
	Weight Real
	Region int
	Time   Real // ns
	State  State
	Reason Reason

	PathLength       []Real
	Collisions       []uint64
	MomentumTransfer []Real

	NumCollisions     int // all regions
	ZeroStepCrossings int // consecutive zero-length crossings

	log *TransitionLog
}

// New allocates a photon for a tissue with nRegions regions. log may be nil.
func New(nRegions int, log *TransitionLog) *Photon {
	return &Photon{
		PathLength:       make([]Real, nRegions),
		Collisions:       make([]uint64, nRegions),
		MomentumTransfer: make([]Real, nRegions),
		log:              log,
	}
}

// Reset starts history index at pos heading dir inside region.
func (p *Photon) Reset(index uint64, pos geom.Point3, dir geom.Vector3, region int) {
	p.Index = index
	p.Pos = pos
	p.Dir = dir
	p.Weight = 1
	p.Region = region
	p.Time = 0
	p.State = Launched
	p.Reason = Alive
	p.NumCollisions = 0
	p.ZeroStepCrossings = 0
	clear(p.PathLength)
	clear(p.Collisions)
	clear(p.MomentumTransfer)
	if p.log != nil {
		p.log.launched++
	}
}

// SetState moves the state machine, counting the transition when logging.
func (p *Photon) SetState(s State) {
	if p.log != nil {
		p.log.transitions[p.State][s]++
	}
	p.State = s
}

// Terminate ends the history.
func (p *Photon) Terminate(r Reason) {
	p.SetState(Terminated)
	p.Reason = r
	if p.log != nil {
		p.log.reasons[r]++
	}
}

// Alive reports whether the history is still being walked.
func (p *Photon) Alive() bool { return p.State != Terminated }

// Move advances d along the current direction inside a region of refractive
// index n, accumulating path length and time of flight.
func (p *Photon) Move(d, n Real) {
	if d <= 0 {
		return
	}
	p.Pos = p.Pos.Add(p.Dir.Mul(d))
	if p.Region >= 0 && p.Region < len(p.PathLength) {
		p.PathLength[p.Region] += d
	}
	p.Time += d * n / C
}

// Scatter samples a new direction from Henyey-Greenstein with anisotropy g
// and records the collision.
func (p *Photon) Scatter(rng *rand.Rand, g Real) {
	cost := SampleHG(rng, g)
	phi := 2 * math.Pi * rng.Float64()
	p.Dir = Rotate(p.Dir, cost, phi)
	p.NumCollisions++
	if p.Region >= 0 && p.Region < len(p.Collisions) {
		p.Collisions[p.Region]++
		p.MomentumTransfer[p.Region] += 1 - cost
	}
}

// Roulette plays Russian roulette once the weight drops below threshold:
// survive with probability 1/chance and weight*chance, or die with zero
// weight. net is killed minus gained weight.
func (p *Photon) Roulette(rng *rand.Rand, threshold, chance Real) (net Real) {
	if p.Weight >= threshold || p.Weight <= 0 || chance <= 1 {
		return 0
	}
	if rng.Float64() < 1/chance {
		gained := p.Weight * (chance - 1)
		p.Weight *= chance
		return -gained
	}
	killed := p.Weight
	p.Weight = 0
	p.Terminate(Killed)
	return killed
}
