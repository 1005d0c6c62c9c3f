package engine

import (
	"fmt"
	"runtime"
)

// AbsorptionWeighting selects how absorption reduces photon weight.
type AbsorptionWeighting uint8

const (
	// Discrete deposits w·μa/μt at each collision (DAW).
	Discrete AbsorptionWeighting = iota
	// Continuous samples steps with μs and attenuates by exp(-μa·d) along
	// every segment (CAW).
	Continuous
	// Analog absorbs the whole photon with probability μa/μt at a collision.
	Analog
)

func (a AbsorptionWeighting) String() string {
	switch a {
	case Discrete:
		return "Discrete"
	case Continuous:
		return "Continuous"
	case Analog:
		return "Analog"
	}
	return fmt.Sprintf("AbsorptionWeighting(%d)", uint8(a))
}

// ParseAbsorptionWeighting accepts the infile spelling.
func ParseAbsorptionWeighting(s string) (AbsorptionWeighting, error) {
	switch s {
	case "", "Discrete", "discrete", "DAW":
		return Discrete, nil
	case "Continuous", "continuous", "CAW":
		return Continuous, nil
	case "Analog", "analog":
		return Analog, nil
	}
	return Discrete, fmt.Errorf("%w: unknown absorption weighting %q", ErrInvalidOptions, s)
}

const (
	DefaultRouletteThreshold    = 1e-4
	DefaultRouletteChance       = 10
	DefaultMaxCollisions        = 1_000_000
	DefaultMaxZeroStepCrossings = 128
)

// Options tune one transport run. Zero values take the defaults above.
type Options struct {
	Seed                 uint64
	AbsorptionWeighting  AbsorptionWeighting
	RouletteThreshold    Real
	RouletteChance       Real
	MaxCollisions        int
	MaxZeroStepCrossings int
	// Workers defaults to runtime.NumCPU(). Results are bit-identical for the
	// same Seed and Workers.
	Workers int
	// Progress logs "[PROGRESS] n%" every ~1% of histories.
	Progress bool
}

func (o Options) withDefaults() Options {
	if o.RouletteThreshold == 0 {
		o.RouletteThreshold = DefaultRouletteThreshold
	}
	if o.RouletteChance == 0 {
		o.RouletteChance = DefaultRouletteChance
	}
	if o.MaxCollisions == 0 {
		o.MaxCollisions = DefaultMaxCollisions
	}
	if o.MaxZeroStepCrossings == 0 {
		o.MaxZeroStepCrossings = DefaultMaxZeroStepCrossings
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

func (o Options) validate() error {
	if o.RouletteThreshold < 0 || o.RouletteThreshold >= 1 {
		return fmt.Errorf("%w: roulette threshold must be in [0,1), got %g", ErrInvalidOptions, o.RouletteThreshold)
	}
	if o.RouletteChance <= 1 {
		return fmt.Errorf("%w: roulette chance must be > 1, got %g", ErrInvalidOptions, o.RouletteChance)
	}
	if o.MaxCollisions < 1 || o.MaxZeroStepCrossings < 1 {
		return fmt.Errorf("%w: guards must be positive", ErrInvalidOptions)
	}
	return nil
}
