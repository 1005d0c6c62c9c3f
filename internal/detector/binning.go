package detector

import (
	"fmt"
	"math"
)

// Range is a set of Count equally spaced bin edges from Start to Stop, giving
// Count-1 bins.
type Range struct {
	Start Real `json:"start" yaml:"start"`
	Stop  Real `json:"stop" yaml:"stop"`
	Count int  `json:"count" yaml:"count"`
}

// NewRange is shorthand for Range{start, stop, count}.
func NewRange(start, stop Real, count int) Range {
	return Range{Start: start, Stop: stop, Count: count}
}

func (r Range) Validate() error {
	if r.Count < 2 {
		return fmt.Errorf("%w: range needs at least 2 edges, got %d", ErrInvalidDetector, r.Count)
	}
	if !(r.Stop > r.Start) || math.IsInf(r.Stop-r.Start, 0) {
		return fmt.Errorf("%w: range stop %g must be greater than start %g", ErrInvalidDetector, r.Stop, r.Start)
	}
	return nil
}

func (r Range) NumBins() int { return r.Count - 1 }

// Delta is the bin width.
func (r Range) Delta() Real { return (r.Stop - r.Start) / Real(r.Count-1) }

// Edges returns all Count edges.
func (r Range) Edges() []Real {
	e := make([]Real, r.Count)
	d := r.Delta()
	for i := range e {
		e[i] = r.Start + Real(i)*d
	}
	e[len(e)-1] = r.Stop
	return e
}

// Center of bin i.
func (r Range) Center(i int) Real { return r.Start + (Real(i)+0.5)*r.Delta() }

// Policy decides what happens to values outside a range.
type Policy uint8

const (
	Drop Policy = iota // value is not tallied
	Clip               // value goes to the nearest edge bin
)

func (p Policy) String() string {
	if p == Clip {
		return "clip"
	}
	return "drop"
}

// ParsePolicy accepts "", "drop" and "clip".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop", "Drop":
		return Drop, nil
	case "clip", "Clip":
		return Clip, nil
	}
	return Drop, fmt.Errorf("%w: unknown out-of-range policy %q", ErrInvalidDetector, s)
}

// Index maps v to a bin. Bins are half-open [e_i, e_{i+1}) except the last,
// which includes Stop.
func (r Range) Index(v Real, p Policy) (int, bool) {
	n := r.NumBins()
	if math.IsNaN(v) {
		return 0, false
	}
	if v < r.Start {
		if p == Clip {
			return 0, true
		}
		return 0, false
	}
	if v > r.Stop {
		if p == Clip {
			return n - 1, true
		}
		return 0, false
	}
	i := int((v - r.Start) / r.Delta())
	if i >= n {
		i = n - 1
	}
	return i, true
}
