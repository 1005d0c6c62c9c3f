package detector

import (
	"math"
	"slices"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

// Coord is the quantity an axis bins.
type Coord uint8

const (
	CoordRho Coord = iota
	CoordX
	CoordY
	CoordZ
	CoordTime
	CoordExitAngle  // angle between exit direction and the outward surface normal
	CoordPolarAngle // angle between direction and +z, [0,π]
)

// Measure is the geometric weight of a bin used in normalization.
type Measure uint8

const (
	Linear      Measure = iota // Δ
	Annulus                    // 2π ρ Δρ
	SolidAngle                 // 2π sinθ Δθ
	unitMeasure                // 1, for histogram count axes
)

type axis struct {
	name    string
	coord   Coord
	r       Range
	measure Measure
}

func (a axis) value(pos geom.Point3, dir geom.Vector3, time Real) Real {
	switch a.coord {
	case CoordRho:
		return pos.Rho()
	case CoordX:
		return pos.X
	case CoordY:
		return pos.Y
	case CoordZ:
		return pos.Z
	case CoordTime:
		return time
	case CoordExitAngle:
		return math.Acos(math.Min(1, math.Abs(dir.Z)))
	case CoordPolarAngle:
		return math.Acos(math.Max(-1, math.Min(1, dir.Z)))
	}
	return math.NaN()
}

// size is the measure of bin i.
func (a axis) size(i int) Real {
	d := a.r.Delta()
	switch a.measure {
	case Annulus:
		return 2 * math.Pi * a.r.Center(i) * d
	case SolidAngle:
		return 2 * math.Pi * math.Sin(a.r.Center(i)) * d
	case unitMeasure:
		return 1
	}
	return d
}

// hist holds raw weight sums (and optionally squared sums) over a grid.
type hist struct {
	dims   []int
	sum    []Real
	sum2   []Real
	policy Policy
}

func newHist(policy Policy, second bool, dims ...int) hist {
	n := 1
	for _, d := range dims {
		n *= d
	}
	h := hist{dims: dims, sum: make([]Real, n), policy: policy}
	if second {
		h.sum2 = make([]Real, n)
	}
	return h
}

func (h *hist) add(i int, w Real) {
	h.sum[i] += w
	if h.sum2 != nil {
		h.sum2[i] += w * w
	}
}

func (h *hist) empty() hist {
	return newHist(h.policy, h.sum2 != nil, slices.Clone(h.dims)...)
}

func (h *hist) merge(o *hist) bool {
	if !slices.Equal(h.dims, o.dims) || (h.sum2 == nil) != (o.sum2 == nil) {
		return false
	}
	for i, v := range o.sum {
		h.sum[i] += v
	}
	for i, v := range o.sum2 {
		h.sum2[i] += v
	}
	return true
}

// locate bins a sample along axes; ok is false when the policy drops it.
func locate(axes []axis, policy Policy, pos geom.Point3, dir geom.Vector3, time Real) (int, bool) {
	f := 0
	for _, a := range axes {
		i, ok := a.r.Index(a.value(pos, dir, time), policy)
		if !ok {
			return 0, false
		}
		f = f*a.r.NumBins() + i
	}
	return f, true
}

// normalize divides each bin by n and its measure along every axis. With
// second moments the standard error of the mean is attached.
func (h *hist) normalize(name, tallyType string, axes []axis, n uint64) *Result {
	res := &Result{Name: name, TallyType: tallyType, Mean: make([]Real, len(h.sum))}
	for _, a := range axes {
		res.Axes = append(res.Axes, Axis{Name: a.name, Edges: a.r.Edges()})
	}
	if h.sum2 != nil {
		res.StdErr = make([]Real, len(h.sum))
	}
	if n == 0 {
		return res
	}
	N := Real(n)
	idx := make([]int, len(axes))
	for f := range h.sum {
		rem := f
		for k := len(axes) - 1; k >= 0; k-- {
			nb := axes[k].r.NumBins()
			idx[k] = rem % nb
			rem /= nb
		}
		norm := 1.0
		for k, a := range axes {
			norm *= a.size(idx[k])
		}
		res.Mean[f] = h.sum[f] / (N * norm)
		if h.sum2 != nil {
			m := h.sum[f] / N
			v := h.sum2[f]/N - m*m
			if v < 0 {
				v = 0
			}
			res.StdErr[f] = math.Sqrt(v/N) / norm
		}
	}
	return res
}
