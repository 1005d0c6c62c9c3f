package detector

import (
	"github.com/lukaszgryglicki/tissuemc/internal/photon"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

// subregionAxis labels tissue regions by ordinal 0..k-1 with unit measure.
func subregionAxis(k int) axis {
	return axis{name: "subregion", r: Range{Start: 0, Stop: Real(k), Count: k + 1}, measure: Linear}
}

func tissueSubregions(regions []tissue.Region) (ids []int, n []Real) {
	for i, r := range regions {
		if r.IsAmbient() {
			continue
		}
		ids = append(ids, i)
		n = append(n, r.OP.N)
	}
	return ids, n
}

// SubregionHist tallies reflected photons by exit radius and a per-region
// history quantity: time of flight spent in each region
// (ReflectedTimeOfRhoAndSubregionHist) or momentum transfer
// (ReflectedMTOfRhoAndSubregionHist). The main result bins the total over
// all regions; Extra[0] bins each region separately.
type SubregionHist struct {
	name      string
	tallyType string
	rho       axis
	value     axis
	ids       []int
	n         []Real
	momentum  bool

	total hist // [rho][value]
	sub   hist // [rho][subregion][value]
}

func newSubregionHist(name, tallyType string, rho, value axis, regions []tissue.Region, momentum bool, policy Policy) *SubregionHist {
	ids, n := tissueSubregions(regions)
	return &SubregionHist{
		name: name, tallyType: tallyType,
		rho: rho, value: value,
		ids: ids, n: n, momentum: momentum,
		total: newHist(policy, false, rho.r.NumBins(), value.r.NumBins()),
		sub:   newHist(policy, false, rho.r.NumBins(), len(ids), value.r.NumBins()),
	}
}

func (h *SubregionHist) Name() string      { return h.name }
func (h *SubregionHist) TallyType() string { return h.tallyType }

func (h *SubregionHist) regionValue(e *Exit, k int) (Real, bool) {
	id := h.ids[k]
	if h.momentum {
		if id >= len(e.MomentumTransfer) || e.Collisions[id] == 0 {
			return 0, false
		}
		return e.MomentumTransfer[id], true
	}
	if id >= len(e.PathLength) || e.PathLength[id] == 0 {
		return 0, false
	}
	return e.PathLength[id] * h.n[k] / photon.C, true
}

func (h *SubregionHist) TallyExit(e *Exit) {
	if e.Kind != Reflected || e.Weight == 0 {
		return
	}
	ir, ok := h.rho.r.Index(e.Pos.Rho(), h.total.policy)
	if !ok {
		return
	}
	nv := h.value.r.NumBins()
	total := 0.0
	for k := range h.ids {
		v, visited := h.regionValue(e, k)
		if !visited {
			continue
		}
		total += v
		if iv, ok := h.value.r.Index(v, h.sub.policy); ok {
			h.sub.add((ir*len(h.ids)+k)*nv+iv, e.Weight)
		}
	}
	if !h.momentum {
		total = e.Time
	}
	if iv, ok := h.value.r.Index(total, h.total.policy); ok {
		h.total.add(ir*nv+iv, e.Weight)
	}
}

func (h *SubregionHist) Clone() Detector {
	c := *h
	c.total = h.total.empty()
	c.sub = h.sub.empty()
	return &c
}

func (h *SubregionHist) Merge(other Detector) error {
	o, ok := other.(*SubregionHist)
	if !ok || o.tallyType != h.tallyType || !h.total.merge(&o.total) || !h.sub.merge(&o.sub) {
		return mergeMismatch(h, other)
	}
	return nil
}

// Normalize divides by n and the annulus area only; the value axis is a
// histogram of counts.
func (h *SubregionHist) Normalize(n uint64) *Result {
	value := unitWidth(h.value)
	res := h.total.normalize(h.name, h.tallyType, []axis{h.rho, value}, n)
	sub := h.sub.normalize(h.name+"_Subregion", h.tallyType, []axis{h.rho, unitWidth(subregionAxis(len(h.ids))), value}, n)
	res.Extra = append(res.Extra, sub)
	return res
}

// unitWidth keeps the edges of a but makes every bin measure 1.
func unitWidth(a axis) axis {
	a.measure = unitMeasure
	return a
}
