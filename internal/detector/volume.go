package detector

// Quantity selects which part of a Deposit a volume detector tallies.
type Quantity uint8

const (
	Absorption Quantity = iota
	Fluence
)

// Volume bins deposits over zero or more axes.
type Volume struct {
	name      string
	tallyType string
	quantity  Quantity
	axes      []axis
	h         hist
}

func newVolume(name, tallyType string, q Quantity, policy Policy, axes ...axis) *Volume {
	dims := make([]int, len(axes))
	for i, a := range axes {
		dims[i] = a.r.NumBins()
	}
	return &Volume{name: name, tallyType: tallyType, quantity: q, axes: axes, h: newHist(policy, false, dims...)}
}

func (v *Volume) Name() string      { return v.name }
func (v *Volume) TallyType() string { return v.tallyType }

func (v *Volume) TallyDeposit(d *Deposit) {
	w := d.Absorbed
	if v.quantity == Fluence {
		w = d.Fluence
	}
	if w == 0 {
		return
	}
	i, ok := locate(v.axes, v.h.policy, d.Pos, d.Dir, 0)
	if !ok {
		return
	}
	v.h.add(i, w)
}

func (v *Volume) Clone() Detector {
	return &Volume{name: v.name, tallyType: v.tallyType, quantity: v.quantity, axes: v.axes, h: v.h.empty()}
}

func (v *Volume) Merge(other Detector) error {
	o, ok := other.(*Volume)
	if !ok || o.tallyType != v.tallyType || !v.h.merge(&o.h) {
		return mergeMismatch(v, other)
	}
	return nil
}

func (v *Volume) Normalize(n uint64) *Result {
	return v.h.normalize(v.name, v.tallyType, v.axes, n)
}
