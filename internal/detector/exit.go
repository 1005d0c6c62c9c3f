package detector

// Surface bins exit events of one kind over zero or more axes. Zero axes
// gives a scalar total such as RDiffuse.
type Surface struct {
	name      string
	tallyType string
	kind      ExitKind
	axes      []axis
	h         hist
}

func newSurface(name, tallyType string, kind ExitKind, policy Policy, second bool, axes ...axis) *Surface {
	dims := make([]int, len(axes))
	for i, a := range axes {
		dims[i] = a.r.NumBins()
	}
	return &Surface{name: name, tallyType: tallyType, kind: kind, axes: axes, h: newHist(policy, second, dims...)}
}

func (s *Surface) Name() string      { return s.name }
func (s *Surface) TallyType() string { return s.tallyType }

func (s *Surface) TallyExit(e *Exit) {
	if e.Kind != s.kind || e.Weight == 0 {
		return
	}
	i, ok := locate(s.axes, s.h.policy, e.Pos, e.Dir, e.Time)
	if !ok {
		return
	}
	s.h.add(i, e.Weight)
}

func (s *Surface) Clone() Detector {
	return &Surface{name: s.name, tallyType: s.tallyType, kind: s.kind, axes: s.axes, h: s.h.empty()}
}

func (s *Surface) Merge(other Detector) error {
	o, ok := other.(*Surface)
	if !ok || o.tallyType != s.tallyType || !s.h.merge(&o.h) {
		return mergeMismatch(s, other)
	}
	return nil
}

func (s *Surface) Normalize(n uint64) *Result {
	return s.h.normalize(s.name, s.tallyType, s.axes, n)
}
