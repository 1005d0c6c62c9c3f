package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lukaszgryglicki/tissuemc/internal/input"
)

// Parameter names. Layer parameters take a 1-based tissue layer suffix,
// e.g. mua1 or d2.
const (
	Mua       = "mua"
	Mus       = "mus"
	G         = "g"
	N         = "n"
	Thickness = "d"
	NPhot     = "nphot"
	Seed      = "seed"
)

// splitLayer separates a layer parameter into its kind and 0-based layer.
func splitLayer(name string) (kind string, layer int, ok bool) {
	for _, k := range []string{Mua, Mus, G, N, Thickness} {
		rest, found := strings.CutPrefix(name, k)
		if !found || rest == "" {
			continue
		}
		i, err := strconv.Atoi(rest)
		if err != nil || i < 1 {
			return "", 0, false
		}
		return k, i - 1, true
	}
	return "", 0, false
}

func wholeNumber(v Real) bool { return v >= 0 && v == math.Trunc(v) && v <= math.MaxInt64 }

// Apply sets parameter to v on in.
func Apply(in *input.SimulationInput, parameter string, v Real) error {
	switch parameter {
	case NPhot:
		if !wholeNumber(v) || v < 1 {
			return fmt.Errorf("%w: nphot must be a positive integer, got %g", input.ErrInvalidInput, v)
		}
		in.N = uint64(v)
		return nil
	case Seed:
		if !wholeNumber(v) {
			return fmt.Errorf("%w: seed must be a non-negative integer, got %g", input.ErrInvalidInput, v)
		}
		in.Options.Seed = uint64(v)
		return nil
	}
	kind, layer, ok := splitLayer(parameter)
	if !ok {
		return fmt.Errorf("%w: unknown sweep parameter %q", input.ErrInvalidInput, parameter)
	}
	if layer >= len(in.Tissue.Layers) {
		return fmt.Errorf("%w: %s: tissue has %d layers", input.ErrInvalidInput, parameter, len(in.Tissue.Layers))
	}
	l := &in.Tissue.Layers[layer]
	switch kind {
	case Mua:
		l.Mua = v
	case Mus:
		l.Mus = v
	case G:
		l.G = v
	case N:
		l.N = v
	case Thickness:
		l.Thickness = v
	}
	return nil
}

// OutputName is the destination of one sweep iteration.
func OutputName(base, parameter string, v Real) string {
	return fmt.Sprintf("%s_%s_%s", base, parameter, FormatValue(v))
}

// Expand returns one independent copy of base per plan value, each with the
// parameter applied and its own output name. base is not modified.
func Expand(base *input.SimulationInput, plan *Plan) ([]*input.SimulationInput, error) {
	if plan == nil || len(plan.Values) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidSweepRange)
	}
	out := make([]*input.SimulationInput, 0, len(plan.Values))
	for _, v := range plan.Values {
		in := base.Clone()
		if err := Apply(in, plan.Parameter, v); err != nil {
			return nil, err
		}
		in.OutputName = OutputName(base.OutputName, plan.Parameter, v)
		out = append(out, in)
	}
	return out, nil
}
