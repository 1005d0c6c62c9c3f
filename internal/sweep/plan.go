// Package sweep expands one infile into a series of runs that vary a single
// parameter, and runs them in parallel.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// ErrInvalidSweepRange is returned for counts below one and zero or
// ill-signed deltas.
var ErrInvalidSweepRange = errors.New("invalid sweep range")

// deltaTolerance absorbs rounding in (stop-start)/delta.
const deltaTolerance = 1e-9

// Plan is the ordered list of values one parameter takes.
type Plan struct {
	Parameter string
	Values    []Real
}

// NewPlan spaces count values evenly over [start, stop]. A count of one
// yields start alone.
func NewPlan(parameter string, start, stop Real, count int) (*Plan, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be >= 1, got %d", ErrInvalidSweepRange, count)
	}
	if !geom.IsFinite(start) || !geom.IsFinite(stop) {
		return nil, fmt.Errorf("%w: start and stop must be finite", ErrInvalidSweepRange)
	}
	values := make([]Real, count)
	values[0] = start
	for i := 1; i < count; i++ {
		values[i] = start + Real(i)*(stop-start)/Real(count-1)
	}
	if count > 1 {
		values[count-1] = stop
	}
	return &Plan{Parameter: parameter, Values: values}, nil
}

// NewDeltaPlan steps from start by delta without passing stop.
func NewDeltaPlan(parameter string, start, stop, delta Real) (*Plan, error) {
	if !geom.IsFinite(start) || !geom.IsFinite(stop) || !geom.IsFinite(delta) {
		return nil, fmt.Errorf("%w: start, stop and delta must be finite", ErrInvalidSweepRange)
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrInvalidSweepRange)
	}
	span := stop - start
	if span*delta < 0 {
		return nil, fmt.Errorf("%w: delta %g does not lead from %g to %g", ErrInvalidSweepRange, delta, start, stop)
	}
	n := span / delta
	count := int(math.Floor(n+deltaTolerance*math.Max(1, math.Abs(n)))) + 1
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be >= 1, got %d", ErrInvalidSweepRange, count)
	}
	values := make([]Real, count)
	for i := range values {
		values[i] = start + Real(i)*delta
	}
	return &Plan{Parameter: parameter, Values: values}, nil
}

// Parse reads "param,start,stop,count", or "param,start,stop,delta" when
// byDelta is set.
func Parse(s string, byDelta bool) (*Plan, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: expected parameter,start,stop,%s; got %q", ErrInvalidSweepRange, stepName(byDelta), s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	nums := make([]Real, 3)
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSweepRange, p, err)
		}
		nums[i] = v
	}
	if byDelta {
		return NewDeltaPlan(parts[0], nums[0], nums[1], nums[2])
	}
	if nums[2] != math.Trunc(nums[2]) {
		return nil, fmt.Errorf("%w: count must be an integer, got %s", ErrInvalidSweepRange, parts[3])
	}
	return NewPlan(parts[0], nums[0], nums[1], int(nums[2]))
}

func stepName(byDelta bool) string {
	if byDelta {
		return "delta"
	}
	return "count"
}

// FormatValue renders a swept value for folder names: rounded to 12
// significant digits, shortest decimal form.
func FormatValue(v Real) string {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 12, 64), 64)
	if err != nil {
		r = v
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
