package photon

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

func newRng() *rand.Rand { return rand.New(rand.NewPCG(42, 7)) }

func TestSampleHGIsotropicUniformCosine(t *testing.T) {
	rng := newRng()
	const n = 200000
	var bins [10]int
	sum := 0.0
	for i := 0; i < n; i++ {
		c := SampleHG(rng, 0)
		if c < -1 || c > 1 {
			t.Fatalf("cosine out of range: %g", c)
		}
		sum += c
		b := int((c + 1) / 2 * 10)
		if b == 10 {
			b = 9
		}
		bins[b]++
	}
	if m := sum / n; math.Abs(m) > 0.01 {
		t.Fatalf("mean cosine %.4f, want 0", m)
	}
	for i, c := range bins {
		if f := float64(c) / n; math.Abs(f-0.1) > 0.005 {
			t.Fatalf("bin %d fraction %.4f, want 0.1", i, f)
		}
	}
}

func TestSampleHGMeanCosineIsG(t *testing.T) {
	for _, g := range []float64{-0.5, 0.3, 0.8, 0.9} {
		rng := newRng()
		const n = 200000
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += SampleHG(rng, g)
		}
		if m := sum / n; math.Abs(m-g) > 0.01 {
			t.Fatalf("g=%g: mean cosine %.4f", g, m)
		}
	}
}

func TestSampleHGForwardPeaked(t *testing.T) {
	rng := newRng()
	const n = 10000
	near := 0
	for i := 0; i < n; i++ {
		if SampleHG(rng, 0.99) > 0.9 {
			near++
		}
	}
	if f := float64(near) / n; f < 0.95 {
		t.Fatalf("g=0.99 fraction with cos>0.9 is %.3f, want >= 0.95", f)
	}
}

func TestRotatePreservesAngle(t *testing.T) {
	rng := newRng()
	dirs := []geom.Vector3{{Z: 1}, {Z: -1}, geom.Vector3{X: 1, Y: 2, Z: 3}.Norm(), {X: 1}}
	for _, d := range dirs {
		for i := 0; i < 100; i++ {
			cost := 2*rng.Float64() - 1
			out := Rotate(d, cost, 2*math.Pi*rng.Float64())
			if math.Abs(out.Len()-1) > 1e-9 {
				t.Fatalf("rotated direction not unit: %g", out.Len())
			}
			if math.Abs(out.Dot(d)-cost) > 1e-9 {
				t.Fatalf("deflection cosine %g, want %g", out.Dot(d), cost)
			}
		}
	}
}

func TestIsotropicScatterAlongZGoesBothWays(t *testing.T) {
	rng := newRng()
	const n = 100000
	for _, uz := range []Real{1, -1} {
		p := New(3, nil)
		back := 0
		for i := 0; i < n; i++ {
			p.Reset(uint64(i), geom.Point3{}, geom.Vector3{Z: uz}, 1)
			p.Scatter(rng, 0)
			if p.Dir.Z*uz < 0 {
				back++
			}
		}
		if f := float64(back) / n; math.Abs(f-0.5) > 0.01 {
			t.Fatalf("uz=%g: backward fraction %.4f, want ~0.5", uz, f)
		}
	}
}

func TestMoveAccumulatesPathAndTime(t *testing.T) {
	p := New(3, nil)
	p.Reset(5, geom.Point3{}, geom.Vector3{Z: 1}, 1)
	p.Move(2, 1.4)
	p.Move(0, 1.4)
	if p.Pos.Z != 2 || p.PathLength[1] != 2 {
		t.Fatalf("move wrong: %+v", p)
	}
	if want := 2 * 1.4 / C; math.Abs(p.Time-want) > 1e-15 {
		t.Fatalf("time %g, want %g", p.Time, want)
	}
	p.Reset(6, geom.Point3{}, geom.Vector3{Z: 1}, 1)
	if p.PathLength[1] != 0 || p.Time != 0 || p.Weight != 1 || p.Index != 6 {
		t.Fatalf("reset did not clear: %+v", p)
	}
}

func TestScatterRecordsCollision(t *testing.T) {
	p := New(3, nil)
	p.Reset(0, geom.Point3{}, geom.Vector3{Z: 1}, 1)
	p.Scatter(newRng(), 0.8)
	if p.Collisions[1] != 1 || p.NumCollisions != 1 {
		t.Fatalf("collision not counted: %+v", p.Collisions)
	}
	if mt := p.MomentumTransfer[1]; mt < 0 || mt > 2 {
		t.Fatalf("momentum transfer %g out of [0,2]", mt)
	}
}

func TestRouletteConservesExpectedWeight(t *testing.T) {
	rng := newRng()
	p := New(1, nil)
	const n = 100000
	const w0 = 5e-5
	survived, sum, net := 0, 0.0, 0.0
	for i := 0; i < n; i++ {
		p.Reset(uint64(i), geom.Point3{}, geom.Vector3{Z: 1}, 0)
		p.Weight = w0
		net += p.Roulette(rng, 1e-4, 10)
		if p.Alive() {
			survived++
			if p.Weight != w0*10 {
				t.Fatalf("survivor weight %g", p.Weight)
			}
		} else if p.Reason != Killed || p.Weight != 0 {
			t.Fatalf("killed photon state wrong: %+v", p)
		}
		sum += p.Weight
	}
	if f := float64(survived) / n; math.Abs(f-0.1) > 0.005 {
		t.Fatalf("survival fraction %.4f, want 0.1", f)
	}
	// ledger closes exactly: final + net == initial
	if math.Abs(sum+net-n*w0) > 1e-12 {
		t.Fatalf("ledger off: final %g net %g initial %g", sum, net, n*w0)
	}
	p.Reset(0, geom.Point3{}, geom.Vector3{Z: 1}, 0)
	p.Weight = 0.5
	if d := p.Roulette(rng, 1e-4, 10); d != 0 || p.Weight != 0.5 {
		t.Fatal("roulette must not touch weights above threshold")
	}
}

func TestTransitionLog(t *testing.T) {
	l := NewTransitionLog()
	p := New(2, l)
	p.Reset(0, geom.Point3{}, geom.Vector3{Z: 1}, 1)
	p.SetState(InFlight)
	p.SetState(Scattering)
	p.SetState(InFlight)
	p.Terminate(ExitedTop)
	if l.Count(Launched, InFlight) != 1 || l.Count(Scattering, InFlight) != 1 || l.Count(InFlight, Terminated) != 1 {
		t.Fatalf("transition counts wrong")
	}
	other := NewTransitionLog()
	other.Merge(l)
	other.Merge(l)
	if other.Launched() != 2 || other.Terminations(ExitedTop) != 2 {
		t.Fatalf("merge wrong: launched=%d", other.Launched())
	}
}
