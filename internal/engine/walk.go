package engine

import (
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
	"github.com/lukaszgryglicki/tissuemc/internal/photon"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

// worker walks histories for one contiguous index range.
type worker struct {
	e      *Engine
	id     int
	s      *shard
	p      *photon.Photon
	volume bool

	exit database.ExitRecord
	coll database.CollisionRecord
	ev   detector.Exit
	dep  detector.Deposit
}

func (e *Engine) newWorker(id int, s *shard) *worker {
	return &worker{
		e:      e,
		id:     id,
		s:      s,
		p:      photon.New(len(e.regions), s.log),
		volume: s.dets.HasVolume(),
	}
}

// history simulates photon h on its own random stream.
func (w *worker) history(h uint64) error {
	e, p := w.e, w.p
	rng := rand.New(rand.NewPCG(e.opts.Seed, h))

	pos, dir := e.source.Launch(rng)
	region := e.tissue.Locate(pos)
	if region >= 0 && e.regions[region].Kind == tissue.AmbientAbove && dir.Z > 0 {
		// launched above the tissue: fly to the surface
		pos = pos.Add(dir.Mul((e.top - pos.Z) / dir.Z))
		pos.Z = e.top
		region = e.tissue.Locate(pos)
	}
	p.Reset(h, pos, dir, region)
	if region < 0 || e.regions[region].IsAmbient() {
		w.s.balance.Escaped += p.Weight
		p.Terminate(photon.Escaped)
		return nil
	}
	if pos.Z == e.top && dir.Z > 0 {
		w.specular()
	}
	p.SetState(photon.InFlight)

	needStep := true
	var step Real // remaining dimensionless step
	for p.Alive() {
		if p.NumCollisions >= e.opts.MaxCollisions {
			w.truncate()
			break
		}
		op := e.regions[p.Region].OP
		mu := op.Mut()
		if e.opts.AbsorptionWeighting == Continuous {
			mu = op.Mus
		}
		if needStep {
			step = photon.SampleStep(rng)
			needStep = false
		}
		free := math.Inf(1)
		if mu > 0 {
			free = step / mu
		}
		b := e.tissue.DistanceToBoundary(p.Pos, p.Dir, p.Region)

		if b.Distance <= free {
			if math.IsInf(b.Distance, 1) {
				// transparent region with no boundary ahead
				w.s.balance.Escaped += p.Weight
				p.Terminate(photon.Escaped)
				break
			}
			w.advance(b.Distance, op)
			if !p.Alive() {
				break
			}
			if mu > 0 {
				step = math.Max(0, step-b.Distance*mu)
			}
			if b.Distance == 0 {
				p.ZeroStepCrossings++
				if p.ZeroStepCrossings > e.opts.MaxZeroStepCrossings {
					w.truncate()
					break
				}
			} else {
				p.ZeroStepCrossings = 0
			}
			if err := w.cross(rng, b); err != nil {
				return err
			}
			continue
		}

		w.advance(free, op)
		if !p.Alive() {
			break
		}
		needStep = true
		p.ZeroStepCrossings = 0
		w.interact(rng, op)
		if p.Alive() && e.opts.AbsorptionWeighting != Analog {
			w.s.balance.RouletteNet += p.Roulette(rng, e.opts.RouletteThreshold, e.opts.RouletteChance)
		}
	}
	return nil
}

// specular removes the Fresnel fraction at the launch surface and refracts
// the launch direction into the tissue.
func (w *worker) specular() {
	p := w.p
	n1 := w.e.regions[0].OP.N
	n2 := w.e.regions[p.Region].OP.N
	if n1 == n2 {
		return
	}
	r, _ := geom.Fresnel(n1, n2, p.Dir.Z)
	if r > 0 {
		w.ev = detector.Exit{Kind: detector.Specular, Pos: p.Pos, Dir: geom.Reflect(p.Dir, geom.Vector3{Z: -1}), Weight: r}
		w.s.dets.TallyExit(&w.ev)
		w.s.balance.Specular += r
		p.Weight -= r
	}
	if t, ok := geom.Refract(p.Dir, geom.Vector3{Z: -1}, n1/n2); ok {
		p.Dir = t.Norm()
	}
}

// advance moves d inside a region with properties op. In CAW mode the
// weight is attenuated along the segment and the deposit is tallied at its
// midpoint with the track-length fluence estimator.
func (w *worker) advance(d Real, op tissue.OpticalProperties) {
	p := w.p
	if d <= 0 {
		return
	}
	if w.e.opts.AbsorptionWeighting != Continuous || op.Mua == 0 {
		if w.volume && w.e.opts.AbsorptionWeighting == Continuous {
			w.deposit(p.Pos.Add(p.Dir.Mul(d/2)), 0, p.Weight*d)
		}
		p.Move(d, op.N)
		return
	}
	w0 := p.Weight
	dw := w0 * -math.Expm1(-op.Mua*d)
	mid := p.Pos.Add(p.Dir.Mul(d / 2))
	p.Move(d, op.N)
	p.Weight = w0 - dw
	w.s.balance.Absorbed += dw
	if w.volume {
		w.deposit(mid, dw, dw/op.Mua)
	}
	if p.Weight <= 0 {
		p.Weight = 0
		p.Terminate(photon.Absorbed)
	}
}

func (w *worker) deposit(pos geom.Point3, absorbed, fluence Real) {
	w.dep = detector.Deposit{Pos: pos, Dir: w.p.Dir, Region: w.p.Region, Absorbed: absorbed, Fluence: fluence}
	w.s.dets.TallyDeposit(&w.dep)
}

// interact handles a collision: absorption per the weighting scheme, then
// Henyey-Greenstein scattering.
func (w *worker) interact(rng *rand.Rand, op tissue.OpticalProperties) {
	p := w.p
	mut := op.Mut()
	switch w.e.opts.AbsorptionWeighting {
	case Discrete:
		dw := p.Weight * op.Mua / mut
		if w.volume {
			w.deposit(p.Pos, dw, p.Weight/mut)
		}
		p.SetState(photon.Absorbing)
		p.Weight -= dw
		w.s.balance.Absorbed += dw
		if p.Weight <= 0 || op.Mus == 0 {
			w.s.balance.Absorbed += p.Weight
			p.Weight = 0
			p.Terminate(photon.Absorbed)
			return
		}
	case Analog:
		absorb := rng.Float64()*mut < op.Mua
		if absorb {
			if w.volume {
				w.deposit(p.Pos, p.Weight, p.Weight/mut)
			}
			w.s.balance.Absorbed += p.Weight
			p.Weight = 0
			p.Terminate(photon.Absorbed)
			return
		}
		if w.volume {
			w.deposit(p.Pos, 0, p.Weight/mut)
		}
	}
	p.SetState(photon.Scattering)
	p.Scatter(rng, op.G)
	p.SetState(photon.InFlight)
}

// cross applies Fresnel reflection or Snell refraction at boundary b.
func (w *worker) cross(rng *rand.Rand, b tissue.Boundary) error {
	p, e := w.p, w.e
	if b.Next == tissue.Escaped {
		w.s.balance.Escaped += p.Weight
		p.Terminate(photon.Escaped)
		return nil
	}
	if b.Next == p.Region {
		return nil
	}
	p.SetState(photon.CrossingBoundary)
	n1 := e.regions[p.Region].OP.N
	n2 := e.regions[b.Next].OP.N
	cosi := math.Abs(p.Dir.Dot(b.Normal))
	r, _ := geom.Fresnel(n1, n2, cosi)
	reflect := r >= 1 || (r > 0 && rng.Float64() < r)
	if reflect {
		p.Dir = geom.Reflect(p.Dir, b.Normal).Norm()
		p.SetState(photon.InFlight)
		return nil
	}
	if n1 != n2 {
		if t, ok := geom.Refract(p.Dir, b.Normal, n1/n2); ok {
			p.Dir = t.Norm()
		}
	}
	p.Region = b.Next
	next := e.regions[b.Next]
	if !next.IsAmbient() {
		p.SetState(photon.InFlight)
		return nil
	}
	kind := detector.Transmitted
	reason := photon.ExitedBottom
	state := database.ExitedBottom
	if next.Kind == tissue.AmbientAbove {
		kind, reason, state = detector.Reflected, photon.ExitedTop, database.ExitedTop
	}
	w.ev = detector.Exit{
		Kind: kind, Pos: p.Pos, Dir: p.Dir, Weight: p.Weight, Time: p.Time,
		PathLength: p.PathLength, Collisions: p.Collisions, MomentumTransfer: p.MomentumTransfer,
	}
	w.s.dets.TallyExit(&w.ev)
	if kind == detector.Reflected {
		w.s.balance.Reflected += p.Weight
	} else {
		w.s.balance.Transmitted += p.Weight
	}
	p.Terminate(reason)
	if e.recorder == nil {
		return nil
	}
	w.exit = database.ExitRecord{Index: p.Index, State: state, Pos: p.Pos, Dir: p.Dir, Weight: p.Weight, Time: p.Time}
	w.coll = database.CollisionRecord{Index: p.Index, PathLength: p.PathLength, Collisions: p.Collisions}
	return e.recorder.Write(w.id, &w.exit, &w.coll)
}

// truncate ends a history that hit a guard, keeping its weight accounted.
func (w *worker) truncate() {
	logging.DebugLogOnce("Photon %d truncated after %d collisions and %d zero-length crossings",
		w.p.Index, w.p.NumCollisions, w.p.ZeroStepCrossings)
	w.s.balance.Truncated += w.p.Weight
	w.p.Terminate(photon.Truncated)
}
