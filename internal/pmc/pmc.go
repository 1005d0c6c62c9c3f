// Package pmc reweights stored photon histories for new optical properties
// (perturbation Monte Carlo) and re-tallies them through the detectors.
package pmc

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lukaszgryglicki/tissuemc/internal/database"
	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/photon"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

type Real = geom.Real

// ErrInvalidPerturbation is returned when base and perturbed properties do
// not describe the same tissue.
var ErrInvalidPerturbation = errors.New("invalid perturbation")

// Prefix marks a perturbation detector tally type, e.g. pMCROfRho.
const Prefix = "pMC"

// Reweighter holds per-region base and perturbed properties.
type Reweighter struct {
	base, perturbed []tissue.OpticalProperties
}

// NewReweighter pairs the properties a database was generated with and the
// properties to evaluate. Only μa and μs may change.
func NewReweighter(base, perturbed []tissue.OpticalProperties) (*Reweighter, error) {
	if len(base) != len(perturbed) {
		return nil, fmt.Errorf("%w: %d base regions, %d perturbed", ErrInvalidPerturbation, len(base), len(perturbed))
	}
	for i := range base {
		if err := perturbed[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: region %d: %v", ErrInvalidPerturbation, i, err)
		}
		if base[i].N != perturbed[i].N || base[i].G != perturbed[i].G {
			return nil, fmt.Errorf("%w: region %d: only mua and mus can be perturbed", ErrInvalidPerturbation, i)
		}
	}
	return &Reweighter{base: base, perturbed: perturbed}, nil
}

// Factor is the weight multiplier of one history:
// Π_i (μs'_i/μs_i)^{k_i} · exp(-(Δμa_i + Δμs_i)·L_i).
func (r *Reweighter) Factor(c *database.CollisionRecord) Real {
	f := 1.0
	for i := range r.base {
		if i >= len(c.PathLength) {
			break
		}
		b, p := r.base[i], r.perturbed[i]
		if k := c.Collisions[i]; k > 0 {
			f *= math.Pow(p.Mus/b.Mus, Real(k))
		}
		if l := c.PathLength[i]; l > 0 {
			f *= math.Exp(-((p.Mua - b.Mua) + (p.Mus - b.Mus)) * l)
		}
	}
	return f
}

// Weight is the perturbed weight of a stored exit.
func (r *Reweighter) Weight(e *database.ExitRecord, c *database.CollisionRecord) Real {
	return e.Weight * r.Factor(c)
}

// TimeOfFlight recomputes Σ L_i·n_i/c from a collision record.
func TimeOfFlight(c *database.CollisionRecord, regions []tissue.OpticalProperties) Real {
	t := 0.0
	for i, l := range c.PathLength {
		if i < len(regions) {
			t += l * regions[i].N / photon.C
		}
	}
	return t
}

// DetectorConfig maps a pMC tally type to the detector that re-tallies it.
func DetectorConfig(c detector.Config) (detector.Config, error) {
	tt, ok := strings.CutPrefix(c.TallyType, Prefix)
	if !ok {
		return c, fmt.Errorf("%w: %q is not a perturbation tally type", detector.ErrInvalidDetector, c.TallyType)
	}
	switch tt {
	case detector.ROfRhoType, detector.ROfRhoAndTimeType:
	default:
		return c, fmt.Errorf("%w: %q cannot be re-tallied from a database", detector.ErrInvalidDetector, c.TallyType)
	}
	if c.Name == "" {
		c.Name = c.TallyType
	}
	c.TallyType = tt
	return c, nil
}

// Run reweights every stored reflected history of db and tallies it into the
// given pMC detectors, normalized by the n photons of the unperturbed run.
func Run(db *database.Database, rw *Reweighter, cfgs []detector.Config, n uint64) ([]*detector.Result, error) {
	if len(rw.base) != db.Regions {
		return nil, fmt.Errorf("%w: database has %d regions, perturbation %d", ErrInvalidPerturbation, db.Regions, len(rw.base))
	}
	mapped := make([]detector.Config, len(cfgs))
	for i, c := range cfgs {
		m, err := DetectorConfig(c)
		if err != nil {
			return nil, err
		}
		mapped[i] = m
	}
	set, err := detector.NewSet(mapped, nil)
	if err != nil {
		return nil, err
	}
	var ev detector.Exit
	for i := range db.Exits {
		e, c := &db.Exits[i], &db.Collisions[i]
		if e.State != database.ExitedTop {
			continue
		}
		ev = detector.Exit{Kind: detector.Reflected, Pos: e.Pos, Dir: e.Dir, Weight: rw.Weight(e, c), Time: e.Time, PathLength: c.PathLength, Collisions: c.Collisions}
		set.TallyExit(&ev)
	}
	return set.Normalize(n), nil
}
