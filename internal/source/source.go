// Package source launches photons: each Source returns the initial position
// and unit direction of one history from the history's own random stream.
package source

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// ErrInvalidSource is returned for source definitions that cannot launch.
var ErrInvalidSource = errors.New("invalid source")

// Source samples launch states.
type Source interface {
	Launch(rng *rand.Rand) (geom.Point3, geom.Vector3)
}

// orthonormal2 returns two unit vectors orthogonal to unit a and to each other.
func orthonormal2(a geom.Vector3) (u, v geom.Vector3) {
	h := geom.Vector3{X: 1}
	if math.Abs(a.X) > 0.9 {
		h = geom.Vector3{Y: 1}
	}
	u = h.Sub(a.Mul(h.Dot(a))).Norm()
	v = a.Cross(u)
	return u, v
}

// sampleS2 is Marsaglia's uniform point on the unit sphere.
func sampleS2(rng *rand.Rand) geom.Vector3 {
	for {
		u := 2*rng.Float64() - 1
		v := 2*rng.Float64() - 1
		s := u*u + v*v
		if s > 0 && s < 1 {
			f := 2 * math.Sqrt(1-s)
			return geom.Vector3{X: u * f, Y: v * f, Z: 1 - 2*s}
		}
	}
}

// sampleCone draws a direction uniform in solid angle within half-angle
// around unit axis. oneMinusCos = 1 - cos(half-angle).
func sampleCone(rng *rand.Rand, axis, u, v geom.Vector3, oneMinusCos Real) geom.Vector3 {
	if oneMinusCos == 0 {
		return axis
	}
	cost := 1 - rng.Float64()*oneMinusCos
	sint := math.Sqrt(math.Max(0, 1-cost*cost))
	phi := 2 * math.Pi * rng.Float64()
	return axis.Mul(cost).Add(u.Mul(sint * math.Cos(phi))).Add(v.Mul(sint * math.Sin(phi))).Norm()
}

// sampleLambertian draws a cosine-weighted direction on the hemisphere around
// unit axis (uniform point on the unit disk lifted to the hemisphere).
func sampleLambertian(rng *rand.Rand, axis, u, v geom.Vector3) geom.Vector3 {
	r := math.Sqrt(rng.Float64())
	phi := 2 * math.Pi * rng.Float64()
	tx, ty := r*math.Cos(phi), r*math.Sin(phi)
	nn := math.Sqrt(math.Max(0, 1-r*r))
	return u.Mul(tx).Add(v.Mul(ty)).Add(axis.Mul(nn)).Norm()
}

func unitDirection(d geom.Vector3) (geom.Vector3, bool) {
	l := d.Len()
	if l == 0 || !geom.IsFinite(l) {
		return geom.Vector3{}, false
	}
	return d.Mul(1 / l), true
}
