package photon

import (
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

// isotropicG is the |g| below which scattering is treated as isotropic.
const isotropicG = 1e-6

// SampleHG returns the cosine of the deflection angle drawn from the
// Henyey-Greenstein phase function by analytic inversion.
func SampleHG(rng *rand.Rand, g Real) Real {
	u := rng.Float64()
	if math.Abs(g) < isotropicG {
		return 2*u - 1
	}
	t := (1 - g*g) / (1 - g + 2*g*u)
	cost := (1 + g*g - t*t) / (2 * g)
	return math.Max(-1, math.Min(1, cost))
}

// Rotate deflects unit d by polar cosine cost and azimuth phi.
func Rotate(d geom.Vector3, cost, phi Real) geom.Vector3 {
	sint := math.Sqrt(math.Max(0, 1-cost*cost))
	cosp, sinp := math.Cos(phi), math.Sin(phi)
	if math.Abs(d.Z) > 1-1e-10 {
		// along z: lab frame, mirrored for -z
		sgn := math.Copysign(1, d.Z)
		return geom.Vector3{X: sint * cosp, Y: sgn * sint * sinp, Z: sgn * cost}
	}
	tmp := math.Sqrt(1 - d.Z*d.Z)
	out := geom.Vector3{
		X: sint*(d.X*d.Z*cosp-d.Y*sinp)/tmp + d.X*cost,
		Y: sint*(d.Y*d.Z*cosp+d.X*sinp)/tmp + d.Y*cost,
		Z: -sint*cosp*tmp + d.Z*cost,
	}
	return out.Norm()
}

// SampleStep draws a dimensionless free path -ln(u), u in (0,1].
func SampleStep(rng *rand.Rand) Real {
	return -math.Log(1 - rng.Float64())
}
