package source

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// BeamProfile is the radial launch distribution of a circular source.
type BeamProfile uint8

const (
	Flat BeamProfile = iota
	Gaussian
)

func (p BeamProfile) String() string {
	switch p {
	case Flat:
		return "Flat"
	case Gaussian:
		return "Gaussian"
	}
	return fmt.Sprintf("BeamProfile(%d)", uint8(p))
}

// ParseBeamProfile accepts the infile spelling of a profile.
func ParseBeamProfile(s string) (BeamProfile, error) {
	switch s {
	case "", "Flat", "flat":
		return Flat, nil
	case "Gaussian", "gaussian":
		return Gaussian, nil
	}
	return 0, fmt.Errorf("%w: unknown beam profile %q", ErrInvalidSource, s)
}

// AngularDistribution of directions launched from a circular source.
type AngularDistribution uint8

const (
	Collimated AngularDistribution = iota
	Lambertian
)

// ParseAngularDistribution accepts the infile spelling of a distribution.
func ParseAngularDistribution(s string) (AngularDistribution, error) {
	switch s {
	case "", "Collimated", "collimated":
		return Collimated, nil
	case "Lambertian", "lambertian":
		return Lambertian, nil
	}
	return 0, fmt.Errorf("%w: unknown angular distribution %q", ErrInvalidSource, s)
}

// Circular launches from a disk of OuterRadius (minus InnerRadius) centred at
// Center and perpendicular to Direction. A center below the surface makes it
// an embedded source.
type Circular struct {
	Center      geom.Point3
	Direction   geom.Vector3
	InnerRadius Real
	OuterRadius Real
	Profile     BeamProfile
	// BeamDiameterFWHM sets the width of the Gaussian profile.
	BeamDiameterFWHM Real
	Angular          AngularDistribution

	sigma Real
	u, v  geom.Vector3
}

// NewCircular validates a circular source.
func NewCircular(center geom.Point3, dir geom.Vector3, inner, outer Real, profile BeamProfile, fwhm Real, angular AngularDistribution) (*Circular, error) {
	n, ok := unitDirection(dir)
	if !ok {
		return nil, fmt.Errorf("%w: direction must be non-zero", ErrInvalidSource)
	}
	if !(outer > 0) || inner < 0 || inner >= outer {
		return nil, fmt.Errorf("%w: need 0 <= inner radius < outer radius, got %g, %g", ErrInvalidSource, inner, outer)
	}
	c := &Circular{
		Center: center, Direction: n,
		InnerRadius: inner, OuterRadius: outer,
		Profile: profile, BeamDiameterFWHM: fwhm, Angular: angular,
	}
	if profile == Gaussian {
		if !(fwhm > 0) {
			return nil, fmt.Errorf("%w: gaussian profile needs beam diameter FWHM > 0", ErrInvalidSource)
		}
		c.sigma = fwhm / (2 * math.Sqrt(2*math.Ln2))
	}
	c.u, c.v = orthonormal2(n)
	logging.DebugLog("Created circular source %+v", c)
	return c, nil
}

// sampleRadius draws the launch radius for the profile.
func (c *Circular) sampleRadius(rng *rand.Rand) Real {
	ri2, ro2 := c.InnerRadius*c.InnerRadius, c.OuterRadius*c.OuterRadius
	if c.Profile == Flat {
		return math.Sqrt(ri2 + rng.Float64()*(ro2-ri2))
	}
	// 2-D gaussian truncated to the annulus: r^2 is exponential with mean 2σ²
	s2 := 2 * c.sigma * c.sigma
	a := math.Exp(-ri2 / s2)
	b := math.Exp(-ro2 / s2)
	return math.Sqrt(-s2 * math.Log(a-rng.Float64()*(a-b)))
}

func (c *Circular) Launch(rng *rand.Rand) (geom.Point3, geom.Vector3) {
	r := c.sampleRadius(rng)
	phi := 2 * math.Pi * rng.Float64()
	off := c.u.Mul(r * math.Cos(phi)).Add(c.v.Mul(r * math.Sin(phi)))
	pos := c.Center.Add(off)
	if c.Angular == Lambertian {
		return pos, sampleLambertian(rng, c.Direction, c.u, c.v)
	}
	return pos, c.Direction
}
