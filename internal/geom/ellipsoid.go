package geom

import "math"

// Ellipsoid is axis-aligned with semi-axes Radii around Center.
type Ellipsoid struct {
	Center Point3
	Radii  Vector3
}

// Contains reports whether p lies strictly inside the ellipsoid.
func (e Ellipsoid) Contains(p Point3) bool {
	s := e.toUnit(p.Sub(e.Center))
	return s.Dot(s) < 1
}

func (e Ellipsoid) toUnit(v Vector3) Vector3 {
	return Vector3{v.X / e.Radii.X, v.Y / e.Radii.Y, v.Z / e.Radii.Z}
}

// Roots returns the ordered parametric distances t0 <= t1 at which the line
// O + t*D crosses the surface.
// Unit-sphere coords: s = (x - C) / Radii; solve ||s_o + t s_d||^2 = 1.
func (e Ellipsoid) Roots(O Point3, D Vector3) (t0, t1 Real, ok bool) {
	Os := e.toUnit(O.Sub(e.Center))
	Ds := e.toUnit(D)

	a := Ds.Dot(Ds)
	b := 2 * Os.Dot(Ds)
	c := Os.Dot(Os) - 1
	disc := b*b - 4*a*c
	if a == 0 || disc < 0 {
		return 0, 0, false
	}
	sqrtD := math.Sqrt(disc)
	inv2a := 1 / (2 * a)
	t0 = (-b - sqrtD) * inv2a
	t1 = (-b + sqrtD) * inv2a
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	return t0, t1, true
}

// Normal returns the outward unit normal at surface point p.
func (e Ellipsoid) Normal(p Point3) Vector3 {
	S := e.toUnit(p.Sub(e.Center))
	return Vector3{S.X / e.Radii.X, S.Y / e.Radii.Y, S.Z / e.Radii.Z}.Norm()
}

// MinZ and MaxZ bound the ellipsoid along z.
func (e Ellipsoid) MinZ() Real { return e.Center.Z - e.Radii.Z }
func (e Ellipsoid) MaxZ() Real { return e.Center.Z + e.Radii.Z }
