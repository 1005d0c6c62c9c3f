package geom

import "math"

// Real is the scalar type used throughout the simulation.
type Real = float64

// Vector3 represents a direction (not a position) in 3D space.
type Vector3 struct {
	X Real `json:"x" yaml:"x"`
	Y Real `json:"y" yaml:"y"`
	Z Real `json:"z" yaml:"z"`
}

// Vector functions
func (a Vector3) Add(b Vector3) Vector3 { return Vector3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vector3) Sub(b Vector3) Vector3 { return Vector3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (v Vector3) Mul(s Real) Vector3    { return Vector3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product between two vectors.
func (a Vector3) Dot(b Vector3) Real {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Cross returns a × b.
func (a Vector3) Cross(b Vector3) Vector3 {
	return Vector3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Len returns the Euclidean length of the vector.
func (v Vector3) Len() Real { return math.Sqrt(v.Dot(v)) }

// Norm returns a unit-length version of the vector.
func (v Vector3) Norm() Vector3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vector3{v.X / l, v.Y / l, v.Z / l}
}

// Point3 represents a point in 3D space.
type Point3 struct {
	X Real `json:"x" yaml:"x"`
	Y Real `json:"y" yaml:"y"`
	Z Real `json:"z" yaml:"z"`
}

// Add lets you translate a Point3 by a Vector3.
func (p Point3) Add(v Vector3) Point3 {
	return Point3{p.X + v.X, p.Y + v.Y, p.Z + v.Z}
}

// Sub returns the vector from q to p.
func (p Point3) Sub(q Point3) Vector3 {
	return Vector3{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Rho is the lateral distance from the z axis.
func (p Point3) Rho() Real { return math.Hypot(p.X, p.Y) }

func IsFinite(x Real) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }
