package geom

import "math"

// Reflect mirrors I about the plane with unit normal N.
func Reflect(I, N Vector3) Vector3 {
	return I.Sub(N.Mul(2 * I.Dot(N)))
}

// Refract bends unit I through the interface with unit normal N.
// Contract: eta must be n1/n2 for the *current* interface (incident side over
// transmitted side). N may point either way. Returns false on total internal
// reflection.
func Refract(I, N Vector3, eta Real) (Vector3, bool) {
	n := N
	cosi := I.Dot(N)
	if cosi > 0 {
		n = N.Mul(-1)
	} else {
		cosi = -cosi
	}
	if cosi > 1 {
		cosi = 1
	}
	k := 1 - eta*eta*(1-cosi*cosi)
	if k < 0 {
		return Vector3{}, false
	}
	T := I.Mul(eta).Add(n.Mul(eta*cosi - math.Sqrt(k)))
	return T, true
}

// Fresnel returns the unpolarized reflectance for light travelling from
// index n1 into n2 with incidence cosine cosi (≥0), together with the cosine
// of the transmitted angle. Total internal reflection yields R=1, cost=0.
func Fresnel(n1, n2, cosi Real) (r, cost Real) {
	if cosi > 1 {
		cosi = 1
	}
	if n1 == n2 {
		return 0, cosi
	}
	if cosi > 1-1e-12 {
		// normal incidence
		r0 := (n1 - n2) / (n1 + n2)
		return r0 * r0, 1
	}
	if cosi < 1e-6 {
		// grazing incidence
		return 1, 0
	}
	sini := math.Sqrt(1 - cosi*cosi)
	sint := n1 / n2 * sini
	if sint >= 1 {
		return 1, 0
	}
	cost = math.Sqrt(1 - sint*sint)
	rs := (n1*cosi - n2*cost) / (n1*cosi + n2*cost)
	rp := (n1*cost - n2*cosi) / (n1*cost + n2*cosi)
	return 0.5 * (rs*rs + rp*rp), cost
}
