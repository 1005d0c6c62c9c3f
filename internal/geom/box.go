package geom

import "math"

// BoxExit returns the distance along unit D from O (inside the box) to the
// first face of the axis-aligned box [minP, maxP], the outward normal of that
// face, and the axis (0,1,2) it belongs to. Axes with |D| < eps are parallel
// and never exit.
func BoxExit(O, minP, maxP Point3, D Vector3) (t Real, normal Vector3, axis int) {
	const eps = 1e-15
	t = math.Inf(1)
	axis = -1

	if D.X > eps {
		if tx := (maxP.X - O.X) / D.X; tx < t {
			t, axis, normal = tx, 0, Vector3{1, 0, 0}
		}
	} else if D.X < -eps {
		if tx := (minP.X - O.X) / D.X; tx < t {
			t, axis, normal = tx, 0, Vector3{-1, 0, 0}
		}
	}

	if D.Y > eps {
		if ty := (maxP.Y - O.Y) / D.Y; ty < t {
			t, axis, normal = ty, 1, Vector3{0, 1, 0}
		}
	} else if D.Y < -eps {
		if ty := (minP.Y - O.Y) / D.Y; ty < t {
			t, axis, normal = ty, 1, Vector3{0, -1, 0}
		}
	}

	if D.Z > eps {
		if tz := (maxP.Z - O.Z) / D.Z; tz < t {
			t, axis, normal = tz, 2, Vector3{0, 0, 1}
		}
	} else if D.Z < -eps {
		if tz := (minP.Z - O.Z) / D.Z; tz < t {
			t, axis, normal = tz, 2, Vector3{0, 0, -1}
		}
	}

	if t < 0 {
		t = 0
	}
	return t, normal, axis
}
