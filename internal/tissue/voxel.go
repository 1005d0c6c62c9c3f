package tissue

import (
	"fmt"
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// bumpShift nudges a face point into the voxel ahead, relative to voxel size.
const bumpShift = 1e-9

// Voxel is a box [MinX,MaxX]×[MinY,MaxY]×[0,Depth] split into Nx×Ny×Nz voxels.
// Each voxel stores a material id in 1..M; region 0 is the ambient medium
// above, region M+1 the ambient medium below. Leaving the box laterally is
// an escape into an undefined region.
type Voxel struct {
	MinX, MaxX Real
	MinY, MaxY Real
	Depth      Real
	Nx, Ny, Nz int
	Materials  []uint16 // flat: (i*Ny + j)*Nz + k

	regions          []Region
	dx, dy, dz       Real
	strideX, strideY int
}

// NewVoxel validates the grid. props lists ambient-above, materials 1..M and
// ambient-below.
func NewVoxel(minX, maxX, minY, maxY, depth Real, nx, ny, nz int, materials []uint16, props []OpticalProperties) (*Voxel, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: voxel resolution must be positive, got %dx%dx%d", ErrInvalidGeometry, nx, ny, nz)
	}
	if !(maxX > minX && maxY > minY && depth > 0) {
		return nil, fmt.Errorf("%w: voxel box must have positive extent", ErrInvalidGeometry)
	}
	if len(materials) != nx*ny*nz {
		return nil, fmt.Errorf("%w: expected %d voxel materials, got %d", ErrInvalidGeometry, nx*ny*nz, len(materials))
	}
	if len(props) < 3 {
		return nil, fmt.Errorf("%w: need ambient above, at least one material and ambient below", ErrInvalidGeometry)
	}
	nm := len(props) - 2
	for idx, m := range materials {
		if m < 1 || int(m) > nm {
			return nil, fmt.Errorf("%w: voxel %d references material %d, have 1..%d", ErrInvalidGeometry, idx, m, nm)
		}
	}
	for i, op := range props {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
	}

	regions := make([]Region, len(props))
	regions[0] = Region{Kind: AmbientAbove, OP: props[0], ZTop: math.Inf(-1), ZBottom: 0}
	for i := 1; i <= nm; i++ {
		regions[i] = Region{Kind: VoxelMaterial, OP: props[i], ZTop: 0, ZBottom: depth}
	}
	regions[nm+1] = Region{Kind: AmbientBelow, OP: props[nm+1], ZTop: depth, ZBottom: math.Inf(1)}

	v := &Voxel{
		MinX: minX, MaxX: maxX,
		MinY: minY, MaxY: maxY,
		Depth: depth,
		Nx:    nx, Ny: ny, Nz: nz,
		Materials: materials,
		regions:   regions,
		dx:        (maxX - minX) / Real(nx),
		dy:        (maxY - minY) / Real(ny),
		dz:        depth / Real(nz),
		strideY:   nz,
		strideX:   ny * nz,
	}
	logging.DebugLog("Created voxel tissue x=[%g,%g] y=[%g,%g] depth=%g resolution=(%d, %d, %d), materials=%d", minX, maxX, minY, maxY, depth, nx, ny, nz, nm)
	return v, nil
}

func (v *Voxel) Regions() []Region { return v.regions }

// VoxelSize returns the physical size of each voxel along X,Y,Z.
func (v *Voxel) VoxelSize() (dx, dy, dz Real) { return v.dx, v.dy, v.dz }

func (v *Voxel) idx(i, j, k int) int { return i*v.strideX + j*v.strideY + k }

// VoxelIndexOf maps a point to voxel indices.
func (v *Voxel) VoxelIndexOf(p geom.Point3) (ok bool, i, j, k int) {
	if p.X < v.MinX || p.X >= v.MaxX || p.Y < v.MinY || p.Y >= v.MaxY || p.Z < 0 || p.Z >= v.Depth {
		return false, 0, 0, 0
	}
	i = int((p.X - v.MinX) / v.dx)
	j = int((p.Y - v.MinY) / v.dy)
	k = int(p.Z / v.dz)
	if i == v.Nx {
		i = v.Nx - 1
	}
	if j == v.Ny {
		j = v.Ny - 1
	}
	if k == v.Nz {
		k = v.Nz - 1
	}
	return true, i, j, k
}

func (v *Voxel) Locate(p geom.Point3) int {
	if p.Z < 0 {
		return 0
	}
	if p.Z >= v.Depth {
		return len(v.regions) - 1
	}
	ok, i, j, k := v.VoxelIndexOf(p)
	if !ok {
		return Escaped
	}
	return int(v.Materials[v.idx(i, j, k)])
}

// DistanceToBoundary marches voxel by voxel along d until the material
// changes or the photon leaves the grid.
func (v *Voxel) DistanceToBoundary(p geom.Point3, d geom.Vector3, region int) Boundary {
	if region <= 0 || region >= len(v.regions)-1 {
		return noBoundary(region)
	}
	bump := bumpShift * math.Min(v.dx, math.Min(v.dy, v.dz))
	total := 0.0
	q := p
	for steps := 0; steps <= v.Nx+v.Ny+v.Nz+2; steps++ {
		ok, i, j, k := v.VoxelIndexOf(q.Add(d.Mul(bump)))
		if !ok {
			// already on the way out of the box
			next := v.Locate(q.Add(d.Mul(bump)))
			return Boundary{Distance: total, Next: next, Normal: v.faceNormal(q)}
		}
		minP := geom.Point3{X: v.MinX + Real(i)*v.dx, Y: v.MinY + Real(j)*v.dy, Z: Real(k) * v.dz}
		maxP := geom.Point3{X: minP.X + v.dx, Y: minP.Y + v.dy, Z: minP.Z + v.dz}
		t, normal, axis := geom.BoxExit(q, minP, maxP, d)
		if axis < 0 {
			return noBoundary(region)
		}
		total += t
		q = p.Add(d.Mul(total))
		next := v.Locate(q.Add(d.Mul(bump)))
		if next != region {
			return Boundary{Distance: total, Next: next, Normal: normal}
		}
	}
	return Boundary{Distance: total, Next: region, Normal: geom.Vector3{Z: 1}}
}

// faceNormal picks the box face closest to q.
func (v *Voxel) faceNormal(q geom.Point3) geom.Vector3 {
	best := math.Abs(q.Z)
	n := geom.Vector3{Z: -1}
	if dd := math.Abs(q.Z - v.Depth); dd < best {
		best, n = dd, geom.Vector3{Z: 1}
	}
	if dd := math.Abs(q.X - v.MinX); dd < best {
		best, n = dd, geom.Vector3{X: -1}
	}
	if dd := math.Abs(q.X - v.MaxX); dd < best {
		best, n = dd, geom.Vector3{X: 1}
	}
	if dd := math.Abs(q.Y - v.MinY); dd < best {
		best, n = dd, geom.Vector3{Y: -1}
	}
	if dd := math.Abs(q.Y - v.MaxY); dd < best {
		n = geom.Vector3{Y: 1}
	}
	return n
}
