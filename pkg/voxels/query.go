package voxels

import (
	"math"

	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const bisectIterations = 32

// ---------------------------------------------------------------------------
// Sampling
// ---------------------------------------------------------------------------

// Sample returns the trilinearly interpolated distance at world point p, in
// voxel units.
func (s *Store) Sample(p v3.Vec, vs kernel.VoxelSize) float64 {
	s.check("voxels.Sample")
	return s.trilinear(vs.VecToVoxels(p))
}

// trilinear interpolates the field at p given in voxel coordinates.
func (s *Store) trilinear(p v3.Vec) float64 {
	x0, y0, z0 := math.Floor(p.X), math.Floor(p.Y), math.Floor(p.Z)
	fx, fy, fz := p.X-x0, p.Y-y0, p.Z-z0
	c := kernel.Coord{X: int32(x0), Y: int32(y0), Z: int32(z0)}
	v := func(dx, dy, dz int32) float64 {
		return float64(s.Value(c.Offset(dx, dy, dz)))
	}
	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	c00 := lerp(v(0, 0, 0), v(1, 0, 0), fx)
	c10 := lerp(v(0, 1, 0), v(1, 1, 0), fx)
	c01 := lerp(v(0, 0, 1), v(1, 0, 1), fx)
	c11 := lerp(v(0, 1, 1), v(1, 1, 1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

// trilinearGradient is the central-difference gradient of the interpolated
// field at p (voxel coordinates).
func (s *Store) trilinearGradient(p v3.Vec) v3.Vec {
	const h = 0.5
	return v3.Vec{
		X: (s.trilinear(v3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}) - s.trilinear(v3.Vec{X: p.X - h, Y: p.Y, Z: p.Z})) / (2 * h),
		Y: (s.trilinear(v3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}) - s.trilinear(v3.Vec{X: p.X, Y: p.Y - h, Z: p.Z})) / (2 * h),
		Z: (s.trilinear(v3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}) - s.trilinear(v3.Vec{X: p.X, Y: p.Y, Z: p.Z - h})) / (2 * h),
	}
}

// IsInside reports whether the world point p lies inside the solid,
// judged by the voxel containing it.
func (s *Store) IsInside(p v3.Vec, vs kernel.VoxelSize) bool {
	s.check("voxels.IsInside")
	return inside(s.Value(vs.CoordOf(p)))
}

// ---------------------------------------------------------------------------
// Normals
// ---------------------------------------------------------------------------

// SurfaceNormal returns the normalized central-difference gradient at the
// voxel containing p. When the gradient vanishes it returns the zero vector;
// callers must check for it.
func (s *Store) SurfaceNormal(p v3.Vec, vs kernel.VoxelSize) v3.Vec {
	s.check("voxels.SurfaceNormal")
	c := vs.CoordOf(p)
	d := func(dx, dy, dz int32) float64 {
		return float64(s.Value(c.Offset(dx, dy, dz)) - s.Value(c.Offset(-dx, -dy, -dz)))
	}
	g := v3.Vec{X: d(1, 0, 0), Y: d(0, 1, 0), Z: d(0, 0, 1)}.MulScalar(0.5)
	l := g.Length()
	if l < 1e-9 {
		return v3.Vec{}
	}
	return g.MulScalar(1 / l)
}

// ---------------------------------------------------------------------------
// Closest point
// ---------------------------------------------------------------------------

// ClosestPointOnSurface searches expanding integer shells around the voxel
// containing q for the first voxel whose inside state differs from q's.
//
// Shell r holds the voxels with (r-1)^2 < dx^2+dy^2+dz^2 <= r^2. Within a
// shell voxels are scanned with Z outermost, then Y, then X, each ascending,
// and the first hit wins; among equidistant crossings this prefers the
// lowest Z, then Y, then X. The search is confined to the active extent
// grown to include q and expanded by one voxel, and gives up once the shell
// radius exceeds that box's diagonal. The hit voxel is moved onto the zero
// level set with one Newton step on the interpolated field.
func (s *Store) ClosestPointOnSurface(q v3.Vec, vs kernel.VoxelSize) (v3.Vec, bool) {
	s.check("voxels.ClosestPointOnSurface")
	box := s.ActiveBBox()
	if box.IsEmpty() {
		return v3.Vec{}, false
	}
	qc := vs.CoordOf(q)
	box.Include(qc)
	box = box.Expand(1)
	ref := inside(s.Value(qc))

	maxR := int32(math.Ceil(box.Diagonal()))
	for r := int32(0); r <= maxR; r++ {
		hit, found, covered := s.shell(qc, r, box, ref)
		if found {
			return vs.VecToMM(s.newtonProject(hit.Vec())), true
		}
		if !covered {
			break
		}
	}
	return v3.Vec{}, false
}

// shell scans shell r around center. covered is false when no voxel of the
// shell lies inside box.
func (s *Store) shell(center kernel.Coord, r int32, box kernel.CoordBox, ref bool) (hit kernel.Coord, found, covered bool) {
	r2 := int64(r) * int64(r)
	inner := int64(r-1) * int64(r-1)
	if r == 0 {
		inner = -1
	}
	for z := max(center.Z-r, box.Min.Z); z <= min(center.Z+r, box.Max.Z); z++ {
		dz := int64(z - center.Z)
		for y := max(center.Y-r, box.Min.Y); y <= min(center.Y+r, box.Max.Y); y++ {
			dy := int64(y - center.Y)
			for x := max(center.X-r, box.Min.X); x <= min(center.X+r, box.Max.X); x++ {
				dx := int64(x - center.X)
				d2 := dx*dx + dy*dy + dz*dz
				if d2 > r2 || d2 <= inner {
					continue
				}
				covered = true
				c := kernel.Coord{X: x, Y: y, Z: z}
				if inside(s.Value(c)) != ref {
					return c, true, true
				}
			}
		}
	}
	return kernel.Coord{}, false, covered
}

// newtonProject moves p (voxel coordinates) toward the zero level set with a
// single Newton step. Points with a vanishing gradient are returned as is.
func (s *Store) newtonProject(p v3.Vec) v3.Vec {
	d := s.trilinear(p)
	g := s.trilinearGradient(p)
	g2 := g.Dot(g)
	if g2 < 1e-12 {
		return p
	}
	return p.Sub(g.MulScalar(d / g2))
}

// ---------------------------------------------------------------------------
// Ray cast
// ---------------------------------------------------------------------------

// RayToSurface marches from origin along dir until the interpolated field
// changes inside state relative to the start, then bisects the bracketing
// interval. It fails for a zero direction, for rays that miss the active
// extent, and when no sign change occurs before the ray leaves it.
func (s *Store) RayToSurface(origin, dir v3.Vec, vs kernel.VoxelSize) (v3.Vec, bool) {
	s.check("voxels.RayToSurface")
	vs.Check("voxels.RayToSurface")
	if dir.Length() < 1e-12 {
		return v3.Vec{}, false
	}
	ab := s.ActiveBBox()
	if ab.IsEmpty() {
		return v3.Vec{}, false
	}
	d := dir.Normalize()
	tNear, tFar, ok := vs.BoxToMM(ab.Expand(1)).IntersectRay(origin, d)
	if !ok {
		return v3.Vec{}, false
	}

	at := func(t float64) v3.Vec { return origin.Add(d.MulScalar(t)) }
	sample := func(t float64) float64 { return s.Sample(at(t), vs) }
	ref := sample(0) <= 0

	step := 0.5 * vs.MM()
	lo := 0.0
	for t := math.Max(tNear, 0); ; t += step {
		if t > tFar {
			t = tFar
		}
		if (sample(t) <= 0) != ref {
			hi := t
			for i := 0; i < bisectIterations; i++ {
				mid := 0.5 * (lo + hi)
				if (sample(mid) <= 0) == ref {
					lo = mid
				} else {
					hi = mid
				}
			}
			return at(0.5 * (lo + hi)), true
		}
		lo = t
		if t >= tFar {
			break
		}
	}
	return v3.Vec{}, false
}
