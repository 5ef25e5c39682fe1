package library

import (
	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// with runs fn on the store behind h.
func (l *Library) with(h Handle, fn func(s *voxels.Store)) (err error) {
	defer kernel.Recover(&err)
	fn(l.voxels.get(h))
	return nil
}

// pair runs fn on the stores behind dst and src.
func (l *Library) pair(dst, src Handle, fn func(d, s *voxels.Store)) (err error) {
	defer kernel.Recover(&err)
	fn(l.voxels.get(dst), l.voxels.get(src))
	return nil
}

// ----------------------------------------------------------------------------
// Composition
// ----------------------------------------------------------------------------

func (l *Library) BoolAdd(dst, src Handle) error {
	return l.pair(dst, src, (*voxels.Store).BoolUnion)
}

func (l *Library) BoolSubtract(dst, src Handle) error {
	return l.pair(dst, src, (*voxels.Store).BoolDifference)
}

func (l *Library) BoolIntersect(dst, src Handle) error {
	return l.pair(dst, src, (*voxels.Store).BoolIntersect)
}

func (l *Library) Offset(h Handle, mm float64) error {
	return l.with(h, func(s *voxels.Store) { s.Offset(mm, l.vs) })
}

func (l *Library) DoubleOffset(h Handle, mm1, mm2 float64) error {
	return l.with(h, func(s *voxels.Store) { s.DoubleOffset(mm1, mm2, l.vs) })
}

func (l *Library) TripleOffset(h Handle, mm float64) error {
	return l.with(h, func(s *voxels.Store) { s.TripleOffset(mm, l.vs) })
}

func (l *Library) Gaussian(h Handle, sizeMM float64) error {
	return l.with(h, func(s *voxels.Store) { s.Gaussian(sizeMM, l.vs) })
}

func (l *Library) Median(h Handle, sizeMM float64) error {
	return l.with(h, func(s *voxels.Store) { s.Median(sizeMM, l.vs) })
}

func (l *Library) Mean(h Handle, sizeMM float64) error {
	return l.with(h, func(s *voxels.Store) { s.Mean(sizeMM, l.vs) })
}

// RenderMesh unions closed mesh mh into store h.
func (l *Library) RenderMesh(h, mh Handle) (err error) {
	defer kernel.Recover(&err)
	m := l.meshes.get(mh)
	l.voxels.get(h).RenderMesh(m, l.vs)
	return nil
}

// RenderLattice unions lattice lh into store h.
func (l *Library) RenderLattice(h, lh Handle) (err error) {
	defer kernel.Recover(&err)
	lat := l.lattices.get(lh)
	l.voxels.get(h).RasterizeLattice(lat, l.vs)
	return nil
}

// RenderImplicit unions fn, sampled over box (mm), into store h.
func (l *Library) RenderImplicit(h Handle, box kernel.BBox, fn kernel.Implicit) error {
	return l.with(h, func(s *voxels.Store) { s.RasterizeImplicit(box, fn, l.vs) })
}

// IntersectImplicit intersects store h with fn over its own extent.
func (l *Library) IntersectImplicit(h Handle, fn kernel.Implicit) error {
	return l.with(h, func(s *voxels.Store) { s.IntersectImplicit(fn, l.vs) })
}

// ProjectZSlice extrudes layer zStart towards zEnd (mm).
func (l *Library) ProjectZSlice(h Handle, zStart, zEnd float64) error {
	return l.with(h, func(s *voxels.Store) { s.ProjectSlice(zStart, zEnd, l.vs) })
}

// ----------------------------------------------------------------------------
// Queries
// ----------------------------------------------------------------------------

func (l *Library) IsInside(h Handle, p v3.Vec) (inside bool, err error) {
	err = l.with(h, func(s *voxels.Store) { inside = s.IsInside(p, l.vs) })
	return
}

// ClosestPoint returns the surface point nearest p. found is false when the
// store has no surface.
func (l *Library) ClosestPoint(h Handle, p v3.Vec) (hit v3.Vec, found bool, err error) {
	err = l.with(h, func(s *voxels.Store) { hit, found = s.ClosestPointOnSurface(p, l.vs) })
	return
}

// RayCast returns the first surface crossing along dir from origin.
func (l *Library) RayCast(h Handle, origin, dir v3.Vec) (hit v3.Vec, found bool, err error) {
	err = l.with(h, func(s *voxels.Store) { hit, found = s.RayToSurface(origin, dir, l.vs) })
	return
}

func (l *Library) SurfaceNormal(h Handle, p v3.Vec) (n v3.Vec, err error) {
	err = l.with(h, func(s *voxels.Store) { n = s.SurfaceNormal(p, l.vs) })
	return
}

func (l *Library) Properties(h Handle) (p voxels.Properties, err error) {
	err = l.with(h, func(s *voxels.Store) { p = s.Properties(l.vs) })
	return
}

func (l *Library) IsEqual(a, b Handle) (eq bool, err error) {
	err = l.pair(a, b, func(x, y *voxels.Store) { eq = x.IsEqual(y) })
	return
}

// Dimensions returns the origin and size of the active voxel extent.
func (l *Library) Dimensions(h Handle) (origin, size kernel.Coord, err error) {
	err = l.with(h, func(s *voxels.Store) { origin, size = s.VoxelDimensions() })
	return
}

// Slice returns layer z of the active extent.
func (l *Library) Slice(h Handle, z int32) (vals []float32, err error) {
	err = l.with(h, func(s *voxels.Store) { vals = s.Slice(z) })
	return
}

// ForEachActive visits every active voxel of h.
func (l *Library) ForEachActive(h Handle, fn func(c kernel.Coord, v float32)) error {
	return l.with(h, func(s *voxels.Store) { s.ForEachActive(fn) })
}
