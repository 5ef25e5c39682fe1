package voxels

import (
	"fmt"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/lattice"
)

// bandMargin is the number of voxels a rasterization box is grown by so the
// band around the box surface is not truncated.
func (s *Store) bandMargin() int32 {
	return int32(s.background + 0.5)
}

// RasterizeImplicit unions fn into s. fn is sampled at the world-space
// center of every voxel in box grown by the band margin.
func (s *Store) RasterizeImplicit(box kernel.BBox, fn kernel.Implicit, vs kernel.VoxelSize) {
	s.check("voxels.RasterizeImplicit")
	vs.Check("voxels.RasterizeImplicit")
	if box.IsEmpty() {
		return
	}
	cb := vs.BoxToVoxels(box).Expand(s.bandMargin())
	var buf [leafSize]float32
	forBlocksIn(cb, func(bk kernel.Coord) {
		s.readBlock(bk, &buf)
		changed := false
		for i := range buf {
			c := coordAt(bk, i)
			if !cb.Contains(c) {
				continue
			}
			d := float32(vs.ToVoxels(fn.SignedDistance(vs.CoordToMM(c))))
			if d < buf[i] {
				buf[i] = d
				changed = true
			}
		}
		if changed {
			s.writeBlock(bk, &buf)
		}
	})
}

// Rasterize unions an implicit that knows its own bounds.
func (s *Store) Rasterize(fn interface {
	kernel.Implicit
	kernel.Bounded
}, vs kernel.VoxelSize) {
	s.RasterizeImplicit(fn.Bounds(), fn, vs)
}

// RasterizeLattice unions every primitive of l into s, each over its own
// bounds. The result does not depend on primitive order.
func (s *Store) RasterizeLattice(l *lattice.Lattice, vs kernel.VoxelSize) {
	s.check("voxels.RasterizeLattice")
	if l == nil {
		kernel.Fail("voxels.RasterizeLattice", kernel.ErrUninitialized, "nil lattice")
	}
	for _, p := range l.Primitives() {
		s.RasterizeImplicit(p.Bounds(), p, vs)
	}
}

// IntersectImplicit intersects s with fn. fn is rasterized into a scratch
// store over the active extent of s; the scratch store is intersected with s
// and then replaces it, so the freshly sampled field is kept and s only
// serves as a mask.
func (s *Store) IntersectImplicit(fn kernel.Implicit, vs kernel.VoxelSize) {
	s.check("voxels.IntersectImplicit")
	scratch := New(s.background)
	if ab := s.ActiveBBox(); !ab.IsEmpty() {
		scratch.RasterizeImplicit(vs.BoxToMM(ab), fn, vs)
	}
	scratch.BoolIntersect(s)
	s.adopt(scratch)
}

// RenderSolid unions a backend solid into s. Solids that are themselves
// implicits are sampled directly over their bounding box; any other solid is
// meshed by its kernel and voxelized.
func (s *Store) RenderSolid(k kernel.Kernel, solid kernel.Solid, vs kernel.VoxelSize) error {
	s.check("voxels.RenderSolid")
	if imp, ok := solid.(kernel.Implicit); ok {
		s.RasterizeImplicit(solid.BoundingBox(), imp, vs)
		return nil
	}
	m, err := k.ToMesh(solid)
	if err != nil {
		return fmt.Errorf("voxels: meshing solid: %w", err)
	}
	s.RenderMesh(m, vs)
	return nil
}
