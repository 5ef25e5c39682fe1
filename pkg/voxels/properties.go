package voxels

import (
	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Properties summarizes the solid held by a store.
type Properties struct {
	// Volume is the inside volume in mm^3, counted per voxel.
	Volume float64
	// BBox is the extent of the inside voxel centers in mm.
	BBox kernel.BBox
}

// Properties counts inside voxels over the active extent.
func (s *Store) Properties(vs kernel.VoxelSize) Properties {
	s.check("voxels.Properties")
	vs.Check("voxels.Properties")
	box := s.ActiveBBox()
	bb := kernel.EmptyBBox()
	var n int64
	for z := box.Min.Z; z <= box.Max.Z; z++ {
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				c := kernel.Coord{X: x, Y: y, Z: z}
				if inside(s.Value(c)) {
					n++
					bb.Include(vs.CoordToMM(c))
				}
			}
		}
	}
	mm := vs.MM()
	return Properties{Volume: float64(n) * mm * mm * mm, BBox: bb}
}

// IsEqual reports whether s and o classify every voxel of their combined
// active extent identically.
func (s *Store) IsEqual(o *Store) bool {
	s.check("voxels.IsEqual")
	o.check("voxels.IsEqual")
	box := s.ActiveBBox().Union(o.ActiveBBox())
	for z := box.Min.Z; z <= box.Max.Z; z++ {
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				c := kernel.Coord{X: x, Y: y, Z: z}
				if inside(s.Value(c)) != inside(o.Value(c)) {
					return false
				}
			}
		}
	}
	return true
}

// VoxelDimensions returns the minimum corner and size of the active extent.
func (s *Store) VoxelDimensions() (origin, size kernel.Coord) {
	box := s.ActiveBBox()
	if box.IsEmpty() {
		return kernel.Coord{}, kernel.Coord{}
	}
	return box.Min, box.Extents()
}

// Slice returns the values of layer z, counted from the bottom of the active
// extent, as rows of X ascending ordered from the top Y row down.
func (s *Store) Slice(z int32) []float32 {
	s.check("voxels.Slice")
	box := s.ActiveBBox()
	if box.IsEmpty() {
		return nil
	}
	e := box.Extents()
	out := make([]float32, 0, int(e.X)*int(e.Y))
	zz := box.Min.Z + z
	for y := box.Max.Y; y >= box.Min.Y; y-- {
		for x := box.Min.X; x <= box.Max.X; x++ {
			out = append(out, s.Value(kernel.Coord{X: x, Y: y, Z: zz}))
		}
	}
	return out
}

// InterpolatedSlice is Slice at a fractional layer, sampled trilinearly.
func (s *Store) InterpolatedSlice(z float64) []float32 {
	s.check("voxels.InterpolatedSlice")
	box := s.ActiveBBox()
	if box.IsEmpty() {
		return nil
	}
	e := box.Extents()
	out := make([]float32, 0, int(e.X)*int(e.Y))
	zz := float64(box.Min.Z) + z
	for y := box.Max.Y; y >= box.Min.Y; y-- {
		for x := box.Min.X; x <= box.Max.X; x++ {
			out = append(out, float32(s.trilinear(v3.Vec{X: float64(x), Y: float64(y), Z: zz})))
		}
	}
	return out
}
