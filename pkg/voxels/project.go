package voxels

import (
	"github.com/chazu/narrowband/pkg/kernel"
)

// ProjectSlice drags material along Z from zStart to zEnd (mm) to remove
// overhangs. Layers are visited one at a time in the direction of zEnd and
// every layer is unioned into the next one, so each update sees the already
// updated previous layer. Afterwards round(B) layers at and beyond zEnd are
// averaged with their successor to close the band. The XY range is the
// active extent at the time of the call.
func (s *Store) ProjectSlice(zStart, zEnd float64, vs kernel.VoxelSize) {
	s.check("voxels.ProjectSlice")
	z0 := vs.ToVoxelIndex(zStart)
	z1 := vs.ToVoxelIndex(zEnd)
	box := s.ActiveBBox()
	if box.IsEmpty() || z0 == z1 {
		return
	}
	step := int32(1)
	if z1 < z0 {
		step = -1
	}

	for z := z0; z != z1; z += step {
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				next := kernel.Coord{X: x, Y: y, Z: z + step}
				v := min(s.Value(next), s.Value(kernel.Coord{X: x, Y: y, Z: z}))
				s.setValue(next, v)
			}
		}
	}

	for i := int32(0); i < s.bandMargin(); i++ {
		z := z1 + i*step
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for x := box.Min.X; x <= box.Max.X; x++ {
				c := kernel.Coord{X: x, Y: y, Z: z}
				v := (s.Value(c) + s.Value(kernel.Coord{X: x, Y: y, Z: z + step})) / 2
				s.setValue(c, v)
			}
		}
	}
	s.Prune()
}
