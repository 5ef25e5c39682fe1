package voxels

import (
	"math"
	"sort"

	"github.com/chazu/narrowband/pkg/kernel"
)

// Mean smooths the band with a box filter of width size mm.
func (s *Store) Mean(size float64, vs kernel.VoxelSize) {
	s.check("voxels.Mean")
	r := filterRadius(size, vs)
	s.filter(r, func(vals []float32, _ []float32) float32 {
		var sum float64
		for _, v := range vals {
			sum += float64(v)
		}
		return float32(sum / float64(len(vals)))
	}, nil)
}

// Median replaces every band value with the median of its neighborhood of
// width size mm.
func (s *Store) Median(size float64, vs kernel.VoxelSize) {
	s.check("voxels.Median")
	r := filterRadius(size, vs)
	s.filter(r, func(vals []float32, _ []float32) float32 {
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		return vals[len(vals)/2]
	}, nil)
}

// Gaussian smooths the band with a Gaussian kernel of width size mm.
func (s *Store) Gaussian(size float64, vs kernel.VoxelSize) {
	s.check("voxels.Gaussian")
	r := filterRadius(size, vs)
	sigma := math.Max(float64(r)/2, 0.5)
	var weights []float32
	for z := -r; z <= r; z++ {
		for y := -r; y <= r; y++ {
			for x := -r; x <= r; x++ {
				d2 := float64(x*x + y*y + z*z)
				weights = append(weights, float32(math.Exp(-d2/(2*sigma*sigma))))
			}
		}
	}
	s.filter(r, func(vals []float32, w []float32) float32 {
		var sum, wsum float64
		for i, v := range vals {
			sum += float64(v) * float64(w[i])
			wsum += float64(w[i])
		}
		return float32(sum / wsum)
	}, weights)
}

// filterRadius converts a filter width in mm to a neighborhood radius in
// voxels, at least one.
func filterRadius(size float64, vs kernel.VoxelSize) int32 {
	r := int32(math.Round(vs.ToVoxels(math.Abs(size)) / 2))
	return max(r, 1)
}

// filter recomputes every active voxel from its (2r+1)^3 neighborhood. New
// values are computed from a snapshot and written afterwards; values that
// leave the band are deactivated.
func (s *Store) filter(r int32, fn func(vals, weights []float32) float32, weights []float32) {
	type update struct {
		c kernel.Coord
		v float32
	}
	var out []update
	n := int(2*r + 1)
	vals := make([]float32, 0, n*n*n)
	s.ForEachActive(func(c kernel.Coord, _ float32) {
		vals = vals[:0]
		for z := -r; z <= r; z++ {
			for y := -r; y <= r; y++ {
				for x := -r; x <= r; x++ {
					vals = append(vals, s.Value(c.Offset(x, y, z)))
				}
			}
		}
		out = append(out, update{c, fn(vals, weights)})
	})
	for _, u := range out {
		s.setValue(u.c, u.v)
	}
	s.Prune()
}
