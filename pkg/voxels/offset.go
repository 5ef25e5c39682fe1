package voxels

import (
	"math"

	"github.com/chazu/narrowband/pkg/kernel"
)

var neighbors6 = [6]kernel.Coord{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// Offset moves the surface by distance mm. Positive distances shrink the
// solid, negative distances grow it.
//
// Active values are biased by the offset and the band is then rebuilt by
// dilating from the surviving band. This is a local approximation, not a
// re-distance transform: values far from the surface drift from the true
// distance, and accuracy degrades under large or repeated offsets. Offsets
// larger than B-1 voxels are applied in several equal steps.
func (s *Store) Offset(distance float64, vs kernel.VoxelSize) {
	s.check("voxels.Offset")
	delta := vs.ToVoxels(distance)
	if delta == 0 {
		return
	}
	maxStep := math.Max(float64(s.background)-1, 0.5)
	n := int(math.Ceil(math.Abs(delta) / maxStep))
	step := float32(delta / float64(n))
	for i := 0; i < n; i++ {
		s.offsetStep(step)
	}
}

// DoubleOffset applies Offset(d1) followed by Offset(d2). Growing then
// shrinking by the same amount fills concave corners; the reverse rounds
// convex edges.
func (s *Store) DoubleOffset(d1, d2 float64, vs kernel.VoxelSize) {
	s.Offset(d1, vs)
	s.Offset(d2, vs)
}

// TripleOffset applies Offset(-d), Offset(2d), Offset(-d). The net offset is
// zero; details smaller than d are smoothed away.
func (s *Store) TripleOffset(d float64, vs kernel.VoxelSize) {
	s.Offset(-d, vs)
	s.Offset(2*d, vs)
	s.Offset(-d, vs)
}

func (s *Store) offsetStep(d float32) {
	type update struct {
		c kernel.Coord
		v float32
	}
	var biased []update
	s.ForEachActive(func(c kernel.Coord, v float32) {
		biased = append(biased, update{c, v + d})
	})
	for _, u := range biased {
		s.setValue(u.c, u.v)
	}

	passes := int(math.Ceil(math.Abs(float64(d)))) + 1
	for p := 0; p < passes; p++ {
		if s.dilate() == 0 {
			break
		}
	}
	s.Prune()
}

// dilate activates inactive voxels next to the band whose extrapolated
// distance falls below the background. A candidate takes its sign from its
// own stored value and its magnitude from the nearest active neighbor on the
// same side of the surface plus one voxel. A neighbor holding exactly zero
// lies on the surface and seeds both sides. All candidates are computed
// before any is written. It returns the number of voxels activated.
func (s *Store) dilate() int {
	candidates := make(map[kernel.Coord]float32)
	var order []kernel.Coord
	s.ForEachActive(func(c kernel.Coord, v float32) {
		for _, n := range neighbors6 {
			nc := c.Add(n)
			nv, st := s.Probe(nc)
			if st == Active {
				continue
			}
			if v != 0 && inside(nv) != inside(v) {
				continue
			}
			m := float32(math.Abs(float64(v))) + 1
			if cur, ok := candidates[nc]; ok {
				if m < cur {
					candidates[nc] = m
				}
				continue
			}
			candidates[nc] = m
			order = append(order, nc)
		}
	})
	added := 0
	for _, c := range order {
		m := candidates[c]
		if m >= s.background {
			continue
		}
		if inside(s.Value(c)) {
			m = -m
		}
		s.setValue(c, m)
		added++
	}
	return added
}
