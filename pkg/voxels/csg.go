package voxels

import (
	"github.com/chazu/narrowband/pkg/kernel"
)

// BoolUnion replaces s with the union of s and o (voxel-wise minimum).
// o is not modified.
func (s *Store) BoolUnion(o *Store) {
	s.combine("voxels.BoolUnion", o, func(a, b float32) float32 {
		return min(a, b)
	})
}

// BoolDifference removes o from s (voxel-wise max(a, -b)).
func (s *Store) BoolDifference(o *Store) {
	s.combine("voxels.BoolDifference", o, func(a, b float32) float32 {
		return max(a, -b)
	})
}

// BoolIntersect replaces s with the intersection of s and o (voxel-wise
// maximum).
func (s *Store) BoolIntersect(o *Store) {
	s.combine("voxels.BoolIntersect", o, func(a, b float32) float32 {
		return max(a, b)
	})
}

// combine applies f to every voxel of every block allocated in either
// operand. Tiles are visited too, so interior regions without a band are
// combined correctly.
func (s *Store) combine(op string, o *Store, f func(a, b float32) float32) {
	s.check(op)
	o.check(op)
	if s.background != o.background {
		kernel.Fail(op, kernel.ErrBackgroundMismatch, "%v != %v", s.background, o.background)
	}
	var a, b [leafSize]float32
	for _, bk := range allBlocks(s, o) {
		s.readBlock(bk, &a)
		if s == o {
			b = a
		} else {
			o.readBlock(bk, &b)
		}
		for i := range a {
			a[i] = f(a[i], b[i])
		}
		s.writeBlock(bk, &a)
	}
}
