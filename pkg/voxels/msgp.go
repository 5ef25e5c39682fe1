package voxels

import (
	"fmt"
	"math"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/tinylib/msgp/msgp"
)

// Wire layout of a store:
//
//	[background, [leaf...], [tile...]]
//	leaf = [x, y, z, [active x8], [value x512]]
//	tile = [x, y, z]
//
// Block keys are written in sorted order so equal stores encode equally.

// MarshalMsg implements msgp.Marshaler
func (s *Store) MarshalMsg(b []byte) (o []byte, err error) {
	s.check("voxels.MarshalMsg")
	o = msgp.Require(b, s.Msgsize())
	o = msgp.AppendArrayHeader(o, 3)
	o = msgp.AppendFloat32(o, s.background)

	keys := s.sortedLeaves()
	o = msgp.AppendArrayHeader(o, uint32(len(keys)))
	for _, bk := range keys {
		l := s.leaves[bk]
		o = msgp.AppendArrayHeader(o, 5)
		o = appendCoord(o, bk)
		o = msgp.AppendArrayHeader(o, maskLen)
		for _, w := range l.active {
			o = msgp.AppendUint64(o, w)
		}
		o = msgp.AppendArrayHeader(o, leafSize)
		for _, v := range l.values {
			o = msgp.AppendFloat32(o, v)
		}
	}

	tiles := make([]kernel.Coord, 0, len(s.tiles))
	for bk := range s.tiles {
		tiles = append(tiles, bk)
	}
	sortCoords(tiles)
	o = msgp.AppendArrayHeader(o, uint32(len(tiles)))
	for _, bk := range tiles {
		o = msgp.AppendArrayHeader(o, 3)
		o = appendCoord(o, bk)
	}
	return
}

func appendCoord(o []byte, c kernel.Coord) []byte {
	o = msgp.AppendInt32(o, c.X)
	o = msgp.AppendInt32(o, c.Y)
	o = msgp.AppendInt32(o, c.Z)
	return o
}

func readCoord(bts []byte) (c kernel.Coord, o []byte, err error) {
	c.X, bts, err = msgp.ReadInt32Bytes(bts)
	if err != nil {
		return
	}
	c.Y, bts, err = msgp.ReadInt32Bytes(bts)
	if err != nil {
		return
	}
	c.Z, bts, err = msgp.ReadInt32Bytes(bts)
	if err != nil {
		return
	}
	o = bts
	return
}

func readArrayHeader(bts []byte, want uint32) (o []byte, err error) {
	var sz uint32
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if sz != want {
		err = msgp.ArrayError{Wanted: want, Got: sz}
		return
	}
	o = bts
	return
}

// UnmarshalMsg implements msgp.Unmarshaler. The receiver is reset; it may be
// a zero Store.
func (s *Store) UnmarshalMsg(bts []byte) (o []byte, err error) {
	bts, err = readArrayHeader(bts, 3)
	if err != nil {
		return
	}
	var bg float32
	bg, bts, err = msgp.ReadFloat32Bytes(bts)
	if err != nil {
		return
	}
	if !(bg > 0) || math.IsInf(float64(bg), 0) {
		err = &kernel.PreconditionError{Op: "voxels.UnmarshalMsg", Err: fmt.Errorf("%w: background %v", kernel.ErrInvalidArgument, bg)}
		return
	}
	n := New(bg)

	var nl uint32
	nl, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	for i := uint32(0); i < nl; i++ {
		bts, err = readArrayHeader(bts, 5)
		if err != nil {
			return
		}
		var bk kernel.Coord
		bk, bts, err = readCoord(bts)
		if err != nil {
			return
		}
		l := &leaf{}
		bts, err = readArrayHeader(bts, maskLen)
		if err != nil {
			return
		}
		for w := range l.active {
			l.active[w], bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				return
			}
		}
		bts, err = readArrayHeader(bts, leafSize)
		if err != nil {
			return
		}
		for j := range l.values {
			l.values[j], bts, err = msgp.ReadFloat32Bytes(bts)
			if err != nil {
				return
			}
		}
		if i, ok := n.checkLeaf(l); !ok {
			err = &kernel.PreconditionError{Op: "voxels.UnmarshalMsg",
				Err: fmt.Errorf("%w: block %v voxel %d: value %v disagrees with its active bit", kernel.ErrInvalidArgument, bk, i, l.values[i])}
			return
		}
		n.leaves[bk] = l
	}

	var nt uint32
	nt, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	for i := uint32(0); i < nt; i++ {
		bts, err = readArrayHeader(bts, 3)
		if err != nil {
			return
		}
		var bk kernel.Coord
		bk, bts, err = readCoord(bts)
		if err != nil {
			return
		}
		n.tiles[bk] = struct{}{}
	}
	*s = *n
	o = bts
	return
}

// checkLeaf verifies that active voxels hold in-band values and inactive
// voxels hold the background of either sign. It returns the first offending
// voxel index.
func (s *Store) checkLeaf(l *leaf) (int, bool) {
	for i, v := range l.values {
		c, on := s.clampValue(v)
		if v != v || l.isActive(i) != on || !on && c != v {
			return i, false
		}
	}
	return 0, true
}

// Msgsize returns an upper bound estimate of the encoded size.
func (s *Store) Msgsize() (sz int) {
	coord := msgp.ArrayHeaderSize + 3*msgp.Int32Size
	leafBytes := msgp.ArrayHeaderSize + 3*msgp.Int32Size +
		msgp.ArrayHeaderSize + maskLen*msgp.Uint64Size +
		msgp.ArrayHeaderSize + leafSize*msgp.Float32Size
	sz = msgp.ArrayHeaderSize + msgp.Float32Size +
		msgp.ArrayHeaderSize + len(s.leaves)*leafBytes +
		msgp.ArrayHeaderSize + len(s.tiles)*coord
	return
}

var (
	_ msgp.Marshaler   = (*Store)(nil)
	_ msgp.Unmarshaler = (*Store)(nil)
	_ msgp.Sizer       = (*Store)(nil)
)
