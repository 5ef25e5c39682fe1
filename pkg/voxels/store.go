// Package voxels implements a sparse narrow-band signed distance field and
// the operators that compose, query and convert it.
//
// Values are signed distances in voxel units, negative inside. Only voxels
// whose magnitude is below the background B are active; every other voxel
// reads as -B (deep interior) or +B (exterior). Storage is a hash map of
// 8x8x8 leaf blocks plus a set of uniform interior tiles. A Store carries no
// transform: every operation that touches world space takes an explicit
// kernel.VoxelSize.
//
// A Store has no internal synchronization. Distinct stores may be used from
// different goroutines; concurrent readers of one store are safe only while
// no goroutine writes to it.
package voxels

import (
	"math"
	"math/bits"
	"sort"

	"github.com/chazu/narrowband/pkg/kernel"
)

const (
	log2Dim  = 3
	leafDim  = 1 << log2Dim
	leafMask = leafDim - 1
	leafSize = leafDim * leafDim * leafDim
	maskLen  = leafSize / 64
)

// State is the result of probing a single voxel.
type State uint8

const (
	// Unallocated voxels lie in no block and read as +B.
	Unallocated State = iota
	// Inactive voxels are stored at -B or +B.
	Inactive
	// Active voxels hold a distance strictly inside (-B, B).
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	}
	return "unallocated"
}

type leaf struct {
	values [leafSize]float32
	active [maskLen]uint64
}

func (l *leaf) isActive(i int) bool {
	return l.active[i>>6]&(1<<(uint(i)&63)) != 0
}

func (l *leaf) setActive(i int, on bool) {
	if on {
		l.active[i>>6] |= 1 << (uint(i) & 63)
	} else {
		l.active[i>>6] &^= 1 << (uint(i) & 63)
	}
}

func (l *leaf) activeCount() int {
	n := 0
	for _, w := range l.active {
		n += bits.OnesCount64(w)
	}
	return n
}

func (l *leaf) fill(v float32) {
	for i := range l.values {
		l.values[i] = v
	}
	l.active = [maskLen]uint64{}
}

// Store is a sparse narrow-band signed distance field. The zero value is
// not usable; create stores with New.
type Store struct {
	background float32
	leaves     map[kernel.Coord]*leaf
	tiles      map[kernel.Coord]struct{}

	bbox      kernel.CoordBox
	bboxValid bool
}

// New returns an empty store with the given background distance in voxels.
func New(background float32) *Store {
	if !(background > 0) || math.IsInf(float64(background), 0) {
		kernel.Fail("voxels.New", kernel.ErrInvalidArgument, "background %v", background)
	}
	return &Store{
		background: background,
		leaves:     make(map[kernel.Coord]*leaf),
		tiles:      make(map[kernel.Coord]struct{}),
	}
}

func (s *Store) check(op string) {
	if s == nil || s.leaves == nil {
		kernel.Fail(op, kernel.ErrUninitialized, "")
	}
}

// Background returns the narrow-band half width B in voxels.
func (s *Store) Background() float32 {
	s.check("voxels.Background")
	return s.background
}

// Copy returns a deep, independent duplicate of s.
func (s *Store) Copy() *Store {
	s.check("voxels.Copy")
	c := &Store{
		background: s.background,
		leaves:     make(map[kernel.Coord]*leaf, len(s.leaves)),
		tiles:      make(map[kernel.Coord]struct{}, len(s.tiles)),
		bbox:       s.bbox,
		bboxValid:  s.bboxValid,
	}
	for k, l := range s.leaves {
		dup := *l
		c.leaves[k] = &dup
	}
	for k := range s.tiles {
		c.tiles[k] = struct{}{}
	}
	return c
}

// adopt replaces the contents of s with those of o. o must not be used
// afterwards.
func (s *Store) adopt(o *Store) {
	s.background = o.background
	s.leaves = o.leaves
	s.tiles = o.tiles
	s.bbox = o.bbox
	s.bboxValid = o.bboxValid
}

// Clear removes every voxel.
func (s *Store) Clear() {
	s.check("voxels.Clear")
	s.leaves = make(map[kernel.Coord]*leaf)
	s.tiles = make(map[kernel.Coord]struct{})
	s.invalidate()
}

func (s *Store) invalidate() {
	s.bboxValid = false
}

// ---------------------------------------------------------------------------
// Addressing
// ---------------------------------------------------------------------------

func blockOf(c kernel.Coord) kernel.Coord {
	return kernel.Coord{X: c.X >> log2Dim, Y: c.Y >> log2Dim, Z: c.Z >> log2Dim}
}

func offsetOf(c kernel.Coord) int {
	return int(c.X&leafMask) | int(c.Y&leafMask)<<log2Dim | int(c.Z&leafMask)<<(2*log2Dim)
}

func blockOrigin(bk kernel.Coord) kernel.Coord {
	return kernel.Coord{X: bk.X << log2Dim, Y: bk.Y << log2Dim, Z: bk.Z << log2Dim}
}

// coordAt returns the voxel at offset i of block bk.
func coordAt(bk kernel.Coord, i int) kernel.Coord {
	o := blockOrigin(bk)
	return kernel.Coord{
		X: o.X + int32(i&leafMask),
		Y: o.Y + int32((i>>log2Dim)&leafMask),
		Z: o.Z + int32(i>>(2*log2Dim)),
	}
}

// ---------------------------------------------------------------------------
// Access
// ---------------------------------------------------------------------------

// Probe returns the stored value of c and its state.
func (s *Store) Probe(c kernel.Coord) (float32, State) {
	s.check("voxels.Probe")
	bk := blockOf(c)
	if l, ok := s.leaves[bk]; ok {
		i := offsetOf(c)
		if l.isActive(i) {
			return l.values[i], Active
		}
		return l.values[i], Inactive
	}
	if _, ok := s.tiles[bk]; ok {
		return -s.background, Inactive
	}
	return s.background, Unallocated
}

// Value returns the signed distance at c in voxels.
func (s *Store) Value(c kernel.Coord) float32 {
	v, _ := s.Probe(c)
	return v
}

// IsActive reports whether c lies in the narrow band.
func (s *Store) IsActive(c kernel.Coord) bool {
	_, st := s.Probe(c)
	return st == Active
}

// IsInsideVoxel reports whether c is inside the solid.
func (s *Store) IsInsideVoxel(c kernel.Coord) bool {
	return inside(s.Value(c))
}

func inside(v float32) bool {
	return v <= 0
}

// clampValue limits v to [-B, B] and reports whether it belongs to the band.
// NaN is treated as exterior.
func (s *Store) clampValue(v float32) (float32, bool) {
	b := s.background
	switch {
	case v != v:
		return b, false
	case v >= b:
		return b, false
	case v <= -b:
		return -b, false
	}
	return v, true
}

// SetValue stores v at c. Values whose magnitude reaches the background are
// clamped to it and deactivated.
func (s *Store) SetValue(c kernel.Coord, v float32) {
	s.check("voxels.SetValue")
	s.setValue(c, v)
}

func (s *Store) setValue(c kernel.Coord, v float32) {
	v, on := s.clampValue(v)
	bk := blockOf(c)
	l, ok := s.leaves[bk]
	if !ok {
		_, tile := s.tiles[bk]
		if !on && ((tile && v < 0) || (!tile && v > 0)) {
			return
		}
		l = s.materialize(bk)
	}
	i := offsetOf(c)
	l.values[i] = v
	l.setActive(i, on)
	s.invalidate()
}

// materialize returns a leaf for bk, expanding a tile or creating an
// exterior block.
func (s *Store) materialize(bk kernel.Coord) *leaf {
	if l, ok := s.leaves[bk]; ok {
		return l
	}
	l := &leaf{}
	if _, tile := s.tiles[bk]; tile {
		l.fill(-s.background)
		delete(s.tiles, bk)
	} else {
		l.fill(s.background)
	}
	s.leaves[bk] = l
	return l
}

// readBlock copies the 512 values of block bk into buf.
func (s *Store) readBlock(bk kernel.Coord, buf *[leafSize]float32) {
	if l, ok := s.leaves[bk]; ok {
		*buf = l.values
		return
	}
	v := s.background
	if _, ok := s.tiles[bk]; ok {
		v = -v
	}
	for i := range buf {
		buf[i] = v
	}
}

// writeBlock replaces block bk with vals, deriving band membership from the
// values. Uniform exterior blocks are dropped and uniform interior blocks
// become tiles.
func (s *Store) writeBlock(bk kernel.Coord, vals *[leafSize]float32) {
	l := &leaf{}
	allOut, allIn := true, true
	for i, v := range vals {
		v, on := s.clampValue(v)
		l.values[i] = v
		switch {
		case on:
			l.setActive(i, true)
			allOut, allIn = false, false
		case v > 0:
			allIn = false
		default:
			allOut = false
		}
	}
	delete(s.leaves, bk)
	delete(s.tiles, bk)
	switch {
	case allOut:
	case allIn:
		s.tiles[bk] = struct{}{}
	default:
		s.leaves[bk] = l
	}
	s.invalidate()
}

// Prune collapses blocks without active voxels: uniform interior blocks
// become tiles, uniform exterior blocks are released.
func (s *Store) Prune() {
	s.check("voxels.Prune")
	for bk, l := range s.leaves {
		if l.activeCount() > 0 {
			continue
		}
		allOut, allIn := true, true
		for _, v := range l.values {
			if v > 0 {
				allIn = false
			} else {
				allOut = false
			}
		}
		switch {
		case allOut:
			delete(s.leaves, bk)
		case allIn:
			delete(s.leaves, bk)
			s.tiles[bk] = struct{}{}
		}
	}
	s.invalidate()
}

// ---------------------------------------------------------------------------
// Traversal and extent
// ---------------------------------------------------------------------------

func sortCoords(keys []kernel.Coord) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

func (s *Store) sortedLeaves() []kernel.Coord {
	keys := make([]kernel.Coord, 0, len(s.leaves))
	for k := range s.leaves {
		keys = append(keys, k)
	}
	sortCoords(keys)
	return keys
}

// allBlocks returns every allocated block key of s and the others, leaves
// and tiles alike, in sorted order.
func allBlocks(stores ...*Store) []kernel.Coord {
	set := make(map[kernel.Coord]struct{})
	for _, s := range stores {
		for k := range s.leaves {
			set[k] = struct{}{}
		}
		for k := range s.tiles {
			set[k] = struct{}{}
		}
	}
	keys := make([]kernel.Coord, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sortCoords(keys)
	return keys
}

// ForEachActive calls fn for every active voxel, ordered by block (Z, Y, X)
// and then by X fastest within the block. fn must not modify s.
func (s *Store) ForEachActive(fn func(c kernel.Coord, v float32)) {
	s.check("voxels.ForEachActive")
	for _, bk := range s.sortedLeaves() {
		l := s.leaves[bk]
		for w, word := range l.active {
			for word != 0 {
				b := bits.TrailingZeros64(word)
				word &= word - 1
				i := w*64 + b
				fn(coordAt(bk, i), l.values[i])
			}
		}
	}
}

// ActiveCount returns the number of voxels in the narrow band.
func (s *Store) ActiveCount() int {
	s.check("voxels.ActiveCount")
	n := 0
	for _, l := range s.leaves {
		n += l.activeCount()
	}
	return n
}

// IsEmpty reports whether s classifies no voxel as inside.
func (s *Store) IsEmpty() bool {
	s.check("voxels.IsEmpty")
	if len(s.tiles) > 0 {
		return false
	}
	for _, l := range s.leaves {
		if l.activeCount() > 0 {
			return false
		}
		for _, v := range l.values {
			if inside(v) {
				return false
			}
		}
	}
	return true
}

// ActiveBBox returns the inclusive extent of the active voxels. The result is
// cached until the next mutation.
func (s *Store) ActiveBBox() kernel.CoordBox {
	s.check("voxels.ActiveBBox")
	if s.bboxValid {
		return s.bbox
	}
	b := kernel.EmptyCoordBox()
	for bk, l := range s.leaves {
		if l.activeCount() == 0 {
			continue
		}
		o := blockOrigin(bk)
		full := kernel.CoordBox{Min: o, Max: o.Offset(leafMask, leafMask, leafMask)}
		if b.Contains(full.Min) && b.Contains(full.Max) {
			continue
		}
		for w, word := range l.active {
			for word != 0 {
				i := w*64 + bits.TrailingZeros64(word)
				word &= word - 1
				b.Include(coordAt(bk, i))
			}
		}
	}
	s.bbox = b
	s.bboxValid = true
	return b
}

// BoundingBox returns the world-space extent of the active voxels.
func (s *Store) BoundingBox(vs kernel.VoxelSize) kernel.BBox {
	b := s.ActiveBBox()
	if b.IsEmpty() {
		return kernel.EmptyBBox()
	}
	return vs.BoxToMM(b)
}

// forBlocksIn calls fn for every block overlapping box, in Z, Y, X order.
func forBlocksIn(box kernel.CoordBox, fn func(bk kernel.Coord)) {
	if box.IsEmpty() {
		return
	}
	lo, hi := blockOf(box.Min), blockOf(box.Max)
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				fn(kernel.Coord{X: x, Y: y, Z: z})
			}
		}
	}
}
