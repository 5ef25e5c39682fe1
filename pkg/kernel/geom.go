package kernel

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Coord is an integer voxel coordinate.
type Coord struct {
	X, Y, Z int32
}

// Add returns c + o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Offset returns c shifted by (dx, dy, dz).
func (c Coord) Offset(dx, dy, dz int32) Coord {
	return Coord{c.X + dx, c.Y + dy, c.Z + dz}
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (c Coord) Axis(i int) int32 {
	switch i {
	case 0:
		return c.X
	case 1:
		return c.Y
	}
	return c.Z
}

// Vec returns c as a fractional vector.
func (c Coord) Vec() v3.Vec {
	return v3.Vec{X: float64(c.X), Y: float64(c.Y), Z: float64(c.Z)}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Less orders coordinates by Z, then Y, then X.
func (c Coord) Less(o Coord) bool {
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// CoordBox is an inclusive integer box. A box with any Min component greater
// than the corresponding Max component is empty.
type CoordBox struct {
	Min, Max Coord
}

// EmptyCoordBox returns a box that contains nothing and grows on Include.
func EmptyCoordBox() CoordBox {
	return CoordBox{
		Min: Coord{math.MaxInt32, math.MaxInt32, math.MaxInt32},
		Max: Coord{math.MinInt32, math.MinInt32, math.MinInt32},
	}
}

// IsEmpty reports whether b contains no coordinate.
func (b CoordBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Include grows b to contain c.
func (b *CoordBox) Include(c Coord) {
	b.Min = Coord{min(b.Min.X, c.X), min(b.Min.Y, c.Y), min(b.Min.Z, c.Z)}
	b.Max = Coord{max(b.Max.X, c.X), max(b.Max.Y, c.Y), max(b.Max.Z, c.Z)}
}

// Union returns the smallest box containing b and o.
func (b CoordBox) Union(o CoordBox) CoordBox {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	r := b
	r.Include(o.Min)
	r.Include(o.Max)
	return r
}

// Expand returns b grown by n voxels on every side.
func (b CoordBox) Expand(n int32) CoordBox {
	if b.IsEmpty() {
		return b
	}
	return CoordBox{Min: b.Min.Offset(-n, -n, -n), Max: b.Max.Offset(n, n, n)}
}

// Contains reports whether c lies inside b.
func (b CoordBox) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Extents returns the number of voxels along each axis.
func (b CoordBox) Extents() Coord {
	if b.IsEmpty() {
		return Coord{}
	}
	return Coord{b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1}
}

// Volume returns the number of voxels in b.
func (b CoordBox) Volume() int64 {
	e := b.Extents()
	return int64(e.X) * int64(e.Y) * int64(e.Z)
}

// Diagonal returns the length of the box diagonal in voxels.
func (b CoordBox) Diagonal() float64 {
	e := b.Extents()
	return math.Sqrt(float64(e.X)*float64(e.X) + float64(e.Y)*float64(e.Y) + float64(e.Z)*float64(e.Z))
}

// BBox is a world-space axis-aligned bounding box.
type BBox struct {
	Min, Max v3.Vec
}

// EmptyBBox returns a box that contains nothing and grows on Include.
func EmptyBBox() BBox {
	inf := math.Inf(1)
	return BBox{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether b contains no point.
func (b BBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Include grows b to contain p.
func (b *BBox) Include(p v3.Vec) {
	b.Min = v3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = v3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

// IncludeBox grows b to contain o.
func (b *BBox) IncludeBox(o BBox) {
	if o.IsEmpty() {
		return
	}
	b.Include(o.Min)
	b.Include(o.Max)
}

// Grow returns b enlarged by d on every side.
func (b BBox) Grow(d float64) BBox {
	if b.IsEmpty() {
		return b
	}
	return BBox{
		Min: v3.Vec{X: b.Min.X - d, Y: b.Min.Y - d, Z: b.Min.Z - d},
		Max: v3.Vec{X: b.Max.X + d, Y: b.Max.Y + d, Z: b.Max.Z + d},
	}
}

// Size returns the edge lengths of b.
func (b BBox) Size() v3.Vec {
	if b.IsEmpty() {
		return v3.Vec{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of b.
func (b BBox) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Contains reports whether p lies inside b.
func (b BBox) Contains(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectRay clips the ray o + t*d against b using the slab method and
// returns the parametric entry and exit distances. ok is false when the ray
// misses the box or the box lies entirely behind the origin.
func (b BBox) IntersectRay(o, d v3.Vec) (tNear, tFar float64, ok bool) {
	tNear, tFar = math.Inf(-1), math.Inf(1)
	org := [3]float64{o.X, o.Y, o.Z}
	dir := [3]float64{d.X, d.Y, d.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if org[i] < lo[i] || org[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		t0 := (lo[i] - org[i]) / dir[i]
		t1 := (hi[i] - org[i]) / dir[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return 0, 0, false
		}
	}
	if tFar < 0 {
		return 0, 0, false
	}
	return tNear, tFar, true
}
