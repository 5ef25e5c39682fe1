package voxels

import (
	"math"
	"sort"

	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Small irrational offsets keep parity rays off mesh edges and vertices that
// sit on integer voxel rows.
const (
	rayJitterY = 1.4142135623730951e-4
	rayJitterZ = 1.7320508075688772e-4
)

type column struct {
	y, z int32
}

// Voxelize converts a triangle mesh in world space to a narrow-band field.
// Unsigned distances to the triangles are computed exactly inside the band;
// signs come from ray parity along +X through every (y, z) voxel row, and
// rows between an entry and exit crossing are filled with interior values.
// Closed meshes give exact results. Open or self-intersecting meshes give
// best-effort signs.
func Voxelize(m *kernel.Mesh, vs kernel.VoxelSize, background float32) *Store {
	vs.Check("voxels.Voxelize")
	if m == nil {
		kernel.Fail("voxels.Voxelize", kernel.ErrUninitialized, "nil mesh")
	}
	if err := m.Validate(); err != nil {
		panic(err)
	}
	s := New(background)
	nt := m.TriangleCount()
	if nt == 0 {
		return s
	}

	tris := make([][3]v3.Vec, nt)
	for i := range tris {
		a, b, c := m.TriangleVertices(i)
		tris[i] = [3]v3.Vec{vs.VecToVoxels(a), vs.VecToVoxels(b), vs.VecToVoxels(c)}
	}

	band := make(map[kernel.Coord]float32)
	reach := float64(background)
	pad := math.Ceil(reach)
	for _, t := range tris {
		lo, hi := triBounds(t)
		for z := int32(math.Floor(lo.Z - pad)); float64(z) <= hi.Z+pad; z++ {
			for y := int32(math.Floor(lo.Y - pad)); float64(y) <= hi.Y+pad; y++ {
				for x := int32(math.Floor(lo.X - pad)); float64(x) <= hi.X+pad; x++ {
					c := kernel.Coord{X: x, Y: y, Z: z}
					d := pointTriangleDistance(c.Vec(), t[0], t[1], t[2])
					if d >= reach {
						continue
					}
					if cur, ok := band[c]; !ok || float32(d) < cur {
						band[c] = float32(d)
					}
				}
			}
		}
	}

	crossings := rowCrossings(tris)
	for col, xs := range crossings {
		for k := 0; k+1 < len(xs); k += 2 {
			for x := int32(math.Floor(xs[k])) + 1; float64(x) < xs[k+1]; x++ {
				s.setValue(kernel.Coord{X: x, Y: col.y, Z: col.z}, -background)
			}
		}
	}
	for c, d := range band {
		if insideRow(crossings[column{c.Y, c.Z}], float64(c.X)) {
			d = -d
		}
		s.setValue(c, d)
	}
	s.Prune()
	return s
}

// RenderMesh voxelizes m at the background of s and unions it into s.
func (s *Store) RenderMesh(m *kernel.Mesh, vs kernel.VoxelSize) {
	s.check("voxels.RenderMesh")
	s.BoolUnion(Voxelize(m, vs, s.background))
}

func triBounds(t [3]v3.Vec) (lo, hi v3.Vec) {
	lo, hi = t[0], t[0]
	for _, p := range t[1:] {
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}

// rowCrossings returns, for every voxel row, the sorted X positions at which
// a ray along +X crosses the mesh.
func rowCrossings(tris [][3]v3.Vec) map[column][]float64 {
	rows := make(map[column][]float64)
	for _, t := range tris {
		lo, hi := triBounds(t)
		for z := int32(math.Floor(lo.Z)); float64(z) <= hi.Z; z++ {
			for y := int32(math.Floor(lo.Y)); float64(y) <= hi.Y; y++ {
				py := float64(y) + rayJitterY
				pz := float64(z) + rayJitterZ
				if x, ok := rayCrossX(t, py, pz); ok {
					col := column{y, z}
					rows[col] = append(rows[col], x)
				}
			}
		}
	}
	for _, xs := range rows {
		sort.Float64s(xs)
	}
	return rows
}

// rayCrossX intersects the line {y=py, z=pz} with triangle t and returns the
// X coordinate of the hit.
func rayCrossX(t [3]v3.Vec, py, pz float64) (float64, bool) {
	a, b, c := t[0], t[1], t[2]
	det := (b.Y-a.Y)*(c.Z-a.Z) - (c.Y-a.Y)*(b.Z-a.Z)
	if math.Abs(det) < 1e-12 {
		return 0, false
	}
	u := ((py-a.Y)*(c.Z-a.Z) - (c.Y-a.Y)*(pz-a.Z)) / det
	v := ((b.Y-a.Y)*(pz-a.Z) - (py-a.Y)*(b.Z-a.Z)) / det
	if u < 0 || v < 0 || u+v > 1 {
		return 0, false
	}
	return a.X + u*(b.X-a.X) + v*(c.X-a.X), true
}

// insideRow reports whether an odd number of crossings lie before x.
func insideRow(xs []float64, x float64) bool {
	return sort.SearchFloat64s(xs, x)%2 == 1
}

// pointTriangleDistance returns the Euclidean distance from p to triangle
// abc, using the Voronoi-region walk of the closest-point query.
func pointTriangleDistance(p, a, b, c v3.Vec) float64 {
	return p.Sub(closestOnTriangle(p, a, b, c)).Length()
}

func closestOnTriangle(p, a, b, c v3.Vec) v3.Vec {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.MulScalar(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.MulScalar(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
}
