package voxels

import (
	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var axes = [3]kernel.Coord{{X: 1}, {Y: 1}, {Z: 1}}

// cellEdges lists the 12 edges of a unit cell as pairs of corner offsets.
var cellEdges = [12][2]kernel.Coord{
	{{0, 0, 0}, {1, 0, 0}}, {{0, 1, 0}, {1, 1, 0}}, {{0, 0, 1}, {1, 0, 1}}, {{0, 1, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 1, 0}}, {{1, 0, 0}, {1, 1, 0}}, {{0, 0, 1}, {0, 1, 1}}, {{1, 0, 1}, {1, 1, 1}},
	{{0, 0, 0}, {0, 0, 1}}, {{1, 0, 0}, {1, 0, 1}}, {{0, 1, 0}, {0, 1, 1}}, {{1, 1, 0}, {1, 1, 1}},
}

// ExtractSurface returns the zero iso-surface of s as a triangle mesh in
// world space.
//
// The extractor is dual: a cell is the cube spanned by eight voxel centers,
// and every cell the surface passes through gets one vertex at the mean of
// its edge crossings. Every grid edge whose endpoints disagree on inside
// state produces a quad joining the four cells around it, split into
// triangles (0,1,2) and (2,3,0). Faces wind counter-clockwise seen from
// outside. Output is deterministic for a given store.
func (s *Store) ExtractSurface(vs kernel.VoxelSize) *kernel.Mesh {
	s.check("voxels.ExtractSurface")
	vs.Check("voxels.ExtractSurface")
	x := &extractor{s: s, vs: vs, mesh: kernel.NewMesh(), cells: make(map[kernel.Coord]int)}
	s.ForEachActive(func(c kernel.Coord, v float32) {
		for a := 0; a < 3; a++ {
			x.edge(c, a, v)
			prev := c.Add(kernel.Coord{X: -axes[a].X, Y: -axes[a].Y, Z: -axes[a].Z})
			pv, st := s.Probe(prev)
			if st != Active {
				x.edge(prev, a, pv)
			}
		}
	})
	return x.mesh
}

type extractor struct {
	s     *Store
	vs    kernel.VoxelSize
	mesh  *kernel.Mesh
	cells map[kernel.Coord]int
}

// edge emits the quad for the grid edge from p along axis a if the edge
// crosses the surface. v is the value at p.
func (x *extractor) edge(p kernel.Coord, a int, v float32) {
	q := p.Add(axes[a])
	if inside(v) == inside(x.s.Value(q)) {
		return
	}
	eu, ev := axes[(a+1)%3], axes[(a+2)%3]
	neg := func(c kernel.Coord) kernel.Coord { return kernel.Coord{X: -c.X, Y: -c.Y, Z: -c.Z} }
	quad := [4]int{
		x.vertex(p.Add(neg(eu)).Add(neg(ev))),
		x.vertex(p.Add(neg(ev))),
		x.vertex(p),
		x.vertex(p.Add(neg(eu))),
	}
	if !inside(v) {
		quad[0], quad[1], quad[2], quad[3] = quad[3], quad[2], quad[1], quad[0]
	}
	x.mesh.AddTriangle(quad[0], quad[1], quad[2])
	x.mesh.AddTriangle(quad[2], quad[3], quad[0])
}

// vertex returns the mesh index of the vertex of the cell with minimum
// corner c, creating it on first use.
func (x *extractor) vertex(c kernel.Coord) int {
	if i, ok := x.cells[c]; ok {
		return i
	}
	var sum v3.Vec
	n := 0
	for _, e := range cellEdges {
		c0, c1 := c.Add(e[0]), c.Add(e[1])
		v0, v1 := float64(x.s.Value(c0)), float64(x.s.Value(c1))
		if inside(float32(v0)) == inside(float32(v1)) {
			continue
		}
		t := 0.5
		if v0 != v1 {
			t = v0 / (v0 - v1)
		}
		p0, p1 := c0.Vec(), c1.Vec()
		sum = sum.Add(p0.Add(p1.Sub(p0).MulScalar(t)))
		n++
	}
	pos := c.Vec().Add(v3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	if n > 0 {
		pos = sum.MulScalar(1 / float64(n))
	}
	i := x.mesh.AddVertex(x.vs.VecToMM(pos))
	x.cells[c] = i
	return i
}
