package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh. All arrays are flat: Vertices has 3 floats per
// vertex (x,y,z), Indices has 3 uint32s per triangle. Normals is optional
// and, when present, holds 3 floats per vertex for rendering.
//
// Meshes grow by appending; every index must refer to an existing vertex.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which scene part this came from
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v v3.Vec) int {
	m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	return m.VertexCount() - 1
}

// AddTriangle appends a triangle and returns its index. Indices that do not
// refer to an existing vertex are a precondition violation.
func (m *Mesh) AddTriangle(a, b, c int) int {
	n := m.VertexCount()
	for _, i := range [3]int{a, b, c} {
		if i < 0 || i >= n {
			Fail("kernel.Mesh.AddTriangle", ErrIndexOutOfRange, "vertex %d of %d", i, n)
		}
	}
	m.Indices = append(m.Indices, uint32(a), uint32(b), uint32(c))
	return m.TriangleCount() - 1
}

// AddTriangleVertices appends three new vertices and a triangle joining them.
func (m *Mesh) AddTriangleVertices(a, b, c v3.Vec) int {
	ia := m.AddVertex(a)
	ib := m.AddVertex(b)
	ic := m.AddVertex(c)
	return m.AddTriangle(ia, ib, ic)
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	if i < 0 || i >= m.VertexCount() {
		Fail("kernel.Mesh.Vertex", ErrIndexOutOfRange, "vertex %d of %d", i, m.VertexCount())
	}
	return v3.Vec{X: float64(m.Vertices[i*3]), Y: float64(m.Vertices[i*3+1]), Z: float64(m.Vertices[i*3+2])}
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c int) {
	if i < 0 || i >= m.TriangleCount() {
		Fail("kernel.Mesh.Triangle", ErrIndexOutOfRange, "triangle %d of %d", i, m.TriangleCount())
	}
	return int(m.Indices[i*3]), int(m.Indices[i*3+1]), int(m.Indices[i*3+2])
}

// TriangleVertices returns the corner positions of triangle i.
func (m *Mesh) TriangleVertices(i int) (a, b, c v3.Vec) {
	ia, ib, ic := m.Triangle(i)
	return m.Vertex(ia), m.Vertex(ib), m.Vertex(ic)
}

// Validate reports the first index that does not refer to an existing vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return &PreconditionError{Op: "kernel.Mesh.Validate", Err: ErrInvalidArgument}
	}
	if len(m.Indices)%3 != 0 {
		return &PreconditionError{Op: "kernel.Mesh.Validate", Err: ErrInvalidArgument}
	}
	n := uint32(m.VertexCount())
	for _, idx := range m.Indices {
		if idx >= n {
			return &PreconditionError{Op: "kernel.Mesh.Validate", Err: ErrIndexOutOfRange}
		}
	}
	return nil
}

// BoundingBox returns the world-space extent of all vertices.
func (m *Mesh) BoundingBox() BBox {
	b := EmptyBBox()
	for i := 0; i < m.VertexCount(); i++ {
		b.Include(m.Vertex(i))
	}
	return b
}

// ComputeNormals fills Normals with area-weighted vertex normals averaged
// from the incident face normals.
func (m *Mesh) ComputeNormals() {
	acc := make([]v3.Vec, m.VertexCount())
	for t := 0; t < m.TriangleCount(); t++ {
		ia, ib, ic := m.Triangle(t)
		a, b, c := m.Vertex(ia), m.Vertex(ib), m.Vertex(ic)
		n := b.Sub(a).Cross(c.Sub(a))
		acc[ia] = acc[ia].Add(n)
		acc[ib] = acc[ib].Add(n)
		acc[ic] = acc[ic].Add(n)
	}
	m.Normals = make([]float32, 0, len(acc)*3)
	for _, n := range acc {
		if l := n.Length(); l > 1e-12 {
			n = n.MulScalar(1 / l)
		}
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
}
