package library

import (
	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/lattice"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ----------------------------------------------------------------------------
// Voxels
// ----------------------------------------------------------------------------

// CreateVoxels returns a new empty store.
func (l *Library) CreateVoxels() Handle {
	return l.voxels.create(voxels.New(l.background))
}

// CopyVoxels returns a deep copy of h.
func (l *Library) CopyVoxels(h Handle) (c Handle, err error) {
	defer kernel.Recover(&err)
	return l.voxels.create(l.voxels.get(h).Copy()), nil
}

// VoxelsFromMesh voxelizes a closed mesh into a new store.
func (l *Library) VoxelsFromMesh(mh Handle) (h Handle, err error) {
	defer kernel.Recover(&err)
	m := l.meshes.get(mh)
	return l.voxels.create(voxels.Voxelize(m, l.vs, l.background)), nil
}

func (l *Library) DestroyVoxels(h Handle) (err error) {
	defer kernel.Recover(&err)
	l.voxels.destroy(h)
	return nil
}

func (l *Library) VoxelsValid(h Handle) bool {
	return l.voxels.valid(h)
}

// ----------------------------------------------------------------------------
// Meshes
// ----------------------------------------------------------------------------

func (l *Library) CreateMesh() Handle {
	return l.meshes.create(kernel.NewMesh())
}

// MeshFromVoxels extracts the surface of store h into a new mesh.
func (l *Library) MeshFromVoxels(h Handle) (mh Handle, err error) {
	defer kernel.Recover(&err)
	return l.meshes.create(l.voxels.get(h).ExtractSurface(l.vs)), nil
}

func (l *Library) DestroyMesh(h Handle) (err error) {
	defer kernel.Recover(&err)
	l.meshes.destroy(h)
	return nil
}

func (l *Library) MeshValid(h Handle) bool {
	return l.meshes.valid(h)
}

func (l *Library) MeshAddVertex(h Handle, v v3.Vec) (i int, err error) {
	defer kernel.Recover(&err)
	return l.meshes.get(h).AddVertex(v), nil
}

func (l *Library) MeshAddTriangle(h Handle, a, b, c int) (i int, err error) {
	defer kernel.Recover(&err)
	return l.meshes.get(h).AddTriangle(a, b, c), nil
}

func (l *Library) MeshVertex(h Handle, i int) (v v3.Vec, err error) {
	defer kernel.Recover(&err)
	return l.meshes.get(h).Vertex(i), nil
}

func (l *Library) MeshTriangle(h Handle, i int) (a, b, c int, err error) {
	defer kernel.Recover(&err)
	a, b, c = l.meshes.get(h).Triangle(i)
	return a, b, c, nil
}

// MeshCounts returns the vertex and triangle counts of h.
func (l *Library) MeshCounts(h Handle) (vertices, triangles int, err error) {
	defer kernel.Recover(&err)
	m := l.meshes.get(h)
	return m.VertexCount(), m.TriangleCount(), nil
}

func (l *Library) MeshBoundingBox(h Handle) (b kernel.BBox, err error) {
	defer kernel.Recover(&err)
	return l.meshes.get(h).BoundingBox(), nil
}

// ----------------------------------------------------------------------------
// Lattices
// ----------------------------------------------------------------------------

func (l *Library) CreateLattice() Handle {
	return l.lattices.create(lattice.New())
}

func (l *Library) DestroyLattice(h Handle) (err error) {
	defer kernel.Recover(&err)
	l.lattices.destroy(h)
	return nil
}

func (l *Library) LatticeValid(h Handle) bool {
	return l.lattices.valid(h)
}

func (l *Library) LatticeAddSphere(h Handle, center v3.Vec, radius float64) (err error) {
	defer kernel.Recover(&err)
	l.lattices.get(h).AddSphere(center, radius)
	return nil
}

func (l *Library) LatticeAddBeam(h Handle, a, b v3.Vec, ra, rb float64, roundCap bool) (err error) {
	defer kernel.Recover(&err)
	l.lattices.get(h).AddBeam(a, b, ra, rb, roundCap)
	return nil
}
