package sdfx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// coarse returns a kernel with a low mesh resolution to keep tests quick.
func coarse() *SdfxKernel {
	return &SdfxKernel{MeshCells: 40}
}

func TestBox(t *testing.T) {
	k := coarse()
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	t.Logf("box triangle count: %d", triCount)
}

func TestCylinder(t *testing.T) {
	k := coarse()
	cyl := k.Cylinder(50, 10, 32)
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestDifference(t *testing.T) {
	k := coarse()

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Cylinder(120, 20, 32)
	diff := k.Difference(box, cyl)
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
	t.Logf("box triangles: %d, difference triangles: %d", boxMesh.TriangleCount(), diffMesh.TriangleCount())
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	bb := translated.BoundingBox()

	// Translated box(10,10,10) by (100,200,300) should be centered at (100,200,300).
	const tol = 0.5
	expectMin := v3.Vec{X: 95, Y: 195, Z: 295}
	expectMax := v3.Vec{X: 105, Y: 205, Z: 305}
	if bb.Min.Sub(expectMin).Length() > tol {
		t.Errorf("min = %v, expected ~%v", bb.Min, expectMin)
	}
	if bb.Max.Sub(expectMax).Length() > tol {
		t.Errorf("max = %v, expected ~%v", bb.Max, expectMax)
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	bb := box.BoundingBox()

	const tol = 0.01
	expectMin := v3.Vec{X: -50, Y: -25, Z: -12.5}
	expectMax := v3.Vec{X: 50, Y: 25, Z: 12.5}
	if bb.Min.Sub(expectMin).Length() > tol {
		t.Errorf("min = %v, expected %v", bb.Min, expectMin)
	}
	if bb.Max.Sub(expectMax).Length() > tol {
		t.Errorf("max = %v, expected %v", bb.Max, expectMax)
	}
}

func TestShapeIsImplicit(t *testing.T) {
	k := New()
	s := k.Sphere(5, 0)
	imp, ok := s.(kernel.Implicit)
	if !ok {
		t.Fatal("sdfx shapes must implement kernel.Implicit")
	}
	tests := []struct {
		p    v3.Vec
		want float64
	}{
		{v3.Vec{X: 5}, 0},
		{v3.Vec{X: 10}, 5},
		{v3.Vec{}, -5},
	}
	for _, tt := range tests {
		if got := imp.SignedDistance(tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SignedDistance(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	cyl := k.Rotate(k.Cylinder(20, 2, 0), 0, 90, 0)
	bb := cyl.BoundingBox()
	if size := bb.Size(); size.X < 19 || size.Z > 5 {
		t.Errorf("rotated cylinder size = %v, expected long along X", size)
	}
}

func TestRenderSolidRasterizesDirectly(t *testing.T) {
	k := New()
	vs, err := kernel.NewVoxelSize(1)
	if err != nil {
		t.Fatal(err)
	}
	s := voxels.New(3)
	solid := k.Difference(k.Box(20, 20, 20), k.Translate(k.Sphere(6, 0), 10, 10, 10))
	if err := s.RenderSolid(k, solid, vs); err != nil {
		t.Fatalf("RenderSolid: %v", err)
	}
	if !s.IsInside(v3.Vec{X: -5, Y: -5, Z: -5}, vs) {
		t.Error("box interior should be inside")
	}
	if s.IsInside(v3.Vec{X: 8, Y: 8, Z: 8}, vs) {
		t.Error("sphere cut should be outside")
	}
	if s.IsInside(v3.Vec{X: 15}, vs) {
		t.Error("beyond the box should be outside")
	}
}

func TestMeshVoxelizesLikeImplicit(t *testing.T) {
	k := coarse()
	vs, _ := kernel.NewVoxelSize(1)
	box := k.Box(16, 16, 16)

	direct := voxels.New(3)
	direct.RasterizeImplicit(box.BoundingBox(), box.(kernel.Implicit), vs)

	m, err := k.ToMesh(box)
	if err != nil {
		t.Fatal(err)
	}
	viaMesh := voxels.Voxelize(m, vs, 3)

	a, b := direct.ActiveBBox(), viaMesh.ActiveBBox()
	for axis := 0; axis < 3; axis++ {
		if d := a.Min.Axis(axis) - b.Min.Axis(axis); d < -1 || d > 1 {
			t.Errorf("min axis %d: %d vs %d", axis, a.Min.Axis(axis), b.Min.Axis(axis))
		}
		if d := a.Max.Axis(axis) - b.Max.Axis(axis); d < -1 || d > 1 {
			t.Errorf("max axis %d: %d vs %d", axis, a.Max.Axis(axis), b.Max.Axis(axis))
		}
	}
}

func TestWriteSTL(t *testing.T) {
	k := coarse()
	m, err := k.ToMesh(k.Sphere(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sphere.stl")
	if err := WriteSTL(path, m); err != nil {
		t.Fatalf("WriteSTL: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Binary STL: 80-byte header, count, 50 bytes per triangle.
	if want := int64(84 + 50*m.TriangleCount()); info.Size() != want {
		t.Errorf("file size = %d, want %d", info.Size(), want)
	}
}

func TestUnwrapForeignSolidFails(t *testing.T) {
	k := New()
	var err error
	func() {
		defer kernel.Recover(&err)
		k.Union(k.Box(1, 1, 1), foreign{})
	}()
	if err == nil {
		t.Fatal("expected precondition error for foreign solid")
	}
}

type foreign struct{}

func (foreign) BoundingBox() kernel.BBox { return kernel.EmptyBBox() }
