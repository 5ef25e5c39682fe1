package kernel

import (
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshAppend(t *testing.T) {
	m := NewMesh()
	a := m.AddVertex(v3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVertex(v3.Vec{X: 1, Y: 0, Z: 0})
	c := m.AddVertex(v3.Vec{X: 0, Y: 1, Z: 0})
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("AddVertex indices = %d,%d,%d, want 0,1,2", a, b, c)
	}
	if got := m.AddTriangle(a, b, c); got != 0 {
		t.Errorf("AddTriangle() = %d, want 0", got)
	}
	ia, ib, ic := m.Triangle(0)
	if ia != 0 || ib != 1 || ic != 2 {
		t.Errorf("Triangle(0) = %d,%d,%d", ia, ib, ic)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	bb := m.BoundingBox()
	if bb.Max.X != 1 || bb.Max.Y != 1 || bb.Min.Z != 0 {
		t.Errorf("BoundingBox() = %+v", bb)
	}
}

func TestMeshAddTriangleOutOfRange(t *testing.T) {
	m := NewMesh()
	m.AddVertex(v3.Vec{})

	var err error
	func() {
		defer Recover(&err)
		m.AddTriangle(0, 1, 2)
	}()
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("AddTriangle with bad index: err = %v, want ErrIndexOutOfRange", err)
	}
	if m.TriangleCount() != 0 {
		t.Errorf("failed AddTriangle must not modify the mesh")
	}
}

func TestMeshValidateRejectsBadIndex(t *testing.T) {
	m := &Mesh{Vertices: []float32{0, 0, 0}, Indices: []uint32{0, 0, 5}}
	if err := m.Validate(); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Validate() = %v, want ErrIndexOutOfRange", err)
	}
}

func TestMeshComputeNormals(t *testing.T) {
	m := NewMesh()
	m.AddTriangleVertices(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	m.ComputeNormals()
	if len(m.Normals) != 9 {
		t.Fatalf("normals length = %d, want 9", len(m.Normals))
	}
	for i := 0; i < 3; i++ {
		if m.Normals[i*3+2] != 1 {
			t.Errorf("normal %d = %v, want +Z", i, m.Normals[i*3:i*3+3])
		}
	}
}

// --- Units ---

func TestVoxelSizeConversion(t *testing.T) {
	vs, err := NewVoxelSize(0.5)
	if err != nil {
		t.Fatalf("NewVoxelSize: %v", err)
	}
	tests := []struct {
		mm   float64
		want int32
	}{
		{0, 0},
		{1, 2},
		{1.1, 2},
		{1.3, 3},
		{-1.3, -3},
	}
	for _, tt := range tests {
		if got := vs.ToVoxelIndex(tt.mm); got != tt.want {
			t.Errorf("ToVoxelIndex(%v) = %d, want %d", tt.mm, got, tt.want)
		}
	}
	if got := vs.ToMM(float64(vs.ToVoxelIndex(1.3))); got != 1.5 {
		t.Errorf("round trip of 1.3 = %v, want 1.5 (rounded)", got)
	}
	c := vs.CoordOf(v3.Vec{X: 1, Y: -1, Z: 0.2})
	if c != (Coord{2, -2, 0}) {
		t.Errorf("CoordOf = %v", c)
	}
}

func TestVoxelSizeUnset(t *testing.T) {
	var vs VoxelSize
	var err error
	func() {
		defer Recover(&err)
		vs.ToVoxels(1)
	}()
	if !errors.Is(err, ErrVoxelSizeUnset) {
		t.Fatalf("err = %v, want ErrVoxelSizeUnset", err)
	}
	if _, err := NewVoxelSize(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewVoxelSize(0) err = %v", err)
	}
	if _, err := NewVoxelSize(math.NaN()); err == nil {
		t.Errorf("NewVoxelSize(NaN) should fail")
	}
}

func TestRecoverRepanicsForeignPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	var err error
	func() {
		defer Recover(&err)
		panic("boom")
	}()
	t.Fatal("unreachable")
}

// --- Boxes ---

func TestCoordBox(t *testing.T) {
	b := EmptyCoordBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyCoordBox should be empty")
	}
	b.Include(Coord{1, 2, 3})
	b.Include(Coord{-1, 0, 5})
	if b.Min != (Coord{-1, 0, 3}) || b.Max != (Coord{1, 2, 5}) {
		t.Errorf("box = %+v", b)
	}
	if e := b.Extents(); e != (Coord{3, 3, 3}) {
		t.Errorf("Extents = %v", e)
	}
	if b.Volume() != 27 {
		t.Errorf("Volume = %d", b.Volume())
	}
	if !b.Expand(1).Contains(Coord{2, 3, 6}) {
		t.Error("expanded box should contain corner neighbor")
	}
	if b.Contains(Coord{2, 3, 6}) {
		t.Error("box should not contain outside point")
	}
}

func TestBBoxIntersectRay(t *testing.T) {
	b := BBox{Min: v3.Vec{X: -1, Y: -1, Z: -1}, Max: v3.Vec{X: 1, Y: 1, Z: 1}}
	tests := []struct {
		name   string
		o, d   v3.Vec
		ok     bool
		tn, tf float64
	}{
		{"hit", v3.Vec{X: -5}, v3.Vec{X: 1}, true, 4, 6},
		{"inside", v3.Vec{}, v3.Vec{Y: 1}, true, -1, 1},
		{"miss", v3.Vec{X: -5, Y: 3}, v3.Vec{X: 1}, false, 0, 0},
		{"behind", v3.Vec{X: 5}, v3.Vec{X: 1}, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn, tf, ok := b.IntersectRay(tt.o, tt.d)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (math.Abs(tn-tt.tn) > 1e-9 || math.Abs(tf-tt.tf) > 1e-9) {
				t.Errorf("t = [%v,%v], want [%v,%v]", tn, tf, tt.tn, tt.tf)
			}
		})
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	bb BBox
}

func (s *stubSolid) BoundingBox() BBox {
	return s.bb
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{bb: BBox{Max: v3.Vec{X: x, Y: y, Z: z}}}
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) Solid {
	return &stubSolid{bb: BBox{
		Min: v3.Vec{X: -radius, Y: -radius},
		Max: v3.Vec{X: radius, Y: radius, Z: height},
	}}
}

func (k *stubKernel) Sphere(radius float64, _ int) Solid {
	return &stubSolid{bb: EmptyBBox()}
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)
var _ Implicit = ImplicitFunc(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	bb := s.BoundingBox()
	if bb.Min != (v3.Vec{}) {
		t.Errorf("Box min = %v, want origin", bb.Min)
	}
	if bb.Max != (v3.Vec{X: 10, Y: 20, Z: 30}) {
		t.Errorf("Box max = %v, want [10 20 30]", bb.Max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(1, 1, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}

func TestImplicitFunc(t *testing.T) {
	f := ImplicitFunc(func(p v3.Vec) float64 { return p.Length() - 1 })
	if got := f.SignedDistance(v3.Vec{X: 3}); got != 2 {
		t.Errorf("SignedDistance = %v, want 2", got)
	}
}
