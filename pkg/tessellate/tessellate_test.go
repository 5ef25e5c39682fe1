package tessellate_test

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/lattice"
	"github.com/chazu/narrowband/pkg/scene"
	"github.com/chazu/narrowband/pkg/tessellate"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const vs = kernel.VoxelSize(1)

// sphereStore rasterizes a sphere of radius r at c.
func sphereStore(c v3.Vec, r float64) *voxels.Store {
	l := lattice.New()
	l.AddSphere(c, r)
	s := voxels.New(3)
	s.RasterizeLattice(l, vs)
	return s
}

func newScene(t *testing.T, parts map[string]*voxels.Store, order ...string) *scene.Scene {
	t.Helper()
	sc := scene.New(vs)
	for _, name := range order {
		if _, err := sc.Add(name, parts[name]); err != nil {
			t.Fatal(err)
		}
	}
	return sc
}

func TestNilAndEmptyScene(t *testing.T) {
	meshes, err := tessellate.Tessellate(context.Background(), nil, tessellate.Options{})
	if err != nil || meshes != nil {
		t.Fatalf("nil scene: got %v, %v", meshes, err)
	}
	meshes, err = tessellate.Tessellate(context.Background(), scene.New(vs), tessellate.Options{})
	if err != nil || len(meshes) != 0 {
		t.Fatalf("empty scene: got %v, %v", meshes, err)
	}
}

func TestSinglePart(t *testing.T) {
	sc := newScene(t, map[string]*voxels.Store{"ball": sphereStore(v3.Vec{}, 6)}, "ball")

	meshes, err := tessellate.Tessellate(context.Background(), sc, tessellate.Options{})
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.IsEmpty() || m.TriangleCount() == 0 {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "ball" {
		t.Errorf("expected PartName %q, got %q", "ball", m.PartName)
	}
	if len(m.Normals) != len(m.Vertices) {
		t.Fatalf("normals length %d != vertices length %d", len(m.Normals), len(m.Vertices))
	}
}

func TestFieldNormalsPointOutward(t *testing.T) {
	sc := newScene(t, map[string]*voxels.Store{"ball": sphereStore(v3.Vec{}, 6)}, "ball")

	for _, mode := range []tessellate.Normals{tessellate.FieldNormals, tessellate.FaceNormals} {
		meshes, err := tessellate.Tessellate(context.Background(), sc, tessellate.Options{Normals: mode})
		if err != nil {
			t.Fatal(err)
		}
		m := meshes[0]
		for i := 0; i < m.VertexCount(); i++ {
			p := m.Vertex(i)
			n := v3.Vec{X: float64(m.Normals[i*3]), Y: float64(m.Normals[i*3+1]), Z: float64(m.Normals[i*3+2])}
			if d := n.Dot(p.Normalize()); d < 0.3 {
				t.Fatalf("mode %d vertex %v: normal %v points inward (dot %.2f)", mode, p, n, d)
			}
			if l := n.Length(); math.Abs(l-1) > 1e-3 {
				t.Fatalf("mode %d vertex %v: normal length %v", mode, p, l)
			}
		}
	}
}

func TestPartOrderPreserved(t *testing.T) {
	parts := map[string]*voxels.Store{}
	var order []string
	for i := 0; i < 6; i++ {
		name := string(rune('a' + i))
		parts[name] = sphereStore(v3.Vec{X: float64(20 * i)}, 4)
		order = append(order, name)
	}
	sc := newScene(t, parts, order...)

	meshes, err := tessellate.Tessellate(context.Background(), sc, tessellate.Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != len(order) {
		t.Fatalf("expected %d meshes, got %d", len(order), len(meshes))
	}
	for i, m := range meshes {
		if m.PartName != order[i] {
			t.Errorf("mesh %d is %q, want %q", i, m.PartName, order[i])
		}
		// Each sphere's mesh sits around its own center.
		c := m.BoundingBox().Center()
		if math.Abs(c.X-float64(20*i)) > 1 {
			t.Errorf("mesh %q centered at %v", m.PartName, c)
		}
	}
}

func TestSkipEmpty(t *testing.T) {
	sc := newScene(t, map[string]*voxels.Store{
		"ball":  sphereStore(v3.Vec{}, 4),
		"empty": voxels.New(3),
	}, "ball", "empty")

	meshes, err := tessellate.Tessellate(context.Background(), sc, tessellate.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 || !meshes[1].IsEmpty() {
		t.Fatalf("expected empty second mesh, got %d meshes", len(meshes))
	}

	meshes, err = tessellate.Tessellate(context.Background(), sc, tessellate.Options{SkipEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 1 || meshes[0].PartName != "ball" {
		t.Fatalf("expected only ball, got %d meshes", len(meshes))
	}
}

func TestCancelledContext(t *testing.T) {
	sc := newScene(t, map[string]*voxels.Store{"ball": sphereStore(v3.Vec{}, 4)}, "ball")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tessellate.Tessellate(ctx, sc, tessellate.Options{}); err == nil {
		t.Fatal("expected context error")
	}
}
