package scene

import (
	"testing"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
)

func TestAddLookup(t *testing.T) {
	vs, _ := kernel.NewVoxelSize(1)
	s := New(vs)
	a := voxels.New(3)
	b := voxels.New(3)
	if _, err := s.Add("a", a); err != nil {
		t.Fatalf("Add(a): %v", err)
	}
	if _, err := s.Add("b", b); err != nil {
		t.Fatalf("Add(b): %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if p := s.Lookup("b"); p == nil || p.Store != b {
		t.Fatalf("Lookup(b) = %v", p)
	}
	if s.Lookup("c") != nil {
		t.Error("Lookup(c) should be nil")
	}
	if parts := s.Parts(); parts[0].Name != "a" || parts[1].Name != "b" {
		t.Errorf("parts out of order: %s, %s", parts[0].Name, parts[1].Name)
	}
}

func TestAddRejects(t *testing.T) {
	vs, _ := kernel.NewVoxelSize(1)
	s := New(vs)
	if _, err := s.Add("", voxels.New(3)); err == nil {
		t.Error("expected error for empty name")
	}
	s.Add("x", voxels.New(3))
	if _, err := s.Add("x", voxels.New(3)); err == nil {
		t.Error("expected error for duplicate name")
	}
}
