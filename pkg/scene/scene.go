// Package scene holds the named output fields of one script evaluation.
package scene

import (
	"fmt"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
)

// Part is one emitted field.
type Part struct {
	Name  string
	Store *voxels.Store
}

// Scene is an ordered set of parts sampled at one voxel size.
type Scene struct {
	VoxelSize kernel.VoxelSize
	parts     []*Part
	index     map[string]int
}

// New returns an empty scene.
func New(vs kernel.VoxelSize) *Scene {
	return &Scene{VoxelSize: vs, index: make(map[string]int)}
}

// Add appends a part. Names must be non-empty and unique.
func (s *Scene) Add(name string, store *voxels.Store) (*Part, error) {
	if name == "" {
		return nil, fmt.Errorf("scene: part name is empty")
	}
	if _, dup := s.index[name]; dup {
		return nil, fmt.Errorf("scene: duplicate part %q", name)
	}
	p := &Part{Name: name, Store: store}
	s.index[name] = len(s.parts)
	s.parts = append(s.parts, p)
	return p, nil
}

// Lookup returns the part called name, or nil.
func (s *Scene) Lookup(name string) *Part {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return s.parts[i]
}

// Parts returns the parts in emission order.
func (s *Scene) Parts() []*Part {
	return s.parts
}

func (s *Scene) Len() int {
	return len(s.parts)
}
