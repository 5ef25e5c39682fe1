// Package library is the handle-based boundary of the kernel. Stores,
// meshes and lattices live in generational arenas and are addressed by
// Handle; every operation converts precondition violations into returned
// errors, so a host holding stale or foreign handles gets an error instead
// of a crash.
//
// Handle bookkeeping is safe for concurrent use. Operating on the same
// store from two goroutines at once is not.
package library

import (
	"log/slog"
	"sync"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/lattice"
	"github.com/chazu/narrowband/pkg/registry"
	"github.com/chazu/narrowband/pkg/voxels"
)

// Handle addresses one object in a Library.
type Handle = registry.Handle

type arena[T any] struct {
	mu sync.RWMutex
	a  *registry.Arena[T]
}

func newArena[T any](name string) *arena[T] {
	return &arena[T]{a: registry.NewArena[T](name)}
}

func (a *arena[T]) create(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.a.Create(v)
}

func (a *arena[T]) get(h Handle) T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.a.MustGet(h)
}

func (a *arena[T]) valid(h Handle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.a.Valid(h)
}

func (a *arena[T]) destroy(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.a.Destroy(h)
}

func (a *arena[T]) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.a.Len()
}

// Library owns every object created through it.
type Library struct {
	vs         kernel.VoxelSize
	background float32
	log        *slog.Logger

	voxels   *arena[*voxels.Store]
	meshes   *arena[*kernel.Mesh]
	lattices *arena[*lattice.Lattice]
}

// New returns a library whose stores use voxel size vs and narrow-band half
// width background. A nil logger means slog.Default().
func New(vs kernel.VoxelSize, background float32, log *slog.Logger) (lib *Library, err error) {
	defer kernel.Recover(&err)
	vs.Check("library.New")
	voxels.New(background) // validates background
	if log == nil {
		log = slog.Default()
	}
	lib = &Library{
		vs:         vs,
		background: background,
		log:        log,
		voxels:     newArena[*voxels.Store]("library.voxels"),
		meshes:     newArena[*kernel.Mesh]("library.mesh"),
		lattices:   newArena[*lattice.Lattice]("library.lattice"),
	}
	log.Info("library initialized", "voxel_size_mm", vs.MM(), "background", background)
	return lib, nil
}

// VoxelSize returns the grid spacing shared by every store.
func (l *Library) VoxelSize() kernel.VoxelSize { return l.vs }

// Background returns the narrow-band half width in voxels.
func (l *Library) Background() float32 { return l.background }

// Counts returns the number of live stores, meshes and lattices.
func (l *Library) Counts() (voxels, meshes, lattices int) {
	return l.voxels.len(), l.meshes.len(), l.lattices.len()
}

// Store returns the store behind h for direct use. The library keeps
// ownership.
func (l *Library) Store(h Handle) (s *voxels.Store, err error) {
	defer kernel.Recover(&err)
	return l.voxels.get(h), nil
}

// Mesh returns the mesh behind h.
func (l *Library) Mesh(h Handle) (m *kernel.Mesh, err error) {
	defer kernel.Recover(&err)
	return l.meshes.get(h), nil
}

// Lattice returns the lattice behind h.
func (l *Library) Lattice(h Handle) (lat *lattice.Lattice, err error) {
	defer kernel.Recover(&err)
	return l.lattices.get(h), nil
}

// AdoptVoxels registers an existing store and returns its handle.
func (l *Library) AdoptVoxels(s *voxels.Store) (h Handle, err error) {
	defer kernel.Recover(&err)
	s.Background()
	return l.voxels.create(s), nil
}

// AdoptMesh registers an existing mesh.
func (l *Library) AdoptMesh(m *kernel.Mesh) (h Handle, err error) {
	if err = m.Validate(); err != nil {
		return Handle{}, err
	}
	return l.meshes.create(m), nil
}
