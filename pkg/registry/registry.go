// Package registry tracks the lifetime of kernel objects handed out across
// an API boundary. Objects live in a generational arena: a Handle names a
// slot and the generation the slot had when the object was created, so a
// handle kept after Destroy is detected instead of aliasing whatever object
// reuses the slot.
//
// An Arena is not safe for concurrent use; callers that share one guard it
// themselves.
package registry

import (
	"fmt"

	"github.com/chazu/narrowband/pkg/kernel"
)

// Handle identifies an object in an Arena. The zero Handle is never valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.Index, h.Generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena owns values of type T addressed by Handle.
type Arena[T any] struct {
	name  string
	slots []slot[T]
	free  []uint32
	live  int
}

// NewArena returns an empty arena. name prefixes precondition errors.
func NewArena[T any](name string) *Arena[T] {
	// Slot 0 is reserved so the zero Handle never resolves.
	return &Arena[T]{name: name, slots: make([]slot[T], 1)}
}

// Create stores v and returns its handle. Freed slots are reused with a
// bumped generation.
func (a *Arena[T]) Create(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	s.generation++
	s.value = v
	s.live = true
	a.live++
	return Handle{Index: idx, Generation: s.generation}
}

// Valid reports whether h refers to a live object.
func (a *Arena[T]) Valid(h Handle) bool {
	if h.Index == 0 || int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	return s.live && s.generation == h.Generation
}

// Get returns the object for h, or false when h is stale or unknown.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	if !a.Valid(h) {
		var zero T
		return zero, false
	}
	return a.slots[h.Index].value, true
}

// MustGet returns the object for h and fails with kernel.ErrInvalidHandle
// when h is not live.
func (a *Arena[T]) MustGet(h Handle) T {
	v, ok := a.Get(h)
	if !ok {
		kernel.Fail(a.name+".Get", kernel.ErrInvalidHandle, "%s", h)
	}
	return v
}

// Destroy releases h. Destroying a handle that is not live is a
// precondition violation.
func (a *Arena[T]) Destroy(h Handle) {
	if !a.Valid(h) {
		kernel.Fail(a.name+".Destroy", kernel.ErrInvalidHandle, "%s", h)
	}
	s := &a.slots[h.Index]
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.Index)
	a.live--
}

// Len returns the number of live objects.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each calls fn for every live object in slot order.
func (a *Arena[T]) Each(fn func(h Handle, v T)) {
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if s.live {
			fn(Handle{Index: uint32(i), Generation: s.generation}, s.value)
		}
	}
}
