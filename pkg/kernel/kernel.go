// Package kernel defines the shared vocabulary of the narrow-band geometry
// kernel: world-space vectors and boxes, integer voxel coordinates, the
// voxel-size unit conversion, the triangle mesh container, and the
// interfaces through which implicit functions and solid-modeling backends
// (sdfx, manifold) feed geometry into voxel fields.
package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Implicit is a signed distance function sampled in world space (mm).
// Negative values are inside, positive values outside. Implementations must
// be pure: rasterization calls SignedDistance once per sampled voxel and may
// do so from several goroutines.
type Implicit interface {
	SignedDistance(p v3.Vec) float64
}

// ImplicitFunc adapts an ordinary function to the Implicit interface.
type ImplicitFunc func(p v3.Vec) float64

// SignedDistance calls f(p).
func (f ImplicitFunc) SignedDistance(p v3.Vec) float64 {
	return f(p)
}

// Bounded is implemented by implicits that know their own world-space extent.
type Bounded interface {
	Bounds() BBox
}

// Solid is an opaque handle to a solid-modeling backend solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() BBox
}

// Kernel is the abstract solid-modeling backend interface. Solids produced
// by a Kernel enter a voxel field either directly (when they also implement
// Implicit) or through their triangle mesh.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
