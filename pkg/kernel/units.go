package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VoxelSize is the world-space edge length of one voxel in mm. It is passed
// explicitly to every operation that converts between world and voxel
// coordinates, so several independently scaled kernels can coexist in one
// process. The zero value means "unset".
type VoxelSize float64

// NewVoxelSize validates mm and returns it as a VoxelSize.
func NewVoxelSize(mm float64) (VoxelSize, error) {
	if !(mm > 0) || math.IsInf(mm, 0) {
		return 0, &PreconditionError{Op: "kernel.NewVoxelSize", Err: ErrInvalidArgument}
	}
	return VoxelSize(mm), nil
}

// MM returns the voxel size in millimetres.
func (vs VoxelSize) MM() float64 {
	return float64(vs)
}

// Check panics if the voxel size is unset.
func (vs VoxelSize) Check(op string) {
	if !(vs > 0) {
		Fail(op, ErrVoxelSizeUnset, "")
	}
}

// ToVoxels converts a world length to fractional voxel units.
func (vs VoxelSize) ToVoxels(mm float64) float64 {
	vs.Check("kernel.ToVoxels")
	return mm / float64(vs)
}

// ToVoxelIndex converts a world coordinate to the nearest voxel index.
// The rounding means ToMM(ToVoxelIndex(x)) == x does not hold in general.
func (vs VoxelSize) ToVoxelIndex(mm float64) int32 {
	return int32(math.Round(vs.ToVoxels(mm)))
}

// ToMM converts voxel units to a world length.
func (vs VoxelSize) ToMM(voxels float64) float64 {
	vs.Check("kernel.ToMM")
	return voxels * float64(vs)
}

// CoordOf returns the voxel containing the world point p.
func (vs VoxelSize) CoordOf(p v3.Vec) Coord {
	return Coord{vs.ToVoxelIndex(p.X), vs.ToVoxelIndex(p.Y), vs.ToVoxelIndex(p.Z)}
}

// CoordToMM returns the world position of the center of voxel c.
func (vs VoxelSize) CoordToMM(c Coord) v3.Vec {
	return v3.Vec{X: vs.ToMM(float64(c.X)), Y: vs.ToMM(float64(c.Y)), Z: vs.ToMM(float64(c.Z))}
}

// VecToVoxels converts a world point to fractional voxel coordinates.
func (vs VoxelSize) VecToVoxels(p v3.Vec) v3.Vec {
	return v3.Vec{X: vs.ToVoxels(p.X), Y: vs.ToVoxels(p.Y), Z: vs.ToVoxels(p.Z)}
}

// VecToMM converts fractional voxel coordinates to a world point.
func (vs VoxelSize) VecToMM(p v3.Vec) v3.Vec {
	return v3.Vec{X: vs.ToMM(p.X), Y: vs.ToMM(p.Y), Z: vs.ToMM(p.Z)}
}

// BoxToVoxels returns the voxel box covering the world box b.
func (vs VoxelSize) BoxToVoxels(b BBox) CoordBox {
	return CoordBox{Min: vs.CoordOf(b.Min), Max: vs.CoordOf(b.Max)}
}

// BoxToMM returns the world box spanned by the voxel centers of b.
func (vs VoxelSize) BoxToMM(b CoordBox) BBox {
	return BBox{Min: vs.CoordToMM(b.Min), Max: vs.CoordToMM(b.Max)}
}
