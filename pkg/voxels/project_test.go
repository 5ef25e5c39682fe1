package voxels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestProjectSliceDown(t *testing.T) {
	vs := voxelSize(t, 1)
	s := New(testBackground)
	s.SetValue(kernel.Coord{X: 4, Y: -2, Z: 10}, -0.5)
	s.ProjectSlice(10, 0, vs)

	for z := int32(0); z <= 10; z++ {
		assert.True(t, s.IsActive(kernel.Coord{X: 4, Y: -2, Z: z}), "z=%d", z)
	}
	for z := int32(1); z <= 10; z++ {
		assert.True(t, s.IsInsideVoxel(kernel.Coord{X: 4, Y: -2, Z: z}), "z=%d", z)
	}
	assert.False(t, s.IsActive(kernel.Coord{X: 4, Y: -2, Z: -3}))
	assert.False(t, s.IsActive(kernel.Coord{X: 4, Y: -2, Z: 11}))
}

func TestProjectSliceUp(t *testing.T) {
	vs := voxelSize(t, 0.5)
	s := New(testBackground)
	s.SetValue(kernel.Coord{Z: -4}, -1)
	s.ProjectSlice(-2, 2, vs)
	for z := int32(-4); z <= 4; z++ {
		assert.True(t, s.IsActive(kernel.Coord{Z: z}), "z=%d", z)
	}
}

func TestProjectSliceFillsOverhang(t *testing.T) {
	vs := voxelSize(t, 1)
	s := sphereStore(t, v3.Vec{Z: 10}, 3, vs)
	assert.False(t, s.IsInsideVoxel(kernel.Coord{Z: 2}))
	s.ProjectSlice(10, 0, vs)
	for z := int32(1); z <= 10; z++ {
		assert.True(t, s.IsInsideVoxel(kernel.Coord{Z: z}), "z=%d", z)
	}
	assert.False(t, s.IsInsideVoxel(kernel.Coord{X: 6, Z: 2}))
}

func TestProjectSliceSameLayerIsNoop(t *testing.T) {
	vs := voxelSize(t, 1)
	s := sphereStore(t, v3.Vec{}, 3, vs)
	before := activeValues(s)
	s.ProjectSlice(0.2, -0.2, vs)
	assert.Equal(t, before, activeValues(s))
}
