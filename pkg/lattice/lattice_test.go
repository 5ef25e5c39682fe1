package lattice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestSphereDistance(t *testing.T) {
	s := Sphere(v3.Vec{}, 5)
	assert.InDelta(t, 0, s.SignedDistance(v3.Vec{X: 5}), 1e-9)
	assert.InDelta(t, 5, s.SignedDistance(v3.Vec{X: 10}), 1e-9)
	assert.InDelta(t, -5, s.SignedDistance(v3.Vec{}), 1e-9)
}

func TestDegenerateRoundBeamIsSphere(t *testing.T) {
	l := New()
	l.AddBeam(v3.Vec{}, v3.Vec{}, 3, 3, true)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, KindSphere, l.Primitives()[0].Kind)
	assert.InDelta(t, 0, l.SignedDistance(v3.Vec{X: 3}), 1e-9)

	l = New()
	l.AddBeam(v3.Vec{X: 1}, v3.Vec{X: 1}, 2, 4, true)
	assert.Equal(t, 4.0, l.Primitives()[0].RadiusA, "larger radius wins")
}

func TestDegenerateFlatBeamSkipped(t *testing.T) {
	l := New()
	l.AddBeam(v3.Vec{}, v3.Vec{}, 3, 3, false)
	assert.True(t, l.IsEmpty())
	assert.True(t, l.Bounds().IsEmpty())
}

func TestRoundBeamCapsule(t *testing.T) {
	l := New()
	l.AddBeam(v3.Vec{}, v3.Vec{X: 10}, 2, 2, true)
	tests := []struct {
		name string
		p    v3.Vec
		want float64
	}{
		{"side", v3.Vec{X: 5, Y: 4}, 2},
		{"axis", v3.Vec{X: 5}, -2},
		{"beyond a", v3.Vec{X: -5}, 3},
		{"beyond b", v3.Vec{X: 13}, 1},
		{"diagonal cap", v3.Vec{X: 13, Y: 4}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, l.SignedDistance(tt.p), 1e-9)
		})
	}
}

func TestRoundBeamCone(t *testing.T) {
	// Cone from radius 2 to radius 1 along Z. The surface at the middle of
	// the axis sits near radius 1.5 (the slant shifts it slightly).
	l := New()
	l.AddBeam(v3.Vec{}, v3.Vec{Z: 10}, 2, 1, true)
	d := l.SignedDistance(v3.Vec{X: 1.5, Z: 5})
	assert.InDelta(t, 0, d, 0.02)
	assert.Less(t, l.SignedDistance(v3.Vec{Z: 5}), 0.0)
	assert.InDelta(t, 1, l.SignedDistance(v3.Vec{Z: -3}), 1e-9, "below the wide cap")
}

func TestFlatBeamCylinder(t *testing.T) {
	l := New()
	l.AddBeam(v3.Vec{}, v3.Vec{Z: 10}, 2, 2, false)
	tests := []struct {
		name string
		p    v3.Vec
		want float64
	}{
		{"center", v3.Vec{Z: 5}, -2},
		{"side", v3.Vec{X: 5, Z: 5}, 3},
		{"above cap", v3.Vec{Z: 12}, 2},
		{"below cap", v3.Vec{Z: -1}, 1},
		{"near cap inside", v3.Vec{Z: 9.5}, -0.5},
		{"corner", v3.Vec{X: 5, Z: 14}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, l.SignedDistance(tt.p), 1e-9)
		})
	}
}

func TestPrimitiveBounds(t *testing.T) {
	b := Primitive{Kind: KindBeam, A: v3.Vec{}, B: v3.Vec{X: 10}, RadiusA: 1, RadiusB: 3}.Bounds()
	assert.Equal(t, v3.Vec{X: -1, Y: -3, Z: -3}, b.Min)
	assert.Equal(t, v3.Vec{X: 13, Y: 3, Z: 3}, b.Max)
}

func TestLatticeUnionOrderIndependent(t *testing.T) {
	a := New()
	a.AddSphere(v3.Vec{}, 2)
	a.AddBeam(v3.Vec{X: 1}, v3.Vec{X: 8, Y: 3}, 1, 0.5, true)
	a.AddBeam(v3.Vec{Z: -4}, v3.Vec{Z: 4}, 1, 1, false)

	b := New()
	for i := a.Len() - 1; i >= 0; i-- {
		b.prims = append(b.prims, a.Primitives()[i])
	}
	for _, p := range []v3.Vec{{X: 3, Y: 1}, {Z: 3.5}, {X: -1, Y: 1, Z: 1}, {X: 20}} {
		assert.Equal(t, a.SignedDistance(p), b.SignedDistance(p))
	}
	assert.Equal(t, a.Bounds(), b.Bounds())
}

func TestEmptyLatticeIsOutside(t *testing.T) {
	assert.True(t, math.IsInf(New().SignedDistance(v3.Vec{}), 1))
}

func TestAppendKeepsOrder(t *testing.T) {
	a := New()
	a.AddSphere(v3.Vec{}, 1)
	b := New()
	b.AddBeam(v3.Vec{}, v3.Vec{Z: 4}, 1, 1, false)
	b.AddSphere(v3.Vec{X: 9}, 2)
	a.Append(b)
	require.Equal(t, 3, a.Len())
	assert.Equal(t, KindSphere, a.Primitives()[0].Kind)
	assert.Equal(t, KindBeam, a.Primitives()[1].Kind)
	assert.InDelta(t, 0, a.SignedDistance(v3.Vec{X: 11}), 1e-9)
	assert.Equal(t, 2, b.Len())
}
