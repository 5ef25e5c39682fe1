// Package lattice provides analytic strut and node primitives with closed
// form signed distances. A Lattice is an ordered collection of primitives
// that is unioned into a voxel field by rasterization.
package lattice

import (
	"math"

	"github.com/chazu/narrowband/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind discriminates the primitive variants.
type Kind uint8

const (
	KindSphere Kind = iota + 1
	KindBeam
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBeam:
		return "beam"
	}
	return "unknown"
}

// float32 machine epsilon; endpoints closer than this form a degenerate beam.
const degenerateLength = 1.1920929e-07

// Primitive is a sphere or a beam. For a sphere only A and RadiusA are used.
type Primitive struct {
	Kind     Kind
	A, B     v3.Vec
	RadiusA  float64
	RadiusB  float64
	RoundCap bool
}

// Sphere returns a sphere primitive.
func Sphere(center v3.Vec, radius float64) Primitive {
	return Primitive{Kind: KindSphere, A: center, RadiusA: radius}
}

// SignedDistance returns the exact signed distance from p to the primitive.
func (pr Primitive) SignedDistance(p v3.Vec) float64 {
	switch pr.Kind {
	case KindSphere:
		return p.Sub(pr.A).Length() - pr.RadiusA
	case KindBeam:
		if pr.RoundCap {
			return roundCone(p, pr.A, pr.B, pr.RadiusA, pr.RadiusB)
		}
		return cappedCone(p, pr.A, pr.B, pr.RadiusA, pr.RadiusB)
	}
	kernel.Fail("lattice.Primitive.SignedDistance", kernel.ErrInvalidArgument, "kind %d", pr.Kind)
	return 0
}

// Bounds returns the axis-aligned box enclosing the primitive.
func (pr Primitive) Bounds() kernel.BBox {
	b := kernel.EmptyBBox()
	switch pr.Kind {
	case KindSphere:
		b.Include(pr.A)
		return b.Grow(pr.RadiusA)
	case KindBeam:
		b.IncludeBox(kernel.BBox{Min: pr.A, Max: pr.A}.Grow(pr.RadiusA))
		b.IncludeBox(kernel.BBox{Min: pr.B, Max: pr.B}.Grow(pr.RadiusB))
	}
	return b
}

// roundCone is the distance to a cone between spheres (a, r1) and (b, r2)
// with spherical caps, evaluated with a single square root per branch.
func roundCone(p, a, b v3.Vec, r1, r2 float64) float64 {
	ba := b.Sub(a)
	l2 := ba.Dot(ba)
	rr := r1 - r2
	a2 := l2 - rr*rr
	il2 := 1.0 / l2

	pa := p.Sub(a)
	y := pa.Dot(ba)
	z := y - l2
	xv := pa.MulScalar(l2).Sub(ba.MulScalar(y))
	x2 := xv.Dot(xv)
	y2 := y * y * l2
	z2 := z * z * l2

	k := sign(rr) * rr * rr * x2
	if sign(z)*a2*z2 > k {
		return math.Sqrt(x2+z2)*il2 - r2
	}
	if sign(y)*a2*y2 < k {
		return math.Sqrt(x2+y2)*il2 - r1
	}
	return (math.Sqrt(x2*a2*il2)+y*rr)*il2 - r1
}

// cappedCone is the distance to a frustum with flat end caps of radius ra at
// a and rb at b.
func cappedCone(p, a, b v3.Vec, ra, rb float64) float64 {
	rba := rb - ra
	ba := b.Sub(a)
	baba := ba.Dot(ba)
	pa := p.Sub(a)
	papa := pa.Dot(pa)
	paba := pa.Dot(ba) / baba

	x := math.Sqrt(math.Max(0, papa-paba*paba*baba))
	capR := rb
	if paba < 0.5 {
		capR = ra
	}
	cax := math.Max(0, x-capR)
	cay := math.Abs(paba-0.5) - 0.5

	k := rba*rba + baba
	f := clamp((rba*(x-ra)+paba*baba)/k, 0, 1)
	cbx := x - ra - f*rba
	cby := paba - f

	s := 1.0
	if cbx < 0 && cay < 0 {
		s = -1
	}
	return s * math.Sqrt(math.Min(cax*cax+cay*cay*baba, cbx*cbx+cby*cby*baba))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Lattice is an append-only ordered collection of primitives.
type Lattice struct {
	prims []Primitive
}

// New returns an empty lattice.
func New() *Lattice {
	return &Lattice{}
}

// AddSphere appends a sphere.
func (l *Lattice) AddSphere(center v3.Vec, radius float64) {
	l.prims = append(l.prims, Sphere(center, radius))
}

// AddBeam appends a beam from a (radius ra) to b (radius rb). A round-capped
// beam with coincident endpoints is stored as a sphere of the larger radius.
// A flat-capped beam with coincident endpoints encloses no volume and is
// dropped.
func (l *Lattice) AddBeam(a, b v3.Vec, ra, rb float64, roundCap bool) {
	if b.Sub(a).Length() < degenerateLength {
		if roundCap {
			l.prims = append(l.prims, Sphere(a, math.Max(ra, rb)))
		}
		return
	}
	l.prims = append(l.prims, Primitive{
		Kind:     KindBeam,
		A:        a,
		B:        b,
		RadiusA:  ra,
		RadiusB:  rb,
		RoundCap: roundCap,
	})
}

// Append adds every primitive of o, in order.
func (l *Lattice) Append(o *Lattice) {
	l.prims = append(l.prims, o.prims...)
}

// Len returns the number of primitives.
func (l *Lattice) Len() int {
	return len(l.prims)
}

// Primitives returns the primitives in insertion order. The slice must not
// be modified.
func (l *Lattice) Primitives() []Primitive {
	return l.prims
}

// IsEmpty reports whether the lattice has no primitives.
func (l *Lattice) IsEmpty() bool {
	return len(l.prims) == 0
}

// SignedDistance is the union (minimum) of all primitive distances. An empty
// lattice is everywhere outside.
func (l *Lattice) SignedDistance(p v3.Vec) float64 {
	d := math.Inf(1)
	for _, pr := range l.prims {
		d = math.Min(d, pr.SignedDistance(p))
	}
	return d
}

// Bounds returns the union of all primitive bounds.
func (l *Lattice) Bounds() kernel.BBox {
	b := kernel.EmptyBBox()
	for _, pr := range l.prims {
		b.IncludeBox(pr.Bounds())
	}
	return b
}

var (
	_ kernel.Implicit = (*Lattice)(nil)
	_ kernel.Bounded  = (*Lattice)(nil)
	_ kernel.Implicit = Primitive{}
	_ kernel.Bounded  = Primitive{}
)
