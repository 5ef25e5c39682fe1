package engine

import (
	"fmt"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/lattice"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// registerBuiltins installs the narrowband builtins into a zygomys
// environment. Operators are functional: they return new fields and leave
// their arguments untouched.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens and kebab-case names are recognized.
func registerBuiltins(env *zygo.Zlisp, s *session) {
	registerShapes(env, s)
	registerComposition(env, s)
	registerQueries(env, s)
}

func registerShapes(env *zygo.Zlisp, s *session) {

	// (vec3 1 2 3)
	add(env, "vec3", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 3, 3); err != nil {
			return nil, err
		}
		f, err := floats(args)
		if err != nil {
			return nil, err
		}
		return &sexpVec3{vec: v3.Vec{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// (sphere (vec3 0 0 0) 5)
	add(env, "sphere", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 2, 2); err != nil {
			return nil, err
		}
		c, err := toVec3(args[0])
		if err != nil {
			return nil, fmt.Errorf("center: %w", err)
		}
		r, err := toFloat64(args[1])
		if err != nil {
			return nil, fmt.Errorf("radius: %w", err)
		}
		l := lattice.New()
		l.AddSphere(c, r)
		return &sexpLattice{lat: l}, nil
	})

	// (beam (vec3 0 0 0) (vec3 0 0 10) 2 1 :round false)
	add(env, "beam", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := arity(pa.positional, 3, 4); err != nil {
			return nil, err
		}
		a, err := toVec3(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		b, err := toVec3(pa.positional[1])
		if err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
		radii, err := floats(pa.positional[2:])
		if err != nil {
			return nil, fmt.Errorf("radius: %w", err)
		}
		ra, rb := radii[0], radii[0]
		if len(radii) == 2 {
			rb = radii[1]
		}
		round := true
		if v, ok := pa.kw["round"]; ok {
			if round, err = toBool(v); err != nil {
				return nil, fmt.Errorf("round: %w", err)
			}
		}
		l := lattice.New()
		l.AddBeam(a, b, ra, rb, round)
		return &sexpLattice{lat: l}, nil
	})

	// (lattice (sphere ...) (beam ...) ...)
	add(env, "lattice", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		l := lattice.New()
		for i, a := range args {
			items := []zygo.Sexp{a}
			if _, isLat := a.(*sexpLattice); !isLat {
				var err error
				if items, err = sexpListToSlice(a); err != nil {
					return nil, fmt.Errorf("argument %d: %w", i+1, err)
				}
			}
			for _, item := range items {
				sub, ok := item.(*sexpLattice)
				if !ok {
					return nil, fmt.Errorf("argument %d: expected sphere, beam or lattice, got %s", i+1, describe(item))
				}
				l.Append(sub.lat)
			}
		}
		return &sexpLattice{lat: l}, nil
	})

	// (box 10 20 30), centered on the origin
	add(env, "box", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 3, 3); err != nil {
			return nil, err
		}
		f, err := floats(args)
		if err != nil {
			return nil, err
		}
		return &sexpSolid{solid: s.kernel.Box(f[0], f[1], f[2])}, nil
	})

	// (cylinder height radius), along Z
	add(env, "cylinder", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 2, 2); err != nil {
			return nil, err
		}
		f, err := floats(args)
		if err != nil {
			return nil, err
		}
		return &sexpSolid{solid: s.kernel.Cylinder(f[0], f[1], 0)}, nil
	})

	// (ball radius)
	add(env, "ball", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		r, err := toFloat64(args[0])
		if err != nil {
			return nil, err
		}
		return &sexpSolid{solid: s.kernel.Sphere(r, 0)}, nil
	})

	// (translate solid (vec3 x y z)) or (translate solid :by (vec3 ...))
	add(env, "translate", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["by"]; ok {
			pa.positional = append(pa.positional, v)
		}
		if err := arity(pa.positional, 2, 2); err != nil {
			return nil, err
		}
		sol, err := toSolid(pa.positional[0])
		if err != nil {
			return nil, err
		}
		d, err := toVec3(pa.positional[1])
		if err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		return &sexpSolid{solid: s.kernel.Translate(sol, d.X, d.Y, d.Z)}, nil
	})

	// (voxels) is an empty field; (voxels x) rasterizes x.
	add(env, "voxels", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return &sexpField{store: voxels.New(s.background)}, nil
		}
		f, err := s.toField(args[0])
		if err != nil {
			return nil, err
		}
		return &sexpField{store: f}, nil
	})

	// (rasterize lattice-or-solid-or-mesh)
	add(env, "rasterize", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		if _, ok := args[0].(*sexpField); ok {
			return nil, fmt.Errorf("argument is already a field")
		}
		f, err := s.toField(args[0])
		if err != nil {
			return nil, err
		}
		return &sexpField{store: f}, nil
	})

	// (implicit (fn [x y z] ...) (vec3 min) (vec3 max))
	add(env, "implicit", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 3, 3); err != nil {
			return nil, err
		}
		fn, err := toFunction(args[0])
		if err != nil {
			return nil, err
		}
		lo, err := toVec3(args[1])
		if err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
		hi, err := toVec3(args[2])
		if err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
		box := kernel.EmptyBBox()
		box.Include(lo)
		box.Include(hi)
		f := voxels.New(s.background)
		f.RasterizeImplicit(box, lispImplicit{env: env, fn: fn}, s.vs)
		return &sexpField{store: f}, nil
	})

	// (mesh field-or-solid)
	add(env, "mesh", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case *sexpField:
			return &sexpMesh{mesh: v.store.ExtractSurface(s.vs)}, nil
		case *sexpSolid:
			m, err := s.kernel.ToMesh(v.solid)
			if err != nil {
				return nil, err
			}
			return &sexpMesh{mesh: m}, nil
		}
		return nil, fmt.Errorf("expected field or solid, got %s", describe(args[0]))
	})

	// (voxelize mesh)
	add(env, "voxelize", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		m, err := toMesh(args[0])
		if err != nil {
			return nil, err
		}
		return &sexpField{store: voxels.Voxelize(m, s.vs, s.background)}, nil
	})
}

// boolean builds a variadic Boolean operator folding op over its arguments.
func boolean(s *session, op func(a, b *voxels.Store)) builtin {
	return func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, -1); err != nil {
			return nil, err
		}
		acc, err := s.toField(args[0])
		if err != nil {
			return nil, fmt.Errorf("argument 1: %w", err)
		}
		for i, a := range args[1:] {
			f, err := s.toField(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+2, err)
			}
			op(acc, f)
		}
		return &sexpField{store: acc}, nil
	}
}

// fieldOp builds a builtin taking a field and n numbers.
func fieldOp(s *session, n int, op func(f *voxels.Store, x []float64)) builtin {
	return func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, n+1, n+1); err != nil {
			return nil, err
		}
		f, err := s.toField(args[0])
		if err != nil {
			return nil, err
		}
		x, err := floats(args[1:])
		if err != nil {
			return nil, err
		}
		op(f, x)
		return &sexpField{store: f}, nil
	}
}

func registerComposition(env *zygo.Zlisp, s *session) {
	add(env, "union", boolean(s, (*voxels.Store).BoolUnion))
	add(env, "difference", boolean(s, (*voxels.Store).BoolDifference))
	add(env, "intersect", boolean(s, (*voxels.Store).BoolIntersect))

	// (offset field mm): positive shrinks, negative grows
	add(env, "offset", fieldOp(s, 1, func(f *voxels.Store, x []float64) {
		f.Offset(x[0], s.vs)
	}))
	add(env, "double_offset", fieldOp(s, 2, func(f *voxels.Store, x []float64) {
		f.DoubleOffset(x[0], x[1], s.vs)
	}))
	add(env, "triple_offset", fieldOp(s, 1, func(f *voxels.Store, x []float64) {
		f.TripleOffset(x[0], s.vs)
	}))

	// (project-z field z-start z-end)
	add(env, "project_z", fieldOp(s, 2, func(f *voxels.Store, x []float64) {
		f.ProjectSlice(x[0], x[1], s.vs)
	}))

	// (smooth field mm :kind :gaussian|:median|:mean)
	add(env, "smooth", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := arity(pa.positional, 2, 2); err != nil {
			return nil, err
		}
		f, err := s.toField(pa.positional[0])
		if err != nil {
			return nil, err
		}
		size, err := toFloat64(pa.positional[1])
		if err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
		kind := "gaussian"
		if v, ok := pa.kw["kind"]; ok {
			if kind, err = toKeywordString(v); err != nil {
				return nil, fmt.Errorf("kind: %w", err)
			}
		}
		switch kind {
		case "gaussian":
			f.Gaussian(size, s.vs)
		case "median":
			f.Median(size, s.vs)
		case "mean":
			f.Mean(size, s.vs)
		default:
			return nil, fmt.Errorf("kind: unknown filter %q, expected gaussian, median or mean", kind)
		}
		return &sexpField{store: f}, nil
	})

	// (intersect-implicit field (fn [x y z] ...))
	add(env, "intersect_implicit", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 2, 2); err != nil {
			return nil, err
		}
		f, err := s.toField(args[0])
		if err != nil {
			return nil, err
		}
		fn, err := toFunction(args[1])
		if err != nil {
			return nil, err
		}
		f.IntersectImplicit(lispImplicit{env: env, fn: fn}, s.vs)
		return &sexpField{store: f}, nil
	})

	// (emit "name" field) adds a field to the scene and returns it.
	add(env, "emit", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 2, 2); err != nil {
			return nil, err
		}
		name, err := toString(args[0])
		if err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
		f, err := s.toField(args[1])
		if err != nil {
			return nil, err
		}
		if _, err := s.scene.Add(name, f); err != nil {
			return nil, err
		}
		return &sexpField{store: f}, nil
	})
}

func registerQueries(env *zygo.Zlisp, s *session) {

	// (volume field) in mm^3
	add(env, "volume", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		f, err := field(args[0])
		if err != nil {
			return nil, err
		}
		return &zygo.SexpFloat{Val: f.Properties(s.vs).Volume}, nil
	})

	// (inside? field (vec3 ...))
	add(env, "inside?", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		f, p, err := fieldAndPoint(args)
		if err != nil {
			return nil, err
		}
		return &zygo.SexpBool{Val: f.IsInside(p, s.vs)}, nil
	})

	// (closest-point field (vec3 ...)) is nil when the field has no surface.
	add(env, "closest_point", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		f, p, err := fieldAndPoint(args)
		if err != nil {
			return nil, err
		}
		return vecOrNull(f.ClosestPointOnSurface(p, s.vs)), nil
	})

	// (ray-cast field origin direction) is nil on a miss.
	add(env, "ray_cast", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := arity(args, 3, 3); err != nil {
			return nil, err
		}
		f, err := field(args[0])
		if err != nil {
			return nil, err
		}
		o, err := toVec3(args[1])
		if err != nil {
			return nil, fmt.Errorf("origin: %w", err)
		}
		d, err := toVec3(args[2])
		if err != nil {
			return nil, fmt.Errorf("direction: %w", err)
		}
		return vecOrNull(f.RayToSurface(o, d, s.vs)), nil
	})

	// (normal field (vec3 ...))
	add(env, "normal", func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
		f, p, err := fieldAndPoint(args)
		if err != nil {
			return nil, err
		}
		return &sexpVec3{vec: f.SurfaceNormal(p, s.vs)}, nil
	})

	// (vec-x v), (vec-y v), (vec-z v)
	for axis, name := range []string{"vec_x", "vec_y", "vec_z"} {
		axis := axis
		add(env, name, func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			v, err := toVec3(args[0])
			if err != nil {
				return nil, err
			}
			return &zygo.SexpFloat{Val: [3]float64{v.X, v.Y, v.Z}[axis]}, nil
		})
	}
}

func fieldAndPoint(args []zygo.Sexp) (*voxels.Store, v3.Vec, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, v3.Vec{}, err
	}
	f, err := field(args[0])
	if err != nil {
		return nil, v3.Vec{}, err
	}
	p, err := toVec3(args[1])
	if err != nil {
		return nil, v3.Vec{}, fmt.Errorf("point: %w", err)
	}
	return f, p, nil
}
