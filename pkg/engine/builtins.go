package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/kernel/sdfx"
	"github.com/chazu/narrowband/pkg/lattice"
	"github.com/chazu/narrowband/pkg/scene"
	"github.com/chazu/narrowband/pkg/voxels"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms narrowband Lisp source before passing it to
// zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords need no global symbols.
//  2. Kebab-case to underscore: double-offset -> double_offset. zygomys
//     reads a hyphen inside an identifier as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i)
			result = append(result, b[i:j]...)
			i = j
			continue

		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue

		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
			continue

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue

		case b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipQuoted returns the index just past the double-quoted literal at i.
func skipQuoted(b []byte, i int) int {
	j := i + 1
	for j < len(b) && b[j] != '"' {
		if b[j] == '\\' && j+1 < len(b) {
			j += 2
			continue
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpLattice struct {
	lat *lattice.Lattice
}

func (l *sexpLattice) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(lattice %d)", l.lat.Len())
}
func (l *sexpLattice) Type() *zygo.RegisteredType { return nil }

type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	bb := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %v %v)", bb.Min, bb.Max)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

type sexpMesh struct {
	mesh *kernel.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %d vertices %d triangles)", m.mesh.VertexCount(), m.mesh.TriangleCount())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

type sexpField struct {
	store *voxels.Store
}

func (f *sexpField) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(voxels %d active)", f.store.ActiveCount())
}
func (f *sexpField) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: a flag.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func describe(s zygo.Sexp) string {
	if s == nil {
		return "nil"
	}
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", describe(s))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %s", describe(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %s", describe(s))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %s", describe(s))
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %s", describe(s))
}

func toMesh(s zygo.Sexp) (*kernel.Mesh, error) {
	if v, ok := s.(*sexpMesh); ok {
		return v.mesh, nil
	}
	return nil, fmt.Errorf("expected mesh, got %s", describe(s))
}

func toFunction(s zygo.Sexp) (*zygo.SexpFunction, error) {
	if f, ok := s.(*zygo.SexpFunction); ok {
		return f, nil
	}
	return nil, fmt.Errorf("expected function, got %s", describe(s))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func vecOrNull(v v3.Vec, ok bool) zygo.Sexp {
	if !ok {
		return zygo.SexpNull
	}
	return &sexpVec3{vec: v}
}

// ---------------------------------------------------------------------------
// Evaluation session
// ---------------------------------------------------------------------------

// session is the state one evaluation's builtins share.
type session struct {
	vs         kernel.VoxelSize
	background float32
	kernel     *sdfx.SdfxKernel
	scene      *scene.Scene
}

// toField turns any geometric value into a new store. Fields are copied so
// operators never mutate their arguments.
func (s *session) toField(x zygo.Sexp) (*voxels.Store, error) {
	switch v := x.(type) {
	case *sexpField:
		return v.store.Copy(), nil
	case *sexpLattice:
		f := voxels.New(s.background)
		f.RasterizeLattice(v.lat, s.vs)
		return f, nil
	case *sexpSolid:
		f := voxels.New(s.background)
		if err := f.RenderSolid(s.kernel, v.solid, s.vs); err != nil {
			return nil, err
		}
		return f, nil
	case *sexpMesh:
		return voxels.Voxelize(v.mesh, s.vs, s.background), nil
	}
	return nil, fmt.Errorf("expected field, lattice, solid or mesh, got %s", describe(x))
}

// field returns the store of a field argument without copying it.
func field(x zygo.Sexp) (*voxels.Store, error) {
	if f, ok := x.(*sexpField); ok {
		return f.store, nil
	}
	return nil, fmt.Errorf("expected field, got %s", describe(x))
}

// lispImplicit evaluates a Lisp function of (x y z) as a signed distance.
type lispImplicit struct {
	env *zygo.Zlisp
	fn  *zygo.SexpFunction
}

func (l lispImplicit) SignedDistance(p v3.Vec) float64 {
	res, err := l.env.Apply(l.fn, []zygo.Sexp{
		&zygo.SexpFloat{Val: p.X},
		&zygo.SexpFloat{Val: p.Y},
		&zygo.SexpFloat{Val: p.Z},
	})
	if err != nil {
		kernel.Fail("engine.implicit", kernel.ErrInvalidArgument, "%v", err)
	}
	d, err := toFloat64(res)
	if err != nil {
		kernel.Fail("engine.implicit", kernel.ErrInvalidArgument, "%v", err)
	}
	return d
}

// builtin is the body of a registered function.
type builtin func(env *zygo.Zlisp, args []zygo.Sexp) (zygo.Sexp, error)

// add registers fn under name. Precondition panics raised by the kernel
// become ordinary evaluation errors.
func add(env *zygo.Zlisp, name string, fn builtin) {
	display := strings.ReplaceAll(name, "_", "-")
	env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (res zygo.Sexp, err error) {
		res = zygo.SexpNull
		defer kernel.Recover(&err)
		res, err = fn(env, args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
		}
		return res, nil
	})
}

// arity checks lo <= len(args) <= hi. A negative hi means no upper bound.
func arity(args []zygo.Sexp, lo, hi int) error {
	switch {
	case lo == hi && len(args) != lo:
		return fmt.Errorf("requires exactly %d arguments, got %d", lo, len(args))
	case len(args) < lo:
		return fmt.Errorf("requires at least %d arguments, got %d", lo, len(args))
	case hi >= 0 && len(args) > hi:
		return fmt.Errorf("accepts at most %d arguments, got %d", hi, len(args))
	}
	return nil
}

// floats extracts every element of args as a number.
func floats(args []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}
