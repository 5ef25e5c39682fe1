package engine

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// testEngine samples at 1 mm to keep evaluations quick.
func testEngine() *Engine {
	return NewEngine(Config{VoxelSize: 1})
}

func TestNewEngineDefaults(t *testing.T) {
	eng := NewEngine(Config{})
	cfg := eng.Config()
	def := DefaultConfig()
	if cfg.VoxelSize != def.VoxelSize || cfg.Background != def.Background {
		t.Errorf("config = %+v, want defaults %+v", cfg, def)
	}
	if cfg.Timeout != DefaultEvalTimeout {
		t.Errorf("timeout = %v, want %v", cfg.Timeout, DefaultEvalTimeout)
	}
}

func TestEvaluateEmptyString(t *testing.T) {
	eng := testEngine()

	sc, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	if sc.Len() != 0 {
		t.Errorf("expected empty scene, got %d parts", sc.Len())
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := testEngine()

	sc, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil || sc.Len() != 0 {
		t.Fatalf("expected empty scene, got %v", sc)
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	eng := testEngine()

	// Plain Lisp emits nothing.
	sc, evalErrs, err := eng.Evaluate("(def x 10)\n(def y 20)\n(+ x y)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc.Len() != 0 {
		t.Errorf("expected empty scene, got %d parts", sc.Len())
	}
}

func TestEvaluateEmitsParts(t *testing.T) {
	eng := testEngine()

	source := `
; two parts
(def orb (sphere (vec3 0 0 0) 4))
(emit "ball" orb)
(emit "grown" (offset (voxels orb) -1))
`
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc.Len() != 2 {
		t.Fatalf("expected 2 parts, got %d", sc.Len())
	}
	parts := sc.Parts()
	if parts[0].Name != "ball" || parts[1].Name != "grown" {
		t.Errorf("parts = %q, %q; want emission order", parts[0].Name, parts[1].Name)
	}
	vs := eng.Config().VoxelSize
	small := parts[0].Store.Properties(vs).Volume
	large := parts[1].Store.Properties(vs).Volume
	if large <= small {
		t.Errorf("grown volume %v should exceed %v", large, small)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := testEngine()

	// Unmatched paren is a parse error.
	sc, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := testEngine()

	sc, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateBuiltinErrorDiscardsScene(t *testing.T) {
	eng := testEngine()

	// The first emit succeeds, but the script as a whole fails.
	source := `(emit "a" (sphere (vec3 0 0 0) 2))
(emit "a" (sphere (vec3 5 0 0) 2))`
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "emit") {
		t.Fatalf("expected emit error, got %v", evalErrs)
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := testEngine()

	sc, evalErrs, err := eng.Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	} else {
		t.Logf("no line info extracted (line=0), message=%q", e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Col: 0, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Line: 0, Col: 0, Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := testEngine()
	vs := eng.Config().VoxelSize

	source := `(emit "s" (union (sphere (vec3 0 0 0) 3) (sphere (vec3 3 0 0) 3)))`
	var first float64
	for i := 0; i < 3; i++ {
		sc, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		v := sc.Parts()[0].Store.Properties(vs).Volume
		if i == 0 {
			first = v
		} else if v != first {
			t.Errorf("iteration %d: volume %v, want %v", i, v, first)
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// waitWithTimeout is tested directly with a channel that never sends;
	// kernel operations cannot be interrupted, so there is no portable way
	// to make a real script hang.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // Current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, time.Second)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
