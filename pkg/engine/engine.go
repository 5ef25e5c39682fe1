// Package engine provides the Lisp front-end of narrowband. It wraps
// zygomys in a sandboxed environment whose builtins build lattices, sdfx
// solids and voxel fields, and collects the fields a script emits into a
// scene.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/kernel/sdfx"
	"github.com/chazu/narrowband/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Config controls how scripts sample geometry.
type Config struct {
	VoxelSize  kernel.VoxelSize
	Background float32
	// MeshCells is the sdfx marching cubes resolution used by (mesh solid).
	MeshCells int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// DefaultConfig returns 0.5 mm voxels, a 3 voxel band and a 30 s timeout.
func DefaultConfig() Config {
	return Config{
		VoxelSize:  0.5,
		Background: 3,
		MeshCells:  sdfx.DefaultMeshCells,
		Timeout:    DefaultEvalTimeout,
	}
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	cfg    Config
	kernel *sdfx.SdfxKernel
	log    *slog.Logger

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine. Zero fields of cfg take their defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.VoxelSize <= 0 {
		cfg.VoxelSize = def.VoxelSize
	}
	if cfg.Background <= 0 {
		cfg.Background = def.Background
	}
	if cfg.MeshCells <= 0 {
		cfg.MeshCells = def.MeshCells
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		kernel: &sdfx.SdfxKernel{MeshCells: cfg.MeshCells},
		log:    log,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate runs Lisp source and returns the scene of emitted fields.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	sc, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.cfg.Timeout)
	switch {
	case err != nil:
		e.log.Error("evaluation failed", "generation", gen, "err", err)
	case len(evalErrs) > 0:
		e.log.Info("evaluation errors", "generation", gen, "count", len(evalErrs), "first", evalErrs[0].Error())
	default:
		e.log.Info("evaluated", "generation", gen, "parts", sc.Len(), "elapsed", time.Since(start))
	}
	return sc, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Scene, []EvalError, error) {
	sc := scene.New(e.cfg.VoxelSize)

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &session{
		vs:         e.cfg.VoxelSize,
		background: e.cfg.Background,
		kernel:     e.kernel,
		scene:      sc,
	})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
