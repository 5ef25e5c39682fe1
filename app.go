package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chazu/narrowband/pkg/config"
	"github.com/chazu/narrowband/pkg/engine"
	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/scene"
	"github.com/chazu/narrowband/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates scripts and turns their scenes into render meshes.
type App struct {
	engine *engine.Engine
	log    *slog.Logger
	tess   tessellate.Options
}

// MeshData is the JSON-serializable mesh format handed to a viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App from validated settings.
func NewApp(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		engine: engine.NewEngine(engine.Config{
			VoxelSize:  cfg.VoxelSize(),
			Background: cfg.Kernel.Background,
			MeshCells:  cfg.Mesh.SdfxCells,
			Timeout:    cfg.EngineTimeout(),
			Logger:     log,
		}),
		log:  log,
		tess: tessellate.Options{Logger: log},
	}
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	_, _, result := a.evaluate(source)
	return result
}

// evaluate also returns the scene and its meshes for callers that write
// them out. Both are nil when the result carries errors.
func (a *App) evaluate(source string) (*scene.Scene, []*kernel.Mesh, EvalResult) {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a scene of fields.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return nil, nil, result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return nil, nil, result
	}

	// Step 2: Extract a surface per part.
	meshes, err := tessellate.Tessellate(context.Background(), sc, a.tess)
	if err != nil {
		a.log.Error("tessellation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return nil, nil, result
	}

	// Step 3: Convert to MeshData. Parts without a surface are reported
	// but not drawn.
	for i, m := range meshes {
		if m.IsEmpty() {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Message: fmt.Sprintf("part %q has no surface", m.PartName),
			})
			continue
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return sc, meshes, result
}
