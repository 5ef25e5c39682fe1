// Package tessellate turns the fields of a scene into render meshes. One
// mesh is produced per part, in part order.
package tessellate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"
)

// Normals selects how vertex normals are computed.
type Normals int

const (
	// FieldNormals samples the field gradient at each vertex.
	FieldNormals Normals = iota
	// FaceNormals averages the incident face normals.
	FaceNormals
)

// Options controls tessellation. The zero value uses field normals and one
// worker per CPU.
type Options struct {
	Normals Normals
	// Workers bounds the number of parts extracted at once.
	Workers int
	// SkipEmpty drops parts whose surface has no triangles.
	SkipEmpty bool
	Logger    *slog.Logger
}

// Tessellate extracts the surface of every part. Stores are only read, so
// parts are extracted concurrently; the first failure cancels the rest.
func Tessellate(ctx context.Context, sc *scene.Scene, opts Options) ([]*kernel.Mesh, error) {
	if sc == nil || sc.Len() == 0 {
		return nil, nil
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	parts := sc.Parts()
	meshes := make([]*kernel.Mesh, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			m, err := extract(p, sc.VoxelSize, opts.Normals)
			if err != nil {
				return fmt.Errorf("tessellate: part %q: %w", p.Name, err)
			}
			log.Debug("tessellated part", "part", p.Name, "triangles", m.TriangleCount(), "elapsed", time.Since(start))
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !opts.SkipEmpty {
		return meshes, nil
	}
	out := meshes[:0]
	for _, m := range meshes {
		if m.IsEmpty() {
			log.Info("skipping empty part", "part", m.PartName)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// extract meshes one part. Precondition failures in the kernel come back as
// errors.
func extract(p *scene.Part, vs kernel.VoxelSize, normals Normals) (m *kernel.Mesh, err error) {
	defer kernel.Recover(&err)

	m = p.Store.ExtractSurface(vs)
	m.PartName = p.Name
	switch normals {
	case FaceNormals:
		m.ComputeNormals()
	default:
		// Vertices where the gradient vanishes keep their face normal.
		m.ComputeNormals()
		for i := 0; i < m.VertexCount(); i++ {
			n := p.Store.SurfaceNormal(m.Vertex(i), vs)
			if n == (v3.Vec{}) {
				continue
			}
			m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2] = float32(n.X), float32(n.Y), float32(n.Z)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
