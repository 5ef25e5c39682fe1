// Command narrowband evaluates a geometry script and writes the emitted
// fields and their surfaces.
//
//	narrowband [-config narrowband.toml] [-voxel-size mm] [-out parts.nbf] [-stl dir] script.lisp
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/chazu/narrowband/pkg/config"
	"github.com/chazu/narrowband/pkg/fieldfile"
	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/kernel/sdfx"
	"github.com/chazu/narrowband/pkg/scene"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("narrowband", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "TOML configuration file")
	voxelSize := fs.Float64("voxel-size", 0, "voxel size in mm, overrides the configuration")
	out := fs.String("out", "", "write the emitted fields to this field file")
	stlDir := fs.String("stl", "", "write one binary STL file per part into this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: narrowband [flags] script.lisp")
		fs.PrintDefaults()
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintf(stderr, "narrowband: %v\n", err)
			return 1
		}
	}
	if *voxelSize != 0 {
		cfg.Kernel.VoxelSize = *voxelSize
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "narrowband: %v\n", err)
		return 1
	}
	log, err := cfg.Logging.NewLogger()
	if err != nil {
		fmt.Fprintf(stderr, "narrowband: %v\n", err)
		return 1
	}

	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "narrowband: %v\n", err)
		return 1
	}

	app := NewApp(cfg, log)
	sc, meshes, result := app.evaluate(string(source))
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w.Message)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(stderr, "%s:%d: %s\n", fs.Arg(0), e.Line, e.Message)
			} else {
				fmt.Fprintf(stderr, "%s: %s\n", fs.Arg(0), e.Message)
			}
		}
		return 1
	}

	for i, p := range sc.Parts() {
		props := p.Store.Properties(sc.VoxelSize)
		fmt.Fprintf(stdout, "%-20s %12s mm3 %10s triangles\n", p.Name,
			humanize.CommafWithDigits(props.Volume, 1),
			humanize.Comma(int64(meshes[i].TriangleCount())))
	}

	if *out != "" {
		if err := writeFields(*out, sc, log); err != nil {
			fmt.Fprintf(stderr, "narrowband: %v\n", err)
			return 1
		}
	}
	if *stlDir != "" {
		if err := writeSTL(*stlDir, meshes); err != nil {
			fmt.Fprintf(stderr, "narrowband: %v\n", err)
			return 1
		}
	}
	return 0
}

// writeFields saves every part with its volume and extent as metadata.
func writeFields(path string, sc *scene.Scene, log *slog.Logger) error {
	f := fieldfile.New(sc.VoxelSize)
	f.Logger = log
	for _, p := range sc.Parts() {
		fld, err := f.Add(p.Name, p.Store)
		if err != nil {
			return err
		}
		props := p.Store.Properties(sc.VoxelSize)
		fld.Meta.SetFloat("volume", props.Volume)
		if !props.BBox.IsEmpty() {
			fld.Meta.SetVector("bbox_min", props.BBox.Min)
			fld.Meta.SetVector("bbox_max", props.BBox.Max)
		}
	}
	return f.Save(path)
}

func writeSTL(dir string, meshes []*kernel.Mesh) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		if err := sdfx.WriteSTL(filepath.Join(dir, stlName(m.PartName)), m); err != nil {
			return err
		}
	}
	return nil
}

// stlName maps a part name to a file name inside the output directory.
func stlName(part string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, part) + ".stl"
}
