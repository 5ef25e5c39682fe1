// Package config loads narrowband settings from a TOML file and builds the
// process logger.
//
//	[kernel]
//	voxel_size = 0.5   # mm per voxel
//	background = 3.0   # narrow-band half width in voxels
//
//	[mesh]
//	sdfx_cells = 200
//
//	[engine]
//	timeout = "30s"
//
//	[logging]
//	logfile = "narrowband.log"
//	max_log_size = 10  # megabytes
//	max_log_age = 7    # days
//	level = "info"
package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/narrowband/pkg/kernel"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// KernelConfig holds the voxel grid settings of the [kernel] table.
type KernelConfig struct {
	VoxelSize  float64 `toml:"voxel_size"`
	Background float32 `toml:"background"`
}

// MeshConfig holds the [mesh] table.
type MeshConfig struct {
	SdfxCells int `toml:"sdfx_cells"`
}

// EngineConfig holds the script engine settings. Timeout is a positive Go
// duration string.
type EngineConfig struct {
	Timeout string `toml:"timeout"`
}

// Config is the decoded TOML document.
type Config struct {
	Kernel  KernelConfig `toml:"kernel"`
	Mesh    MeshConfig   `toml:"mesh"`
	Engine  EngineConfig `toml:"engine"`
	Logging LogConfig    `toml:"logging"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{VoxelSize: 0.5, Background: 3},
		Mesh:   MeshConfig{SdfxCells: 200},
		Engine: EngineConfig{Timeout: "30s"},
		Logging: LogConfig{
			MaxSize: 10,
			MaxAge:  7,
			Level:   "info",
		},
	}
}

// Load decodes filename over Default. Keys missing from the file keep their
// default values. A relative logfile is resolved against the file's
// directory.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("config: could not decode %s: %w", filename, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s: %w: unknown key %s", filename, ErrInvalid, undecoded[0])
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		c.Logging.Logfile = filepath.Join(filepath.Dir(filename), c.Logging.Logfile)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return c, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := kernel.NewVoxelSize(c.Kernel.VoxelSize); err != nil {
		return fmt.Errorf("%w: kernel.voxel_size %v", ErrInvalid, c.Kernel.VoxelSize)
	}
	if !(c.Kernel.Background > 0) || math.IsInf(float64(c.Kernel.Background), 0) {
		return fmt.Errorf("%w: kernel.background %v", ErrInvalid, c.Kernel.Background)
	}
	if c.Mesh.SdfxCells <= 0 {
		return fmt.Errorf("%w: mesh.sdfx_cells %d", ErrInvalid, c.Mesh.SdfxCells)
	}
	if d, err := time.ParseDuration(c.Engine.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: engine.timeout %q", ErrInvalid, c.Engine.Timeout)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// VoxelSize returns the validated voxel size.
func (c *Config) VoxelSize() kernel.VoxelSize {
	return kernel.VoxelSize(c.Kernel.VoxelSize)
}

// EngineTimeout returns the script evaluation timeout.
func (c *Config) EngineTimeout() time.Duration {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
