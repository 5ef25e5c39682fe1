package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "narrowband.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 0.5, c.VoxelSize().MM())
	assert.Equal(t, 30*time.Second, c.EngineTimeout())
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[kernel]
voxel_size = 0.25

[engine]
timeout = "2s"

[logging]
logfile = "logs/nb.log"
level = "debug"
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, c.Kernel.VoxelSize)
	assert.Equal(t, float32(3), c.Kernel.Background, "kept default")
	assert.Equal(t, 200, c.Mesh.SdfxCells, "kept default")
	assert.Equal(t, 2*time.Second, c.EngineTimeout())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "logs", "nb.log"), c.Logging.Logfile)

	w, ok := c.Logging.Writer().(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, 10, w.MaxSize)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero voxel size", "[kernel]\nvoxel_size = 0.0\n"},
		{"negative background", "[kernel]\nbackground = -1.0\n"},
		{"bad timeout", "[engine]\ntimeout = \"soon\"\n"},
		{"zero cells", "[mesh]\nsdfx_cells = 0\n"},
		{"bad level", "[logging]\nlevel = \"loud\"\n"},
		{"unknown key", "[kernel]\nvoxelsize = 1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Load(writeFile(t, "[kernel\n"))
	assert.Error(t, err, "malformed toml")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	level, err := parseLevel("warn")
	require.NoError(t, err)
	log := newLogger(&buf, level)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "k=1")
}

func TestWriterDefaultsToStderr(t *testing.T) {
	var c LogConfig
	assert.Equal(t, os.Stderr, c.Writer())
}
