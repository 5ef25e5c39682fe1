// Package fieldfile persists named voxel fields and their metadata.
//
// A file is a four byte magic, a format version byte and a snappy block
// holding the msgpack encoding of the voxel size and the ordered fields.
// Stores are written in voxel units, so the voxel size is recorded and a
// file only loads under the voxel size it was written with.
package fieldfile

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
)

const (
	magic   = "NBFF"
	version = 1
)

// Errors reported by Add, Decode and Load.
var (
	ErrBadMagic          = errors.New("not a field file")
	ErrVersion           = errors.New("unsupported field file version")
	ErrVoxelSizeMismatch = errors.New("voxel size differs from the file")
	ErrDuplicateName     = errors.New("duplicate field name")
)

// Field is one named store in a file.
type Field struct {
	Name  string
	Store *voxels.Store
	Meta  Meta
}

// File is an ordered collection of fields sharing one voxel size.
type File struct {
	VoxelSize kernel.VoxelSize
	Fields    []*Field

	// Logger receives one line per save or load. Nil means slog.Default().
	Logger *slog.Logger
}

// New returns an empty file for stores sampled at vs.
func New(vs kernel.VoxelSize) *File {
	vs.Check("fieldfile.New")
	return &File{VoxelSize: vs}
}

func (f *File) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Add appends a field. The store is referenced, not copied.
func (f *File) Add(name string, s *voxels.Store) (*Field, error) {
	if _, ok := f.Field(name); ok {
		return nil, fmt.Errorf("fieldfile: add %q: %w", name, ErrDuplicateName)
	}
	s.Background() // fails on an uninitialized store
	fld := &Field{Name: name, Store: s}
	f.Fields = append(f.Fields, fld)
	return fld, nil
}

// Field returns the field called name.
func (f *File) Field(name string) (*Field, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return nil, false
}

// Encode returns the complete file image.
func (f *File) Encode() ([]byte, error) {
	body, err := f.MarshalMsg(nil)
	if err != nil {
		return nil, fmt.Errorf("fieldfile: encode: %w", err)
	}
	out := make([]byte, 0, len(magic)+1+snappy.MaxEncodedLen(len(body)))
	out = append(out, magic...)
	out = append(out, version)
	out = append(out, snappy.Encode(nil, body)...)
	return out, nil
}

// Decode parses a file image produced by Encode.
func Decode(data []byte) (*File, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return nil, fmt.Errorf("fieldfile: decode: %w", ErrBadMagic)
	}
	if v := data[len(magic)]; v != version {
		return nil, fmt.Errorf("fieldfile: decode: %w: %d", ErrVersion, v)
	}
	body, err := snappy.Decode(nil, data[len(magic)+1:])
	if err != nil {
		return nil, fmt.Errorf("fieldfile: decode: %w", err)
	}
	f := &File{}
	rest, err := f.UnmarshalMsg(body)
	if err != nil {
		return nil, fmt.Errorf("fieldfile: decode: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("fieldfile: decode: %d trailing bytes", len(rest))
	}
	return f, nil
}

// Save writes the file to path.
func (f *File) Save(path string) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("fieldfile: save: %w", err)
	}
	f.logger().Info("saved field file",
		"path", path,
		"fields", len(f.Fields),
		"size", humanize.Bytes(uint64(len(data))))
	return nil
}

// Load reads the file at path. vs must equal the voxel size the file was
// written with.
func Load(path string, vs kernel.VoxelSize) (*File, error) {
	vs.Check("fieldfile.Load")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fieldfile: load: %w", err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("fieldfile: load %s: %w", path, err)
	}
	if f.VoxelSize != vs {
		return nil, fmt.Errorf("fieldfile: load %s: %w: file %v mm, requested %v mm",
			path, ErrVoxelSizeMismatch, f.VoxelSize.MM(), vs.MM())
	}
	f.logger().Info("loaded field file",
		"path", path,
		"fields", len(f.Fields),
		"size", humanize.Bytes(uint64(len(data))))
	return f, nil
}
