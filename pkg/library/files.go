package library

import (
	"fmt"

	"github.com/chazu/narrowband/pkg/fieldfile"
	"github.com/chazu/narrowband/pkg/kernel"
)

// NamedField pairs a store handle with the name it is saved under.
type NamedField struct {
	Name   string
	Handle Handle
	Meta   fieldfile.Meta
}

// SaveFields writes the given stores to path. Failures are logged and
// reported as false.
func (l *Library) SaveFields(path string, fields []NamedField) bool {
	f := fieldfile.New(l.vs)
	f.Logger = l.log
	for _, nf := range fields {
		s, err := l.Store(nf.Handle)
		if err != nil {
			l.log.Error("save fields", "path", path, "field", nf.Name, "err", err)
			return false
		}
		fld, err := f.Add(nf.Name, s)
		if err != nil {
			l.log.Error("save fields", "path", path, "err", err)
			return false
		}
		fld.Meta = nf.Meta
	}
	if err := f.Save(path); err != nil {
		l.log.Error("save fields", "path", path, "err", err)
		return false
	}
	return true
}

// LoadFields reads path and registers every field as a new store. The
// file's voxel size and background must match the library's. A failed load
// registers nothing.
func (l *Library) LoadFields(path string) ([]NamedField, bool) {
	out, err := l.loadFields(path)
	if err != nil {
		l.log.Error("load fields", "path", path, "err", err)
		return nil, false
	}
	return out, true
}

func (l *Library) loadFields(path string) (out []NamedField, err error) {
	defer func() {
		if err != nil {
			l.release(out)
			out = nil
		}
	}()
	defer kernel.Recover(&err)

	f, err := fieldfile.Load(path, l.vs)
	if err != nil {
		return nil, err
	}
	out = make([]NamedField, 0, len(f.Fields))
	for _, fld := range f.Fields {
		if bg := fld.Store.Background(); bg != l.background {
			return out, &kernel.PreconditionError{Op: "library.LoadFields",
				Err: fmt.Errorf("%w: field %q has background %v", kernel.ErrBackgroundMismatch, fld.Name, bg)}
		}
		out = append(out, NamedField{
			Name:   fld.Name,
			Handle: l.voxels.create(fld.Store),
			Meta:   fld.Meta,
		})
	}
	return out, nil
}

func (l *Library) release(fields []NamedField) {
	for _, nf := range fields {
		_ = l.DestroyVoxels(nf.Handle)
	}
}
