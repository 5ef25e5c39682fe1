package fieldfile

import (
	"github.com/chazu/narrowband/pkg/kernel"
	"github.com/chazu/narrowband/pkg/voxels"
	"github.com/tinylib/msgp/msgp"
)

// minFieldSize is the encoded size of a field with an empty name, no meta
// and an empty store. It bounds how many fields the remaining bytes can hold.
const minFieldSize = 3 + 8

// Wire layout:
//
//	file  = [voxelSize, [field...]]
//	field = [name, {name: [kind, value]}, store]
//
// Meta names are written sorted.

// MarshalMsg implements msgp.Marshaler
func (f *File) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, f.Msgsize())
	o = msgp.AppendArrayHeader(o, 2)
	o = msgp.AppendFloat64(o, f.VoxelSize.MM())
	o = msgp.AppendArrayHeader(o, uint32(len(f.Fields)))
	for _, fld := range f.Fields {
		o = msgp.AppendArrayHeader(o, 3)
		o = msgp.AppendString(o, fld.Name)
		o = fld.Meta.appendMsg(o)
		o, err = fld.Store.MarshalMsg(o)
		if err != nil {
			return
		}
	}
	return
}

func (m *Meta) appendMsg(o []byte) []byte {
	names := m.Names()
	o = msgp.AppendMapHeader(o, uint32(len(names)))
	for _, name := range names {
		v := m.values[name]
		o = msgp.AppendString(o, name)
		o = msgp.AppendArrayHeader(o, 2)
		o = msgp.AppendInt8(o, int8(v.kind))
		switch v.kind {
		case KindString:
			o = msgp.AppendString(o, v.str)
		case KindFloat:
			o = msgp.AppendFloat64(o, v.num)
		case KindVector:
			o = msgp.AppendArrayHeader(o, 3)
			o = msgp.AppendFloat64(o, v.vec.X)
			o = msgp.AppendFloat64(o, v.vec.Y)
			o = msgp.AppendFloat64(o, v.vec.Z)
		}
	}
	return o
}

// UnmarshalMsg implements msgp.Unmarshaler
func (f *File) UnmarshalMsg(bts []byte) (o []byte, err error) {
	bts, err = expectArray(bts, 2)
	if err != nil {
		return
	}
	var mm float64
	mm, bts, err = msgp.ReadFloat64Bytes(bts)
	if err != nil {
		return
	}
	vs, err := kernel.NewVoxelSize(mm)
	if err != nil {
		return nil, err
	}
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	fields := make([]*Field, 0, min(int(n), len(bts)/minFieldSize))
	for i := uint32(0); i < n; i++ {
		bts, err = expectArray(bts, 3)
		if err != nil {
			return
		}
		fld := &Field{Store: &voxels.Store{}}
		fld.Name, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return
		}
		bts, err = fld.Meta.readMsg(bts)
		if err != nil {
			return
		}
		bts, err = fld.Store.UnmarshalMsg(bts)
		if err != nil {
			return
		}
		fields = append(fields, fld)
	}
	f.VoxelSize = vs
	f.Fields = fields
	o = bts
	return
}

func (m *Meta) readMsg(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for i := uint32(0); i < n; i++ {
		var name string
		name, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return
		}
		bts, err = expectArray(bts, 2)
		if err != nil {
			return
		}
		var k int8
		k, bts, err = msgp.ReadInt8Bytes(bts)
		if err != nil {
			return
		}
		v := value{kind: Kind(k)}
		switch v.kind {
		case KindString:
			v.str, bts, err = msgp.ReadStringBytes(bts)
		case KindFloat:
			v.num, bts, err = msgp.ReadFloat64Bytes(bts)
		case KindVector:
			bts, err = expectArray(bts, 3)
			if err != nil {
				return
			}
			v.vec.X, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				return
			}
			v.vec.Y, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				return
			}
			v.vec.Z, bts, err = msgp.ReadFloat64Bytes(bts)
		default:
			err = &kernel.PreconditionError{Op: "fieldfile.Meta", Err: kernel.ErrInvalidArgument}
		}
		if err != nil {
			return
		}
		m.set(name, v)
	}
	o = bts
	return
}

func expectArray(bts []byte, want uint32) (o []byte, err error) {
	var sz uint32
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if sz != want {
		err = msgp.ArrayError{Wanted: want, Got: sz}
		return
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the encoded size.
func (f *File) Msgsize() (sz int) {
	sz = msgp.ArrayHeaderSize + msgp.Float64Size + msgp.ArrayHeaderSize
	for _, fld := range f.Fields {
		sz += msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(fld.Name)
		sz += msgp.MapHeaderSize
		for name, v := range fld.Meta.values {
			sz += msgp.StringPrefixSize + len(name) + msgp.ArrayHeaderSize + msgp.Int8Size
			switch v.kind {
			case KindString:
				sz += msgp.StringPrefixSize + len(v.str)
			case KindFloat:
				sz += msgp.Float64Size
			case KindVector:
				sz += msgp.ArrayHeaderSize + 3*msgp.Float64Size
			}
		}
		sz += fld.Store.Msgsize()
	}
	return
}

var (
	_ msgp.Marshaler   = (*File)(nil)
	_ msgp.Unmarshaler = (*File)(nil)
	_ msgp.Sizer       = (*File)(nil)
)
