package fieldfile

import (
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind is the type of a metadata value.
type Kind int8

const (
	KindUnknown Kind = -1
	KindString  Kind = 0
	KindFloat   Kind = 1
	KindVector  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	}
	return "unknown"
}

type value struct {
	kind Kind
	str  string
	num  float64
	vec  v3.Vec
}

// Meta is a set of named, typed values attached to a field. Setting a name
// again replaces its value and type. The zero Meta is empty and ready to use.
type Meta struct {
	values map[string]value
}

func (m *Meta) set(name string, v value) {
	if m.values == nil {
		m.values = make(map[string]value)
	}
	m.values[name] = v
}

func (m *Meta) SetString(name, s string) { m.set(name, value{kind: KindString, str: s}) }

func (m *Meta) SetFloat(name string, f float64) { m.set(name, value{kind: KindFloat, num: f}) }

func (m *Meta) SetVector(name string, v v3.Vec) { m.set(name, value{kind: KindVector, vec: v}) }

// String returns the string value of name. It is false when name is absent
// or holds another type.
func (m *Meta) String(name string) (string, bool) {
	v, ok := m.values[name]
	if !ok || v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Float returns the float value of name.
func (m *Meta) Float(name string) (float64, bool) {
	v, ok := m.values[name]
	if !ok || v.kind != KindFloat {
		return 0, false
	}
	return v.num, true
}

// Vector returns the vector value of name.
func (m *Meta) Vector(name string) (v3.Vec, bool) {
	v, ok := m.values[name]
	if !ok || v.kind != KindVector {
		return v3.Vec{}, false
	}
	return v.vec, true
}

// TypeOf returns the kind stored under name, or KindUnknown.
func (m *Meta) TypeOf(name string) Kind {
	v, ok := m.values[name]
	if !ok {
		return KindUnknown
	}
	return v.kind
}

func (m *Meta) Remove(name string) {
	delete(m.values, name)
}

func (m *Meta) Len() int {
	return len(m.values)
}

// Names returns the value names in sorted order.
func (m *Meta) Names() []string {
	names := make([]string, 0, len(m.values))
	for k := range m.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
