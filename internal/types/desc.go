package types

import (
	"strconv"
	"strings"
)

// RefKind classifies what a named type reference resolves to.
type RefKind uint8

const (
	RefUnknown RefKind = iota
	RefStruct
	RefEnum
	RefBitmap
	RefRegister
	RefExternal // defined outside the language, known by name only
)

func (k RefKind) String() string {
	switch k {
	case RefStruct:
		return "struct"
	case RefEnum:
		return "enum"
	case RefBitmap:
		return "bitmap"
	case RefRegister:
		return "register"
	case RefExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ArrayDim is one array dimension: either a literal size or the name of a
// compile-time constant.
type ArrayDim struct {
	Size int64  `msgpack:"size"`
	Name string `msgpack:"name,omitempty"` // non-empty when sized by a named constant
}

func (d ArrayDim) Render() string {
	if d.Name != "" {
		return d.Name
	}
	return strconv.FormatInt(d.Size, 10)
}

// Desc describes a declared type: a primitive tag or a named reference into
// the symbol registry, plus array dimensions and qualifiers. Primitives
// compare structurally, named types by name.
type Desc struct {
	Prim      Primitive  `msgpack:"prim,omitempty"`
	Name      string     `msgpack:"name,omitempty"` // named reference; empty for primitives
	Ref       RefKind    `msgpack:"ref,omitempty"`
	StringCap int64      `msgpack:"strcap,omitempty"` // capacity for PrimString
	Dims      []ArrayDim `msgpack:"dims,omitempty"`
	Const     bool       `msgpack:"const,omitempty"`
	Atomic    bool       `msgpack:"atomic,omitempty"`
}

// Prim builds a primitive descriptor.
func Prim(p Primitive) Desc { return Desc{Prim: p} }

// Named builds a descriptor referencing a user-defined type.
func Named(name string, kind RefKind) Desc { return Desc{Name: name, Ref: kind} }

// IsNamed reports whether the descriptor references a user-defined type.
func (d Desc) IsNamed() bool { return d.Name != "" }

// IsArray reports whether the descriptor carries array dimensions.
func (d Desc) IsArray() bool { return len(d.Dims) > 0 }

// IsVoid reports whether the descriptor is the bare void primitive.
func (d Desc) IsVoid() bool { return !d.IsNamed() && d.Prim == PrimVoid && !d.IsArray() }

// Equal compares descriptors: structurally for primitives, by name for
// user-defined types; dimensions and qualifiers must match exactly.
func (d Desc) Equal(other Desc) bool {
	if d.IsNamed() != other.IsNamed() {
		return false
	}
	if d.IsNamed() {
		if d.Name != other.Name {
			return false
		}
	} else if d.Prim != other.Prim || d.StringCap != other.StringCap {
		return false
	}
	if d.Const != other.Const || d.Atomic != other.Atomic {
		return false
	}
	if len(d.Dims) != len(other.Dims) {
		return false
	}
	for i := range d.Dims {
		if d.Dims[i] != other.Dims[i] {
			return false
		}
	}
	return true
}

func (d Desc) String() string {
	var sb strings.Builder
	if d.Const {
		sb.WriteString("const ")
	}
	if d.Atomic {
		sb.WriteString("atomic ")
	}
	if d.IsNamed() {
		sb.WriteString(d.Name)
	} else {
		sb.WriteString(d.Prim.String())
		if d.Prim == PrimString && d.StringCap > 0 {
			sb.WriteString("<")
			sb.WriteString(strconv.FormatInt(d.StringCap, 10))
			sb.WriteString(">")
		}
	}
	for _, dim := range d.Dims {
		sb.WriteString("[")
		sb.WriteString(dim.Render())
		sb.WriteString("]")
	}
	return sb.String()
}
