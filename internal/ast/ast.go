// Package ast defines the validated C-Next syntax tree the backend consumes.
//
// The front end parses and validates source files, then hands each file over
// as one File value. The wire format between front end and backend is the
// msgpack encoding of these structs; field tags below are that contract and
// must stay stable.
package ast

import (
	"cnext/internal/source"
	"cnext/internal/types"
)

// File is one parsed compilation unit.
type File struct {
	Path  string  `msgpack:"path"`
	Unit  string  `msgpack:"unit"` // unit name, defaults to base name without extension
	Decls []*Decl `msgpack:"decls"`
}

// Visibility of a scope member.
type Visibility uint8

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// DeclKind discriminates top-level and scope-member declarations.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclScope
	DeclFunction
	DeclVariable
	DeclStruct
	DeclEnum
	DeclBitmap
	DeclRegister
	DeclInclude
)

func (k DeclKind) String() string {
	switch k {
	case DeclScope:
		return "scope"
	case DeclFunction:
		return "function"
	case DeclVariable:
		return "variable"
	case DeclStruct:
		return "struct"
	case DeclEnum:
		return "enum"
	case DeclBitmap:
		return "bitmap"
	case DeclRegister:
		return "register"
	case DeclInclude:
		return "include"
	default:
		return "invalid"
	}
}

// Decl is one declaration. Exactly one payload pointer matching Kind is set.
type Decl struct {
	Kind       DeclKind   `msgpack:"kind"`
	Name       string     `msgpack:"name,omitempty"`
	Pos        source.Pos `msgpack:"pos"`
	Exported   bool       `msgpack:"exported,omitempty"`
	Visibility Visibility `msgpack:"visibility,omitempty"`

	Scope    *ScopeDecl    `msgpack:"scope,omitempty"`
	Func     *FuncDecl     `msgpack:"func,omitempty"`
	Var      *VarDecl      `msgpack:"var,omitempty"`
	Struct   *StructDecl   `msgpack:"struct,omitempty"`
	Enum     *EnumDecl     `msgpack:"enum,omitempty"`
	Bitmap   *BitmapDecl   `msgpack:"bitmap,omitempty"`
	Register *RegisterDecl `msgpack:"register,omitempty"`
	Include  *IncludeDecl  `msgpack:"include,omitempty"`
}

// ScopeDecl is a namespace block; members may themselves be scopes.
type ScopeDecl struct {
	Decls []*Decl `msgpack:"decls"`
}

// Param is one function parameter.
type Param struct {
	Name string     `msgpack:"name"`
	Type types.Desc `msgpack:"type"`
	Pos  source.Pos `msgpack:"pos"`
}

// FuncDecl is a function with its body. ISR marks interrupt service
// routines, which demand the ISR typedef in the generated unit.
type FuncDecl struct {
	Params []Param    `msgpack:"params"`
	Ret    types.Desc `msgpack:"ret"`
	Body   *Block     `msgpack:"body,omitempty"`
	ISR    bool       `msgpack:"isr,omitempty"`
}

// VarDecl is a scope-level or global variable. Overflow marks the variable
// as overflow-checked: arithmetic assigned to it goes through the
// synthesized helpers.
type VarDecl struct {
	Type     types.Desc `msgpack:"type"`
	Init     *Expr      `msgpack:"init,omitempty"`
	Overflow bool       `msgpack:"overflow,omitempty"`
}

// Field is one struct field. Callback, when set, makes this a
// function-pointer field with the given signature.
type Field struct {
	Name     string     `msgpack:"name"`
	Type     types.Desc `msgpack:"type"`
	Callback *FuncSig   `msgpack:"callback,omitempty"`
	Pos      source.Pos `msgpack:"pos"`
}

// FuncSig is a bare signature, used for callback-typed struct fields.
type FuncSig struct {
	Params []Param    `msgpack:"params"`
	Ret    types.Desc `msgpack:"ret"`
}

// StructDecl is an ordered field list.
type StructDecl struct {
	Fields []Field `msgpack:"fields"`
}

// EnumMember is one enum constant. Explicit records whether the value was
// written in source or assigned sequentially by the front end.
type EnumMember struct {
	Name     string     `msgpack:"name"`
	Value    int64      `msgpack:"value"`
	Explicit bool       `msgpack:"explicit,omitempty"`
	Pos      source.Pos `msgpack:"pos"`
}

// EnumDecl is a name -> value mapping with an optional explicit bit width.
type EnumDecl struct {
	Width   int          `msgpack:"width,omitempty"` // 0 means unspecified
	Members []EnumMember `msgpack:"members"`
}

// BitmapField is a named bit range [Hi:Lo] inside a bitmap.
type BitmapField struct {
	Name string     `msgpack:"name"`
	Hi   uint8      `msgpack:"hi"`
	Lo   uint8      `msgpack:"lo"`
	Pos  source.Pos `msgpack:"pos"`
}

// BitmapDecl is a bit-addressable value type of the given width.
type BitmapDecl struct {
	Width  int           `msgpack:"width"` // 8, 16, 32 or 64
	Fields []BitmapField `msgpack:"fields"`
}

// RegisterMember is a named bit range of a hardware register.
type RegisterMember struct {
	Name string     `msgpack:"name"`
	Hi   uint8      `msgpack:"hi"`
	Lo   uint8      `msgpack:"lo"`
	Pos  source.Pos `msgpack:"pos"`
}

// RegisterDecl is a memory-mapped register: an address expression rendered
// verbatim, an underlying integer type, and named bit ranges.
type RegisterDecl struct {
	Addr    string           `msgpack:"addr"`
	Type    types.Desc       `msgpack:"type"`
	Members []RegisterMember `msgpack:"members"`
}

// IncludeDecl is a passthrough include directive. System selects
// angle-bracket form. Only plain includes are representable; other
// preprocessor forms are rejected by the front end or the generator.
type IncludeDecl struct {
	Path   string `msgpack:"path"`
	System bool   `msgpack:"system,omitempty"`
}
