package symbols

import (
	"cnext/internal/ast"
	"cnext/internal/source"
	"cnext/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolVariable
	SymbolStruct
	SymbolEnum
	SymbolEnumMember
	SymbolBitmap
	SymbolBitmapField
	SymbolRegister
	SymbolRegisterMember
	SymbolScope
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolVariable:
		return "variable"
	case SymbolStruct:
		return "struct"
	case SymbolEnum:
		return "enum"
	case SymbolEnumMember:
		return "enum_member"
	case SymbolBitmap:
		return "bitmap"
	case SymbolBitmapField:
		return "bitmap_field"
	case SymbolRegister:
		return "register"
	case SymbolRegisterMember:
		return "register_member"
	case SymbolScope:
		return "scope"
	default:
		return "invalid"
	}
}

// SymbolFlags encode shared attributes for quick checks.
type SymbolFlags uint16

const (
	// SymbolFlagExported marks symbols visible to other compilation units.
	SymbolFlagExported SymbolFlags = 1 << iota
	// SymbolFlagImported marks symbols declared in a foreign header rather
	// than native source.
	SymbolFlagImported
	// SymbolFlagOverflow marks variables with the overflow-checked modifier.
	SymbolFlagOverflow
)

// Strings returns textual flag labels for debug output.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 3)
	if f&SymbolFlagExported != 0 {
		labels = append(labels, "exported")
	}
	if f&SymbolFlagImported != 0 {
		labels = append(labels, "imported")
	}
	if f&SymbolFlagOverflow != 0 {
		labels = append(labels, "overflow")
	}
	return labels
}

// FunctionInfo is the payload of a function symbol.
type FunctionInfo struct {
	Params     []ast.Param
	Ret        types.Desc
	Visibility ast.Visibility
	Body       *ast.Block
	ISR        bool
}

// VariableInfo is the payload of a variable symbol.
type VariableInfo struct {
	Type       types.Desc
	Visibility ast.Visibility
}

// StructInfo is the payload of a struct symbol. FieldType supports the enum
// resolver's field-chain fallback without re-walking the declaration.
type StructInfo struct {
	Fields    []ast.Field
	FieldType map[string]types.Desc
}

// EnumInfo is the payload of an enum symbol. Order preserves declaration
// order for deterministic rendering.
type EnumInfo struct {
	Values map[string]int64
	Order  []string
	Width  int
}

// BitmapInfo is the payload of a bitmap symbol.
type BitmapInfo struct {
	Width  int
	Fields []ast.BitmapField
}

// RegisterInfo is the payload of a register symbol.
type RegisterInfo struct {
	Addr    string
	Type    types.Desc
	Members []ast.RegisterMember
}

// Symbol describes a named entity owned by a scope. The owning scope is an
// arena index, never a live back-pointer.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Scope ScopeID
	Pos   source.Pos
	Flags SymbolFlags

	Func     *FunctionInfo
	Var      *VariableInfo
	Struct   *StructInfo
	Enum     *EnumInfo
	Bitmap   *BitmapInfo
	Register *RegisterInfo
	Child    ScopeID // SymbolScope: the scope this symbol names
}

// Exported reports whether the symbol is visible to other units.
func (s *Symbol) Exported() bool { return s.Flags&SymbolFlagExported != 0 }

// Imported reports whether the symbol came from a foreign header.
func (s *Symbol) Imported() bool { return s.Flags&SymbolFlagImported != 0 }
