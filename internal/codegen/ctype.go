package codegen

import (
	"fmt"
	"strings"

	"cnext/internal/symbols"
	"cnext/internal/types"
)

// CTypeName renders the C spelling of a type descriptor's base type.
// Named types resolve through the registry to their mangled spelling;
// unresolvable names are treated as external and pass through verbatim.
func CTypeName(reg *symbols.Table, d types.Desc) string {
	if !d.IsNamed() {
		return d.Prim.CName()
	}
	for _, kind := range []symbols.SymbolKind{
		symbols.SymbolStruct, symbols.SymbolEnum, symbols.SymbolBitmap,
	} {
		if id, ok := reg.LookupMangled(d.Name, kind); ok {
			return reg.ForSymbol(id)
		}
		if id, ok := reg.LookupType(d.Name, kind); ok {
			return reg.ForSymbol(id)
		}
	}
	return d.Name
}

// RenderVarDecl renders a variable declaration without initializer or
// trailing semicolon: qualifiers, base type, name, and array suffixes.
// Fixed-capacity strings become char arrays with room for the terminator.
func RenderVarDecl(reg *symbols.Table, name string, d types.Desc) string {
	var sb strings.Builder
	if d.Const {
		sb.WriteString("const ")
	}
	if d.Atomic {
		sb.WriteString("volatile ")
	}
	sb.WriteString(CTypeName(reg, d))
	sb.WriteString(" ")
	sb.WriteString(name)
	if !d.IsNamed() && d.Prim == types.PrimString {
		fmt.Fprintf(&sb, "[%d]", d.StringCap+1)
	}
	for _, dim := range d.Dims {
		sb.WriteString("[")
		sb.WriteString(dim.Render())
		sb.WriteString("]")
	}
	return sb.String()
}

// isAggregate reports whether the descriptor names a struct or is an array
// or string, the types that always travel by reference.
func isAggregate(reg *symbols.Table, d types.Desc) bool {
	if d.IsArray() {
		return true
	}
	if !d.IsNamed() {
		return d.Prim == types.PrimString
	}
	if _, ok := reg.LookupType(d.Name, symbols.SymbolStruct); ok {
		return true
	}
	if _, ok := reg.LookupMangled(d.Name, symbols.SymbolStruct); ok {
		return true
	}
	return false
}
