package symbols

import "strings"

// MangledName flattens a dotted scope path and a local name into the
// external C identifier: path segments and the name joined by underscores.
// A pure function of (path, name); registration order never matters.
// Global-scope names stay bare.
func MangledName(scopePath, name string) string {
	if scopePath == "" {
		return name
	}
	return strings.ReplaceAll(scopePath, ".", "_") + "_" + name
}

// ForFunction returns the external name of a function symbol. The
// designated entry point keeps its bare name regardless of scope.
func (t *Table) ForFunction(id SymbolID) string {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return ""
	}
	name := t.Strings.MustLookup(sym.Name)
	if t.entry != "" && name == t.entry {
		return name
	}
	return MangledName(t.ScopePath(sym.Scope), name)
}

// ForSymbol returns the external name of any registered symbol.
func (t *Table) ForSymbol(id SymbolID) string {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return ""
	}
	if sym.Kind == SymbolFunction {
		return t.ForFunction(id)
	}
	return MangledName(t.ScopePath(sym.Scope), t.Strings.MustLookup(sym.Name))
}
