package symbols

import "cnext/internal/ast"

// Access describes how a reference reaches a scope member, which decides
// whether private members are visible.
type Access uint8

const (
	// AccessInternal is a reference from inside the owning scope, including
	// self-qualification via `this.`; it sees every member.
	AccessInternal Access = iota
	// AccessQualified is a reference through an explicit scope name or from
	// any other scope; it sees public members only.
	AccessQualified
)

// ResolveMember finds a member of the given scope under the access rule.
// Returns *VisibilityError when the member exists but is private to the
// scope, *NotFoundError when it does not exist.
func (t *Table) ResolveMember(scope ScopeID, name string, access Access) (SymbolID, error) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, &NotFoundError{Name: name}
	}
	nameID := t.Strings.Intern(name)
	id, ok := sc.NameIndex[nameID]
	if !ok {
		return NoSymbolID, &NotFoundError{ScopePath: sc.Path, Name: name}
	}
	if access == AccessQualified && sc.MemberVisibility(nameID) == ast.Private {
		return NoSymbolID, &VisibilityError{ScopePath: sc.Path, Name: name}
	}
	return id, nil
}

// ResolveFunction resolves a function reference seen from fromScope.
// An unqualified name is looked up in fromScope first (internal access),
// then in the global scope. Qualified lookups must go through
// ResolveMember with AccessQualified.
func (t *Table) ResolveFunction(name string, fromScope ScopeID) (SymbolID, error) {
	if fromScope.IsValid() {
		if id, err := t.ResolveMember(fromScope, name, AccessInternal); err == nil {
			if t.Symbols.Get(id).Kind == SymbolFunction {
				return id, nil
			}
		}
	}
	if fromScope != GlobalScopeID {
		if id, err := t.ResolveMember(GlobalScopeID, name, AccessQualified); err == nil {
			if t.Symbols.Get(id).Kind == SymbolFunction {
				return id, nil
			}
		}
	}
	return NoSymbolID, &NotFoundError{ScopePath: t.ScopePath(fromScope), Name: name}
}

// LookupEnum finds an enum symbol by its mangled or plain name, searching
// the global scope and every named scope. Used when classifying qualified
// member accesses like `Motor_State_IDLE`.
func (t *Table) LookupEnum(name string) (SymbolID, bool) {
	for i := 1; i <= t.Scopes.Len(); i++ {
		sc := t.Scopes.Get(ScopeID(safeU32(i)))
		nameID := t.Strings.Intern(name)
		if id, ok := sc.NameIndex[nameID]; ok {
			if t.Symbols.Get(id).Kind == SymbolEnum {
				return id, true
			}
		}
	}
	return NoSymbolID, false
}

// LookupType finds a type symbol of the given kind by plain name, searching
// every scope in deterministic arena order.
func (t *Table) LookupType(name string, kind SymbolKind) (SymbolID, bool) {
	nameID := t.Strings.Intern(name)
	for i := 1; i <= t.Scopes.Len(); i++ {
		sc := t.Scopes.Get(ScopeID(safeU32(i)))
		if id, ok := sc.NameIndex[nameID]; ok {
			if t.Symbols.Get(id).Kind == kind {
				return id, true
			}
		}
	}
	return NoSymbolID, false
}

// LookupMangled finds a symbol whose external (scope-mangled) name equals
// the given string, e.g. "Motor_State".
func (t *Table) LookupMangled(name string, kind SymbolKind) (SymbolID, bool) {
	for i := 1; i <= t.Symbols.Len(); i++ {
		id := SymbolID(safeU32(i))
		sym := t.Symbols.Get(id)
		if sym.Kind != kind {
			continue
		}
		if t.ForSymbol(id) == name {
			return id, true
		}
	}
	return NoSymbolID, false
}

// EnumsWithMember returns the mangled type names of every registered enum
// containing the given member name, in deterministic arena order. Ambiguity
// diagnostics must enumerate all of them.
func (t *Table) EnumsWithMember(member string) []string {
	var matches []string
	for i := 1; i <= t.Symbols.Len(); i++ {
		id := SymbolID(safeU32(i))
		sym := t.Symbols.Get(id)
		if sym.Kind != SymbolEnum || sym.Enum == nil {
			continue
		}
		if _, ok := sym.Enum.Values[member]; ok {
			matches = append(matches, t.ForSymbol(id))
		}
	}
	return matches
}
