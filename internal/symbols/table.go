package symbols

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"cnext/internal/ast"
	"cnext/internal/source"
)

// Hints provide optional capacity suggestions for the registry arenas.
type Hints struct{ Scopes, Symbols uint }

// Table is the cross-file symbol registry. It is built once by the
// declaration pass over every input file and treated as read-only during
// generation, which is what makes per-file generation parallel-safe.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	Strings *source.Interner

	byPath map[string]ScopeID
	entry  string // designated entry-point function, exempt from mangling
}

// NewTable builds a fresh registry with optional capacity hints. The global
// scope is allocated immediately and parented to itself.
func NewTable(h Hints, strings *source.Interner) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	symCap, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		Scopes:  NewScopes(scopeCap),
		Symbols: NewSymbols(symCap),
		Strings: strings,
		byPath:  make(map[string]ScopeID),
	}
	global := t.Scopes.New("", NoScopeID)
	t.Scopes.Get(global).Parent = global // self-parented sentinel
	t.byPath[""] = global
	return t
}

// SetEntryPoint records the designated entry-point function name.
func (t *Table) SetEntryPoint(name string) { t.entry = name }

// EntryPoint returns the designated entry-point function name.
func (t *Table) EntryPoint() string { return t.entry }

// Global returns the root scope ID.
func (t *Table) Global() ScopeID { return GlobalScopeID }

// GetOrCreateScope returns the scope for a dotted path, creating every
// missing segment on the way down. The same path always yields the same
// scope, from any file, so member lists accumulate correctly.
func (t *Table) GetOrCreateScope(path string) ScopeID {
	if id, ok := t.byPath[path]; ok {
		return id
	}
	parent := GlobalScopeID
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		parent = t.GetOrCreateScope(path[:idx])
	}
	id := t.Scopes.New(path, parent)
	t.byPath[path] = id

	// A named scope is itself a symbol of its parent, so qualified
	// references can find it.
	name := t.Scopes.Get(id).Name()
	nameID := t.Strings.Intern(name)
	parentScope := t.Scopes.Get(parent)
	if _, exists := parentScope.NameIndex[nameID]; !exists {
		symID := t.Symbols.New(&Symbol{
			Name:  nameID,
			Kind:  SymbolScope,
			Scope: parent,
			Child: id,
		})
		parentScope.NameIndex[nameID] = symID
		parentScope.Members = append(parentScope.Members, symID)
	}
	return id
}

// LookupScope returns the scope for a dotted path without creating it.
func (t *Table) LookupScope(path string) (ScopeID, bool) {
	id, ok := t.byPath[path]
	return id, ok
}

// ScopePath returns the dotted path of a scope.
func (t *Table) ScopePath(id ScopeID) string {
	if sc := t.Scopes.Get(id); sc != nil {
		return sc.Path
	}
	return ""
}

// declare inserts a symbol into a scope, failing on (scope, name) collision.
func (t *Table) declare(scope ScopeID, name string, sym *Symbol) (SymbolID, error) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, fmt.Errorf("declare %q: invalid scope %d", name, scope)
	}
	nameID := t.Strings.Intern(name)
	if prev, exists := sc.NameIndex[nameID]; exists {
		prevSym := t.Symbols.Get(prev)
		return NoSymbolID, &DuplicateSymbolError{
			ScopePath: sc.Path,
			Name:      name,
			Prev:      prevSym.Pos,
		}
	}
	sym.Name = nameID
	sym.Scope = scope
	id := t.Symbols.New(sym)
	sc.NameIndex[nameID] = id
	sc.Members = append(sc.Members, id)
	return id, nil
}

// RegisterFunction declares a function in a scope.
func (t *Table) RegisterFunction(scope ScopeID, name string, pos source.Pos, info *FunctionInfo, flags SymbolFlags) (SymbolID, error) {
	id, err := t.declare(scope, name, &Symbol{
		Kind:  SymbolFunction,
		Pos:   pos,
		Flags: flags,
		Func:  info,
	})
	if err != nil {
		return NoSymbolID, err
	}
	sc := t.Scopes.Get(scope)
	sc.Functions = append(sc.Functions, id)
	sc.Visibility[t.Strings.Intern(name)] = info.Visibility
	return id, nil
}

// RegisterVariable declares a variable in a scope.
func (t *Table) RegisterVariable(scope ScopeID, name string, pos source.Pos, info *VariableInfo, flags SymbolFlags) (SymbolID, error) {
	id, err := t.declare(scope, name, &Symbol{
		Kind:  SymbolVariable,
		Pos:   pos,
		Flags: flags,
		Var:   info,
	})
	if err != nil {
		return NoSymbolID, err
	}
	sc := t.Scopes.Get(scope)
	sc.Variables = append(sc.Variables, id)
	sc.Visibility[t.Strings.Intern(name)] = info.Visibility
	return id, nil
}

// RegisterStruct declares a struct type in a scope.
func (t *Table) RegisterStruct(scope ScopeID, name string, pos source.Pos, info *StructInfo, flags SymbolFlags) (SymbolID, error) {
	return t.declare(scope, name, &Symbol{
		Kind:   SymbolStruct,
		Pos:    pos,
		Flags:  flags,
		Struct: info,
	})
}

// RegisterEnum declares an enum type in a scope.
func (t *Table) RegisterEnum(scope ScopeID, name string, pos source.Pos, info *EnumInfo, flags SymbolFlags) (SymbolID, error) {
	return t.declare(scope, name, &Symbol{
		Kind:  SymbolEnum,
		Pos:   pos,
		Flags: flags,
		Enum:  info,
	})
}

// RegisterBitmap declares a bitmap type in a scope.
func (t *Table) RegisterBitmap(scope ScopeID, name string, pos source.Pos, info *BitmapInfo, flags SymbolFlags) (SymbolID, error) {
	return t.declare(scope, name, &Symbol{
		Kind:   SymbolBitmap,
		Pos:    pos,
		Flags:  flags,
		Bitmap: info,
	})
}

// RegisterRegister declares a memory-mapped register in a scope.
func (t *Table) RegisterRegister(scope ScopeID, name string, pos source.Pos, info *RegisterInfo, flags SymbolFlags) (SymbolID, error) {
	return t.declare(scope, name, &Symbol{
		Kind:     SymbolRegister,
		Pos:      pos,
		Flags:    flags,
		Register: info,
	})
}

// Lookup finds a direct member of a scope by name.
func (t *Table) Lookup(scope ScopeID, name string) (SymbolID, bool) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, false
	}
	nameID := t.Strings.Intern(name)
	id, ok := sc.NameIndex[nameID]
	return id, ok
}

// SymbolName returns the interned name of a symbol.
func (t *Table) SymbolName(id SymbolID) string {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return ""
	}
	return t.Strings.MustLookup(sym.Name)
}

// Validate checks registry invariants: parent chains terminate at the
// self-parented global scope and name indexes agree with symbol ownership.
func (t *Table) Validate() error {
	for i := 1; i <= t.Scopes.Len(); i++ {
		id := ScopeID(safeU32(i))
		sc := t.Scopes.Get(id)
		seen := map[ScopeID]bool{}
		cur := id
		for {
			if seen[cur] {
				return fmt.Errorf("scope %q: parent cycle does not reach global", sc.Path)
			}
			seen[cur] = true
			parent := t.Scopes.Get(cur).Parent
			if parent == cur {
				if cur != GlobalScopeID {
					return fmt.Errorf("scope %q: self-parented but not global", sc.Path)
				}
				break
			}
			if !parent.IsValid() {
				return fmt.Errorf("scope %q: broken parent chain", sc.Path)
			}
			cur = parent
		}
		for nameID, symID := range sc.NameIndex {
			sym := t.Symbols.Get(symID)
			if sym == nil {
				return fmt.Errorf("scope %q: dangling symbol for %q", sc.Path, t.Strings.MustLookup(nameID))
			}
			if sym.Scope != id {
				return fmt.Errorf("scope %q: symbol %q owned by scope %d", sc.Path, t.Strings.MustLookup(nameID), sym.Scope)
			}
		}
	}
	return nil
}

func safeU32(v int) uint32 {
	value, err := safecast.Conv[uint32](v)
	if err != nil {
		panic(fmt.Errorf("index overflow: %w", err))
	}
	return value
}

// Visibility convenience re-export so callers need not import ast for the
// common public check.
func (t *Table) MemberIsPublic(scope ScopeID, name string) bool {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return false
	}
	return sc.MemberVisibility(t.Strings.Intern(name)) == ast.Public
}
