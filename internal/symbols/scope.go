package symbols

import (
	"cnext/internal/ast"
	"cnext/internal/source"
)

// Scope is a namespace node identified purely by its dotted path. The
// global scope has the empty path and is its own parent, so path-walking
// code needs no special root case. Scopes are created lazily and shared
// across files; member lists accumulate as files register into them.
type Scope struct {
	Path   string // dotted path, "" for the global scope
	Parent ScopeID

	NameIndex  map[source.StringID]SymbolID
	Members    []SymbolID
	Functions  []SymbolID
	Variables  []SymbolID
	Visibility map[source.StringID]ast.Visibility
}

// Name returns the last path segment, "" for the global scope.
func (s *Scope) Name() string {
	for i := len(s.Path) - 1; i >= 0; i-- {
		if s.Path[i] == '.' {
			return s.Path[i+1:]
		}
	}
	return s.Path
}

// IsGlobal reports whether this is the root scope.
func (s *Scope) IsGlobal() bool { return s.Path == "" }

// MemberVisibility returns the recorded visibility of a member name,
// defaulting to public when never recorded.
func (s *Scope) MemberVisibility(name source.StringID) ast.Visibility {
	if v, ok := s.Visibility[name]; ok {
		return v
	}
	return ast.Public
}
