package resolve

import (
	"strings"

	"cnext/internal/ast"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// Env carries the context enum inference needs: the registry, the scope the
// expression appears in (NoScopeID at file level), and the types of the
// current function's parameters and locals.
type Env struct {
	Table  *symbols.Table
	Scope  symbols.ScopeID
	Locals map[string]types.Desc
}

// InferEnum determines the enum type of an expression, returning the
// mangled enum name (e.g. "Motor_State"). Inference is best-effort:
// a false result means "unresolved", never an error.
//
// Priority order: function-call return types, bare identifiers, qualified
// enum member access, `this.` member access, and finally a struct-field
// chain walk to an enum-typed terminal field.
func (env *Env) InferEnum(e *ast.Expr) (string, bool) {
	term, ok := Simple(e)
	if !ok {
		return "", false
	}
	switch term.Kind {
	case ast.ExprIdent:
		return env.inferIdent(term.Name)
	case ast.ExprPostfix:
		return env.inferPostfix(term)
	default:
		return "", false
	}
}

func (env *Env) inferIdent(name string) (string, bool) {
	if d, ok := env.Locals[name]; ok {
		return env.enumNameOf(d)
	}
	if env.Scope.IsValid() {
		if id, err := env.Table.ResolveMember(env.Scope, name, symbols.AccessInternal); err == nil {
			if d, ok := env.varType(id); ok {
				return env.enumNameOf(d)
			}
		}
	}
	if id, err := env.Table.ResolveMember(env.Table.Global(), name, symbols.AccessQualified); err == nil {
		if d, ok := env.varType(id); ok {
			return env.enumNameOf(d)
		}
	}
	return "", false
}

func (env *Env) inferPostfix(e *ast.Expr) (string, bool) {
	segs, isCall, ok := flatten(e)
	if !ok {
		return "", false
	}
	if isCall {
		return env.inferCall(segs)
	}
	if len(segs) < 2 {
		return "", false
	}

	// Qualified enum member access: everything before the final segment
	// names the enum, possibly scope-prefixed or spelled from inside the
	// enum's own scope.
	qual := segs[:len(segs)-1]
	if qual[0] == "global" {
		qual = qual[1:]
	}
	if len(qual) > 0 && qual[0] != "this" {
		mangled := strings.Join(qual, "_")
		if _, ok := env.Table.LookupMangled(mangled, symbols.SymbolEnum); ok {
			return mangled, true
		}
		if env.Scope.IsValid() {
			scoped := symbols.MangledName(env.Table.ScopePath(env.Scope), strings.Join(qual, "_"))
			if _, ok := env.Table.LookupMangled(scoped, symbols.SymbolEnum); ok {
				return scoped, true
			}
		}
	}

	// `this.` forms need an enclosing scope to mean anything.
	if segs[0] == "this" {
		if !env.Scope.IsValid() {
			return "", false
		}
		if len(segs) == 2 {
			if id, err := env.Table.ResolveMember(env.Scope, segs[1], symbols.AccessInternal); err == nil {
				if d, ok := env.varType(id); ok {
					return env.enumNameOf(d)
				}
			}
			return "", false
		}
		return env.walkFields(env.memberType(segs[1]), segs[2:])
	}

	// Fallback: a struct-field chain ending in an enum-typed field.
	base, ok := env.lookupValueType(segs[0])
	if !ok {
		return "", false
	}
	return env.walkFields(base, segs[1:])
}

func (env *Env) inferCall(segs []string) (string, bool) {
	id, ok := env.callTarget(segs)
	if !ok {
		return "", false
	}
	return env.enumNameOf(env.Table.Symbols.Get(id).Func.Ret)
}

// CallTarget resolves the function a call expression invokes, when the
// whole expression is a call with a dotted head. Used by enum inference
// and by the parameter-mutation refinement pass.
func (env *Env) CallTarget(e *ast.Expr) (symbols.SymbolID, bool) {
	term, ok := Simple(e)
	if !ok || term.Kind != ast.ExprPostfix {
		return symbols.NoSymbolID, false
	}
	segs, isCall, ok := flatten(term)
	if !ok || !isCall {
		return symbols.NoSymbolID, false
	}
	return env.callTarget(segs)
}

func (env *Env) callTarget(segs []string) (symbols.SymbolID, bool) {
	if len(segs) == 0 {
		return symbols.NoSymbolID, false
	}
	if segs[0] == "global" {
		segs = segs[1:]
		if len(segs) == 0 {
			return symbols.NoSymbolID, false
		}
	}
	var id symbols.SymbolID
	var err error
	switch {
	case len(segs) == 1:
		id, err = env.Table.ResolveFunction(segs[0], env.Scope)
	case segs[0] == "this":
		if !env.Scope.IsValid() || len(segs) != 2 {
			return symbols.NoSymbolID, false
		}
		id, err = env.Table.ResolveMember(env.Scope, segs[1], symbols.AccessInternal)
	default:
		scopePath := strings.Join(segs[:len(segs)-1], ".")
		scope, ok := env.Table.LookupScope(scopePath)
		if !ok {
			return symbols.NoSymbolID, false
		}
		id, err = env.Table.ResolveMember(scope, segs[len(segs)-1], symbols.AccessQualified)
	}
	if err != nil || !id.IsValid() {
		return symbols.NoSymbolID, false
	}
	sym := env.Table.Symbols.Get(id)
	if sym.Kind != symbols.SymbolFunction || sym.Func == nil {
		return symbols.NoSymbolID, false
	}
	return id, true
}

// walkFields follows member segments through struct field type maps until
// it reaches an enum-typed terminal field.
func (env *Env) walkFields(d types.Desc, segs []string) (string, bool) {
	cur := d
	for _, seg := range segs {
		if !cur.IsNamed() {
			return "", false
		}
		structID, found := env.Table.LookupType(cur.Name, symbols.SymbolStruct)
		if !found {
			return "", false
		}
		info := env.Table.Symbols.Get(structID).Struct
		if info == nil {
			return "", false
		}
		next, known := info.FieldType[seg]
		if !known {
			return "", false
		}
		cur = next
	}
	return env.enumNameOf(cur)
}

// memberType returns the declared type of a member variable of the current
// scope, or an invalid descriptor.
func (env *Env) memberType(name string) types.Desc {
	if id, err := env.Table.ResolveMember(env.Scope, name, symbols.AccessInternal); err == nil {
		if d, ok := env.varType(id); ok {
			return d
		}
	}
	return types.Desc{}
}

// lookupValueType resolves an identifier to a value type: locals first,
// then members of the enclosing scope, then globals.
func (env *Env) lookupValueType(name string) (types.Desc, bool) {
	if d, ok := env.Locals[name]; ok {
		return d, true
	}
	if env.Scope.IsValid() {
		if id, err := env.Table.ResolveMember(env.Scope, name, symbols.AccessInternal); err == nil {
			if d, ok := env.varType(id); ok {
				return d, true
			}
		}
	}
	if id, err := env.Table.ResolveMember(env.Table.Global(), name, symbols.AccessQualified); err == nil {
		if d, ok := env.varType(id); ok {
			return d, true
		}
	}
	return types.Desc{}, false
}

func (env *Env) varType(id symbols.SymbolID) (types.Desc, bool) {
	sym := env.Table.Symbols.Get(id)
	if sym == nil || sym.Kind != symbols.SymbolVariable || sym.Var == nil {
		return types.Desc{}, false
	}
	return sym.Var.Type, true
}

// enumNameOf maps a type descriptor to the mangled name of the enum it
// references, if it references one.
func (env *Env) enumNameOf(d types.Desc) (string, bool) {
	if !d.IsNamed() || d.IsArray() {
		return "", false
	}
	if id, ok := env.Table.LookupMangled(d.Name, symbols.SymbolEnum); ok {
		return env.Table.ForSymbol(id), true
	}
	if id, ok := env.Table.LookupType(d.Name, symbols.SymbolEnum); ok {
		return env.Table.ForSymbol(id), true
	}
	return "", false
}

// flatten reduces a postfix chain to dotted segments. The final call
// suffix, when present, is reported separately; any index, bit-range, or
// mid-chain call makes the shape ineligible.
func flatten(e *ast.Expr) (segs []string, isCall bool, ok bool) {
	if e.Base == nil || e.Base.Kind != ast.ExprIdent {
		return nil, false, false
	}
	segs = append(segs, e.Base.Name)
	for i, suf := range e.Suffixes {
		switch suf.Kind {
		case ast.SuffixMember:
			segs = append(segs, suf.Name)
		case ast.SuffixCall:
			if i != len(e.Suffixes)-1 {
				return nil, false, false
			}
			return segs, true, true
		default:
			return nil, false, false
		}
	}
	return segs, false, true
}
