package resolve

import (
	"testing"

	"cnext/internal/ast"
	"cnext/internal/source"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

func wrap(e *ast.Expr) *ast.Expr {
	// The full precedence ladder around a single operand, the shape the
	// front end hands over when it does not collapse wrappers.
	for _, k := range []ast.ExprKind{ast.ExprChain, ast.ExprChain, ast.ExprCond} {
		e = &ast.Expr{Kind: k, Operands: []*ast.Expr{e}}
	}
	return e
}

func TestSimple_UnwrapsWrapperTowers(t *testing.T) {
	term, ok := Simple(wrap(ast.Ident("x")))
	if !ok || term.Kind != ast.ExprIdent || term.Name != "x" {
		t.Fatalf("Simple = %v, %v", term, ok)
	}
}

func TestSimple_RejectsRealOperators(t *testing.T) {
	cases := map[string]*ast.Expr{
		"binary chain": {Kind: ast.ExprChain, Level: ast.LevelAdditive,
			Ops: []string{"+"}, Operands: []*ast.Expr{ast.Ident("a"), ast.Ident("b")}},
		"ternary": {Kind: ast.ExprCond,
			Operands: []*ast.Expr{ast.Ident("c"), ast.Ident("a"), ast.Ident("b")}},
		"unary": {Kind: ast.ExprUnary, Ops: []string{"!"},
			Operands: []*ast.Expr{ast.Ident("a")}},
		"initializer": {Kind: ast.ExprInit},
	}
	for name, e := range cases {
		if _, ok := Simple(e); ok {
			t.Errorf("%s classified as simple", name)
		}
	}
}

func TestSimpleLValue(t *testing.T) {
	member := &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident("p"),
		Suffixes: []ast.Suffix{{Kind: ast.SuffixMember, Name: "x"}}}
	if _, ok := SimpleLValue(wrap(member)); !ok {
		t.Error("member access should be an lvalue shape")
	}
	call := &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident("f"),
		Suffixes: []ast.Suffix{{Kind: ast.SuffixCall}}}
	if _, ok := SimpleLValue(call); ok {
		t.Error("a call result is not addressable")
	}
}

// enumEnv registers enum Motor.State plus a few values typed by it.
func enumEnv(t *testing.T) *Env {
	t.Helper()
	reg := symbols.NewTable(symbols.Hints{}, source.NewInterner())
	motor := reg.GetOrCreateScope("Motor")
	if _, err := reg.RegisterEnum(motor, "State", source.Pos{}, &symbols.EnumInfo{
		Values: map[string]int64{"IDLE": 0, "RUN": 1},
		Order:  []string{"IDLE", "RUN"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	stateType := types.Named("Motor_State", types.RefEnum)
	if _, err := reg.RegisterVariable(reg.Global(), "current", source.Pos{},
		&symbols.VariableInfo{Type: stateType}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RegisterStruct(reg.Global(), "Robot", source.Pos{}, &symbols.StructInfo{
		FieldType: map[string]types.Desc{"mode": stateType},
	}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RegisterVariable(reg.Global(), "bot", source.Pos{},
		&symbols.VariableInfo{Type: types.Named("Robot", types.RefStruct)}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RegisterFunction(reg.Global(), "pick", source.Pos{}, &symbols.FunctionInfo{
		Ret: stateType, Body: &ast.Block{},
	}, 0); err != nil {
		t.Fatal(err)
	}
	return &Env{Table: reg, Scope: symbols.NoScopeID, Locals: map[string]types.Desc{}}
}

func dotted(base string, members ...string) *ast.Expr {
	e := &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident(base)}
	for _, m := range members {
		e.Suffixes = append(e.Suffixes, ast.Suffix{Kind: ast.SuffixMember, Name: m})
	}
	return e
}

func TestInferEnum(t *testing.T) {
	env := enumEnv(t)
	cases := []struct {
		name string
		expr *ast.Expr
		want string
		ok   bool
	}{
		{"local variable", ast.Ident("s"), "Motor_State", true},
		{"global variable", ast.Ident("current"), "Motor_State", true},
		{"qualified member access", dotted("Motor", "State", "IDLE"), "Motor_State", true},
		{"call return type", &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident("pick"),
			Suffixes: []ast.Suffix{{Kind: ast.SuffixCall}}}, "Motor_State", true},
		{"struct field chain", dotted("bot", "mode"), "Motor_State", true},
		{"unknown identifier", ast.Ident("nothing"), "", false},
		{"indexed chains are opaque", &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident("bot"),
			Suffixes: []ast.Suffix{{Kind: ast.SuffixIndex, Index: ast.Ident("i")}}}, "", false},
	}
	env.Locals["s"] = types.Named("Motor_State", types.RefEnum)
	for _, c := range cases {
		got, ok := env.InferEnum(wrap(c.expr))
		if ok != c.ok || got != c.want {
			t.Errorf("%s: InferEnum = %q, %v; want %q, %v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestCallTarget(t *testing.T) {
	env := enumEnv(t)
	call := &ast.Expr{Kind: ast.ExprPostfix, Base: ast.Ident("pick"),
		Suffixes: []ast.Suffix{{Kind: ast.SuffixCall}}}
	id, ok := env.CallTarget(call)
	if !ok {
		t.Fatal("known global function did not resolve")
	}
	if env.Table.ForFunction(id) != "pick" {
		t.Errorf("resolved %q, want pick", env.Table.ForFunction(id))
	}
	if _, ok := env.CallTarget(dotted("bot", "mode")); ok {
		t.Error("a member access is not a call")
	}
}
