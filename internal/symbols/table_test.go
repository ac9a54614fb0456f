package symbols

import (
	"errors"
	"testing"

	"cnext/internal/ast"
	"cnext/internal/source"
	"cnext/internal/types"
)

func newTestTable() *Table {
	return NewTable(Hints{}, source.NewInterner())
}

func TestMangledName_PureFunction(t *testing.T) {
	cases := []struct {
		path, name, want string
	}{
		{"", "main", "main"},
		{"Motor", "speed", "Motor_speed"},
		{"Motor.Control", "start", "Motor_Control_start"},
		{"a.b.c", "x", "a_b_c_x"},
	}
	for _, c := range cases {
		if got := MangledName(c.path, c.name); got != c.want {
			t.Errorf("MangledName(%q, %q) = %q, want %q", c.path, c.name, got, c.want)
		}
	}
}

func TestGetOrCreateScope_SamePathSameScope(t *testing.T) {
	tbl := newTestTable()
	a := tbl.GetOrCreateScope("Motor.Control")
	b := tbl.GetOrCreateScope("Motor.Control")
	if a != b {
		t.Fatalf("same path produced different scopes: %d vs %d", a, b)
	}
	// Intermediate segments must exist too.
	if _, ok := tbl.LookupScope("Motor"); !ok {
		t.Fatal("intermediate scope 'Motor' was not created")
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestGetOrCreateScope_MembersAccumulateAcrossFiles(t *testing.T) {
	tbl := newTestTable()
	// Two files contributing to the same scope path.
	scope1 := tbl.GetOrCreateScope("Motor")
	if _, err := tbl.RegisterVariable(scope1, "speed", source.Pos{},
		&VariableInfo{Type: types.Desc{Prim: types.PrimU8}}, 0); err != nil {
		t.Fatal(err)
	}
	scope2 := tbl.GetOrCreateScope("Motor")
	if _, err := tbl.RegisterFunction(scope2, "start", source.Pos{},
		&FunctionInfo{}, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.Lookup(scope1, "speed"); !ok {
		t.Error("member 'speed' lost")
	}
	if _, ok := tbl.Lookup(scope1, "start"); !ok {
		t.Error("member 'start' from second file not visible")
	}
}

func TestRegister_DuplicateInSameScope(t *testing.T) {
	tbl := newTestTable()
	scope := tbl.GetOrCreateScope("Motor")
	if _, err := tbl.RegisterVariable(scope, "speed", source.Pos{Line: 1},
		&VariableInfo{}, 0); err != nil {
		t.Fatal(err)
	}
	_, err := tbl.RegisterVariable(scope, "speed", source.Pos{Line: 9},
		&VariableInfo{}, 0)
	var dup *DuplicateSymbolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSymbolError, got %v", err)
	}
	if dup.Prev.Line != 1 {
		t.Errorf("Prev.Line = %d, want 1 (the original declaration)", dup.Prev.Line)
	}
}

func TestRegister_SameNameDifferentScopes(t *testing.T) {
	tbl := newTestTable()
	a := tbl.GetOrCreateScope("Motor")
	b := tbl.GetOrCreateScope("Servo")
	if _, err := tbl.RegisterVariable(a, "speed", source.Pos{}, &VariableInfo{}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.RegisterVariable(b, "speed", source.Pos{}, &VariableInfo{}, 0); err != nil {
		t.Fatalf("same name in a different scope must not collide: %v", err)
	}
}

func TestResolveMember_Visibility(t *testing.T) {
	tbl := newTestTable()
	scope := tbl.GetOrCreateScope("Motor")
	if _, err := tbl.RegisterVariable(scope, "secret", source.Pos{},
		&VariableInfo{Visibility: ast.Private}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.RegisterVariable(scope, "speed", source.Pos{},
		&VariableInfo{Visibility: ast.Public}, 0); err != nil {
		t.Fatal(err)
	}

	// Internal access sees everything.
	if _, err := tbl.ResolveMember(scope, "secret", AccessInternal); err != nil {
		t.Errorf("internal access to private member failed: %v", err)
	}

	// Qualified access sees public members only.
	if _, err := tbl.ResolveMember(scope, "speed", AccessQualified); err != nil {
		t.Errorf("qualified access to public member failed: %v", err)
	}
	_, err := tbl.ResolveMember(scope, "secret", AccessQualified)
	var vis *VisibilityError
	if !errors.As(err, &vis) {
		t.Fatalf("expected VisibilityError, got %v", err)
	}

	// Missing members are NotFound, never Visibility.
	_, err = tbl.ResolveMember(scope, "missing", AccessQualified)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestForFunction_EntryPointStaysBare(t *testing.T) {
	tbl := newTestTable()
	tbl.SetEntryPoint("main")
	scope := tbl.GetOrCreateScope("App")
	mainID, err := tbl.RegisterFunction(scope, "main", source.Pos{}, &FunctionInfo{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	otherID, err := tbl.RegisterFunction(scope, "helper", source.Pos{}, &FunctionInfo{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.ForFunction(mainID); got != "main" {
		t.Errorf("entry point mangled to %q, want bare 'main'", got)
	}
	if got := tbl.ForFunction(otherID); got != "App_helper" {
		t.Errorf("ForFunction(helper) = %q, want 'App_helper'", got)
	}
}

func TestForSymbol_GlobalStaysBare(t *testing.T) {
	tbl := newTestTable()
	id, err := tbl.RegisterVariable(tbl.Global(), "counter", source.Pos{}, &VariableInfo{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.ForSymbol(id); got != "counter" {
		t.Errorf("global symbol mangled to %q", got)
	}
}

func TestEnumsWithMember_DeterministicOrder(t *testing.T) {
	tbl := newTestTable()
	mkEnum := func(scope ScopeID, name string) {
		t.Helper()
		info := &EnumInfo{
			Values: map[string]int64{"IDLE": 0, "RUN": 1},
			Order:  []string{"IDLE", "RUN"},
		}
		if _, err := tbl.RegisterEnum(scope, name, source.Pos{}, info, 0); err != nil {
			t.Fatal(err)
		}
	}
	mkEnum(tbl.GetOrCreateScope("Motor"), "State")
	mkEnum(tbl.GetOrCreateScope("Servo"), "State")

	got := tbl.EnumsWithMember("IDLE")
	if len(got) != 2 {
		t.Fatalf("EnumsWithMember(IDLE) = %v, want 2 matches", got)
	}
	// Arena order equals registration order, run after run.
	if got[0] != "Motor_State" || got[1] != "Servo_State" {
		t.Errorf("order = %v, want [Motor_State Servo_State]", got)
	}
	if other := tbl.EnumsWithMember("HALT"); len(other) != 0 {
		t.Errorf("EnumsWithMember(HALT) = %v, want none", other)
	}
}

func TestScopeRegisteredAsParentSymbol(t *testing.T) {
	tbl := newTestTable()
	tbl.GetOrCreateScope("Motor.Control")
	id, ok := tbl.Lookup(tbl.Global(), "Motor")
	if !ok {
		t.Fatal("scope 'Motor' not visible as a global symbol")
	}
	sym := tbl.Symbols.Get(id)
	if sym.Kind != SymbolScope {
		t.Fatalf("kind = %v, want scope", sym.Kind)
	}
	inner, ok := tbl.LookupScope("Motor")
	if !ok || sym.Child != inner {
		t.Errorf("scope symbol Child = %d, want %d", sym.Child, inner)
	}
}
