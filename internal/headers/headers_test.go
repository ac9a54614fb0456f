package headers

import (
	"strings"
	"testing"

	"cnext/internal/ast"
	"cnext/internal/codegen"
	"cnext/internal/source"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

type fixture struct {
	reg *symbols.Table
	mut *codegen.MutTable
}

func newFixture() *fixture {
	return &fixture{
		reg: symbols.NewTable(symbols.Hints{}, source.NewInterner()),
		mut: codegen.NewMutTable(),
	}
}

func (f *fixture) gen(opts Options) *Generator {
	return New(f.reg, f.mut, opts)
}

func (f *fixture) unit(t *testing.T, file *ast.File, out *codegen.Output, opts Options) (string, string) {
	t.Helper()
	h, hpp, err := f.gen(opts).Unit(file, out)
	if err != nil {
		t.Fatalf("Unit: %v", err)
	}
	return h, hpp
}

func emptyOutput() *codegen.Output { return &codegen.Output{} }

func mainFile(decls ...*ast.Decl) *ast.File {
	return &ast.File{Path: "main.cnx", Unit: "main", Decls: decls}
}

func TestUnit_GuardsAndLanguageFraming(t *testing.T) {
	f := newFixture()
	id, err := f.reg.RegisterFunction(f.reg.Global(), "ready", source.Pos{}, &symbols.FunctionInfo{
		Ret:  types.Prim(types.PrimBool),
		Body: &ast.Block{},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.mut.Set(f.reg.ForFunction(id), nil)

	h, hpp := f.unit(t, mainFile(&ast.Decl{Kind: ast.DeclFunction, Name: "ready"}), emptyOutput(), Options{})

	if !strings.HasPrefix(h, "#ifndef MAIN_H\n#define MAIN_H\n") {
		t.Errorf("C guard wrong:\n%s", h)
	}
	if !strings.HasSuffix(h, "#endif // MAIN_H\n") {
		t.Errorf("C guard close wrong:\n%s", h)
	}
	if !strings.HasPrefix(hpp, "#ifndef MAIN_HPP\n#define MAIN_HPP\n") {
		t.Errorf("C++ guard wrong:\n%s", hpp)
	}

	// bool spells natively in C++, via stdbool.h in C.
	if !strings.Contains(h, "#include <stdbool.h>") {
		t.Errorf("C header missing stdbool.h for a bool return:\n%s", h)
	}
	if strings.Contains(hpp, "stdbool.h") {
		t.Errorf("C++ header must not include stdbool.h:\n%s", hpp)
	}

	if !strings.Contains(hpp, "extern \"C\" {") || !strings.Contains(hpp, "} // extern \"C\"") {
		t.Errorf("C++ header missing the extern \"C\" wrapper:\n%s", hpp)
	}
	if strings.Contains(h, "extern \"C\"") {
		t.Errorf("C header must not carry the extern \"C\" wrapper:\n%s", h)
	}
}

// The header prototype and the implementation definition must come from the
// same renderer, so generating both and comparing catches any drift.
func TestUnit_PrototypeMatchesImplementationSignature(t *testing.T) {
	f := newFixture()
	info := &symbols.FunctionInfo{
		Params: []ast.Param{
			{Name: "target", Type: types.Prim(types.PrimU8)},
			{Name: "speed", Type: types.Prim(types.PrimU16)},
		},
		Ret: types.Prim(types.PrimVoid),
		Body: &ast.Block{Stmts: []*ast.Stmt{{
			Kind: ast.StmtAssign,
			Assign: &ast.AssignStmt{
				Target: ast.Ident("target"), Op: "=", Value: ast.Ident("speed"),
			},
		}}},
	}
	id, err := f.reg.RegisterFunction(f.reg.Global(), "drive", source.Pos{}, info, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.mut.Set(f.reg.ForFunction(id), codegen.AnalyzeFunction(info))

	decl := &ast.Decl{Kind: ast.DeclFunction, Name: "drive"}
	o := codegen.New(f.reg, f.mut, codegen.Options{})
	out, err := o.GenerateFile(mainFile(decl))
	if err != nil {
		t.Fatal(err)
	}
	h, _ := f.unit(t, mainFile(decl), out, Options{})

	want := "void drive(uint8_t *target, const uint16_t speed)"
	if !strings.Contains(out.Impl, want+" {") {
		t.Errorf("implementation signature = ?, want %q in:\n%s", want, out.Impl)
	}
	if !strings.Contains(h, want+";") {
		t.Errorf("header prototype = ?, want %q in:\n%s", want, h)
	}
}

func TestUnit_PrivateFunctionExcluded(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.RegisterFunction(f.reg.Global(), "helper", source.Pos{}, &symbols.FunctionInfo{
		Ret:        types.Prim(types.PrimVoid),
		Visibility: ast.Private,
		Body:       &ast.Block{},
	}, 0); err != nil {
		t.Fatal(err)
	}
	decl := &ast.Decl{Kind: ast.DeclFunction, Name: "helper", Visibility: ast.Private}
	h, hpp := f.unit(t, mainFile(decl), emptyOutput(), Options{})

	if strings.Contains(h, "helper") || strings.Contains(hpp, "helper") {
		t.Errorf("private function leaked into the header:\n%s", h)
	}
}

func TestUnit_StructSpellingPerVariant(t *testing.T) {
	f := newFixture()
	fields := []ast.Field{
		{Name: "x", Type: types.Prim(types.PrimI16)},
		{Name: "y", Type: types.Prim(types.PrimI16)},
	}
	if _, err := f.reg.RegisterStruct(f.reg.Global(), "Point", source.Pos{}, &symbols.StructInfo{
		Fields: fields,
		FieldType: map[string]types.Desc{
			"x": types.Prim(types.PrimI16),
			"y": types.Prim(types.PrimI16),
		},
	}, 0); err != nil {
		t.Fatal(err)
	}
	decl := &ast.Decl{Kind: ast.DeclStruct, Name: "Point", Struct: &ast.StructDecl{Fields: fields}}
	h, hpp := f.unit(t, mainFile(decl), emptyOutput(), Options{})

	if !strings.Contains(h, "typedef struct {\n    int16_t x;\n    int16_t y;\n} Point;") {
		t.Errorf("C struct spelling wrong:\n%s", h)
	}
	if !strings.Contains(hpp, "struct Point {\n    int16_t x;\n    int16_t y;\n};") {
		t.Errorf("C++ struct spelling wrong:\n%s", hpp)
	}
}

func TestUnit_EnumValuesRendered(t *testing.T) {
	f := newFixture()
	motor := f.reg.GetOrCreateScope("Motor")
	if _, err := f.reg.RegisterEnum(motor, "State", source.Pos{}, &symbols.EnumInfo{
		Values: map[string]int64{"IDLE": 0, "RUN": 1, "FAULT": 10},
		Order:  []string{"IDLE", "RUN", "FAULT"},
	}, 0); err != nil {
		t.Fatal(err)
	}
	scopeDecl := &ast.Decl{Kind: ast.DeclScope, Name: "Motor", Scope: &ast.ScopeDecl{
		Decls: []*ast.Decl{{Kind: ast.DeclEnum, Name: "State"}},
	}}
	h, _ := f.unit(t, mainFile(scopeDecl), emptyOutput(), Options{})

	want := "typedef enum {\n    Motor_State_IDLE = 0,\n    Motor_State_RUN = 1,\n    Motor_State_FAULT = 10\n} Motor_State;"
	if !strings.Contains(h, want) {
		t.Errorf("enum spelling wrong, want:\n%s\ngot:\n%s", want, h)
	}
}

func TestUnit_BitmapMacros(t *testing.T) {
	f := newFixture()
	fields := []ast.BitmapField{
		{Name: "READY", Hi: 0, Lo: 0},
		{Name: "MODE", Hi: 3, Lo: 1},
	}
	if _, err := f.reg.RegisterBitmap(f.reg.Global(), "Flags", source.Pos{}, &symbols.BitmapInfo{
		Width: 8, Fields: fields,
	}, 0); err != nil {
		t.Fatal(err)
	}
	decl := &ast.Decl{Kind: ast.DeclBitmap, Name: "Flags", Bitmap: &ast.BitmapDecl{Width: 8, Fields: fields}}
	h, _ := f.unit(t, mainFile(decl), emptyOutput(), Options{})

	for _, want := range []string{
		"typedef uint8_t Flags;",
		"#define Flags_READY_SHIFT 0",
		"#define Flags_READY_MASK 0x1",
		"#define Flags_MODE_SHIFT 1",
		"#define Flags_MODE_MASK 0x7",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("bitmap header missing %q:\n%s", want, h)
		}
	}
}

func TestUnit_ExternalTypesForwardDeclaredOrIncluded(t *testing.T) {
	newDecl := func(f *fixture, t *testing.T) *ast.Decl {
		t.Helper()
		info := &symbols.FunctionInfo{
			Params: []ast.Param{{Name: "strip", Type: types.Named("Adafruit_NeoPixel", types.RefExternal)}},
			Ret:    types.Prim(types.PrimVoid),
			Body:   &ast.Block{},
		}
		id, err := f.reg.RegisterFunction(f.reg.Global(), "show", source.Pos{}, info, 0)
		if err != nil {
			t.Fatal(err)
		}
		f.mut.Set(f.reg.ForFunction(id), []bool{false})
		return &ast.Decl{Kind: ast.DeclFunction, Name: "show"}
	}

	// Unmapped external type: opaque forward declaration, per dialect.
	f := newFixture()
	h, hpp := f.unit(t, mainFile(newDecl(f, t)), emptyOutput(), Options{})
	if !strings.Contains(h, "typedef struct Adafruit_NeoPixel Adafruit_NeoPixel;") {
		t.Errorf("C header missing opaque forward declaration:\n%s", h)
	}
	if !strings.Contains(hpp, "struct Adafruit_NeoPixel;\n") {
		t.Errorf("C++ header missing opaque forward declaration:\n%s", hpp)
	}

	// Mapped external type: include instead of a forward declaration.
	f2 := newFixture()
	h2, _ := f2.unit(t, mainFile(newDecl(f2, t)), emptyOutput(), Options{
		HeaderFor: map[string]string{"Adafruit_NeoPixel": "Adafruit_NeoPixel.h"},
	})
	if !strings.Contains(h2, "#include \"Adafruit_NeoPixel.h\"") {
		t.Errorf("mapped type should include its header:\n%s", h2)
	}
	if strings.Contains(h2, "typedef struct Adafruit_NeoPixel") {
		t.Errorf("mapped type must not also forward-declare:\n%s", h2)
	}
}

func TestUnit_ExportedVariableGetsExtern(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.RegisterVariable(f.reg.Global(), "uptime", source.Pos{}, &symbols.VariableInfo{
		Type: types.Prim(types.PrimU32),
	}, symbols.SymbolFlagExported); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reg.RegisterVariable(f.reg.Global(), "scratch", source.Pos{}, &symbols.VariableInfo{
		Type: types.Prim(types.PrimU32),
	}, 0); err != nil {
		t.Fatal(err)
	}
	h, _ := f.unit(t, mainFile(
		&ast.Decl{Kind: ast.DeclVariable, Name: "uptime", Var: &ast.VarDecl{Type: types.Prim(types.PrimU32)}},
		&ast.Decl{Kind: ast.DeclVariable, Name: "scratch", Var: &ast.VarDecl{Type: types.Prim(types.PrimU32)}},
	), emptyOutput(), Options{})

	if !strings.Contains(h, "extern uint32_t uptime;") {
		t.Errorf("exported variable missing its extern:\n%s", h)
	}
	if strings.Contains(h, "scratch") {
		t.Errorf("file-private variable leaked into the header:\n%s", h)
	}
}

func TestUnit_CarriesGenerationArtifacts(t *testing.T) {
	f := newFixture()
	out := &codegen.Output{
		NeedISR:   true,
		Callbacks: []string{"typedef void (*Motor_onStop_t)(uint8_t code);"},
		ConstDefs: []string{"static const uint16_t LIMIT = 100;"},
	}
	h, _ := f.unit(t, mainFile(), out, Options{})

	if !strings.Contains(h, "typedef void (*cnx_isr_t)(void);") {
		t.Errorf("missing ISR typedef:\n%s", h)
	}
	if !strings.Contains(h, "typedef void (*Motor_onStop_t)(uint8_t code);") {
		t.Errorf("missing callback typedef:\n%s", h)
	}
	if !strings.Contains(h, "static const uint16_t LIMIT = 100;") {
		t.Errorf("missing constant definition:\n%s", h)
	}
}

func TestGuardMacro(t *testing.T) {
	cases := []struct {
		unit string
		v    Variant
		want string
	}{
		{"main", VariantC, "MAIN_H"},
		{"main", VariantCPP, "MAIN_HPP"},
		{"motor-ctl.v2", VariantC, "MOTOR_CTL_V2_H"},
	}
	for _, c := range cases {
		if got := guardMacro(c.unit, c.v); got != c.want {
			t.Errorf("guardMacro(%q) = %q, want %q", c.unit, got, c.want)
		}
	}
}
