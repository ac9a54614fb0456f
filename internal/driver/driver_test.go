package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"cnext/internal/ast"
	"cnext/internal/codegen"
	"cnext/internal/diag"
	"cnext/internal/project"
	"cnext/internal/source"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

func newRegistry() *symbols.Table {
	return symbols.NewTable(symbols.Hints{}, source.NewInterner())
}

func declareOne(t *testing.T, decls ...*ast.Decl) *diag.Bag {
	t.Helper()
	bag := diag.NewBag(10)
	DeclareFile(newRegistry(), &ast.File{Path: "main.cnx", Unit: "main", Decls: decls}, bag)
	return bag
}

func wantDeclCode(t *testing.T, bag *diag.Bag, code diag.Code) {
	t.Helper()
	if bag.Len() == 0 {
		t.Fatal("no diagnostics reported")
	}
	if got := bag.Items()[0].Code; got != code {
		t.Errorf("code = %s, want %s (message: %s)", got, code, bag.Items()[0].Message)
	}
}

func TestDeclareFile_RejectsBadDeclarations(t *testing.T) {
	varDecl := func(name string, d types.Desc) *ast.Decl {
		return &ast.Decl{Kind: ast.DeclVariable, Name: name, Var: &ast.VarDecl{Type: d}}
	}

	t.Run("duplicate symbol", func(t *testing.T) {
		bag := declareOne(t,
			varDecl("speed", types.Prim(types.PrimU8)),
			varDecl("speed", types.Prim(types.PrimU16)),
		)
		wantDeclCode(t, bag, diag.DeclDuplicateSymbol)
	})

	t.Run("string needs capacity", func(t *testing.T) {
		bag := declareOne(t, varDecl("name", types.Desc{Prim: types.PrimString}))
		wantDeclCode(t, bag, diag.DeclStringCapacity)
	})

	t.Run("array dimension must be positive", func(t *testing.T) {
		bag := declareOne(t, varDecl("buf", types.Desc{
			Prim: types.PrimU8, Dims: []types.ArrayDim{{Size: 0}},
		}))
		wantDeclCode(t, bag, diag.DeclArrayDimension)
	})

	t.Run("overflow modifier needs an integer", func(t *testing.T) {
		bag := declareOne(t, &ast.Decl{Kind: ast.DeclVariable, Name: "ratio",
			Var: &ast.VarDecl{Type: types.Prim(types.PrimF32), Overflow: true}})
		wantDeclCode(t, bag, diag.DeclInvalidModifier)
	})

	t.Run("isr takes nothing returns nothing", func(t *testing.T) {
		bag := declareOne(t, &ast.Decl{Kind: ast.DeclFunction, Name: "onTick",
			Func: &ast.FuncDecl{
				Params: []ast.Param{{Name: "n", Type: types.Prim(types.PrimU8)}},
				Ret:    types.Prim(types.PrimVoid),
				Body:   &ast.Block{},
				ISR:    true,
			}})
		wantDeclCode(t, bag, diag.DeclInvalidModifier)
	})

	t.Run("enum value out of width", func(t *testing.T) {
		bag := declareOne(t, &ast.Decl{Kind: ast.DeclEnum, Name: "State",
			Enum: &ast.EnumDecl{Width: 2, Members: []ast.EnumMember{
				{Name: "A", Value: 0},
				{Name: "B", Value: 4, Explicit: true},
			}}})
		wantDeclCode(t, bag, diag.DeclEnumValueRange)
	})

	t.Run("bitmap fields must not overlap", func(t *testing.T) {
		bag := declareOne(t, &ast.Decl{Kind: ast.DeclBitmap, Name: "Flags",
			Bitmap: &ast.BitmapDecl{Width: 8, Fields: []ast.BitmapField{
				{Name: "A", Hi: 3, Lo: 0},
				{Name: "B", Hi: 4, Lo: 2},
			}}})
		wantDeclCode(t, bag, diag.DeclBitfieldOverlap)
	})

	t.Run("register needs an address", func(t *testing.T) {
		bag := declareOne(t, &ast.Decl{Kind: ast.DeclRegister, Name: "PORTB",
			Register: &ast.RegisterDecl{Type: types.Prim(types.PrimU8)}})
		wantDeclCode(t, bag, diag.DeclRegisterAddress)
	})
}

func TestDeclareFile_SequentialEnumValues(t *testing.T) {
	reg := newRegistry()
	bag := diag.NewBag(10)
	DeclareFile(reg, &ast.File{Unit: "main", Decls: []*ast.Decl{
		{Kind: ast.DeclEnum, Name: "State", Enum: &ast.EnumDecl{Members: []ast.EnumMember{
			{Name: "A"},
			{Name: "B", Value: 10, Explicit: true},
			{Name: "C"},
		}}},
	}}, bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	id, ok := reg.Lookup(reg.Global(), "State")
	if !ok {
		t.Fatal("enum not registered")
	}
	info := reg.Symbols.Get(id).Enum
	if info.Values["A"] != 0 || info.Values["B"] != 10 || info.Values["C"] != 11 {
		t.Errorf("values = %v, want A=0 B=10 C=11", info.Values)
	}
}

func TestCheckTypes_UnknownNamedTypeWarns(t *testing.T) {
	file := &ast.File{Unit: "main", Decls: []*ast.Decl{
		{Kind: ast.DeclVariable, Name: "strip",
			Var: &ast.VarDecl{Type: types.Named("Adafruit_NeoPixel", types.RefExternal)}},
	}}
	reg := newRegistry()
	bag := diag.NewBag(10)
	DeclareFile(reg, file, bag)

	CheckTypes(reg, file, nil, bag)
	if bag.HasErrors() {
		t.Fatal("unknown external type must stay a warning, not an error")
	}
	if !bag.HasWarnings() {
		t.Fatal("expected an unknown-type warning")
	}
	if bag.Items()[0].Code != diag.DeclUnknownType {
		t.Errorf("code = %s, want %s", bag.Items()[0].Code, diag.DeclUnknownType)
	}

	// A header mapping silences the warning.
	mapped := diag.NewBag(10)
	CheckTypes(reg, file, map[string]string{"Adafruit_NeoPixel": "Adafruit_NeoPixel.h"}, mapped)
	if mapped.Len() != 0 {
		t.Errorf("mapped type still warned: %v", mapped.Items())
	}
}

func TestCheckEntry(t *testing.T) {
	reg := newRegistry()
	bag := diag.NewBag(10)
	if !CheckEntry(reg, "", bag) {
		t.Error("empty entry must always pass")
	}
	if CheckEntry(reg, "main", bag) {
		t.Error("missing entry point must fail")
	}
	wantDeclCode(t, bag, diag.DeclEntryNotFound)
}

func TestSeedMutations_FixpointClearsCallChains(t *testing.T) {
	reg := newRegistry()
	call := func(name, arg string) *ast.Stmt {
		return &ast.Stmt{Kind: ast.StmtExpr, Expr: &ast.Expr{
			Kind:     ast.ExprPostfix,
			Base:     ast.Ident(name),
			Suffixes: []ast.Suffix{{Kind: ast.SuffixCall, Args: []*ast.Expr{ast.Ident(arg)}}},
		}}
	}
	register := func(name, param string, body ...*ast.Stmt) {
		t.Helper()
		if _, err := reg.RegisterFunction(reg.Global(), name, source.Pos{}, &symbols.FunctionInfo{
			Params: []ast.Param{{Name: param, Type: types.Prim(types.PrimU8)}},
			Ret:    types.Prim(types.PrimVoid),
			Body:   &ast.Block{Stmts: body},
		}, 0); err != nil {
			t.Fatal(err)
		}
	}
	// f passes its parameter through g through h; only the leaf decides.
	register("f", "x", call("g", "x"))
	register("g", "y", call("h", "y"))
	register("h", "z")

	mut := codegen.NewMutTable()
	SeedMutations(reg, mut)

	for _, name := range []string{"f", "g", "h"} {
		if mut.Mutates(name, 0) {
			t.Errorf("%s should not mutate its parameter after refinement", name)
		}
	}
}

func writeTree(t *testing.T, dir, name string, file *ast.File) {
	t.Helper()
	data, err := msgpack.Marshal(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func mainTree() *ast.File {
	return &ast.File{Path: "main.cnx", Unit: "main", Decls: []*ast.Decl{
		{Kind: ast.DeclFunction, Name: "main", Func: &ast.FuncDecl{
			Ret: types.Prim(types.PrimVoid),
			Body: &ast.Block{Stmts: []*ast.Stmt{
				{Kind: ast.StmtVar, Var: &ast.VarStmt{
					Name: "x", Type: types.Prim(types.PrimU8),
					Init:     &ast.Expr{Kind: ast.ExprLit, Lit: ast.LitInt, Text: "0"},
					Overflow: true,
				}},
				{Kind: ast.StmtAssign, Assign: &ast.AssignStmt{
					Target: ast.Ident("x"), Op: "=",
					Value: &ast.Expr{Kind: ast.ExprChain, Level: ast.LevelAdditive,
						Ops:      []string{"+"},
						Operands: []*ast.Expr{ast.Ident("x"), {Kind: ast.ExprLit, Lit: ast.LitInt, Text: "1"}},
					},
				}},
				{Kind: ast.StmtExpr, Expr: &ast.Expr{
					Kind:     ast.ExprPostfix,
					Base:     ast.Ident("Motor"),
					Suffixes: []ast.Suffix{{Kind: ast.SuffixMember, Name: "spin"}, {Kind: ast.SuffixCall}},
				}},
			}},
		}},
	}}
}

func motorTree() *ast.File {
	return &ast.File{Path: "motor.cnx", Unit: "motor", Decls: []*ast.Decl{
		{Kind: ast.DeclScope, Name: "Motor", Scope: &ast.ScopeDecl{Decls: []*ast.Decl{
			{Kind: ast.DeclFunction, Name: "spin", Func: &ast.FuncDecl{
				Ret:  types.Prim(types.PrimVoid),
				Body: &ast.Block{},
			}},
		}}},
	}}
}

func buildDir(t *testing.T, in, out string, jobs int) *Result {
	t.Helper()
	res, err := Build(context.Background(), Options{
		InputDir: in,
		OutDir:   out,
		Config:   &project.Config{Entry: "main", Headers: map[string]string{}},
		Jobs:     jobs,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res
}

func TestBuild_EndToEnd(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(in, "gen")
	writeTree(t, in, "main.cnxast", mainTree())
	writeTree(t, in, "motor.cnxast", motorTree())

	res := buildDir(t, in, out, 2)
	if res.HasErrors() {
		for i := range res.Files {
			t.Logf("%s: %v", res.Files[i].Path, res.Files[i].Bag.Items())
		}
		t.Fatal("build reported errors")
	}

	// Every unit yields an implementation and both header dialects, plus the
	// demanded runtime header.
	for _, name := range []string{
		"cnx_runtime.h", "main.c", "main.h", "main.hpp", "motor.c", "motor.h", "motor.hpp",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	impl, err := os.ReadFile(filepath.Join(out, "main.c"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(impl), "x = add_u8(x, 1);") {
		t.Errorf("checked arithmetic missing from main.c:\n%s", impl)
	}
	// The cross-file call resolves through the shared registry.
	if !strings.Contains(string(impl), "Motor_spin();") {
		t.Errorf("cross-file call not mangled:\n%s", impl)
	}

	runtime, err := os.ReadFile(filepath.Join(out, "cnx_runtime.h"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(runtime), "add_u8") {
		t.Errorf("runtime header missing the demanded helper:\n%s", runtime)
	}
}

func TestBuild_DeterministicAcrossJobs(t *testing.T) {
	in := t.TempDir()
	writeTree(t, in, "main.cnxast", mainTree())
	writeTree(t, in, "motor.cnxast", motorTree())

	out1 := filepath.Join(in, "gen1")
	out4 := filepath.Join(in, "gen4")
	buildDir(t, in, out1, 1)
	buildDir(t, in, out4, 4)

	for _, name := range []string{"cnx_runtime.h", "main.c", "main.h", "motor.c"} {
		a, err := os.ReadFile(filepath.Join(out1, name))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(out4, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Errorf("%s differs between -jobs 1 and -jobs 4", name)
		}
	}
}

func TestBuild_NothingWrittenOnError(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(in, "gen")
	writeTree(t, in, "main.cnxast", mainTree())
	writeTree(t, in, "motor.cnxast", motorTree())
	// A third file redeclares main, poisoning the run.
	writeTree(t, in, "zz.cnxast", &ast.File{Path: "zz.cnx", Unit: "zz", Decls: []*ast.Decl{
		{Kind: ast.DeclFunction, Name: "main", Func: &ast.FuncDecl{
			Ret: types.Prim(types.PrimVoid), Body: &ast.Block{},
		}},
	}})

	res := buildDir(t, in, out, 2)
	if !res.HasErrors() {
		t.Fatal("duplicate entry declaration should error")
	}
	if len(res.Written) != 0 {
		t.Errorf("Written = %v, want none on error", res.Written)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output directory should not exist after a failed run")
	}
}

func TestBuild_EmptyInputDirSucceeds(t *testing.T) {
	res := buildDir(t, t.TempDir(), "", 1)
	if res.HasErrors() || len(res.Files) != 0 {
		t.Errorf("empty input should produce an empty, clean result: %+v", res)
	}
}
