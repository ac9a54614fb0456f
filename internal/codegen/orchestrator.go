// Package codegen turns validated syntax trees into C implementation text.
//
// Every syntactic construct kind maps to one pure generator function that
// returns (text, effects); the Orchestrator is the sole owner of mutable
// state and applies each effect immediately, before the next sibling node
// is visited, so later siblings observe updated state. The dispatch tables
// are plain maps keyed by construct kind: a new construct means a new
// entry, not a rewrite of the dispatch.
package codegen

import (
	"strings"

	"cnext/internal/ast"
	"cnext/internal/diag"
	"cnext/internal/helpers"
	"cnext/internal/resolve"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// StmtGen generates one statement kind.
type StmtGen func(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error)

// DeclGen generates one declaration kind.
type DeclGen func(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error)

// Options configure an orchestrator for one build.
type Options struct {
	Mode  helpers.Mode
	Entry string
	// HeaderFor maps external type names to the header that declares them.
	HeaderFor map[string]string
}

// Orchestrator owns the mutable state of one file's generation run. The
// registry and mutation table are shared across files and read-only during
// generation; everything else is per-file.
type Orchestrator struct {
	Reg  *symbols.Table
	Mut  *MutTable
	Opts Options

	State    *State
	Demands  *helpers.Set
	Includes *IncludeSet
	NeedISR  bool
	// Callbacks collects function-pointer typedef texts demanded by
	// callback-typed struct fields, in first-demand order.
	Callbacks []string
	// ConstDefs collects rendered file-scope constant definitions for the
	// unit header, in declaration order.
	ConstDefs []string

	stmtGens map[ast.StmtKind]StmtGen
	declGens map[ast.DeclKind]DeclGen
}

// New builds an orchestrator with the complete per-kind dispatch tables
// constructed up front.
func New(reg *symbols.Table, mut *MutTable, opts Options) *Orchestrator {
	o := &Orchestrator{
		Reg:  reg,
		Mut:  mut,
		Opts: opts,
	}
	o.stmtGens = map[ast.StmtKind]StmtGen{
		ast.StmtVar:      genVarStmt,
		ast.StmtAssign:   genAssignStmt,
		ast.StmtExpr:     genExprStmt,
		ast.StmtIf:       genIfStmt,
		ast.StmtWhile:    genWhileStmt,
		ast.StmtDoWhile:  genDoWhileStmt,
		ast.StmtFor:      genForStmt,
		ast.StmtSwitch:   genSwitchStmt,
		ast.StmtReturn:   genReturnStmt,
		ast.StmtBreak:    genBreakStmt,
		ast.StmtContinue: genContinueStmt,
		ast.StmtBlock:    genBlockStmt,
		ast.StmtCritical: genCriticalStmt,
	}
	o.declGens = map[ast.DeclKind]DeclGen{
		ast.DeclScope:    genScopeDecl,
		ast.DeclFunction: genFunctionDecl,
		ast.DeclVariable: genVariableDecl,
		ast.DeclStruct:   genStructDecl,
		ast.DeclEnum:     genEnumDecl,
		ast.DeclBitmap:   genBitmapDecl,
		ast.DeclRegister: genRegisterDecl,
		ast.DeclInclude:  genIncludeDecl,
	}
	return o
}

// Output is the result of generating one file: the implementation text and
// the demand lists the later pipeline stages consume.
type Output struct {
	Unit     string
	Impl     string
	Demands  *helpers.Set
	Includes []Include
	NeedISR  bool
	// Callbacks are function-pointer typedefs the unit header must carry.
	Callbacks []string
	// ConstDefs are rendered static const definitions for the unit header.
	ConstDefs []string
}

// GenerateFile produces the implementation text for one file. On error the
// file yields no output at all; callers translate the *GenError into a
// diagnostic. The registry must already contain every declaration from
// every input file.
func (o *Orchestrator) GenerateFile(file *ast.File) (*Output, error) {
	unit := file.Unit
	o.State = NewState(unit)
	o.Demands = helpers.NewSet()
	o.Includes = NewIncludeSet()
	o.NeedISR = false
	o.Callbacks = nil
	o.ConstDefs = nil

	var body strings.Builder
	for _, d := range file.Decls {
		text, err := o.genDecl(d)
		if err != nil {
			return nil, err
		}
		body.WriteString(text)
	}

	var sb strings.Builder
	sb.WriteString("#include \"" + unit + ".h\"\n")
	for _, inc := range o.Includes.All() {
		if inc.System {
			sb.WriteString("#include <" + inc.Path + ">\n")
		} else {
			sb.WriteString("#include \"" + inc.Path + "\"\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(body.String())

	return &Output{
		Unit:      unit,
		Impl:      sb.String(),
		Demands:   o.Demands,
		Includes:  o.Includes.All(),
		NeedISR:   o.NeedISR,
		Callbacks: o.Callbacks,
		ConstDefs: o.ConstDefs,
	}, nil
}

// genDecl dispatches one declaration and applies its effects.
func (o *Orchestrator) genDecl(d *ast.Decl) (string, error) {
	gen, ok := o.declGens[d.Kind]
	if !ok {
		return "", errf(diag.GenUnsupportedNode, d.Pos, "no generator for declaration kind %s", d.Kind)
	}
	text, effects, err := gen(o, o.State, d)
	if err != nil {
		return "", err
	}
	for _, e := range effects {
		if applyErr := o.applyEffect(e); applyErr != nil {
			return "", errf(diag.GenCriticalSection, d.Pos, "%s", applyErr.Error())
		}
	}
	return text, nil
}

// genStmt dispatches one statement and applies its effects immediately, so
// the next sibling observes the updated state.
func (o *Orchestrator) genStmt(s *ast.Stmt) (string, error) {
	gen, ok := o.stmtGens[s.Kind]
	if !ok {
		return "", errf(diag.GenUnsupportedNode, s.Pos, "no generator for statement kind %s", s.Kind)
	}
	text, effects, err := gen(o, o.State, s)
	if err != nil {
		return "", err
	}
	for _, e := range effects {
		if applyErr := o.applyEffect(e); applyErr != nil {
			return "", errf(diag.GenCriticalSection, s.Pos, "%s", applyErr.Error())
		}
	}
	return text, nil
}

// genBlock renders a statement list at one deeper indent level.
func (o *Orchestrator) genBlock(stmts []*ast.Stmt) (string, error) {
	o.State.Indent++
	defer func() { o.State.Indent-- }()
	var sb strings.Builder
	for _, s := range stmts {
		text, err := o.genStmt(s)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// env builds the enum-inference environment for the current state.
func (o *Orchestrator) env(st *State) *resolve.Env {
	merged := make(map[string]types.Desc, len(st.Params)+len(st.Locals))
	for k, v := range st.Params {
		merged[k] = v
	}
	for k, v := range st.Locals {
		merged[k] = v
	}
	scope := st.Scope
	if st.ScopePath == "" {
		scope = symbols.NoScopeID
	}
	return &resolve.Env{Table: o.Reg, Scope: scope, Locals: merged}
}
