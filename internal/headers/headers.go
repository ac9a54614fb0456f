// Package headers renders the per-unit C and C++ header files. Both
// variants share every section: guard, includes, typedefs, type layouts,
// constants, extern variables, and prototypes. They differ only in how a
// type body is spelled and in the extern "C" wrapper around declarations,
// so one renderer produces both from the same collected sections.
package headers

import (
	"fmt"
	"strings"

	"cnext/internal/ast"
	"cnext/internal/codegen"
	"cnext/internal/diag"
	"cnext/internal/source"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// Variant selects the output dialect.
type Variant uint8

const (
	VariantC Variant = iota
	VariantCPP
)

// Options configure header generation for one build.
type Options struct {
	Entry string
	// HeaderFor maps external type names to the header that declares them.
	// A mapped type gets an include; an unmapped, unqualified one gets an
	// opaque forward declaration.
	HeaderFor map[string]string
}

// Generator renders unit headers from the final registry and the per-unit
// generation output.
type Generator struct {
	Reg  *symbols.Table
	Mut  *codegen.MutTable
	Opts Options
}

// New creates a header generator over a completed registry.
func New(reg *symbols.Table, mut *codegen.MutTable, opts Options) *Generator {
	return &Generator{Reg: reg, Mut: mut, Opts: opts}
}

// sections is everything one unit contributes to its header, collected
// once and rendered per variant.
type sections struct {
	includes  []string // quoted external headers, deterministic first-demand order
	needBool  bool
	opaque    []string // external type names forward-declared opaquely
	callbacks []string
	typedefs  []typeDef
	consts    []string
	externs   []string
	protos    []string
	needISR   bool
}

// typeDef is one user type layout: the body lines between the braces plus
// the kind-specific framing.
type typeDef struct {
	kind   symbols.SymbolKind
	name   string
	lines  []string
	underC string // bitmap underlying C type
}

func (td typeDef) isEnum() bool { return td.kind == symbols.SymbolEnum }

// Unit renders both header variants for one compiled file.
func (g *Generator) Unit(file *ast.File, out *codegen.Output) (string, string, error) {
	s := &sections{
		callbacks: out.Callbacks,
		consts:    out.ConstDefs,
		needISR:   out.NeedISR,
	}
	if err := g.collect(file.Decls, "", s); err != nil {
		return "", "", err
	}
	g.resolveExternals(s)
	return g.render(file.Unit, s, VariantC), g.render(file.Unit, s, VariantCPP), nil
}

// collect walks the unit's declarations, flattening scopes, and fills the
// header sections in declaration order.
func (g *Generator) collect(decls []*ast.Decl, path string, s *sections) error {
	reg := g.Reg
	scope := reg.Global()
	if path != "" {
		if id, ok := reg.LookupScope(path); ok {
			scope = id
		}
	}
	for _, d := range decls {
		switch d.Kind {
		case ast.DeclScope:
			child := d.Name
			if path != "" {
				child = path + "." + d.Name
			}
			if err := g.collect(d.Scope.Decls, child, s); err != nil {
				return err
			}
		case ast.DeclFunction:
			if err := g.collectFunction(scope, d, s); err != nil {
				return err
			}
		case ast.DeclVariable:
			if err := g.collectVariable(scope, d, s); err != nil {
				return err
			}
		case ast.DeclStruct:
			if err := g.collectStruct(scope, d, s); err != nil {
				return err
			}
		case ast.DeclEnum:
			if err := g.collectEnum(scope, d, s); err != nil {
				return err
			}
		case ast.DeclBitmap:
			if err := g.collectBitmap(scope, d, s); err != nil {
				return err
			}
		case ast.DeclRegister, ast.DeclInclude:
			// Registers render inline at every access; source includes
			// belong to the implementation file.
		}
	}
	return nil
}

func (g *Generator) lookup(scope symbols.ScopeID, name string, pos source.Pos) (symbols.SymbolID, error) {
	id, ok := g.Reg.Lookup(scope, name)
	if !ok {
		return symbols.NoSymbolID, &headerError{
			code: diag.DeclUnknownType, pos: pos,
			msg: fmt.Sprintf("'%s' missing from the registry", name),
		}
	}
	return id, nil
}

func (g *Generator) collectFunction(scope symbols.ScopeID, d *ast.Decl, s *sections) error {
	if d.Visibility == ast.Private {
		return nil // static, implementation-only
	}
	id, err := g.lookup(scope, d.Name, d.Pos)
	if err != nil {
		return err
	}
	sym := g.Reg.Symbols.Get(id)
	if sym.Func == nil {
		return nil
	}
	extName := g.Reg.ForFunction(id)
	plans := codegen.PlanParams(g.Reg, extName, sym.Func, g.Mut)
	s.protos = append(s.protos, codegen.Signature(g.Reg, extName, sym.Func, plans)+";")
	g.noteTypes(sym.Func.Ret, s)
	for _, p := range sym.Func.Params {
		g.noteTypes(p.Type, s)
	}
	return nil
}

func (g *Generator) collectVariable(scope symbols.ScopeID, d *ast.Decl, s *sections) error {
	id, err := g.lookup(scope, d.Name, d.Pos)
	if err != nil {
		return err
	}
	sym := g.Reg.Symbols.Get(id)
	if sym.Var == nil || sym.Var.Type.Const || sym.Imported() {
		return nil // consts arrive pre-rendered; imported vars stay foreign
	}
	if !sym.Exported() {
		return nil
	}
	g.noteTypes(sym.Var.Type, s)
	s.externs = append(s.externs,
		"extern "+codegen.RenderVarDecl(g.Reg, g.Reg.ForSymbol(id), sym.Var.Type)+";")
	return nil
}

func (g *Generator) collectStruct(scope symbols.ScopeID, d *ast.Decl, s *sections) error {
	id, err := g.lookup(scope, d.Name, d.Pos)
	if err != nil {
		return err
	}
	extName := g.Reg.ForSymbol(id)
	td := typeDef{kind: symbols.SymbolStruct, name: extName}
	for _, f := range d.Struct.Fields {
		if f.Callback != nil {
			td.lines = append(td.lines, extName+"_"+f.Name+"_t "+f.Name+";")
			continue
		}
		g.noteTypes(f.Type, s)
		td.lines = append(td.lines, codegen.RenderVarDecl(g.Reg, f.Name, f.Type)+";")
	}
	s.typedefs = append(s.typedefs, td)
	return nil
}

func (g *Generator) collectEnum(scope symbols.ScopeID, d *ast.Decl, s *sections) error {
	id, err := g.lookup(scope, d.Name, d.Pos)
	if err != nil {
		return err
	}
	sym := g.Reg.Symbols.Get(id)
	extName := g.Reg.ForSymbol(id)
	td := typeDef{kind: symbols.SymbolEnum, name: extName}
	if sym.Enum != nil {
		for i, member := range sym.Enum.Order {
			line := fmt.Sprintf("%s_%s = %d", extName, member, sym.Enum.Values[member])
			if i < len(sym.Enum.Order)-1 {
				line += ","
			}
			td.lines = append(td.lines, line)
		}
	}
	s.typedefs = append(s.typedefs, td)
	return nil
}

func (g *Generator) collectBitmap(scope symbols.ScopeID, d *ast.Decl, s *sections) error {
	id, err := g.lookup(scope, d.Name, d.Pos)
	if err != nil {
		return err
	}
	extName := g.Reg.ForSymbol(id)
	under := fmt.Sprintf("uint%d_t", d.Bitmap.Width)
	td := typeDef{kind: symbols.SymbolBitmap, name: extName, underC: under}
	for _, f := range d.Bitmap.Fields {
		mask := (uint64(1) << (f.Hi - f.Lo + 1)) - 1
		td.lines = append(td.lines,
			fmt.Sprintf("#define %s_%s_SHIFT %d", extName, f.Name, f.Lo),
			fmt.Sprintf("#define %s_%s_MASK 0x%X", extName, f.Name, mask))
	}
	s.typedefs = append(s.typedefs, td)
	return nil
}

// noteTypes records what a referenced type needs in the header: stdbool
// for booleans, an include or opaque forward declaration for external
// named types.
func (g *Generator) noteTypes(d types.Desc, s *sections) {
	if !d.IsNamed() {
		if d.Prim == types.PrimBool {
			s.needBool = true
		}
		return
	}
	for _, kind := range []symbols.SymbolKind{
		symbols.SymbolStruct, symbols.SymbolEnum, symbols.SymbolBitmap, symbols.SymbolRegister,
	} {
		if _, ok := g.Reg.LookupMangled(d.Name, kind); ok {
			return // locally resolvable
		}
		if _, ok := g.Reg.LookupType(d.Name, kind); ok {
			return
		}
	}
	for _, seen := range s.opaque {
		if seen == d.Name {
			return
		}
	}
	s.opaque = append(s.opaque, d.Name)
}

// resolveExternals splits the noted external types into includes (when the
// project maps them to a header), opaque forward declarations, and nothing
// at all for qualified names that only their owning header can introduce.
func (g *Generator) resolveExternals(s *sections) {
	var opaque []string
	for _, name := range s.opaque {
		if hdr, ok := g.Opts.HeaderFor[name]; ok {
			s.includes = appendUnique(s.includes, hdr)
			continue
		}
		if strings.Contains(name, "::") || strings.Contains(name, "<") {
			continue // namespaced or templated, cannot forward-declare in C
		}
		opaque = append(opaque, name)
	}
	s.opaque = opaque
}

func appendUnique(list []string, v string) []string {
	for _, seen := range list {
		if seen == v {
			return list
		}
	}
	return append(list, v)
}

// headerError satisfies error and converts to a structured diagnostic.
type headerError struct {
	code diag.Code
	pos  source.Pos
	msg  string
}

func (e *headerError) Error() string { return e.msg }

// Diagnostic converts the error to a reportable diagnostic.
func (e *headerError) Diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     e.code,
		Message:  e.msg,
		Primary:  e.pos,
	}
}
