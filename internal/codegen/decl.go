package codegen

import (
	"strings"

	"cnext/internal/ast"
	"cnext/internal/diag"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// genScopeDecl flattens a namespace block: the scope push must land before
// the members generate, so it is applied directly; the matching pop travels
// back as an effect and lands right after this generator returns.
func genScopeDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	if err := o.applyEffect(Effect{Kind: EffectPushScope, Name: d.Name}); err != nil {
		return "", nil, errf(diag.GenUnsupportedNode, d.Pos, "%s", err.Error())
	}
	var sb strings.Builder
	for _, member := range d.Scope.Decls {
		text, err := o.genDecl(member)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(text)
	}
	return sb.String(), []Effect{{Kind: EffectPopScope}}, nil
}

func genFunctionDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	reg := o.Reg
	id, ok := reg.Lookup(st.Scope, d.Name)
	if !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"function '%s' missing from the registry", d.Name)
	}
	sym := reg.Symbols.Get(id)
	if sym.Kind != symbols.SymbolFunction || sym.Func == nil {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"'%s' is not a registered function", d.Name)
	}
	info := sym.Func
	if info.Body == nil {
		return "", nil, nil // imported prototype, nothing to define
	}

	extName := reg.ForFunction(id)
	plans := PlanParams(reg, extName, info, o.Mut)

	// Parameters spelled as pointers dereference on use inside the body.
	if err := o.applyEffect(Effect{
		Kind:   EffectEnterFunction,
		Func:   extName,
		Params: info.Params,
		Refs:   DerefFlags(info, plans),
	}); err != nil {
		return "", nil, errf(diag.GenUnsupportedNode, d.Pos, "%s", err.Error())
	}
	if err := o.applyEffect(Effect{Kind: EffectExpectType, Type: info.Ret}); err != nil {
		return "", nil, errf(diag.GenUnsupportedNode, d.Pos, "%s", err.Error())
	}

	body, err := o.genBlock(info.Body.Stmts)
	if err != nil {
		return "", nil, err
	}

	qual := ""
	if info.Visibility == ast.Private && extName != o.Opts.Entry {
		qual = "static "
	}
	text := qual + Signature(reg, extName, info, plans) + " {\n" + body + "}\n\n"

	effects := []Effect{{Kind: EffectClearExpected}, {Kind: EffectExitFunction}}
	if info.ISR {
		effects = append(effects, Effect{Kind: EffectISRTypedef})
	}
	for _, p := range info.Params {
		effects = append(effects, typeIncludes(p.Type)...)
	}
	effects = append(effects, typeIncludes(info.Ret)...)
	return text, effects, nil
}

// typeIncludes yields the system includes a primitive type's C spelling
// relies on.
func typeIncludes(d types.Desc) []Effect {
	if d.IsNamed() {
		return nil
	}
	switch {
	case d.Prim.IsInteger():
		return []Effect{{Kind: EffectInclude, Include: Include{Path: "stdint.h", System: true}}}
	case d.Prim == types.PrimBool:
		return []Effect{{Kind: EffectInclude, Include: Include{Path: "stdbool.h", System: true}}}
	default:
		return nil
	}
}

// genVariableDecl defines a file-scope or scope-member variable in the
// implementation file. Constants do not get a definition here: they render
// as static const in the unit header, so their full text travels as a
// const-definition effect instead.
func genVariableDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	reg := o.Reg
	id, ok := reg.Lookup(st.Scope, d.Name)
	if !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"variable '%s' missing from the registry", d.Name)
	}
	sym := reg.Symbols.Get(id)
	if sym.Kind != symbols.SymbolVariable || sym.Var == nil {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"'%s' is not a registered variable", d.Name)
	}
	if sym.Imported() {
		return "", nil, nil // declared by a foreign header, never redefined
	}

	v := d.Var
	extName := reg.ForSymbol(id)
	effects := typeIncludes(sym.Var.Type)

	var init string
	if v.Init != nil {
		r := newExprRenderer(o, st)
		r.expect(sym.Var.Type)
		var err error
		if v.Init.Kind == ast.ExprInit {
			var fillEffects []Effect
			init, fillEffects, err = renderInitList(r, extName, sym.Var.Type, v.Init)
			effects = append(effects, fillEffects...)
		} else {
			init, err = r.expr(v.Init)
		}
		if err != nil {
			return "", nil, err
		}
		effects = append(effects, r.effects...)
	}

	if sym.Var.Type.Const {
		if init == "" {
			return "", nil, errf(diag.DeclInvalidModifier, d.Pos,
				"constant '%s' needs an initializer", d.Name)
		}
		line := "static " + RenderVarDecl(reg, extName, sym.Var.Type) + " = " + init + ";"
		effects = append(effects, Effect{Kind: EffectDeclareConst, Name: extName, Text: line})
		return "", effects, nil
	}

	qual := ""
	if !sym.Exported() {
		qual = "static "
	}
	decl := qual + RenderVarDecl(reg, extName, sym.Var.Type)
	if init != "" {
		decl += " = " + init
	}
	return decl + ";\n", effects, nil
}

// genStructDecl renders nothing into the implementation: the layout lives
// in the unit header. Callback-typed fields demand a function-pointer
// typedef the header must carry.
func genStructDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	reg := o.Reg
	id, ok := reg.Lookup(st.Scope, d.Name)
	if !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"struct '%s' missing from the registry", d.Name)
	}
	extName := reg.ForSymbol(id)

	var effects []Effect
	for _, f := range d.Struct.Fields {
		effects = append(effects, typeIncludes(f.Type)...)
		if f.Callback == nil {
			continue
		}
		effects = append(effects, Effect{
			Kind: EffectCallbackField,
			Name: callbackTypedef(reg, extName, f.Name, f.Callback),
		})
	}
	return "", effects, nil
}

// callbackTypedef spells the function-pointer typedef for one callback
// field, e.g. `typedef void (*Motor_onStop_t)(uint8_t code);`.
func callbackTypedef(reg *symbols.Table, structName, field string, sig *ast.FuncSig) string {
	var sb strings.Builder
	sb.WriteString("typedef ")
	sb.WriteString(CTypeName(reg, sig.Ret))
	sb.WriteString(" (*")
	sb.WriteString(structName + "_" + field + "_t")
	sb.WriteString(")(")
	if len(sig.Params) == 0 {
		sb.WriteString("void")
	}
	for i, p := range sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		plan := ParamPlan{}
		if isAggregate(reg, p.Type) {
			plan = ParamPlan{ByRef: true, Const: true}
		}
		sb.WriteString(renderParam(reg, p, plan))
	}
	sb.WriteString(");")
	return sb.String()
}

// Enum, bitmap, and register declarations are header-side only; generation
// validates they registered and moves on.
func genEnumDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	if _, ok := o.Reg.Lookup(st.Scope, d.Name); !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"enum '%s' missing from the registry", d.Name)
	}
	return "", nil, nil
}

func genBitmapDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	if _, ok := o.Reg.Lookup(st.Scope, d.Name); !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"bitmap '%s' missing from the registry", d.Name)
	}
	return "", []Effect{{Kind: EffectInclude,
		Include: Include{Path: "stdint.h", System: true}}}, nil
}

func genRegisterDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	if _, ok := o.Reg.Lookup(st.Scope, d.Name); !ok {
		return "", nil, errf(diag.GenUnknownSymbol, d.Pos,
			"register '%s' missing from the registry", d.Name)
	}
	return "", []Effect{{Kind: EffectInclude,
		Include: Include{Path: "stdint.h", System: true}}}, nil
}

// genIncludeDecl validates and records a source-level include directive.
// Raw preprocessor syntax in the path is rejected; the language writes bare
// paths and the generator decides the quoting.
func genIncludeDecl(o *Orchestrator, st *State, d *ast.Decl) (string, []Effect, error) {
	inc := d.Include
	if inc.Path == "" || strings.ContainsAny(inc.Path, "<>\"#") {
		return "", nil, errf(diag.GenPreprocessorForm, d.Pos,
			"malformed include path %q", inc.Path).
			withHint("write the bare path, without quotes or angle brackets")
	}
	return "", []Effect{{Kind: EffectInclude,
		Include: Include{Path: inc.Path, System: inc.System}}}, nil
}
