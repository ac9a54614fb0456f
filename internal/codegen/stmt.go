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

// flush assembles a generator's output: the renderer's prelude lines, then
// the statement text, all at the current indent.
func flush(st *State, r *exprRenderer, text string) string {
	ind := st.indentText()
	var sb strings.Builder
	for _, p := range r.prelude {
		sb.WriteString(ind + p + "\n")
	}
	r.prelude = nil
	sb.WriteString(ind + text + "\n")
	return sb.String()
}

func genVarStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	v := s.Var
	r := newExprRenderer(o, st)
	r.expect(v.Type)

	effects := []Effect{{Kind: EffectDeclareLocal, Name: v.Name, Type: v.Type}}
	if v.Type.IsArray() {
		effects = append(effects, Effect{Kind: EffectDeclareArray, Name: v.Name})
	}
	if v.Overflow {
		if v.Type.IsNamed() || !v.Type.Prim.IsInteger() {
			return "", nil, errf(diag.DeclInvalidModifier, s.Pos,
				"overflow modifier on non-integer variable '%s'", v.Name)
		}
		effects = append(effects, Effect{Kind: EffectMarkChecked, Name: v.Name})
	}
	if !v.Type.IsNamed() {
		switch {
		case v.Type.Prim.IsInteger():
			effects = append(effects, Effect{Kind: EffectInclude,
				Include: Include{Path: "stdint.h", System: true}})
		case v.Type.Prim == types.PrimBool:
			effects = append(effects, Effect{Kind: EffectInclude,
				Include: Include{Path: "stdbool.h", System: true}})
		}
	}
	if v.Type.Const {
		effects = append(effects, Effect{Kind: EffectDeclareConst, Name: v.Name})
	}

	decl := RenderVarDecl(o.Reg, v.Name, v.Type)
	if v.Init == nil {
		return flush(st, r, decl+";"), append(effects, r.effects...), nil
	}

	var init string
	var err error
	if v.Init.Kind == ast.ExprInit {
		var fillEffects []Effect
		init, fillEffects, err = renderInitList(r, v.Name, v.Type, v.Init)
		effects = append(effects, fillEffects...)
	} else {
		init, err = r.expr(v.Init)
	}
	if err != nil {
		return "", nil, err
	}
	return flush(st, r, decl+" = "+init+";"), append(effects, r.effects...), nil
}

// renderInitList renders a brace initializer for an array declaration. A
// fill-remainder form repeats an explicit value across a literal-sized
// first dimension; a zero fill relies on C's remainder-zeroing rule.
func renderInitList(r *exprRenderer, name string, t types.Desc, init *ast.Expr) (string, []Effect, error) {
	if !t.IsArray() && !(!t.IsNamed() && t.Prim == types.PrimString) && !t.IsNamed() {
		return "", nil, errf(diag.GenArrayInitializer, init.Pos,
			"brace initializer on a scalar variable")
	}
	elems := make([]string, 0, len(init.Operands))
	for _, op := range init.Operands {
		text, err := r.expr(op)
		if err != nil {
			return "", nil, err
		}
		elems = append(elems, text)
	}

	effects := []Effect{{Kind: EffectArrayFill, Name: name, Count: len(elems), Fill: init.Fill}}
	if !init.Fill {
		return "{" + strings.Join(elems, ", ") + "}", effects, nil
	}

	if len(elems) != 1 {
		return "", nil, errf(diag.GenArrayInitializer, init.Pos,
			"fill initializer takes exactly one value")
	}
	if elems[0] == "0" {
		return "{0}", effects, nil
	}
	if !t.IsArray() || t.Dims[0].Name != "" {
		return "", nil, errf(diag.GenArrayInitializer, init.Pos,
			"non-zero fill needs a literal array size").
			withHint("spell the elements out or fill with 0")
	}
	repeated := make([]string, t.Dims[0].Size)
	for i := range repeated {
		repeated[i] = elems[0]
	}
	return "{" + strings.Join(repeated, ", ") + "}", effects, nil
}

func genAssignStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	a := s.Assign
	if _, ok := resolve.SimpleLValue(a.Target); !ok {
		return "", nil, errf(diag.GenAssignTarget, s.Pos,
			"assignment target must be a variable or member chain")
	}

	r := newExprRenderer(o, st)
	target, err := r.expr(a.Target)
	if err != nil {
		return "", nil, err
	}
	targetType, typeKnown := r.typeOf(a.Target)
	if typeKnown {
		r.expect(targetType)
	}

	// Checked division: `x = a / b else d` becomes a safe_div call with the
	// target passed as the out parameter.
	if a.Op == "=" {
		if num, den, op, isDiv := divisionForm(a.Value); isDiv {
			return genSafeDiv(o, st, r, s, target, targetType, typeKnown, num, den, op, a.DivDefault)
		}
	}
	if a.DivDefault != nil {
		return "", nil, errf(diag.GenDivisionForm, s.Pos,
			"'else' default without a division right-hand side")
	}

	checked := checkedPrim(o, st, r, a.Target, targetType, typeKnown)

	if a.Op == "=" {
		if checked != types.PrimInvalid {
			r.checked = checked
		}
		value, err := r.expr(a.Value)
		if err != nil {
			return "", nil, err
		}
		return flush(st, r, target+" = "+value+";"), r.effects, nil
	}

	// Compound assignment. On a checked target the operation reroutes
	// through the matching overflow helper.
	if checked != types.PrimInvalid {
		var hop helpers.Op
		switch a.Op {
		case "+=":
			hop = helpers.OpAdd
		case "-=":
			hop = helpers.OpSub
		case "*=":
			hop = helpers.OpMul
		case "/=", "%=":
			return "", nil, errf(diag.GenDivisionForm, s.Pos,
				"checked division must use the `x = a / b else d` form")
		default:
			// Bit operations cannot overflow; fall through to plain C.
			value, err := r.expr(a.Value)
			if err != nil {
				return "", nil, err
			}
			return flush(st, r, target+" "+a.Op+" "+value+";"), r.effects, nil
		}
		value, err := r.expr(a.Value)
		if err != nil {
			return "", nil, err
		}
		d := helpers.Demand{Op: hop, Type: checked}
		r.emit(Effect{Kind: EffectOverflowHelper, Demand: d})
		return flush(st, r, target+" = "+d.Name()+"("+target+", "+value+");"), r.effects, nil
	}

	if (a.Op == "/=" || a.Op == "%=") && typeKnown &&
		!targetType.IsNamed() && targetType.Prim.IsInteger() {
		return "", nil, errf(diag.GenDivisionForm, s.Pos,
			"integer division needs an explicit zero-divisor default").
			withHint("write `x = x / d else fallback;`")
	}

	value, err := r.expr(a.Value)
	if err != nil {
		return "", nil, err
	}
	return flush(st, r, target+" "+a.Op+" "+value+";"), r.effects, nil
}

// divisionForm recognizes a right-hand side that is exactly one division or
// modulo of two operands, the only shape the checked-division assignment
// accepts.
func divisionForm(e *ast.Expr) (num, den *ast.Expr, op string, ok bool) {
	cur := e
	for cur != nil {
		switch cur.Kind {
		case ast.ExprCond, ast.ExprUnary, ast.ExprParen:
			if len(cur.Operands) != 1 || len(cur.Ops) != 0 {
				return nil, nil, "", false
			}
			cur = cur.Operands[0]
		case ast.ExprChain:
			if len(cur.Operands) == 1 && len(cur.Ops) == 0 {
				cur = cur.Operands[0]
				continue
			}
			if cur.Level == ast.LevelMultiplicative && len(cur.Operands) == 2 &&
				(cur.Ops[0] == "/" || cur.Ops[0] == "%") {
				return cur.Operands[0], cur.Operands[1], cur.Ops[0], true
			}
			return nil, nil, "", false
		default:
			return nil, nil, "", false
		}
	}
	return nil, nil, "", false
}

// genSafeDiv renders the checked-division assignment through the safe
// division helper, with the target as the out parameter.
func genSafeDiv(o *Orchestrator, st *State, r *exprRenderer, s *ast.Stmt,
	target string, targetType types.Desc, typeKnown bool,
	num, den *ast.Expr, op string, def *ast.Expr) (string, []Effect, error) {

	if !typeKnown || targetType.IsNamed() || !targetType.Prim.IsInteger() {
		// Floating or untyped division stays native; the default, if any,
		// is meaningless there.
		if def != nil {
			return "", nil, errf(diag.GenDivisionForm, s.Pos,
				"zero-divisor default on non-integer division")
		}
		numText, err := r.expr(num)
		if err != nil {
			return "", nil, err
		}
		denText, err := r.expr(den)
		if err != nil {
			return "", nil, err
		}
		return flush(st, r, target+" = "+numText+" "+op+" "+denText+";"), r.effects, nil
	}

	if def == nil {
		return "", nil, errf(diag.GenDivisionForm, s.Pos,
			"integer division needs an explicit zero-divisor default").
			withHint("write `x = a / b else default;`")
	}

	numText, err := r.expr(num)
	if err != nil {
		return "", nil, err
	}
	denText, err := r.expr(den)
	if err != nil {
		return "", nil, err
	}
	defText, err := r.expr(def)
	if err != nil {
		return "", nil, err
	}

	hop := helpers.OpDiv
	if op == "%" {
		hop = helpers.OpMod
	}
	d := helpers.Demand{Op: hop, Type: targetType.Prim}
	r.emit(Effect{Kind: EffectDivHelper, Demand: d})
	call := d.Name() + "(&" + target + ", " + numText + ", " + denText + ", " + defText + ");"
	return flush(st, r, call), r.effects, nil
}

// checkedPrim reports the integer type of an overflow-checked assignment
// target: a local marked checked, or a registered variable carrying the
// overflow flag.
func checkedPrim(o *Orchestrator, st *State, r *exprRenderer, target *ast.Expr,
	targetType types.Desc, typeKnown bool) types.Primitive {

	if !typeKnown || targetType.IsNamed() || !targetType.Prim.IsInteger() {
		return types.PrimInvalid
	}
	name, ok := rootIdent(target)
	if !ok {
		return types.PrimInvalid
	}
	if st.Checked[name] {
		return targetType.Prim
	}
	if _, local := st.localType(name); local {
		return types.PrimInvalid
	}
	reg := o.Reg
	var id symbols.SymbolID
	var err error
	if st.Scope.IsValid() && st.ScopePath != "" {
		id, err = reg.ResolveMember(st.Scope, name, symbols.AccessInternal)
	}
	if err != nil || !id.IsValid() {
		id, err = reg.ResolveMember(reg.Global(), name, symbols.AccessQualified)
	}
	if err != nil || !id.IsValid() {
		return types.PrimInvalid
	}
	sym := reg.Symbols.Get(id)
	if sym.Kind == symbols.SymbolVariable && sym.Flags&symbols.SymbolFlagOverflow != 0 {
		return targetType.Prim
	}
	return types.PrimInvalid
}

func genExprStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	r := newExprRenderer(o, st)
	text, err := r.expr(s.Expr)
	if err != nil {
		return "", nil, err
	}
	return flush(st, r, text+";"), r.effects, nil
}

func genIfStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	r := newExprRenderer(o, st)
	var sb strings.Builder
	if err := renderIf(o, st, r, s.If, &sb, st.indentText()+"if"); err != nil {
		return "", nil, err
	}
	sb.WriteString(st.indentText() + "}\n")
	var out strings.Builder
	for _, p := range r.prelude {
		out.WriteString(st.indentText() + p + "\n")
	}
	r.prelude = nil
	out.WriteString(sb.String())
	return out.String(), r.effects, nil
}

// renderIf writes one if arm and recurses into `else if` chains. The
// opening keyword arrives in lead so chained arms continue the previous
// closing brace.
func renderIf(o *Orchestrator, st *State, r *exprRenderer, node *ast.IfStmt,
	sb *strings.Builder, lead string) error {

	cond, err := r.condition(node.Cond)
	if err != nil {
		return err
	}
	sb.WriteString(lead + " (" + cond + ") {\n")
	body, err := o.genBlock(node.Then.Stmts)
	if err != nil {
		return err
	}
	sb.WriteString(body)

	if node.Else == nil {
		return nil
	}
	switch node.Else.Kind {
	case ast.StmtIf:
		return renderIf(o, st, r, node.Else.If, sb, st.indentText()+"} else if")
	case ast.StmtBlock:
		sb.WriteString(st.indentText() + "} else {\n")
		body, err := o.genBlock(node.Else.Block.Stmts)
		if err != nil {
			return err
		}
		sb.WriteString(body)
		return nil
	default:
		sb.WriteString(st.indentText() + "} else {\n")
		st.Indent++
		text, err := o.genStmt(node.Else)
		st.Indent--
		if err != nil {
			return err
		}
		sb.WriteString(text)
		return nil
	}
}

func genWhileStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	r := newExprRenderer(o, st)
	cond, err := r.condition(s.Loop.Cond)
	if err != nil {
		return "", nil, err
	}
	body, err := o.genBlock(s.Loop.Body.Stmts)
	if err != nil {
		return "", nil, err
	}
	ind := st.indentText()
	return flushWrapped(st, r, ind+"while ("+cond+") {\n"+body+ind+"}\n"), r.effects, nil
}

func genDoWhileStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	r := newExprRenderer(o, st)
	body, err := o.genBlock(s.Loop.Body.Stmts)
	if err != nil {
		return "", nil, err
	}
	cond, err := r.condition(s.Loop.Cond)
	if err != nil {
		return "", nil, err
	}
	ind := st.indentText()
	return flushWrapped(st, r, ind+"do {\n"+body+ind+"} while ("+cond+");\n"), r.effects, nil
}

// flushWrapped prepends prelude lines to already-indented block text.
func flushWrapped(st *State, r *exprRenderer, text string) string {
	if len(r.prelude) == 0 {
		return text
	}
	var sb strings.Builder
	for _, p := range r.prelude {
		sb.WriteString(st.indentText() + p + "\n")
	}
	r.prelude = nil
	sb.WriteString(text)
	return sb.String()
}

func genForStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	f := s.For
	r := newExprRenderer(o, st)

	init := ""
	if f.Init != nil {
		text, initEffects, err := inlineStmt(o, st, r, f.Init)
		if err != nil {
			return "", nil, err
		}
		init = text
		// The loop variable must be visible while the body generates, so
		// its declaration effects cannot wait for this generator to return.
		for _, e := range initEffects {
			if applyErr := o.applyEffect(e); applyErr != nil {
				return "", nil, errf(diag.GenUnsupportedNode, s.Pos, "%s", applyErr.Error())
			}
		}
	}
	cond := ""
	if f.Cond != nil {
		text, err := r.condition(f.Cond)
		if err != nil {
			return "", nil, err
		}
		cond = text
	}
	post := ""
	if f.Post != nil {
		text, _, err := inlineStmt(o, st, r, f.Post)
		if err != nil {
			return "", nil, err
		}
		post = text
	}
	body, err := o.genBlock(f.Body.Stmts)
	if err != nil {
		return "", nil, err
	}
	ind := st.indentText()
	text := ind + "for (" + init + "; " + cond + "; " + post + ") {\n" + body + ind + "}\n"
	return flushWrapped(st, r, text), r.effects, nil
}

// inlineStmt renders a statement without indentation or terminator for a
// for-loop header clause.
func inlineStmt(o *Orchestrator, st *State, r *exprRenderer, s *ast.Stmt) (string, []Effect, error) {
	switch s.Kind {
	case ast.StmtVar:
		v := s.Var
		if v.Type.IsArray() || v.Init == nil {
			return "", nil, errf(diag.GenUnsupportedNode, s.Pos,
				"loop header declaration must initialize a scalar")
		}
		init, err := r.expr(v.Init)
		if err != nil {
			return "", nil, err
		}
		effects := []Effect{{Kind: EffectDeclareLocal, Name: v.Name, Type: v.Type}}
		return RenderVarDecl(o.Reg, v.Name, v.Type) + " = " + init, effects, nil
	case ast.StmtAssign:
		a := s.Assign
		target, err := r.expr(a.Target)
		if err != nil {
			return "", nil, err
		}
		value, err := r.expr(a.Value)
		if err != nil {
			return "", nil, err
		}
		return target + " " + a.Op + " " + value, nil, nil
	case ast.StmtExpr:
		text, err := r.expr(s.Expr)
		return text, nil, err
	default:
		return "", nil, errf(diag.GenUnsupportedNode, s.Pos,
			"%s statement in a loop header", s.Kind)
	}
}

func genSwitchStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	sw := s.Switch
	r := newExprRenderer(o, st)
	tag, err := r.expr(sw.Tag)
	if err != nil {
		return "", nil, err
	}
	enumName, enumKnown := o.env(st).InferEnum(sw.Tag)

	ind := st.indentText()
	caseInd := ind + "    "
	var sb strings.Builder
	sb.WriteString(ind + "switch (" + tag + ") {\n")
	for _, c := range sw.Cases {
		if c.Default {
			sb.WriteString(caseInd + "default:\n")
		}
		for _, v := range c.Values {
			label, labelErr := r.caseLabel(v, enumName, enumKnown)
			if labelErr != nil {
				return "", nil, labelErr
			}
			sb.WriteString(caseInd + "case " + label + ":\n")
		}
		st.Indent++
		armText, armErr := o.genBlock(c.Body)
		st.Indent--
		if armErr != nil {
			return "", nil, armErr
		}
		sb.WriteString(armText)
		if !endsInJump(c.Body) {
			sb.WriteString(caseInd + "    break;\n")
		}
	}
	sb.WriteString(ind + "}\n")
	return flushWrapped(st, r, sb.String()), r.effects, nil
}

// caseLabel renders one case value. When the switch tag is enum-typed, a
// bare member name resolves against that enum.
func (r *exprRenderer) caseLabel(v *ast.Expr, enumName string, enumKnown bool) (string, error) {
	if enumKnown {
		if name, ok := resolve.SimpleIdent(v); ok {
			if id, found := r.o.Reg.LookupMangled(enumName, symbols.SymbolEnum); found {
				if info := r.o.Reg.Symbols.Get(id).Enum; info != nil {
					if _, member := info.Values[name]; member {
						return enumName + "_" + name, nil
					}
				}
			}
		}
	}
	return r.expr(v)
}

// endsInJump reports whether the arm's last statement already transfers
// control, making the synthesized break unreachable.
func endsInJump(body []*ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	switch body[len(body)-1].Kind {
	case ast.StmtReturn, ast.StmtBreak, ast.StmtContinue:
		return true
	default:
		return false
	}
}

func genReturnStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	if s.Expr == nil {
		return st.indentText() + "return;\n", nil, nil
	}
	r := newExprRenderer(o, st)
	text, err := r.expr(s.Expr)
	if err != nil {
		return "", nil, err
	}
	return flush(st, r, "return "+text+";"), r.effects, nil
}

func genBreakStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	return st.indentText() + "break;\n", nil, nil
}

func genContinueStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	return st.indentText() + "continue;\n", nil, nil
}

func genBlockStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	body, err := o.genBlock(s.Block.Stmts)
	if err != nil {
		return "", nil, err
	}
	ind := st.indentText()
	return ind + "{\n" + body + ind + "}\n", nil, nil
}

// genCriticalStmt wraps the body in interrupt masking calls. Nesting is
// rejected up front; the enter/exit effects keep the orchestrator's depth
// bookkeeping honest.
func genCriticalStmt(o *Orchestrator, st *State, s *ast.Stmt) (string, []Effect, error) {
	if st.CriticalDepth > 0 {
		return "", nil, errf(diag.GenCriticalSection, s.Pos, "nested critical section")
	}
	nested := false
	walkStmts(s.Block.Stmts, func(inner *ast.Stmt) {
		if inner.Kind == ast.StmtCritical {
			nested = true
		}
	})
	if nested {
		return "", nil, errf(diag.GenCriticalSection, s.Pos, "nested critical section").
			withHint("merge the inner critical block into the outer one")
	}

	body := ""
	for _, inner := range s.Block.Stmts {
		text, err := o.genStmt(inner)
		if err != nil {
			return "", nil, err
		}
		body += text
	}
	ind := st.indentText()
	text := ind + "noInterrupts();\n" + body + ind + "interrupts();\n"
	effects := []Effect{{Kind: EffectEnterCritical}, {Kind: EffectExitCritical}}
	return text, effects, nil
}
