package codegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cnext/internal/ast"
	"cnext/internal/diag"
	"cnext/internal/helpers"
	"cnext/internal/resolve"
	"cnext/internal/source"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// exprRenderer turns one expression tree into C text. Like the statement
// generators it stays pure with respect to orchestrator state: everything
// it wants changed goes into the effects list, and any statements that must
// run before the owning statement (float bit-shadow maintenance) accumulate
// in prelude lines. The owning generator flushes both.
type exprRenderer struct {
	o  *Orchestrator
	st *State

	// checked folds additive and multiplicative chains into overflow
	// helper calls for this integer type. PrimInvalid means plain C
	// arithmetic.
	checked types.Primitive

	// expected overrides the per-file expected-type hint for the duration
	// of one right-hand side, so unqualified enum members resolve against
	// the declared type of the assignment target.
	expected    types.Desc
	hasExpected bool

	effects []Effect
	prelude []string
}

func newExprRenderer(o *Orchestrator, st *State) *exprRenderer {
	return &exprRenderer{
		o: o, st: st,
		checked:     types.PrimInvalid,
		expected:    st.Expected,
		hasExpected: st.HasExpected,
	}
}

// expect narrows the renderer's expected type for one right-hand side.
func (r *exprRenderer) expect(d types.Desc) {
	r.expected = d
	r.hasExpected = true
}

func (r *exprRenderer) emit(e Effect) { r.effects = append(r.effects, e) }

// expr renders any expression node.
func (r *exprRenderer) expr(e *ast.Expr) (string, error) {
	if e == nil {
		return "", errf(diag.GenUnsupportedNode, source.Pos{}, "missing expression")
	}
	switch e.Kind {
	case ast.ExprCond:
		return r.cond(e)
	case ast.ExprChain:
		return r.chain(e)
	case ast.ExprUnary:
		return r.unary(e)
	case ast.ExprPostfix:
		return r.postfix(e)
	case ast.ExprIdent:
		return r.ident(e)
	case ast.ExprLit:
		return r.literal(e)
	case ast.ExprParen:
		if len(e.Operands) != 1 {
			return "", errf(diag.GenUnsupportedNode, e.Pos, "malformed parenthesized expression")
		}
		inner, err := r.expr(e.Operands[0])
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case ast.ExprSizeof:
		return r.sizeofExpr(e)
	case ast.ExprInit:
		return "", errf(diag.GenUnsupportedNode, e.Pos,
			"initializer list outside a declaration").
			withHint("brace initializers are only valid as variable initializers")
	default:
		return "", errf(diag.GenUnsupportedNode, e.Pos, "cannot generate %s expression", e.Kind)
	}
}

func (r *exprRenderer) cond(e *ast.Expr) (string, error) {
	switch len(e.Operands) {
	case 1:
		return r.expr(e.Operands[0])
	case 3:
		cond, err := r.expr(e.Operands[0])
		if err != nil {
			return "", err
		}
		then, err := r.expr(e.Operands[1])
		if err != nil {
			return "", err
		}
		els, err := r.expr(e.Operands[2])
		if err != nil {
			return "", err
		}
		return cond + " ? " + then + " : " + els, nil
	default:
		return "", errf(diag.GenUnsupportedNode, e.Pos, "malformed conditional expression")
	}
}

// chain renders one binary precedence level. In checked mode, additive and
// multiplicative chains fold left into overflow helper calls instead of
// native operators.
func (r *exprRenderer) chain(e *ast.Expr) (string, error) {
	if len(e.Operands) == 0 || len(e.Ops) != len(e.Operands)-1 {
		return "", errf(diag.GenUnsupportedNode, e.Pos, "malformed operator chain")
	}
	if len(e.Operands) == 1 {
		return r.expr(e.Operands[0])
	}

	if r.checked != types.PrimInvalid &&
		(e.Level == ast.LevelAdditive || e.Level == ast.LevelMultiplicative) {
		return r.checkedChain(e)
	}

	if e.Level == ast.LevelShift {
		if err := r.validateShift(e); err != nil {
			return "", err
		}
	}
	if e.Level == ast.LevelMultiplicative {
		if err := r.validateDivision(e); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	for i, op := range e.Operands {
		if i > 0 {
			sb.WriteString(" " + e.Ops[i-1] + " ")
		}
		text, err := r.operand(op)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// operand renders a chain operand, parenthesizing real ternaries so the
// emitted C binds the way the tree did.
func (r *exprRenderer) operand(e *ast.Expr) (string, error) {
	text, err := r.expr(e)
	if err != nil {
		return "", err
	}
	if e.Kind == ast.ExprCond && len(e.Operands) == 3 {
		return "(" + text + ")", nil
	}
	return text, nil
}

// checkedChain folds `a + b - c` into `sub_u8(add_u8(a, b), c)` and
// records one helper demand per folded operator.
func (r *exprRenderer) checkedChain(e *ast.Expr) (string, error) {
	acc, err := r.operand(e.Operands[0])
	if err != nil {
		return "", err
	}
	for i, op := range e.Ops {
		var hop helpers.Op
		switch op {
		case "+":
			hop = helpers.OpAdd
		case "-":
			hop = helpers.OpSub
		case "*":
			hop = helpers.OpMul
		case "/", "%":
			return "", errf(diag.GenDivisionForm, e.Pos,
				"checked division must be the whole right-hand side of an assignment").
				withHint("write `x = a / b else default;` so the zero-divisor fallback is explicit")
		default:
			return "", errf(diag.GenUnsupportedNode, e.Pos, "operator %q in checked arithmetic", op)
		}
		rhs, err := r.operand(e.Operands[i+1])
		if err != nil {
			return "", err
		}
		d := helpers.Demand{Op: hop, Type: r.checked}
		r.emit(Effect{Kind: EffectOverflowHelper, Demand: d})
		acc = d.Name() + "(" + acc + ", " + rhs + ")"
	}
	return acc, nil
}

// validateShift rejects literal shift amounts that meet or exceed the bit
// width of the shifted value, when that width is known.
func (r *exprRenderer) validateShift(e *ast.Expr) error {
	d, ok := r.typeOf(e.Operands[0])
	if !ok || d.IsNamed() || !d.Prim.IsInteger() {
		return nil
	}
	width := int64(d.Prim.Bits())
	for _, op := range e.Operands[1:] {
		term, simple := resolve.Simple(op)
		if !simple || term.Kind != ast.ExprLit {
			continue
		}
		v, err := strconv.ParseInt(litIntText(term), 0, 64)
		if err != nil {
			continue
		}
		if v < 0 || v >= width {
			return errf(diag.GenShiftAmount, term.Pos,
				"shift amount %d out of range for %d-bit value", v, width)
		}
	}
	return nil
}

// validateDivision rejects raw integer `/` and `%`, which must go through
// the assignment form with an explicit zero-divisor default. Operands of
// unknown or floating type pass through as native C division.
func (r *exprRenderer) validateDivision(e *ast.Expr) error {
	divides := false
	for _, op := range e.Ops {
		if op == "/" || op == "%" {
			divides = true
		}
	}
	if !divides {
		return nil
	}
	d, ok := r.typeOf(e.Operands[0])
	if !ok || d.IsNamed() || !d.Prim.IsInteger() {
		return nil
	}
	return errf(diag.GenDivisionForm, e.Pos,
		"integer division needs an explicit zero-divisor default").
		withHint("write `x = a / b else default;`")
}

func (r *exprRenderer) unary(e *ast.Expr) (string, error) {
	if len(e.Operands) != 1 {
		return "", errf(diag.GenUnsupportedNode, e.Pos, "malformed unary expression")
	}
	inner, err := r.operand(e.Operands[0])
	if err != nil {
		return "", err
	}
	if needsParens(e.Operands[0]) {
		inner = "(" + inner + ")"
	}
	return strings.Join(e.Ops, "") + inner, nil
}

// needsParens reports whether a unary operand would rebind without them.
func needsParens(e *ast.Expr) bool {
	switch e.Kind {
	case ast.ExprChain:
		return len(e.Operands) > 1
	case ast.ExprCond:
		return len(e.Operands) == 3
	default:
		return false
	}
}

func (r *exprRenderer) literal(e *ast.Expr) (string, error) {
	switch e.Lit {
	case ast.LitBinary:
		digits := strings.TrimPrefix(strings.TrimPrefix(e.Text, "0b"), "0B")
		digits = strings.ReplaceAll(digits, "_", "")
		v, err := strconv.ParseUint(digits, 2, 64)
		if err != nil {
			return "", errf(diag.GenUnsupportedNode, e.Pos, "malformed binary literal %q", e.Text)
		}
		return fmt.Sprintf("0x%X", v), nil
	case ast.LitBool:
		r.emit(Effect{Kind: EffectInclude, Include: Include{Path: "stdbool.h", System: true}})
		return e.Text, nil
	case ast.LitString:
		r.emit(Effect{Kind: EffectStringLen, Text: e.Text, Count: len(e.Text)})
		return strconv.Quote(e.Text), nil
	default:
		return e.Text, nil
	}
}

// litIntText normalizes an integer literal's spelling for parsing.
func litIntText(e *ast.Expr) string {
	return strings.ReplaceAll(e.Text, "_", "")
}

// ident renders a bare identifier. Resolution order: function locals and
// parameters, a member of the expected enum type, members of the enclosing
// scope, globals, then an unqualified enum member search. An identifier
// nothing claims passes through verbatim as an external C symbol.
func (r *exprRenderer) ident(e *ast.Expr) (string, error) {
	name := e.Name
	if _, ok := r.st.localType(name); ok {
		if r.st.ParamRef[name] {
			return "(*" + name + ")", nil
		}
		return name, nil
	}
	if label, ok := r.expectedEnumLabel(name); ok {
		return label, nil
	}
	reg := r.o.Reg
	if r.st.Scope.IsValid() && r.st.ScopePath != "" {
		if id, err := reg.ResolveMember(r.st.Scope, name, symbols.AccessInternal); err == nil {
			return r.renderSymbol(id)
		}
	}
	if id, err := reg.ResolveMember(reg.Global(), name, symbols.AccessQualified); err == nil {
		return r.renderSymbol(id)
	}
	switch matches := reg.EnumsWithMember(name); len(matches) {
	case 0:
		return name, nil // external symbol, e.g. a platform macro
	case 1:
		return matches[0] + "_" + name, nil
	default:
		return "", errf(diag.GenAmbiguousEnum, e.Pos,
			"'%s' is a member of multiple enums: %s", name, strings.Join(matches, ", ")).
			withHint("qualify the member with its enum name")
	}
}

// expectedEnumLabel resolves a bare name against the expected-type hint set
// by the enclosing typed assignment or declaration.
func (r *exprRenderer) expectedEnumLabel(name string) (string, bool) {
	if !r.hasExpected || !r.expected.IsNamed() {
		return "", false
	}
	id, ok := r.enumID(r.expected.Name)
	if !ok {
		return "", false
	}
	sym := r.o.Reg.Symbols.Get(id)
	if sym.Enum == nil {
		return "", false
	}
	if _, member := sym.Enum.Values[name]; !member {
		return "", false
	}
	return r.o.Reg.ForSymbol(id) + "_" + name, true
}

// enumLabel resolves a fully spelled enum member chain like Motor.State.IDLE
// to its label Motor_State_IDLE, trying the spelled name first and then the
// same name relative to the enclosing scope.
func (r *exprRenderer) enumLabel(segs []string) (string, bool) {
	member := segs[len(segs)-1]
	qual := strings.Join(segs[:len(segs)-1], "_")
	for _, candidate := range []string{qual, symbols.MangledName(r.st.ScopePath, qual)} {
		if candidate == "" {
			continue
		}
		id, ok := r.o.Reg.LookupMangled(candidate, symbols.SymbolEnum)
		if !ok {
			continue
		}
		info := r.o.Reg.Symbols.Get(id).Enum
		if info == nil {
			continue
		}
		if _, isMember := info.Values[member]; isMember {
			return candidate + "_" + member, true
		}
	}
	return "", false
}

func (r *exprRenderer) enumID(name string) (symbols.SymbolID, bool) {
	if id, ok := r.o.Reg.LookupMangled(name, symbols.SymbolEnum); ok {
		return id, true
	}
	return r.o.Reg.LookupType(name, symbols.SymbolEnum)
}

// renderSymbol spells a resolved symbol reference: registers become their
// dereferenced address, everything else its mangled external name.
func (r *exprRenderer) renderSymbol(id symbols.SymbolID) (string, error) {
	sym := r.o.Reg.Symbols.Get(id)
	if sym != nil && sym.Kind == symbols.SymbolRegister && sym.Register != nil {
		return r.renderRegister(sym.Register), nil
	}
	return r.o.Reg.ForSymbol(id), nil
}

func (r *exprRenderer) renderRegister(info *symbols.RegisterInfo) string {
	r.emit(Effect{Kind: EffectInclude, Include: Include{Path: "stdint.h", System: true}})
	return "(*(volatile " + CTypeName(r.o.Reg, info.Type) + " *)" + info.Addr + ")"
}

// head is the resolved front of a postfix chain: rendered text, the type it
// carries when known, and the function payload when it names a callable.
type head struct {
	text     string
	typ      types.Desc
	hasType  bool
	fn       *symbols.FunctionInfo
	fnName   string // external name; empty for unresolved externals
	register *symbols.RegisterInfo
}

// postfix renders a postfix chain: a head resolved against the registry,
// followed by member, index, call, and bit-range suffixes.
func (r *exprRenderer) postfix(e *ast.Expr) (string, error) {
	if e.Base == nil {
		return "", errf(diag.GenUnsupportedNode, e.Pos, "postfix expression without a base")
	}
	if e.Base.Kind != ast.ExprIdent {
		text, err := r.expr(e.Base)
		if err != nil {
			return "", err
		}
		return r.applySuffixes(head{text: "(" + text + ")"}, e.Suffixes, e.Pos)
	}

	// Split the chain into the leading run of member names, which the
	// registry resolves as a whole, and the remaining suffixes.
	segs := []string{e.Base.Name}
	rest := e.Suffixes
	for len(rest) > 0 && rest[0].Kind == ast.SuffixMember {
		segs = append(segs, rest[0].Name)
		rest = rest[1:]
	}

	if len(rest) > 0 && rest[0].Kind == ast.SuffixCall {
		return r.renderCall(segs, rest, e.Pos)
	}

	h, err := r.resolveHead(segs, e.Pos)
	if err != nil {
		return "", err
	}
	return r.applySuffixes(h, rest, e.Pos)
}

// resolveHead maps a dotted name run to C text. Handles, in order: `this.`
// and `global.` qualifiers, enum member labels, scope-qualified members
// with visibility checks, local values with struct-field tails, and
// verbatim external chains.
func (r *exprRenderer) resolveHead(segs []string, pos source.Pos) (head, error) {
	reg := r.o.Reg

	if segs[0] == "this" {
		if r.st.ScopePath == "" {
			return head{}, errf(diag.GenThisOutsideScope, pos,
				"'this' outside a scope").
				withHint("'this.' only means something inside a scope block")
		}
		if len(segs) < 2 {
			return head{}, errf(diag.GenUnsupportedNode, pos, "'this' needs a member name")
		}
		id, err := reg.ResolveMember(r.st.Scope, segs[1], symbols.AccessInternal)
		if err != nil {
			return head{}, r.resolutionErr(err, segs[1], pos)
		}
		return r.symbolHead(id, segs[2:], pos)
	}

	if segs[0] == "global" {
		if len(segs) < 2 {
			return head{}, errf(diag.GenUnsupportedNode, pos, "'global' needs a member name")
		}
		return r.qualifiedHead(reg.Global(), segs[1:], pos)
	}

	// Local value first: a parameter or local shadows scope members.
	if d, ok := r.st.localType(segs[0]); ok {
		text := segs[0]
		if r.st.ParamRef[segs[0]] {
			text = "(*" + segs[0] + ")"
		}
		return r.fieldTail(head{text: text, typ: d, hasType: true}, segs[1:], pos)
	}

	// Qualified enum member: everything before the last segment names the
	// enum, possibly scope-prefixed.
	if len(segs) >= 2 {
		if label, ok := r.enumLabel(segs); ok {
			return head{text: label}, nil
		}
	}

	// Longest scope-path prefix wins, then the next segment resolves as a
	// qualified member of that scope.
	for k := len(segs) - 1; k >= 1; k-- {
		path := strings.Join(segs[:k], ".")
		scope, ok := reg.LookupScope(path)
		if !ok && r.st.ScopePath != "" {
			scope, ok = reg.LookupScope(r.st.ScopePath + "." + path)
		}
		if !ok {
			continue
		}
		id, err := reg.ResolveMember(scope, segs[k], symbols.AccessQualified)
		if err != nil {
			return head{}, r.resolutionErr(err, segs[k], pos)
		}
		return r.symbolHead(id, segs[k+1:], pos)
	}

	// A member of the enclosing scope or the global scope.
	if r.st.Scope.IsValid() && r.st.ScopePath != "" {
		if id, err := reg.ResolveMember(r.st.Scope, segs[0], symbols.AccessInternal); err == nil {
			return r.symbolHead(id, segs[1:], pos)
		}
	}
	if id, err := reg.ResolveMember(reg.Global(), segs[0], symbols.AccessQualified); err == nil {
		return r.symbolHead(id, segs[1:], pos)
	}

	// External chain, rendered verbatim.
	return head{text: strings.Join(segs, ".")}, nil
}

// qualifiedHead resolves segs against a fixed scope with public-only
// access, descending through nested scope symbols.
func (r *exprRenderer) qualifiedHead(scope symbols.ScopeID, segs []string, pos source.Pos) (head, error) {
	reg := r.o.Reg
	for i, seg := range segs {
		id, err := reg.ResolveMember(scope, seg, symbols.AccessQualified)
		if err != nil {
			return head{}, r.resolutionErr(err, seg, pos)
		}
		sym := reg.Symbols.Get(id)
		if sym.Kind == symbols.SymbolScope && i < len(segs)-1 {
			scope = sym.Child
			continue
		}
		return r.symbolHead(id, segs[i+1:], pos)
	}
	return head{}, errf(diag.GenUnknownSymbol, pos, "empty qualified reference")
}

// symbolHead renders a resolved symbol and walks any remaining member
// segments as struct fields or bitmap/register bit ranges.
func (r *exprRenderer) symbolHead(id symbols.SymbolID, tail []string, pos source.Pos) (head, error) {
	reg := r.o.Reg
	sym := reg.Symbols.Get(id)
	switch sym.Kind {
	case symbols.SymbolFunction:
		return head{text: reg.ForFunction(id), fn: sym.Func, fnName: reg.ForFunction(id)}, nil
	case symbols.SymbolVariable:
		h := head{text: reg.ForSymbol(id)}
		if sym.Var != nil {
			h.typ = sym.Var.Type
			h.hasType = true
		}
		return r.fieldTail(h, tail, pos)
	case symbols.SymbolEnum:
		if len(tail) == 1 {
			if sym.Enum != nil {
				if _, ok := sym.Enum.Values[tail[0]]; ok {
					return head{text: reg.ForSymbol(id) + "_" + tail[0]}, nil
				}
			}
			return head{}, errf(diag.VisUnknownMember, pos,
				"enum %s has no member '%s'", reg.ForSymbol(id), tail[0])
		}
		return head{}, errf(diag.GenUnknownSymbol, pos,
			"enum %s used as a value", reg.ForSymbol(id))
	case symbols.SymbolRegister:
		h := head{text: r.renderRegister(sym.Register), register: sym.Register}
		if sym.Register != nil {
			h.typ = sym.Register.Type
			h.hasType = true
		}
		return r.registerTail(h, tail, pos)
	default:
		return head{text: reg.ForSymbol(id)}, nil
	}
}

// fieldTail appends struct member accesses, tracking the field type map so
// later suffixes know what they operate on. A `.length` terminal on a
// fixed-capacity string renders as strlen.
func (r *exprRenderer) fieldTail(h head, tail []string, pos source.Pos) (head, error) {
	reg := r.o.Reg
	for i, seg := range tail {
		if seg == "length" && i == len(tail)-1 && h.hasType &&
			!h.typ.IsNamed() && h.typ.Prim == types.PrimString {
			r.emit(Effect{Kind: EffectInclude, Include: Include{Path: "string.h", System: true}})
			return head{text: "strlen(" + h.text + ")", typ: types.Prim(types.PrimU32), hasType: true}, nil
		}
		if h.hasType && h.typ.IsNamed() {
			if bid, ok := reg.LookupType(h.typ.Name, symbols.SymbolBitmap); ok {
				return r.bitmapField(h, reg.Symbols.Get(bid).Bitmap, tail[i:], pos)
			}
		}
		h.text += "." + seg
		if h.hasType && h.typ.IsNamed() && !h.typ.IsArray() {
			if sid, ok := reg.LookupType(h.typ.Name, symbols.SymbolStruct); ok {
				if info := reg.Symbols.Get(sid).Struct; info != nil {
					if next, known := info.FieldType[seg]; known {
						h.typ = next
						continue
					}
				}
			}
		}
		h.hasType = false
	}
	return h, nil
}

// bitmapField renders a named bit-range read out of a bitmap-typed value.
func (r *exprRenderer) bitmapField(h head, info *symbols.BitmapInfo, tail []string, pos source.Pos) (head, error) {
	if info == nil || len(tail) != 1 {
		return head{}, errf(diag.GenBitRange, pos, "malformed bitmap access")
	}
	for _, f := range info.Fields {
		if f.Name == tail[0] {
			return head{text: bitExtract(h.text, int(f.Hi), int(f.Lo)),
				typ: types.Prim(types.PrimU32), hasType: true}, nil
		}
	}
	return head{}, errf(diag.VisUnknownMember, pos, "bitmap has no field '%s'", tail[0])
}

// registerTail renders named bit-range reads out of a memory-mapped
// register.
func (r *exprRenderer) registerTail(h head, tail []string, pos source.Pos) (head, error) {
	if len(tail) == 0 {
		return h, nil
	}
	if h.register == nil || len(tail) != 1 {
		return head{}, errf(diag.GenBitRange, pos, "malformed register access")
	}
	for _, m := range h.register.Members {
		if m.Name == tail[0] {
			return head{text: bitExtract(h.text, int(m.Hi), int(m.Lo)),
				typ: types.Prim(types.PrimU32), hasType: true}, nil
		}
	}
	return head{}, errf(diag.VisUnknownMember, pos, "register has no member '%s'", tail[0])
}

// bitExtract spells a masked shift read of bits hi..lo.
func bitExtract(value string, hi, lo int) string {
	if hi == lo {
		if lo == 0 {
			return "(" + value + " & 1)"
		}
		return "((" + value + " >> " + strconv.Itoa(lo) + ") & 1)"
	}
	mask := fmt.Sprintf("0x%X", (uint64(1)<<(hi-lo+1))-1)
	if lo == 0 {
		return "(" + value + " & " + mask + ")"
	}
	return "((" + value + " >> " + strconv.Itoa(lo) + ") & " + mask + ")"
}

// applySuffixes folds the remaining non-member suffixes over a resolved
// head: indexing, bit ranges, calls on computed values, and trailing
// member accesses past an index.
func (r *exprRenderer) applySuffixes(h head, sufs []ast.Suffix, pos source.Pos) (string, error) {
	for i := 0; i < len(sufs); i++ {
		suf := sufs[i]
		switch suf.Kind {
		case ast.SuffixMember:
			nh, err := r.fieldTail(h, []string{suf.Name}, suf.Pos)
			if err != nil {
				return "", err
			}
			h = nh
		case ast.SuffixIndex:
			idx, err := r.expr(suf.Index)
			if err != nil {
				return "", err
			}
			nh, err := r.index(h, idx, suf.Pos)
			if err != nil {
				return "", err
			}
			h = nh
		case ast.SuffixBitRange:
			nh, err := r.bitRange(h, suf, suf.Pos)
			if err != nil {
				return "", err
			}
			h = nh
		case ast.SuffixCall:
			return "", errf(diag.GenUnsupportedNode, suf.Pos,
				"call on a computed value").
				withHint("only named functions are callable")
		}
	}
	return h.text, nil
}

// index renders one index suffix: array element access for arrays, single
// bit access for integers, and shadow-variable bit access for floats.
func (r *exprRenderer) index(h head, idx string, pos source.Pos) (head, error) {
	if h.hasType && h.typ.IsArray() {
		elem := h.typ
		elem.Dims = elem.Dims[1:]
		return head{text: h.text + "[" + idx + "]", typ: elem, hasType: true}, nil
	}
	if h.hasType && !h.typ.IsNamed() {
		switch {
		case h.typ.Prim.IsInteger():
			return head{text: "((" + h.text + " >> " + idx + ") & 1)",
				typ: types.Prim(types.PrimBool), hasType: true}, nil
		case h.typ.Prim.IsFloat():
			shadow, err := r.floatShadow(h, pos)
			if err != nil {
				return head{}, err
			}
			return head{text: "((" + shadow + " >> " + idx + ") & 1)",
				typ: types.Prim(types.PrimBool), hasType: true}, nil
		case h.typ.Prim == types.PrimString:
			return head{text: h.text + "[" + idx + "]",
				typ: types.Prim(types.PrimU8), hasType: true}, nil
		}
	}
	// Unknown head type, assume plain array indexing.
	return head{text: h.text + "[" + idx + "]"}, nil
}

// floatShadow maintains an integer alias of a float variable for bit
// access. The alias is declared and refreshed in prelude lines; repeated
// accesses in one function reuse the same alias.
func (r *exprRenderer) floatShadow(h head, pos source.Pos) (string, error) {
	name, ok := plainName(h.text)
	if !ok {
		return "", errf(diag.GenBitRange, pos,
			"bit access needs a plain float variable")
	}
	wide := "uint32_t"
	if h.typ.Prim == types.PrimF64 {
		wide = "uint64_t"
	}
	shadow := name + "_bits"
	r.emit(Effect{Kind: EffectInclude, Include: Include{Path: "string.h", System: true}})
	r.emit(Effect{Kind: EffectInclude, Include: Include{Path: "stdint.h", System: true}})
	if _, seen := r.st.FloatShadow[name]; !seen {
		r.prelude = append(r.prelude, wide+" "+shadow+";")
		r.emit(Effect{Kind: EffectFloatShadow, Name: name, Text: shadow})
	}
	r.prelude = append(r.prelude,
		"memcpy(&"+shadow+", &"+h.text+", sizeof "+shadow+");")
	return shadow, nil
}

// plainName strips one deref wrapper so by-reference parameters can shadow.
func plainName(text string) (string, bool) {
	if strings.HasPrefix(text, "(*") && strings.HasSuffix(text, ")") {
		text = text[2 : len(text)-1]
	}
	for _, c := range text {
		if c != '_' && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') && !('0' <= c && c <= '9') {
			return "", false
		}
	}
	return text, text != ""
}

// bitRange renders a `[hi:lo]` read. Both bounds must be integer literals.
func (r *exprRenderer) bitRange(h head, suf ast.Suffix, pos source.Pos) (head, error) {
	hi, okHi := constIndex(suf.Hi)
	lo, okLo := constIndex(suf.Lo)
	if !okHi || !okLo || hi < lo {
		return head{}, errf(diag.GenBitRange, pos,
			"bit range bounds must be constant with high >= low")
	}
	if h.hasType && !h.typ.IsNamed() && h.typ.Prim.IsInteger() {
		if hi >= h.typ.Prim.Bits() {
			return head{}, errf(diag.GenBitRange, pos,
				"bit %d out of range for %d-bit value", hi, h.typ.Prim.Bits())
		}
	}
	return head{text: bitExtract(h.text, hi, lo),
		typ: types.Prim(types.PrimU32), hasType: true}, nil
}

// constIndex evaluates a literal bit index.
func constIndex(e *ast.Expr) (int, bool) {
	term, ok := resolve.Simple(e)
	if !ok || term.Kind != ast.ExprLit {
		return 0, false
	}
	v, err := strconv.ParseInt(litIntText(term), 0, 32)
	if err != nil || v < 0 {
		return 0, false
	}
	return int(v), true
}

// renderCall resolves and renders a function call: the head names the
// function, the first rest suffix is the argument list, and any trailing
// suffixes apply to the call result.
func (r *exprRenderer) renderCall(segs []string, rest []ast.Suffix, pos source.Pos) (string, error) {
	call := rest[0]
	h, err := r.resolveCallee(segs, pos)
	if err != nil {
		return "", err
	}

	var args []string
	if h.fn != nil {
		if len(call.Args) != len(h.fn.Params) {
			return "", errf(diag.GenCallArity, pos,
				"%s takes %d arguments, got %d", h.text, len(h.fn.Params), len(call.Args))
		}
		plans := PlanParams(r.o.Reg, h.fnName, h.fn, r.o.Mut)
		for i, arg := range call.Args {
			text, argErr := r.callArg(arg, h.fn.Params[i], plans[i], pos)
			if argErr != nil {
				return "", argErr
			}
			args = append(args, text)
		}
	} else {
		for _, arg := range call.Args {
			text, argErr := r.expr(arg)
			if argErr != nil {
				return "", argErr
			}
			args = append(args, text)
		}
	}

	result := head{text: h.text + "(" + strings.Join(args, ", ") + ")"}
	if h.fn != nil {
		result.typ = h.fn.Ret
		result.hasType = true
	}
	return r.applySuffixes(result, rest[1:], pos)
}

// resolveCallee maps a dotted call head to a function. Unresolved bare
// names pass through as external C functions; unresolved qualified names
// are errors.
func (r *exprRenderer) resolveCallee(segs []string, pos source.Pos) (head, error) {
	reg := r.o.Reg

	if segs[0] == "global" {
		segs = segs[1:]
		if len(segs) == 0 {
			return head{}, errf(diag.GenUnknownSymbol, pos, "'global' needs a function name")
		}
		if len(segs) == 1 {
			id, err := reg.ResolveMember(reg.Global(), segs[0], symbols.AccessQualified)
			if err != nil {
				return head{}, r.resolutionErr(err, segs[0], pos)
			}
			return r.functionHead(id, pos)
		}
		return r.qualifiedCallee(segs, pos)
	}

	if segs[0] == "this" {
		if r.st.ScopePath == "" {
			return head{}, errf(diag.GenThisOutsideScope, pos, "'this' outside a scope")
		}
		if len(segs) != 2 {
			return head{}, errf(diag.GenUnknownSymbol, pos, "malformed 'this' call")
		}
		id, err := reg.ResolveMember(r.st.Scope, segs[1], symbols.AccessInternal)
		if err != nil {
			return head{}, r.resolutionErr(err, segs[1], pos)
		}
		return r.functionHead(id, pos)
	}

	if len(segs) == 1 {
		id, err := reg.ResolveFunction(segs[0], r.st.Scope)
		if err != nil {
			var nf *symbols.NotFoundError
			if errors.As(err, &nf) {
				return head{text: segs[0]}, nil // external C function
			}
			return head{}, r.resolutionErr(err, segs[0], pos)
		}
		return r.functionHead(id, pos)
	}

	return r.qualifiedCallee(segs, pos)
}

// qualifiedCallee resolves Scope.fn and Scope.Sub.fn call heads.
func (r *exprRenderer) qualifiedCallee(segs []string, pos source.Pos) (head, error) {
	reg := r.o.Reg
	path := strings.Join(segs[:len(segs)-1], ".")
	scope, ok := reg.LookupScope(path)
	if !ok && r.st.ScopePath != "" {
		scope, ok = reg.LookupScope(r.st.ScopePath + "." + path)
	}
	if !ok {
		return head{}, errf(diag.VisUnknownScope, pos, "unknown scope '%s'", path)
	}
	id, err := reg.ResolveMember(scope, segs[len(segs)-1], symbols.AccessQualified)
	if err != nil {
		return head{}, r.resolutionErr(err, segs[len(segs)-1], pos)
	}
	return r.functionHead(id, pos)
}

func (r *exprRenderer) functionHead(id symbols.SymbolID, pos source.Pos) (head, error) {
	sym := r.o.Reg.Symbols.Get(id)
	if sym.Kind != symbols.SymbolFunction || sym.Func == nil {
		return head{}, errf(diag.GenUnknownSymbol, pos,
			"'%s' is a %s, not a function", r.o.Reg.SymbolName(id), sym.Kind)
	}
	name := r.o.Reg.ForFunction(id)
	return head{text: name, fn: sym.Func, fnName: name}, nil
}

// callArg renders one argument under the callee's parameter plan: by-ref
// aggregates pass their decayed or addressed name, by-ref scalars take an
// explicit address-of, and everything else goes by value.
func (r *exprRenderer) callArg(arg *ast.Expr, param ast.Param, plan ParamPlan, pos source.Pos) (string, error) {
	if !plan.ByRef {
		return r.expr(arg)
	}
	lv, ok := resolve.SimpleLValue(arg)
	if !ok {
		return "", errf(diag.GenUnsupportedNode, pos,
			"argument for by-reference parameter '%s' must be addressable", param.Name).
			withHint("pass a variable, not a computed value")
	}

	// Arrays and fixed strings decay to pointers on their own.
	decays := param.Type.IsArray() ||
		(!param.Type.IsNamed() && param.Type.Prim == types.PrimString)

	if lv.Kind == ast.ExprIdent {
		name := lv.Name
		if r.st.ParamRef[name] {
			return name, nil // already a pointer, forward it
		}
		if decays {
			return name, nil
		}
		return "&" + name, nil
	}

	text, err := r.postfix(lv)
	if err != nil {
		return "", err
	}
	if decays {
		return text, nil
	}
	return "&" + text, nil
}

// sizeofExpr classifies the sizeof target: a type name renders as
// sizeof(type), a simple value as sizeof(value); anything else is misuse.
func (r *exprRenderer) sizeofExpr(e *ast.Expr) (string, error) {
	if e.Target == nil {
		return "", errf(diag.GenSizeofMisuse, e.Pos, "sizeof needs a target")
	}
	if name, ok := resolve.SimpleIdent(e.Target); ok {
		if p, isPrim := types.ParsePrimitive(name); isPrim {
			return "sizeof(" + p.CName() + ")", nil
		}
		for _, kind := range []symbols.SymbolKind{
			symbols.SymbolStruct, symbols.SymbolEnum, symbols.SymbolBitmap,
		} {
			if id, found := r.o.Reg.LookupType(name, kind); found {
				return "sizeof(" + r.o.Reg.ForSymbol(id) + ")", nil
			}
			if id, found := r.o.Reg.LookupMangled(name, kind); found {
				return "sizeof(" + r.o.Reg.ForSymbol(id) + ")", nil
			}
		}
	}
	if _, ok := resolve.Simple(e.Target); !ok {
		return "", errf(diag.GenSizeofMisuse, e.Pos,
			"sizeof target must be a type or a plain value").
			withHint("take sizeof of the variable, not of an expression")
	}
	text, err := r.expr(e.Target)
	if err != nil {
		return "", err
	}
	return "sizeof(" + text + ")", nil
}

// condition renders a loop or branch condition and rejects bare
// integer-valued shapes, which the language requires to compare explicitly.
func (r *exprRenderer) condition(e *ast.Expr) (string, error) {
	if !booleanShaped(r, e) {
		return "", errf(diag.GenConditionShape, e.Pos,
			"condition must be a comparison or boolean value").
			withHint("compare explicitly, e.g. `x != 0`")
	}
	return r.expr(e)
}

// booleanShaped reports whether an expression yields a boolean: logical and
// comparison chains, negations, boolean literals, and values of bool type.
// Shapes whose type cannot be determined pass, on the assumption the front
// end validated them.
func booleanShaped(r *exprRenderer, e *ast.Expr) bool {
	cur := e
	for cur != nil {
		switch cur.Kind {
		case ast.ExprCond:
			if len(cur.Operands) == 3 {
				return booleanShaped(r, cur.Operands[1]) && booleanShaped(r, cur.Operands[2])
			}
			if len(cur.Operands) != 1 {
				return false
			}
			cur = cur.Operands[0]
		case ast.ExprChain:
			if len(cur.Operands) > 1 {
				return cur.Level <= ast.LevelRelational
			}
			if len(cur.Operands) != 1 {
				return false
			}
			cur = cur.Operands[0]
		case ast.ExprUnary:
			if len(cur.Ops) > 0 {
				return cur.Ops[len(cur.Ops)-1] == "!"
			}
			if len(cur.Operands) != 1 {
				return false
			}
			cur = cur.Operands[0]
		case ast.ExprParen:
			if len(cur.Operands) != 1 {
				return false
			}
			cur = cur.Operands[0]
		case ast.ExprLit:
			return cur.Lit == ast.LitBool
		case ast.ExprIdent:
			if d, ok := r.identTypeOf(cur.Name); ok {
				return !d.IsNamed() && !d.IsArray() && d.Prim == types.PrimBool
			}
			return true
		case ast.ExprPostfix:
			if d, ok := r.typeOf(cur); ok {
				return !d.IsNamed() && !d.IsArray() && d.Prim == types.PrimBool
			}
			return true
		default:
			return false
		}
	}
	return false
}

// typeOf determines the value type of a simple expression, best effort.
func (r *exprRenderer) typeOf(e *ast.Expr) (types.Desc, bool) {
	term, ok := resolve.Simple(e)
	if !ok {
		return types.Desc{}, false
	}
	switch term.Kind {
	case ast.ExprIdent:
		return r.identTypeOf(term.Name)
	case ast.ExprLit:
		switch term.Lit {
		case ast.LitFloat:
			return types.Prim(types.PrimF64), true
		case ast.LitBool:
			return types.Prim(types.PrimBool), true
		case ast.LitString:
			return types.Desc{Prim: types.PrimString, StringCap: int64(len(term.Text))}, true
		default:
			return types.Desc{}, false
		}
	case ast.ExprPostfix:
		return r.postfixTypeOf(term)
	default:
		return types.Desc{}, false
	}
}

func (r *exprRenderer) identTypeOf(name string) (types.Desc, bool) {
	if d, ok := r.st.localType(name); ok {
		return d, true
	}
	reg := r.o.Reg
	if r.st.Scope.IsValid() && r.st.ScopePath != "" {
		if id, err := reg.ResolveMember(r.st.Scope, name, symbols.AccessInternal); err == nil {
			if sym := reg.Symbols.Get(id); sym.Kind == symbols.SymbolVariable && sym.Var != nil {
				return sym.Var.Type, true
			}
		}
	}
	if id, err := reg.ResolveMember(reg.Global(), name, symbols.AccessQualified); err == nil {
		if sym := reg.Symbols.Get(id); sym.Kind == symbols.SymbolVariable && sym.Var != nil {
			return sym.Var.Type, true
		}
	}
	return types.Desc{}, false
}

// postfixTypeOf walks a member chain through the struct-field type map.
func (r *exprRenderer) postfixTypeOf(e *ast.Expr) (types.Desc, bool) {
	if e.Base == nil || e.Base.Kind != ast.ExprIdent {
		return types.Desc{}, false
	}
	d, ok := r.identTypeOf(e.Base.Name)
	if !ok {
		return types.Desc{}, false
	}
	reg := r.o.Reg
	for _, suf := range e.Suffixes {
		switch suf.Kind {
		case ast.SuffixMember:
			if !d.IsNamed() || d.IsArray() {
				return types.Desc{}, false
			}
			sid, found := reg.LookupType(d.Name, symbols.SymbolStruct)
			if !found {
				return types.Desc{}, false
			}
			info := reg.Symbols.Get(sid).Struct
			if info == nil {
				return types.Desc{}, false
			}
			next, known := info.FieldType[suf.Name]
			if !known {
				return types.Desc{}, false
			}
			d = next
		case ast.SuffixIndex:
			if !d.IsArray() {
				return types.Desc{}, false
			}
			d.Dims = d.Dims[1:]
		default:
			return types.Desc{}, false
		}
	}
	return d, true
}

// resolutionErr maps registry lookup failures to generation diagnostics.
func (r *exprRenderer) resolutionErr(err error, name string, pos source.Pos) *GenError {
	var vis *symbols.VisibilityError
	if errors.As(err, &vis) {
		return errf(diag.VisPrivateMember, pos, "%s", vis.Error()).
			withHint("mark the member public or access it from inside its scope")
	}
	var nf *symbols.NotFoundError
	if errors.As(err, &nf) {
		return errf(diag.GenUnknownSymbol, pos, "%s", nf.Error())
	}
	return errf(diag.GenUnknownSymbol, pos, "cannot resolve '%s': %s", name, err)
}
