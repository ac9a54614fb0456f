package codegen

import (
	"strings"

	"cnext/internal/ast"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// ParamPlan decides how one parameter travels and how it is spelled.
// Struct, array, and string parameters always go by reference. Scalars go
// by value unless the mutation table says the callee writes them; a scalar
// the callee provably never writes is spelled const.
type ParamPlan struct {
	ByRef bool
	Const bool
}

// PlanParams computes the plan for every parameter of a function. The
// mutation table was seeded for all native functions during the
// declaration pass, so an unknown function here means an imported one and
// the conservative assumption applies.
func PlanParams(reg *symbols.Table, fnName string, info *symbols.FunctionInfo, mut *MutTable) []ParamPlan {
	plans := make([]ParamPlan, len(info.Params))
	for i, p := range info.Params {
		mutates := mut.Mutates(fnName, i)
		if isAggregate(reg, p.Type) {
			plans[i] = ParamPlan{ByRef: true, Const: !mutates}
			continue
		}
		if mutates {
			plans[i] = ParamPlan{ByRef: true}
		} else {
			plans[i] = ParamPlan{Const: true}
		}
	}
	return plans
}

// RefFlags extracts the by-reference vector from a plan list.
func RefFlags(plans []ParamPlan) []bool {
	refs := make([]bool, len(plans))
	for i, p := range plans {
		refs[i] = p.ByRef
	}
	return refs
}

// DerefFlags marks parameters spelled as pointers, the ones a body must
// dereference on use: by-reference structs and scalars. Arrays and strings
// decay to pointers on their own and are used undecorated.
func DerefFlags(info *symbols.FunctionInfo, plans []ParamPlan) []bool {
	refs := make([]bool, len(plans))
	for i, plan := range plans {
		if !plan.ByRef {
			continue
		}
		t := info.Params[i].Type
		if t.IsArray() || (!t.IsNamed() && t.Prim == types.PrimString) {
			continue
		}
		refs[i] = true
	}
	return refs
}

// Signature renders the full C signature of a function, without a trailing
// semicolon or body. The header generator and the implementation generator
// both call this single renderer, so a function's header and implementation
// signatures are textually identical by construction.
func Signature(reg *symbols.Table, externalName string, info *symbols.FunctionInfo, plans []ParamPlan) string {
	var sb strings.Builder
	sb.WriteString(CTypeName(reg, info.Ret))
	sb.WriteString(" ")
	sb.WriteString(externalName)
	sb.WriteString("(")
	if len(info.Params) == 0 {
		sb.WriteString("void")
	}
	for i, p := range info.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(renderParam(reg, p, plans[i]))
	}
	sb.WriteString(")")
	return sb.String()
}

// renderParam spells one parameter according to its plan.
func renderParam(reg *symbols.Table, p ast.Param, plan ParamPlan) string {
	var sb strings.Builder
	if plan.Const {
		sb.WriteString("const ")
	}
	base := CTypeName(reg, p.Type)
	switch {
	case p.Type.IsArray():
		sb.WriteString(base)
		sb.WriteString(" ")
		sb.WriteString(p.Name)
		sb.WriteString("[]")
		for _, dim := range p.Type.Dims[1:] {
			sb.WriteString("[")
			sb.WriteString(dim.Render())
			sb.WriteString("]")
		}
	case !p.Type.IsNamed() && p.Type.Prim == types.PrimString:
		sb.WriteString("char ")
		sb.WriteString(p.Name)
		sb.WriteString("[]")
	case plan.ByRef:
		sb.WriteString(base)
		sb.WriteString(" *")
		sb.WriteString(p.Name)
	default:
		sb.WriteString(base)
		sb.WriteString(" ")
		sb.WriteString(p.Name)
	}
	return sb.String()
}
