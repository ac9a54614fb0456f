package codegen

import (
	"fmt"

	"cnext/internal/ast"
	"cnext/internal/helpers"
	"cnext/internal/types"
)

// EffectKind discriminates generation effects. An effect is an ephemeral
// description of a desired state mutation, returned by a generator and
// applied immediately by the orchestrator, so generators themselves stay
// pure. The union is closed: applyEffect matches it exhaustively and new
// kinds must be handled there before they compile.
type EffectKind uint8

const (
	EffectInvalid EffectKind = iota
	EffectInclude
	EffectISRTypedef
	EffectOverflowHelper
	EffectDivHelper
	EffectDeclareLocal
	EffectDeclareArray
	EffectDeclareConst
	EffectMarkChecked
	EffectExpectType
	EffectClearExpected
	EffectPushScope
	EffectPopScope
	EffectEnterFunction
	EffectExitFunction
	EffectCallbackField
	EffectArrayFill
	EffectStringLen
	EffectFloatShadow
	EffectEnterCritical
	EffectExitCritical
)

func (k EffectKind) String() string {
	switch k {
	case EffectInclude:
		return "include"
	case EffectISRTypedef:
		return "isr-typedef"
	case EffectOverflowHelper:
		return "overflow-helper"
	case EffectDivHelper:
		return "div-helper"
	case EffectDeclareLocal:
		return "declare-local"
	case EffectDeclareArray:
		return "declare-array"
	case EffectDeclareConst:
		return "declare-const"
	case EffectMarkChecked:
		return "mark-checked"
	case EffectExpectType:
		return "expect-type"
	case EffectClearExpected:
		return "clear-expected"
	case EffectPushScope:
		return "push-scope"
	case EffectPopScope:
		return "pop-scope"
	case EffectEnterFunction:
		return "enter-function"
	case EffectExitFunction:
		return "exit-function"
	case EffectCallbackField:
		return "callback-field"
	case EffectArrayFill:
		return "array-fill"
	case EffectStringLen:
		return "string-len"
	case EffectFloatShadow:
		return "float-shadow"
	case EffectEnterCritical:
		return "enter-critical"
	case EffectExitCritical:
		return "exit-critical"
	default:
		return "invalid"
	}
}

// Effect carries one tagged state mutation. Only the fields relevant to
// Kind are set.
type Effect struct {
	Kind EffectKind

	Include Include        // EffectInclude
	Demand  helpers.Demand // EffectOverflowHelper, EffectDivHelper

	Name string     // local/array/const/shadow names, callback field
	Type types.Desc // EffectDeclareLocal, EffectExpectType
	Text string     // EffectDeclareConst value, EffectFloatShadow shadow name

	Params []ast.Param // EffectEnterFunction
	Func   string      // EffectEnterFunction: function symbol name
	Refs   []bool      // EffectEnterFunction: per-param by-reference flags

	Count int // EffectArrayFill element count, EffectStringLen length
	Fill  bool
}

// applyEffect is the single place orchestrator state mutates. Matched
// exhaustively over EffectKind.
func (o *Orchestrator) applyEffect(e Effect) error {
	st := o.State
	switch e.Kind {
	case EffectInclude:
		o.Includes.Add(e.Include)
	case EffectISRTypedef:
		o.NeedISR = true
	case EffectOverflowHelper, EffectDivHelper:
		o.Demands.Add(e.Demand)
		o.Includes.Add(Include{Path: helpers.RuntimeHeader})
	case EffectDeclareLocal:
		st.Locals[e.Name] = e.Type
	case EffectDeclareArray:
		st.Arrays[e.Name] = true
	case EffectDeclareConst:
		st.Consts[e.Name] = e.Text
		if e.Text != "" && st.FuncName == "" {
			o.ConstDefs = append(o.ConstDefs, e.Text)
		}
	case EffectMarkChecked:
		st.Checked[e.Name] = true
	case EffectExpectType:
		st.Expected = e.Type
		st.HasExpected = true
	case EffectClearExpected:
		st.Expected = types.Desc{}
		st.HasExpected = false
	case EffectPushScope:
		st.pushScope(e.Name, o.Reg)
	case EffectPopScope:
		st.popScope(o.Reg)
	case EffectEnterFunction:
		st.enterFunction(e.Func, e.Params, e.Refs)
	case EffectExitFunction:
		st.exitFunction()
	case EffectCallbackField:
		o.Callbacks = append(o.Callbacks, e.Name)
	case EffectArrayFill:
		st.ArrayFill[e.Name] = FillInfo{Count: e.Count, Fill: e.Fill}
	case EffectStringLen:
		st.StrLenMemo[e.Text] = e.Count
	case EffectFloatShadow:
		st.FloatShadow[e.Name] = e.Text
	case EffectEnterCritical:
		if st.CriticalDepth > 0 {
			return fmt.Errorf("nested critical section")
		}
		st.CriticalDepth++
	case EffectExitCritical:
		if st.CriticalDepth == 0 {
			return fmt.Errorf("unbalanced critical section exit")
		}
		st.CriticalDepth--
	default:
		return fmt.Errorf("unknown effect kind %d", e.Kind)
	}
	return nil
}
