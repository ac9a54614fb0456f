package codegen

import (
	"strings"

	"cnext/internal/ast"
	"cnext/internal/symbols"
	"cnext/internal/types"
)

// FillInfo tracks an array initializer's element count and whether it used
// the fill-remainder form.
type FillInfo struct {
	Count int
	Fill  bool
}

// State is the per-file generation state. One instance exists per file
// being generated and is reset between files; the symbol registry is not,
// it persists across the whole build. Generators receive the state as a
// read-only snapshot and describe changes via effects.
type State struct {
	Unit      string
	ScopePath string
	Scope     symbols.ScopeID

	Indent int

	// Current function context.
	FuncName string
	Params   map[string]types.Desc
	ParamRef map[string]bool // params passed by reference, deref on use
	Locals   map[string]types.Desc
	Arrays   map[string]bool
	Consts   map[string]string
	// Checked marks locals declared with the overflow-checked modifier;
	// assignments to them fold arithmetic into the overflow helpers.
	Checked map[string]bool

	// Expected type hint for inferred literals and unqualified enum
	// members on the right-hand side of typed assignments.
	Expected    types.Desc
	HasExpected bool

	// Per-file optimization caches.
	StrLenMemo  map[string]int    // literal -> length
	FloatShadow map[string]string // float var -> shadow bits var
	ArrayFill   map[string]FillInfo

	CriticalDepth int
}

// NewState creates a fresh per-file state rooted at the global scope.
func NewState(unit string) *State {
	return &State{
		Unit:        unit,
		Scope:       symbols.GlobalScopeID,
		Params:      make(map[string]types.Desc),
		ParamRef:    make(map[string]bool),
		Locals:      make(map[string]types.Desc),
		Arrays:      make(map[string]bool),
		Consts:      make(map[string]string),
		Checked:     make(map[string]bool),
		StrLenMemo:  make(map[string]int),
		FloatShadow: make(map[string]string),
		ArrayFill:   make(map[string]FillInfo),
	}
}

func (st *State) pushScope(name string, reg *symbols.Table) {
	if st.ScopePath == "" {
		st.ScopePath = name
	} else {
		st.ScopePath = st.ScopePath + "." + name
	}
	st.Scope = reg.GetOrCreateScope(st.ScopePath)
}

func (st *State) popScope(reg *symbols.Table) {
	if idx := strings.LastIndexByte(st.ScopePath, '.'); idx >= 0 {
		st.ScopePath = st.ScopePath[:idx]
	} else {
		st.ScopePath = ""
	}
	st.Scope = reg.GetOrCreateScope(st.ScopePath)
}

func (st *State) enterFunction(name string, params []ast.Param, refs []bool) {
	st.FuncName = name
	st.Params = make(map[string]types.Desc, len(params))
	st.ParamRef = make(map[string]bool, len(params))
	st.Locals = make(map[string]types.Desc)
	st.Arrays = make(map[string]bool)
	st.Checked = make(map[string]bool)
	st.StrLenMemo = make(map[string]int)
	st.FloatShadow = make(map[string]string)
	st.ArrayFill = make(map[string]FillInfo)
	for i, p := range params {
		st.Params[p.Name] = p.Type
		if i < len(refs) && refs[i] {
			st.ParamRef[p.Name] = true
		}
	}
}

func (st *State) exitFunction() {
	st.FuncName = ""
	st.Params = make(map[string]types.Desc)
	st.ParamRef = make(map[string]bool)
	st.Locals = make(map[string]types.Desc)
	st.Arrays = make(map[string]bool)
	st.Checked = make(map[string]bool)
}

// indentText returns the current indentation prefix, four spaces per level.
func (st *State) indentText() string {
	return strings.Repeat("    ", st.Indent)
}

// localType resolves an identifier in function context: parameters first,
// then locals.
func (st *State) localType(name string) (types.Desc, bool) {
	if d, ok := st.Params[name]; ok {
		return d, true
	}
	d, ok := st.Locals[name]
	return d, ok
}
