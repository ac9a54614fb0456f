package codegen

import (
	"sync"

	"cnext/internal/ast"
	"cnext/internal/resolve"
	"cnext/internal/symbols"
)

// MutTable is the whole-program "does callee mutate parameter i" table.
// The declaration pass seeds it deterministically from every function body;
// generation only reads it. A query about a function that was never
// analyzed conservatively assumes mutation.
type MutTable struct {
	mu sync.RWMutex
	m  map[string][]bool // mangled function name -> per-param mutation
}

// NewMutTable creates an empty table.
func NewMutTable() *MutTable {
	return &MutTable{m: make(map[string][]bool)}
}

// Set records the mutation vector for a function.
func (t *MutTable) Set(fn string, mutated []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[fn] = mutated
}

// Mutates reports whether the function mutates parameter i. Unknown
// functions and out-of-range indexes report true.
func (t *MutTable) Mutates(fn string, i int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	vec, ok := t.m[fn]
	if !ok || i < 0 || i >= len(vec) {
		return true
	}
	return vec[i]
}

// Known reports whether the function was analyzed.
func (t *MutTable) Known(fn string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.m[fn]
	return ok
}

// AnalyzeFunction computes the mutation vector of one function body:
// a parameter counts as mutated when it is the base of an assignment
// target, or when it is handed to another call as an argument (the callee
// may write through the reference; refined by the fixpoint pass).
func AnalyzeFunction(info *symbols.FunctionInfo) []bool {
	mutated := make([]bool, len(info.Params))
	if info.Body == nil {
		return mutated
	}
	index := make(map[string]int, len(info.Params))
	for i, p := range info.Params {
		index[p.Name] = i
	}
	walkStmts(info.Body.Stmts, func(s *ast.Stmt) {
		switch s.Kind {
		case ast.StmtAssign:
			if name, ok := rootIdent(s.Assign.Target); ok {
				if i, isParam := index[name]; isParam {
					mutated[i] = true
				}
			}
		case ast.StmtExpr:
			markCallArgs(s.Expr, index, mutated)
		}
	})
	// Assignments may also bury calls on the right-hand side.
	walkStmts(info.Body.Stmts, func(s *ast.Stmt) {
		if s.Kind == ast.StmtAssign {
			markCallArgs(s.Assign.Value, index, mutated)
		}
	})
	return mutated
}

// AnalyzeFunctionRefined recomputes a mutation vector using the callee
// vectors already in the table: a parameter handed to a call whose target
// resolves and whose matching parameter is known unmutated stays clean.
// Unresolvable callees keep the conservative assumption. Iterating this to
// a fixpoint over all functions sharpens the whole-program table.
func AnalyzeFunctionRefined(reg *symbols.Table, mut *MutTable, scope symbols.ScopeID, info *symbols.FunctionInfo) []bool {
	mutated := make([]bool, len(info.Params))
	if info.Body == nil {
		return mutated
	}
	index := make(map[string]int, len(info.Params))
	for i, p := range info.Params {
		index[p.Name] = i
	}
	env := &resolve.Env{Table: reg, Scope: scope}

	markRefined := func(e *ast.Expr) {
		walkExpr(e, func(x *ast.Expr) {
			if x.Kind != ast.ExprPostfix {
				return
			}
			for _, suf := range x.Suffixes {
				if suf.Kind != ast.SuffixCall {
					continue
				}
				calleeName := ""
				if id, ok := env.CallTarget(x); ok {
					calleeName = reg.ForFunction(id)
				}
				for argIdx, arg := range suf.Args {
					name, ok := rootIdent(arg)
					if !ok {
						continue
					}
					i, isParam := index[name]
					if !isParam {
						continue
					}
					if calleeName != "" && mut.Known(calleeName) && !mut.Mutates(calleeName, argIdx) {
						continue
					}
					mutated[i] = true
				}
			}
		})
	}

	walkStmts(info.Body.Stmts, func(s *ast.Stmt) {
		switch s.Kind {
		case ast.StmtAssign:
			if name, ok := rootIdent(s.Assign.Target); ok {
				if i, isParam := index[name]; isParam {
					mutated[i] = true
				}
			}
			markRefined(s.Assign.Value)
		case ast.StmtExpr:
			markRefined(s.Expr)
		case ast.StmtVar:
			if s.Var.Init != nil {
				markRefined(s.Var.Init)
			}
		case ast.StmtReturn:
			if s.Expr != nil {
				markRefined(s.Expr)
			}
		}
	})
	return mutated
}

// markCallArgs conservatively marks parameters that appear as call
// arguments anywhere inside the expression.
func markCallArgs(e *ast.Expr, index map[string]int, mutated []bool) {
	walkExpr(e, func(x *ast.Expr) {
		if x.Kind != ast.ExprPostfix {
			return
		}
		for _, suf := range x.Suffixes {
			if suf.Kind != ast.SuffixCall {
				continue
			}
			for _, arg := range suf.Args {
				if name, ok := rootIdent(arg); ok {
					if i, isParam := index[name]; isParam {
						mutated[i] = true
					}
				}
			}
		}
	})
}

// rootIdent unwraps an expression to the identifier at the root of a
// postfix chain, if the shape is that simple.
func rootIdent(e *ast.Expr) (string, bool) {
	for e != nil {
		switch e.Kind {
		case ast.ExprCond, ast.ExprChain, ast.ExprUnary, ast.ExprParen:
			if len(e.Operands) != 1 || len(e.Ops) != 0 {
				return "", false
			}
			e = e.Operands[0]
		case ast.ExprPostfix:
			if e.Base == nil {
				return "", false
			}
			e = e.Base
		case ast.ExprIdent:
			return e.Name, true
		default:
			return "", false
		}
	}
	return "", false
}

// walkStmts visits every statement in a body, depth first.
func walkStmts(stmts []*ast.Stmt, visit func(*ast.Stmt)) {
	for _, s := range stmts {
		if s == nil {
			continue
		}
		visit(s)
		switch s.Kind {
		case ast.StmtIf:
			walkStmts(s.If.Then.Stmts, visit)
			if s.If.Else != nil {
				walkStmts([]*ast.Stmt{s.If.Else}, visit)
			}
		case ast.StmtWhile, ast.StmtDoWhile:
			walkStmts(s.Loop.Body.Stmts, visit)
		case ast.StmtFor:
			if s.For.Init != nil {
				walkStmts([]*ast.Stmt{s.For.Init}, visit)
			}
			if s.For.Post != nil {
				walkStmts([]*ast.Stmt{s.For.Post}, visit)
			}
			walkStmts(s.For.Body.Stmts, visit)
		case ast.StmtSwitch:
			for _, c := range s.Switch.Cases {
				walkStmts(c.Body, visit)
			}
		case ast.StmtBlock, ast.StmtCritical:
			if s.Block != nil {
				walkStmts(s.Block.Stmts, visit)
			}
		}
	}
}

// walkExpr visits every expression node, depth first.
func walkExpr(e *ast.Expr, visit func(*ast.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	for _, op := range e.Operands {
		walkExpr(op, visit)
	}
	walkExpr(e.Base, visit)
	for i := range e.Suffixes {
		suf := &e.Suffixes[i]
		walkExpr(suf.Index, visit)
		walkExpr(suf.Hi, visit)
		walkExpr(suf.Lo, visit)
		for _, a := range suf.Args {
			walkExpr(a, visit)
		}
	}
	walkExpr(e.Target, visit)
}
