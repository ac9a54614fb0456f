// Package resolve classifies expression shapes and infers enum types for
// the code generator. The grammar has no "simple expression" rule, so both
// jobs start from the same primitive: peeling precedence-level wrappers one
// level at a time.
package resolve

import "cnext/internal/ast"

// Simple unwraps an expression through the precedence hierarchy, one level
// at a time, and returns the terminal node if the whole expression is just
// a bare identifier, literal, or postfix chain. It gives up the instant a
// level holds more than one operand or a real operator. This single
// primitive backs pass-by-reference argument generation, sizeof target
// classification, shift-amount validation, and enum-inference fallthrough.
func Simple(e *ast.Expr) (*ast.Expr, bool) {
	for e != nil {
		switch e.Kind {
		case ast.ExprCond:
			if len(e.Operands) != 1 {
				return nil, false // a real ternary is never simple
			}
			e = e.Operands[0]
		case ast.ExprChain:
			if len(e.Operands) != 1 || len(e.Ops) != 0 {
				return nil, false
			}
			e = e.Operands[0]
		case ast.ExprUnary:
			if len(e.Ops) != 0 {
				return nil, false
			}
			if len(e.Operands) != 1 {
				return nil, false
			}
			e = e.Operands[0]
		case ast.ExprParen:
			if len(e.Operands) != 1 {
				return nil, false
			}
			e = e.Operands[0]
		case ast.ExprPostfix, ast.ExprIdent, ast.ExprLit:
			return e, true
		default:
			// initializers, sizeof and anything new are not simple
			return nil, false
		}
	}
	return nil, false
}

// SimpleIdent unwraps to a bare identifier, rejecting postfix chains.
func SimpleIdent(e *ast.Expr) (string, bool) {
	term, ok := Simple(e)
	if !ok || term.Kind != ast.ExprIdent {
		return "", false
	}
	return term.Name, true
}

// SimpleLValue unwraps to an identifier or a postfix chain rooted in one,
// the shapes eligible for pass-by-reference adaptation.
func SimpleLValue(e *ast.Expr) (*ast.Expr, bool) {
	term, ok := Simple(e)
	if !ok {
		return nil, false
	}
	switch term.Kind {
	case ast.ExprIdent:
		return term, true
	case ast.ExprPostfix:
		if term.Base == nil || term.Base.Kind != ast.ExprIdent {
			return nil, false
		}
		for _, suf := range term.Suffixes {
			if suf.Kind == ast.SuffixCall {
				return nil, false // call results are not addressable
			}
		}
		return term, true
	default:
		return nil, false
	}
}
