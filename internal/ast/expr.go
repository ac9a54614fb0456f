package ast

import "cnext/internal/source"

// ExprKind discriminates expression nodes.
//
// The grammar has no "simple expression" rule: every expression arrives as a
// chain of precedence-level wrappers, each holding one or more operands of
// the next level down. The resolver's unwrapping primitive relies on this
// shape, so the front end may collapse single-operand wrappers but must
// never reorder levels.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprCond             // ternary level: [cond] or [cond, then, else]
	ExprChain            // one binary precedence level
	ExprUnary            // prefix operators over a single operand
	ExprPostfix          // base with member/index/call/bit-range suffixes
	ExprIdent
	ExprLit
	ExprParen
	ExprInit // brace initializer list
	ExprSizeof
)

func (k ExprKind) String() string {
	switch k {
	case ExprCond:
		return "cond"
	case ExprChain:
		return "chain"
	case ExprUnary:
		return "unary"
	case ExprPostfix:
		return "postfix"
	case ExprIdent:
		return "ident"
	case ExprLit:
		return "literal"
	case ExprParen:
		return "paren"
	case ExprInit:
		return "initializer"
	case ExprSizeof:
		return "sizeof"
	default:
		return "invalid"
	}
}

// PrecLevel is one binary precedence level, ordered from loosest to
// tightest binding. ExprCond sits above LevelLogicalOr; unary and postfix
// below LevelMultiplicative.
type PrecLevel uint8

const (
	LevelLogicalOr PrecLevel = iota
	LevelLogicalAnd
	LevelEquality
	LevelRelational
	LevelBitOr
	LevelBitXor
	LevelBitAnd
	LevelShift
	LevelAdditive
	LevelMultiplicative
)

func (l PrecLevel) String() string {
	switch l {
	case LevelLogicalOr:
		return "logical-or"
	case LevelLogicalAnd:
		return "logical-and"
	case LevelEquality:
		return "equality"
	case LevelRelational:
		return "relational"
	case LevelBitOr:
		return "bit-or"
	case LevelBitXor:
		return "bit-xor"
	case LevelBitAnd:
		return "bit-and"
	case LevelShift:
		return "shift"
	case LevelAdditive:
		return "additive"
	case LevelMultiplicative:
		return "multiplicative"
	default:
		return "invalid"
	}
}

// LitKind classifies literal spellings. Binary literals keep their source
// text so the generator can re-render them as hex.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitBinary
	LitHex
	LitFloat
	LitBool
	LitChar
	LitString
)

func (k LitKind) String() string {
	switch k {
	case LitInt:
		return "int"
	case LitBinary:
		return "binary"
	case LitHex:
		return "hex"
	case LitFloat:
		return "float"
	case LitBool:
		return "bool"
	case LitChar:
		return "char"
	case LitString:
		return "string"
	default:
		return "invalid"
	}
}

// SuffixKind discriminates postfix suffixes.
type SuffixKind uint8

const (
	SuffixMember   SuffixKind = iota // .name
	SuffixIndex                      // [expr], array or single-bit access
	SuffixCall                       // (args)
	SuffixBitRange                   // [hi:lo]
)

func (k SuffixKind) String() string {
	switch k {
	case SuffixMember:
		return "member"
	case SuffixIndex:
		return "index"
	case SuffixCall:
		return "call"
	case SuffixBitRange:
		return "bit-range"
	default:
		return "invalid"
	}
}

// Suffix is one postfix step applied to the base expression.
type Suffix struct {
	Kind  SuffixKind `msgpack:"kind"`
	Name  string     `msgpack:"name,omitempty"`  // SuffixMember
	Index *Expr      `msgpack:"index,omitempty"` // SuffixIndex
	Args  []*Expr    `msgpack:"args,omitempty"`  // SuffixCall
	Hi    *Expr      `msgpack:"hi,omitempty"`    // SuffixBitRange
	Lo    *Expr      `msgpack:"lo,omitempty"`    // SuffixBitRange
	Pos   source.Pos `msgpack:"pos"`
}

// Expr is one expression node.
type Expr struct {
	Kind ExprKind   `msgpack:"kind"`
	Pos  source.Pos `msgpack:"pos"`

	// ExprCond: Operands is [cond] or [cond, then, else].
	// ExprChain: Operands with len(Ops) == len(Operands)-1, all at Level.
	// ExprUnary: Ops are prefix operators, Operands is [operand].
	// ExprParen: Operands is [inner].
	// ExprInit: Operands are the initializer elements.
	Level    PrecLevel `msgpack:"level,omitempty"`
	Ops      []string  `msgpack:"ops,omitempty"`
	Operands []*Expr   `msgpack:"operands,omitempty"`

	// ExprPostfix.
	Base     *Expr    `msgpack:"base,omitempty"`
	Suffixes []Suffix `msgpack:"suffixes,omitempty"`

	// ExprIdent / ExprLit.
	Name string  `msgpack:"name,omitempty"`
	Lit  LitKind `msgpack:"lit,omitempty"`
	Text string  `msgpack:"text,omitempty"` // literal source text

	// ExprSizeof target.
	Target *Expr `msgpack:"target,omitempty"`

	// ExprInit fill marker: `{0...}` style "fill remainder" initializers.
	Fill bool `msgpack:"fill,omitempty"`
}

// Ident builds an identifier expression, used by tests and synthetic trees.
func Ident(name string) *Expr {
	return &Expr{Kind: ExprIdent, Name: name}
}

// IsIdent reports whether the expression is a bare identifier with the
// given name, e.g. the `this` or `global` qualifier base.
func (e *Expr) IsIdent(name string) bool {
	return e != nil && e.Kind == ExprIdent && e.Name == name
}
