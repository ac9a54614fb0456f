package ast

import (
	"cnext/internal/source"
	"cnext/internal/types"
)

// StmtKind discriminates statements.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtVar
	StmtAssign
	StmtExpr
	StmtIf
	StmtWhile
	StmtDoWhile
	StmtFor
	StmtSwitch
	StmtReturn
	StmtBreak
	StmtContinue
	StmtBlock
	StmtCritical
)

func (k StmtKind) String() string {
	switch k {
	case StmtVar:
		return "var"
	case StmtAssign:
		return "assign"
	case StmtExpr:
		return "expr"
	case StmtIf:
		return "if"
	case StmtWhile:
		return "while"
	case StmtDoWhile:
		return "do-while"
	case StmtFor:
		return "for"
	case StmtSwitch:
		return "switch"
	case StmtReturn:
		return "return"
	case StmtBreak:
		return "break"
	case StmtContinue:
		return "continue"
	case StmtBlock:
		return "block"
	case StmtCritical:
		return "critical"
	default:
		return "invalid"
	}
}

// Block is an ordered statement list.
type Block struct {
	Stmts []*Stmt `msgpack:"stmts"`
}

// Stmt is one statement. Exactly one payload matching Kind is set; Expr
// doubles as the payload for StmtExpr and StmtReturn.
type Stmt struct {
	Kind StmtKind   `msgpack:"kind"`
	Pos  source.Pos `msgpack:"pos"`

	Var    *VarStmt    `msgpack:"var,omitempty"`
	Assign *AssignStmt `msgpack:"assign,omitempty"`
	Expr   *Expr       `msgpack:"expr,omitempty"`
	If     *IfStmt     `msgpack:"if,omitempty"`
	Loop   *LoopStmt   `msgpack:"loop,omitempty"`
	For    *ForStmt    `msgpack:"for,omitempty"`
	Switch *SwitchStmt `msgpack:"switch,omitempty"`
	Block  *Block      `msgpack:"block,omitempty"`
}

// VarStmt is a local variable or array declaration.
type VarStmt struct {
	Name     string     `msgpack:"name"`
	Type     types.Desc `msgpack:"type"`
	Init     *Expr      `msgpack:"init,omitempty"`
	Overflow bool       `msgpack:"overflow,omitempty"`
}

// AssignStmt covers plain and compound assignment. DivDefault carries the
// fallback value of a checked division form (`a = b / c else d`); it is only
// meaningful when Op is "=" and the value's top-level operator is / or %.
type AssignStmt struct {
	Target     *Expr  `msgpack:"target"`
	Op         string `msgpack:"op"` // "=", "+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=", "<<=", ">>="
	Value      *Expr  `msgpack:"value"`
	DivDefault *Expr  `msgpack:"divdefault,omitempty"`
}

// IfStmt with optional else branch (either a block or a chained if).
type IfStmt struct {
	Cond *Expr  `msgpack:"cond"`
	Then *Block `msgpack:"then"`
	Else *Stmt  `msgpack:"else,omitempty"`
}

// LoopStmt serves while and do-while.
type LoopStmt struct {
	Cond *Expr  `msgpack:"cond"`
	Body *Block `msgpack:"body"`
}

// ForStmt is the C-style three-clause loop.
type ForStmt struct {
	Init *Stmt  `msgpack:"init,omitempty"`
	Cond *Expr  `msgpack:"cond,omitempty"`
	Post *Stmt  `msgpack:"post,omitempty"`
	Body *Block `msgpack:"body"`
}

// SwitchCase is one case arm; Default marks the default arm.
type SwitchCase struct {
	Values  []*Expr `msgpack:"values,omitempty"`
	Body    []*Stmt `msgpack:"body"`
	Default bool    `msgpack:"default,omitempty"`
}

// SwitchStmt matches a tag against case arms.
type SwitchStmt struct {
	Tag   *Expr        `msgpack:"tag"`
	Cases []SwitchCase `msgpack:"cases"`
}
