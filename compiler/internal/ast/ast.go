package ast

import "github.com/desilang/jsopt/compiler/internal/value"

// Pos marks a 1-based line/column location in a source file.
type Pos struct{ Line, Col int }

// Position returns p; embedding Pos gives every node its location.
func (p Pos) Position() Pos { return p }

// Before reports whether p precedes q in source order.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

/*** NODES ***/

type Node interface {
	Position() Pos
	node()
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// DeclKind is the declaring keyword of a VarDecl.
type DeclKind uint8

const (
	Var DeclKind = iota
	Let
	Const
)

func (k DeclKind) String() string {
	switch k {
	case Let:
		return "let"
	case Const:
		return "const"
	default:
		return "var"
	}
}

type Program struct {
	Pos
	Body []Stmt
}

func (*Program) node() {}

/*** STATEMENTS ***/

type Param struct {
	Pos
	Name string
}

func (*Param) node() {}

type FuncDecl struct {
	Pos
	Name   string
	Params []*Param
	Body   *Block
}

func (*FuncDecl) node() {}
func (*FuncDecl) stmt() {}

// VarDecl declares a single name. Declarator lists are split by the parser
// into consecutive VarDecls sharing a Kind.
type VarDecl struct {
	Pos
	Kind DeclKind
	Name string
	Init Expr // nil when absent
}

func (*VarDecl) node() {}
func (*VarDecl) stmt() {}

type Block struct {
	Pos
	Stmts []Stmt
}

func (*Block) node() {}
func (*Block) stmt() {}

type IfStmt struct {
	Pos
	Cond Expr
	Then *Block
	Else Stmt // nil, *Block or *IfStmt
}

func (*IfStmt) node() {}
func (*IfStmt) stmt() {}

type WhileStmt struct {
	Pos
	Cond Expr
	Body *Block
}

func (*WhileStmt) node() {}
func (*WhileStmt) stmt() {}

type ForStmt struct {
	Pos
	Init Stmt // nil, *VarDecl or *ExprStmt
	Cond Expr // may be nil
	Post Expr // may be nil
	Body *Block
}

func (*ForStmt) node() {}
func (*ForStmt) stmt() {}

type ReturnStmt struct {
	Pos
	Value Expr // may be nil
}

func (*ReturnStmt) node() {}
func (*ReturnStmt) stmt() {}

type ExprStmt struct {
	Pos
	X Expr
}

func (*ExprStmt) node() {}
func (*ExprStmt) stmt() {}

/*** EXPRESSIONS ***/

// Assign is `Target = Value`. Compound assignments are desugared by the
// parser into a plain Assign over a BinaryExpr.
type Assign struct {
	Pos
	Target *Ident
	Value  Expr
}

func (*Assign) node() {}
func (*Assign) expr() {}

type BinaryExpr struct {
	Pos
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) node() {}
func (*BinaryExpr) expr() {}

type UnaryExpr struct {
	Pos
	Op string
	X  Expr
}

func (*UnaryExpr) node() {}
func (*UnaryExpr) expr() {}

type CallExpr struct {
	Pos
	Callee Expr
	Args   []Expr
}

func (*CallExpr) node() {}
func (*CallExpr) expr() {}

type Ident struct {
	Pos
	Name string
}

func (*Ident) node() {}
func (*Ident) expr() {}

type Literal struct {
	Pos
	Value value.Value
}

func (*Literal) node() {}
func (*Literal) expr() {}

// IsLogical reports whether op short-circuits.
func IsLogical(op string) bool { return op == "&&" || op == "||" }
