package ast

import (
	"fmt"
	"strings"

	"github.com/desilang/jsopt/compiler/internal/value"
)

/*** DUMP (source outline for CLI and rewrite logs) ***/

// Dump renders p as source text that the parser accepts again.
func Dump(p *Program) string {
	var b strings.Builder
	for _, s := range p.Body {
		writeStmt(&b, s, 0)
	}
	return b.String()
}

// NodeString renders a single node on one line; compound statements are
// abbreviated.
func NodeString(n Node) string {
	switch v := n.(type) {
	case nil:
		return "<nil>"
	case Expr:
		return ExprString(v)
	case Stmt:
		return StmtString(v)
	case *Program:
		return fmt.Sprintf("<program: %d statements>", len(v.Body))
	case *Param:
		return v.Name
	}
	return "<node>"
}

// StmtString renders s on one line.
func StmtString(s Stmt) string {
	switch st := s.(type) {
	case *VarDecl:
		if st.Init == nil {
			return fmt.Sprintf("%s %s;", st.Kind, st.Name)
		}
		return fmt.Sprintf("%s %s = %s;", st.Kind, st.Name, ExprString(st.Init))
	case *ReturnStmt:
		if st.Value == nil {
			return "return;"
		}
		return "return " + ExprString(st.Value) + ";"
	case *ExprStmt:
		return ExprString(st.X) + ";"
	case *FuncDecl:
		return "function " + st.Name + "(" + paramList(st.Params) + ") {…}"
	case *IfStmt:
		return "if (" + ExprString(st.Cond) + ") {…}"
	case *WhileStmt:
		return "while (" + ExprString(st.Cond) + ") {…}"
	case *ForStmt:
		return "for (" + forHeader(st) + ") {…}"
	case *Block:
		return "{…}"
	}
	return "<stmt>"
}

func paramList(ps []*Param) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func forHeader(st *ForStmt) string {
	var init string
	if st.Init != nil {
		init = strings.TrimSuffix(StmtString(st.Init), ";")
	}
	var cond, post string
	if st.Cond != nil {
		cond = " " + ExprString(st.Cond)
	}
	if st.Post != nil {
		post = " " + ExprString(st.Post)
	}
	return init + ";" + cond + ";" + post
}

func writeIndent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func writeStmt(b *strings.Builder, s Stmt, depth int) {
	switch st := s.(type) {
	case *FuncDecl:
		writeIndent(b, depth)
		fmt.Fprintf(b, "function %s(%s) ", st.Name, paramList(st.Params))
		writeBlock(b, st.Body, depth)
		b.WriteByte('\n')
	case *Block:
		writeIndent(b, depth)
		writeBlock(b, st, depth)
		b.WriteByte('\n')
	case *IfStmt:
		writeIndent(b, depth)
		writeIf(b, st, depth)
		b.WriteByte('\n')
	case *WhileStmt:
		writeIndent(b, depth)
		fmt.Fprintf(b, "while (%s) ", ExprString(st.Cond))
		writeBlock(b, st.Body, depth)
		b.WriteByte('\n')
	case *ForStmt:
		writeIndent(b, depth)
		fmt.Fprintf(b, "for (%s) ", forHeader(st))
		writeBlock(b, st.Body, depth)
		b.WriteByte('\n')
	default:
		writeIndent(b, depth)
		b.WriteString(StmtString(s))
		b.WriteByte('\n')
	}
}

func writeIf(b *strings.Builder, st *IfStmt, depth int) {
	fmt.Fprintf(b, "if (%s) ", ExprString(st.Cond))
	writeBlock(b, st.Then, depth)
	switch el := st.Else.(type) {
	case *IfStmt:
		b.WriteString(" else ")
		writeIf(b, el, depth)
	case *Block:
		b.WriteString(" else ")
		writeBlock(b, el, depth)
	}
}

func writeBlock(b *strings.Builder, blk *Block, depth int) {
	if blk == nil || len(blk.Stmts) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	for _, s := range blk.Stmts {
		writeStmt(b, s, depth+1)
	}
	writeIndent(b, depth)
	b.WriteByte('}')
}

/*** EXPRESSIONS ***/

const (
	precAssign = iota + 1
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

// BinaryPrec returns the binding strength of a binary operator, or 0.
func BinaryPrec(op string) int {
	switch op {
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", "<=", ">", ">=":
		return precRelational
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	}
	return 0
}

func exprPrec(e Expr) int {
	switch v := e.(type) {
	case *Assign:
		return precAssign
	case *BinaryExpr:
		return BinaryPrec(v.Op)
	case *UnaryExpr:
		return precUnary
	case *Literal:
		if v.Value.Kind() == value.KindNumber && strings.HasPrefix(v.Value.Source(), "-") {
			return precUnary
		}
	}
	return precPrimary
}

// ExprString renders e with the minimum parentheses needed to reparse it.
func ExprString(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e, 0)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr, minPrec int) {
	p := exprPrec(e)
	if p < minPrec {
		b.WriteByte('(')
		defer b.WriteByte(')')
	}
	switch v := e.(type) {
	case *Ident:
		b.WriteString(v.Name)
	case *Literal:
		b.WriteString(v.Value.Source())
	case *Assign:
		b.WriteString(v.Target.Name)
		b.WriteString(" = ")
		writeExpr(b, v.Value, precAssign)
	case *BinaryExpr:
		writeExpr(b, v.Left, p)
		b.WriteString(" " + v.Op + " ")
		writeExpr(b, v.Right, p+1)
	case *UnaryExpr:
		b.WriteString(v.Op)
		inner := ExprString(v.X)
		if exprPrec(v.X) < precUnary {
			inner = "(" + inner + ")"
		} else if strings.HasPrefix(inner, v.Op) && v.Op != "!" {
			b.WriteByte(' ')
		}
		b.WriteString(inner)
	case *CallExpr:
		writeExpr(b, v.Callee, precPrimary)
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a, precAssign)
		}
		b.WriteByte(')')
	default:
		b.WriteString("<expr>")
	}
}
