package opt

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/value"
)

// foldPass evaluates operator subtrees whose operands are all literals.
type foldPass struct{}

func (foldPass) Name() string { return PassFold }

func (foldPass) Apply(prog *ast.Program, _ *analysis, warn *diag.Set) []Record {
	var recs []Record
	rewriteAllExprs(prog, func(e ast.Expr) ast.Expr {
		out := foldExpr(e, warn)
		if out != e {
			recs = append(recs, record(PassFold, e, out))
		}
		return out
	})
	return recs
}

func foldExpr(e ast.Expr, warn *diag.Set) ast.Expr {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		l, lok := x.Left.(*ast.Literal)
		r, rok := x.Right.(*ast.Literal)
		if !rok {
			return e
		}
		// a literal zero divisor warns whatever the dividend is
		if (x.Op == "/" || x.Op == "%") && r.Value.Kind() == value.KindNumber && r.Value.AsNumber() == 0 {
			warn.Add(diag.DivisionByZeroLiteral, diag.Pos(x.Pos), "%s by literal zero left unfolded", opName(x.Op))
			return e
		}
		if !lok || !value.Foldable(x.Op, l.Value, r.Value) {
			return e
		}
		var v value.Value
		if ast.IsLogical(x.Op) {
			v = value.Logical(x.Op, l.Value, r.Value)
		} else {
			v = value.Binary(x.Op, l.Value, r.Value)
		}
		return &ast.Literal{Pos: x.Pos, Value: v}
	case *ast.UnaryExpr:
		lit, ok := x.X.(*ast.Literal)
		if !ok || !value.FoldableUnary(x.Op, lit.Value) {
			return e
		}
		return &ast.Literal{Pos: x.Pos, Value: value.Unary(x.Op, lit.Value)}
	}
	return e
}

func opName(op string) string {
	if op == "%" {
		return "remainder"
	}
	return "division"
}
