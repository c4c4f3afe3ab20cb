package opt

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/scope"
	"github.com/desilang/jsopt/compiler/internal/value"
)

// newArith matches different spellings of one value, such as x*2, 2*x and
// x+x. Rewrites through + apply only to operands that are always numbers.
func newArith() *regionPass {
	return &regionPass{name: PassArith, prefix: "__ari", key: (*analysis).canon, distinct: true}
}

// canon is an algebraic normal form of e: * commutes, and for numeric
// operands + commutes, x+x becomes x*2 and x*1 becomes x.
func (a *analysis) canon(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		l, r := a.canon(x.Left), a.canon(x.Right)
		switch x.Op {
		case "*":
			if isNumLit(x.Right, 1) && a.isNumeric(x.Left) {
				return l
			}
			if isNumLit(x.Left, 1) && a.isNumeric(x.Right) {
				return r
			}
			return commute("*", l, r)
		case "+":
			if a.isNumeric(x.Left) && a.isNumeric(x.Right) {
				if l == r {
					return commute("*", "2", l)
				}
				return commute("+", l, r)
			}
		}
		return "(" + x.Op + " " + l + " " + r + ")"
	case *ast.UnaryExpr:
		return "(u" + x.Op + " " + a.canon(x.X) + ")"
	case *ast.CallExpr:
		s := "(call " + a.canon(x.Callee)
		for _, arg := range x.Args {
			s += " " + a.canon(arg)
		}
		return s + ")"
	}
	return a.key(e)
}

func commute(op, l, r string) string {
	if r < l {
		l, r = r, l
	}
	return "(" + op + " " + l + " " + r + ")"
}

func isNumLit(e ast.Expr, n float64) bool {
	lit, ok := e.(*ast.Literal)
	return ok && lit.Value.Kind() == value.KindNumber && lit.Value.AsNumber() == n
}

func (a *analysis) isNumeric(e ast.Expr) bool {
	a.numericBindings()
	return a.numExpr(e)
}

// numExpr reports whether e always evaluates to a number, given the
// current set of numeric bindings.
func (a *analysis) numExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Literal:
		return x.Value.Kind() == value.KindNumber
	case *ast.Ident:
		b := a.ref(x)
		return b != nil && a.numeric[b]
	case *ast.UnaryExpr:
		return x.Op == "-" || x.Op == "+"
	case *ast.BinaryExpr:
		switch x.Op {
		case "-", "*", "/", "%":
			return true
		case "+", "&&", "||":
			return a.numExpr(x.Left) && a.numExpr(x.Right)
		}
	case *ast.Assign:
		return a.numExpr(x.Value)
	case *ast.CallExpr:
		if id, ok := x.Callee.(*ast.Ident); ok {
			b := a.ref(id)
			return b != nil && b.Kind == scope.BindBuiltin && (b.Name == "toNumber" || b.Name == "length")
		}
	}
	return false
}

type paramSite struct {
	fn    *scope.Binding
	index int
}

// numericBindings computes, as a greatest fixed point, the bindings that
// hold a number whenever they are read.
func (a *analysis) numericBindings() {
	if a.numeric != nil {
		return
	}
	var (
		reads    = map[*scope.Binding][]*ast.Ident{}
		assigns  = map[*scope.Binding][]ast.Expr{}
		calls    = map[*scope.Binding][]*ast.CallExpr{}
		escapes  = map[*scope.Binding]bool{}
		skip     = map[*ast.Ident]bool{}
		topLevel = map[ast.Stmt]bool{}
		params   = map[*scope.Binding]paramSite{}
	)
	for _, s := range a.prog.Body {
		topLevel[s] = true
	}
	for fb, fn := range a.funcs {
		for _, s := range fn.Body.Stmts {
			topLevel[s] = true
		}
		for i, p := range fn.Params {
			if pb := a.tree.Decls[p]; pb != nil && pb.Kind == scope.BindParam {
				params[pb] = paramSite{fn: fb, index: i}
			}
		}
	}
	ast.Inspect(a.prog, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Assign:
			skip[n.Target] = true
			if b := a.ref(n.Target); b != nil {
				assigns[b] = append(assigns[b], n.Value)
			}
		case *ast.CallExpr:
			if id, ok := n.Callee.(*ast.Ident); ok {
				skip[id] = true
				if b := a.ref(id); b != nil {
					calls[b] = append(calls[b], n)
				}
			}
		case *ast.Ident:
			b := a.ref(n)
			if b == nil || skip[n] {
				break
			}
			reads[b] = append(reads[b], n)
			if b.Kind == scope.BindFunction {
				escapes[b] = true
			}
		}
		return true
	})

	a.numeric = map[*scope.Binding]bool{}
	for _, b := range a.tree.Bindings {
		switch b.Kind {
		case scope.BindVar, scope.BindLet, scope.BindConst, scope.BindParam:
			if len(b.Decls) == 1 {
				a.numeric[b] = true
			}
		}
	}

	holds := func(b *scope.Binding) bool {
		for _, v := range assigns[b] {
			if !a.numExpr(v) {
				return false
			}
		}
		if b.Kind == scope.BindParam {
			site, ok := params[b]
			if !ok || escapes[site.fn] {
				return false
			}
			for _, call := range calls[site.fn] {
				if len(call.Args) <= site.index || !a.numExpr(call.Args[site.index]) {
					return false
				}
			}
			return true
		}
		d, ok := b.Decl.(*ast.VarDecl)
		if !ok || d.Init == nil || !a.numExpr(d.Init) {
			return false
		}
		if b.Kind == scope.BindVar && !topLevel[d] {
			return false
		}
		home := a.tree.FuncScope(b.Scope)
		for _, r := range reads[b] {
			if a.tree.FuncScope(a.tree.RefScope[r]) != home || !d.Pos.Before(r.Pos) {
				return false
			}
			if ast.ContainsFunc(d.Init, func(n ast.Node) bool { return n == r }) {
				return false
			}
		}
		return true
	}

	for changed := true; changed; {
		changed = false
		for b := range a.numeric {
			if !holds(b) {
				delete(a.numeric, b)
				changed = true
			}
		}
	}
}
