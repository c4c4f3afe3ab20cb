package opt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/check"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

// analysis is the lightweight per-iteration view of one tree: known
// functions, which of them are pure, and which bindings may change behind
// a call.
type analysis struct {
	prog *ast.Program
	tree *scope.Tree

	// funcs maps a function binding declared once and never reassigned to
	// its declaration.
	funcs map[*scope.Binding]*ast.FuncDecl
	// pure holds functions whose calls terminate, have no side effects and
	// depend only on their arguments and immutable bindings.
	pure map[*scope.Binding]bool
	// closureWritten holds bindings assigned from a function other than the
	// one that declares them.
	closureWritten map[*scope.Binding]bool

	// numeric is computed on first use by numericBindings.
	numeric map[*scope.Binding]bool

	ids   map[*scope.Binding]int
	names map[string]bool
	next  int
}

func analyze(prog *ast.Program, tree *scope.Tree) *analysis {
	a := &analysis{
		prog:           prog,
		tree:           tree,
		funcs:          map[*scope.Binding]*ast.FuncDecl{},
		pure:           map[*scope.Binding]bool{},
		closureWritten: map[*scope.Binding]bool{},
		ids:            map[*scope.Binding]int{},
		names:          map[string]bool{},
	}
	for _, b := range tree.Bindings {
		a.ids[b] = len(a.ids)
		a.names[b.Name] = true
		if b.Kind == scope.BindFunction && check.KnownArity(b) {
			a.funcs[b] = b.Func
		}
	}
	ast.Inspect(prog, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			a.names[n.Name] = true
		case *ast.Assign:
			b := tree.Refs[n.Target]
			if b == nil || b.Scope == scope.NoScope {
				break
			}
			if tree.FuncScope(tree.RefScope[n.Target]) != tree.FuncScope(b.Scope) {
				a.closureWritten[b] = true
			}
		}
		return true
	})

	// Least fixed point: recursion never becomes pure.
	for changed := true; changed; {
		changed = false
		for b, fn := range a.funcs {
			if !a.pure[b] && a.pureBody(fn) {
				a.pure[b] = true
				changed = true
			}
		}
	}
	return a
}

func (a *analysis) ref(id *ast.Ident) *scope.Binding { return a.tree.Refs[id] }

// pureCall reports whether call has no effect beyond computing its value.
// Arguments are not inspected.
func (a *analysis) pureCall(call *ast.CallExpr) bool {
	id, ok := call.Callee.(*ast.Ident)
	if !ok {
		return false
	}
	b := a.ref(id)
	if b == nil {
		return false
	}
	if b.Kind == scope.BindBuiltin {
		return b.Pure && len(call.Args) == b.Arity
	}
	return a.pure[b]
}

func (a *analysis) pureExpr(e ast.Expr) bool {
	if e == nil {
		return true
	}
	ok := true
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Assign:
			ok = false
		case *ast.CallExpr:
			if !a.pureCall(n) {
				ok = false
			}
		}
		return ok
	})
	return ok
}

func (a *analysis) pureBody(fn *ast.FuncDecl) bool {
	fs, found := a.tree.NodeScope[fn]
	if !found || fn.Body == nil {
		return false
	}
	local := func(b *scope.Binding) bool { return a.tree.IsAncestor(fs, b.Scope) }
	ok := true
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.WhileStmt, *ast.ForStmt, *ast.FuncDecl:
			ok = false
		case *ast.Assign:
			if b := a.ref(n.Target); b == nil || !local(b) {
				ok = false
			}
		case *ast.Ident:
			b := a.ref(n)
			switch {
			case b == nil:
				ok = false
			case b.Kind == scope.BindBuiltin, b.Kind == scope.BindConst, a.funcs[b] != nil:
			case !local(b):
				ok = false
			}
		case *ast.CallExpr:
			if !a.pureCall(n) {
				ok = false
			}
		}
		return ok
	})
	return ok
}

// refs returns the bindings read or written inside e.
func (a *analysis) refs(e ast.Node) map[*scope.Binding]bool {
	out := map[*scope.Binding]bool{}
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if b := a.ref(id); b != nil {
				out[b] = true
			}
		}
		return true
	})
	return out
}

// effects summarizes what executing s may change: the bindings it writes
// or declares, and whether it calls anything impure. Nested function bodies
// do not run at their declaration and are skipped.
func (a *analysis) effects(s ast.Stmt) (writes map[*scope.Binding]bool, impure bool) {
	writes = map[*scope.Binding]bool{}
	if _, isFn := s.(*ast.FuncDecl); isFn {
		return writes, false
	}
	ast.Inspect(s, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			return false
		case *ast.VarDecl:
			if b := a.tree.Decls[n]; b != nil {
				writes[b] = true
			}
		case *ast.Assign:
			if b := a.ref(n.Target); b != nil {
				writes[b] = true
			}
		case *ast.CallExpr:
			if !a.pureCall(n) {
				impure = true
			}
		}
		return true
	})
	return writes, impure
}

// key is the structural key of e with every identifier qualified by the
// binding it resolves to.
func (a *analysis) key(e ast.Expr) string {
	var b strings.Builder
	a.writeKey(&b, e)
	return b.String()
}

func (a *analysis) identKey(id *ast.Ident) string {
	b := a.ref(id)
	if b == nil || b.Kind == scope.BindBuiltin {
		return "$" + id.Name
	}
	return "$" + id.Name + "#" + strconv.Itoa(a.ids[b])
}

func (a *analysis) writeKey(b *strings.Builder, e ast.Expr) {
	switch v := e.(type) {
	case *ast.Ident:
		b.WriteString(a.identKey(v))
	case *ast.UnaryExpr:
		b.WriteString("(u" + v.Op + " ")
		a.writeKey(b, v.X)
		b.WriteByte(')')
	case *ast.BinaryExpr:
		b.WriteString("(" + v.Op + " ")
		a.writeKey(b, v.Left)
		b.WriteByte(' ')
		a.writeKey(b, v.Right)
		b.WriteByte(')')
	case *ast.CallExpr:
		b.WriteString("(call ")
		a.writeKey(b, v.Callee)
		for _, arg := range v.Args {
			b.WriteByte(' ')
			a.writeKey(b, arg)
		}
		b.WriteByte(')')
	default:
		b.WriteString(ast.Key(e))
	}
}

// fresh returns a name not used anywhere in the program.
func (a *analysis) fresh(prefix string) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, a.next)
		a.next++
		if !a.names[name] && !scope.IsBuiltin(name) {
			a.names[name] = true
			return name
		}
	}
}

// reaches reports whether from can lead to a call of to through references
// between known functions.
func (a *analysis) reaches(from, to *scope.Binding) bool {
	seen := map[*scope.Binding]bool{}
	var walk func(b *scope.Binding) bool
	walk = func(b *scope.Binding) bool {
		fn := a.funcs[b]
		if fn == nil || seen[b] {
			return false
		}
		seen[b] = true
		found := false
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if found {
				return false
			}
			if id, ok := n.(*ast.Ident); ok {
				if c := a.ref(id); c == to || walk(c) {
					found = true
				}
			}
			return !found
		})
		return found
	}
	return walk(from)
}

/* ---------- tree plumbing ---------- */

// stmtLists returns every statement list in prog, including function
// bodies and nested blocks.
func stmtLists(prog *ast.Program) []*[]ast.Stmt {
	out := []*[]ast.Stmt{&prog.Body}
	ast.Inspect(prog, func(n ast.Node) bool {
		if blk, ok := n.(*ast.Block); ok && blk != nil {
			out = append(out, &blk.Stmts)
		}
		return true
	})
	return out
}

// rewriteExpr rebuilds e bottom-up: every subexpression is replaced by f's
// result after its own children were rewritten.
func rewriteExpr(e ast.Expr, f func(ast.Expr) ast.Expr) ast.Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *ast.Assign:
		x.Value = rewriteExpr(x.Value, f)
	case *ast.BinaryExpr:
		x.Left = rewriteExpr(x.Left, f)
		x.Right = rewriteExpr(x.Right, f)
	case *ast.UnaryExpr:
		x.X = rewriteExpr(x.X, f)
	case *ast.CallExpr:
		x.Callee = rewriteExpr(x.Callee, f)
		for i, arg := range x.Args {
			x.Args[i] = rewriteExpr(arg, f)
		}
	}
	return f(e)
}

// rewriteOwnExprs applies rewriteExpr to the expressions that belong to s
// itself, not to statements nested in it.
func rewriteOwnExprs(s ast.Stmt, f func(ast.Expr) ast.Expr) {
	switch s := s.(type) {
	case *ast.VarDecl:
		s.Init = rewriteExpr(s.Init, f)
	case *ast.ExprStmt:
		s.X = rewriteExpr(s.X, f)
	case *ast.ReturnStmt:
		s.Value = rewriteExpr(s.Value, f)
	case *ast.IfStmt:
		s.Cond = rewriteExpr(s.Cond, f)
	case *ast.WhileStmt:
		s.Cond = rewriteExpr(s.Cond, f)
	case *ast.ForStmt:
		if s.Init != nil {
			rewriteOwnExprs(s.Init, f)
		}
		s.Cond = rewriteExpr(s.Cond, f)
		s.Post = rewriteExpr(s.Post, f)
	}
}

// rewriteAllExprs applies rewriteExpr to every expression of prog.
func rewriteAllExprs(prog *ast.Program, f func(ast.Expr) ast.Expr) {
	var stmts func(list []ast.Stmt)
	var stmt func(s ast.Stmt)
	stmts = func(list []ast.Stmt) {
		for _, s := range list {
			stmt(s)
		}
	}
	stmt = func(s ast.Stmt) {
		rewriteOwnExprs(s, f)
		switch s := s.(type) {
		case *ast.FuncDecl:
			if s.Body != nil {
				stmts(s.Body.Stmts)
			}
		case *ast.Block:
			stmts(s.Stmts)
		case *ast.IfStmt:
			if s.Then != nil {
				stmts(s.Then.Stmts)
			}
			if s.Else != nil {
				stmt(s.Else)
			}
		case *ast.WhileStmt:
			if s.Body != nil {
				stmts(s.Body.Stmts)
			}
		case *ast.ForStmt:
			if s.Body != nil {
				stmts(s.Body.Stmts)
			}
		}
	}
	stmts(prog.Body)
}

func isTrivial(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.Literal:
		return true
	}
	return false
}

// hasOperand reports whether e mentions an identifier or a call, i.e. is
// not built from literals alone.
func hasOperand(e ast.Expr) bool {
	return ast.ContainsFunc(e, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Ident, *ast.CallExpr:
			return true
		}
		return false
	})
}
