package opt

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

// inlinePass replaces calls to small non-recursive functions that reduce to
// one returned expression with that expression, parameters substituted.
type inlinePass struct {
	maxNodes int
	maxStmts int
}

func (inlinePass) Name() string { return PassInline }

// inlinee is a callee body captured as a private template, so rewrites made
// elsewhere in the same iteration never alias it.
type inlinee struct {
	params []string
	tmpl   ast.Expr
	slots  map[*ast.Ident]int // template identifiers standing for a parameter
	uses   []int
	free   map[string]*scope.Binding
	pure   bool
}

func (p inlinePass) Apply(prog *ast.Program, a *analysis, _ *diag.Set) []Record {
	cands := map[*scope.Binding]*inlinee{}
	for b, fn := range a.funcs {
		if in := p.candidate(b, fn, a); in != nil {
			cands[b] = in
		}
	}
	if len(cands) == 0 {
		return nil
	}
	var recs []Record
	for _, list := range stmtLists(prog) {
		recs = append(recs, inlineList(list, cands, a)...)
	}
	return recs
}

func (p inlinePass) candidate(b *scope.Binding, fn *ast.FuncDecl, a *analysis) *inlinee {
	if fn.Body == nil || len(fn.Body.Stmts) > p.maxStmts || ast.CountNodes(fn.Body) > p.maxNodes {
		return nil
	}
	e := returned(fn.Body.Stmts, a)
	if e == nil || a.reaches(b, b) || ast.ContainsFunc(e, isAssign) {
		return nil
	}

	index := map[*scope.Binding]int{}
	in := &inlinee{
		slots: map[*ast.Ident]int{},
		uses:  make([]int, len(fn.Params)),
		free:  map[string]*scope.Binding{},
		pure:  a.pureExpr(e),
	}
	for i, prm := range fn.Params {
		in.params = append(in.params, prm.Name)
		if pb := a.tree.Decls[prm]; pb != nil {
			index[pb] = i
		}
	}

	ok := true
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.CallExpr:
			id, isIdent := n.Callee.(*ast.Ident)
			if !isIdent {
				ok = false
			} else if _, isParam := index[a.ref(id)]; isParam {
				ok = false
			}
		case *ast.Ident:
			r := a.ref(n)
			if _, isParam := index[r]; isParam {
				break
			}
			if r == nil || !(r.Kind == scope.BindBuiltin || r.Kind == scope.BindConst || a.funcs[r] != nil) {
				ok = false
				break
			}
			in.free[n.Name] = r
		}
		return ok
	})
	if !ok {
		return nil
	}
	in.tmpl = in.capture(e, index, a)
	return in
}

// returned extracts E from a body of the form `return E` or
// `decl v = E; return v`.
func returned(stmts []ast.Stmt, a *analysis) ast.Expr {
	switch len(stmts) {
	case 1:
		if r, ok := stmts[0].(*ast.ReturnStmt); ok {
			return r.Value
		}
	case 2:
		d, ok1 := stmts[0].(*ast.VarDecl)
		r, ok2 := stmts[1].(*ast.ReturnStmt)
		if !ok1 || !ok2 || d.Init == nil {
			return nil
		}
		id, ok := r.Value.(*ast.Ident)
		b := a.tree.Decls[d]
		if !ok || b == nil || a.ref(id) != b || len(b.Decls) != 1 || b.Writes != 0 {
			return nil
		}
		if ast.ContainsFunc(d.Init, func(n ast.Node) bool {
			m, ok := n.(*ast.Ident)
			return ok && a.ref(m) == b
		}) {
			return nil
		}
		return d.Init
	}
	return nil
}

func isAssign(n ast.Node) bool {
	_, ok := n.(*ast.Assign)
	return ok
}

func (in *inlinee) capture(e ast.Expr, index map[*scope.Binding]int, a *analysis) ast.Expr {
	switch x := e.(type) {
	case *ast.Ident:
		id := &ast.Ident{Pos: x.Pos, Name: x.Name}
		if i, ok := index[a.ref(x)]; ok {
			in.slots[id] = i
			in.uses[i]++
		}
		return id
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Pos: x.Pos, Op: x.Op, Left: in.capture(x.Left, index, a), Right: in.capture(x.Right, index, a)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Pos: x.Pos, Op: x.Op, X: in.capture(x.X, index, a)}
	case *ast.CallExpr:
		call := &ast.CallExpr{Pos: x.Pos, Callee: in.capture(x.Callee, index, a)}
		for _, arg := range x.Args {
			call.Args = append(call.Args, in.capture(arg, index, a))
		}
		return call
	}
	return ast.CloneExpr(e)
}

// instantiate builds a fresh copy of the template at the call position
// with every parameter slot replaced by a copy of its argument.
func (in *inlinee) instantiate(e ast.Expr, args []ast.Expr, at ast.Pos) ast.Expr {
	switch x := e.(type) {
	case *ast.Ident:
		if i, ok := in.slots[x]; ok {
			return ast.CloneExpr(args[i])
		}
		return &ast.Ident{Pos: at, Name: x.Name}
	case *ast.Literal:
		return &ast.Literal{Pos: at, Value: x.Value}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Pos: at, Op: x.Op, Left: in.instantiate(x.Left, args, at), Right: in.instantiate(x.Right, args, at)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Pos: at, Op: x.Op, X: in.instantiate(x.X, args, at)}
	case *ast.CallExpr:
		call := &ast.CallExpr{Pos: at, Callee: in.instantiate(x.Callee, args, at)}
		for _, arg := range x.Args {
			call.Args = append(call.Args, in.instantiate(arg, args, at))
		}
		return call
	}
	return ast.CloneExpr(e)
}

// fits reports whether the body can be placed at the call site: same
// arity, every free name still denotes the same binding there, and no
// parameter name is visible there.
func (in *inlinee) fits(call *ast.CallExpr, callee *ast.Ident, a *analysis) bool {
	if len(call.Args) != len(in.params) {
		return false
	}
	site := a.tree.RefScope[callee]
	for name, b := range in.free {
		if a.tree.Lookup(site, name) != b {
			return false
		}
	}
	for _, name := range in.params {
		if a.tree.Lookup(site, name) != nil {
			return false
		}
	}
	return true
}

// direct reports whether arguments may be substituted in place: each is
// evaluated exactly as often, and in the same order relative to effects,
// as in the call.
func (in *inlinee) direct(args []ast.Expr, a *analysis) bool {
	for i, arg := range args {
		_, lit := arg.(*ast.Literal)
		if !lit && !(in.pure && a.pureExpr(arg)) {
			return false
		}
		if in.uses[i] > 1 && !isTrivial(arg) {
			return false
		}
	}
	return true
}

// rootCall returns the call that s evaluates last, when nothing else in s
// runs before its arguments.
func rootCall(s ast.Stmt) *ast.CallExpr {
	var e ast.Expr
	switch s := s.(type) {
	case *ast.VarDecl:
		e = s.Init
	case *ast.ExprStmt:
		e = s.X
		if as, ok := e.(*ast.Assign); ok {
			e = as.Value
		}
	case *ast.ReturnStmt:
		e = s.Value
	}
	call, _ := e.(*ast.CallExpr)
	return call
}

func inlineList(list *[]ast.Stmt, cands map[*scope.Binding]*inlinee, a *analysis) []Record {
	var recs []Record
	out := make([]ast.Stmt, 0, len(*list))
	for _, s := range *list {
		root := rootCall(s)
		var pre []ast.Stmt
		rewriteOwnExprs(s, func(e ast.Expr) ast.Expr {
			call, ok := e.(*ast.CallExpr)
			if !ok {
				return e
			}
			id, _ := call.Callee.(*ast.Ident)
			in := cands[a.ref(id)]
			if in == nil || !in.fits(call, id, a) {
				return e
			}
			args := call.Args
			if !in.direct(args, a) {
				if call != root {
					return e
				}
				// Evaluate every argument once, left to right, ahead of the body.
				args = make([]ast.Expr, len(call.Args))
				for i, arg := range call.Args {
					name := a.fresh("__inl")
					d := &ast.VarDecl{Pos: s.Position(), Kind: ast.Const, Name: name, Init: arg}
					pre = append(pre, d)
					recs = append(recs, record(PassInline, nil, d))
					args[i] = &ast.Ident{Pos: arg.Position(), Name: name}
				}
			}
			body := in.instantiate(in.tmpl, args, call.Pos)
			recs = append(recs, record(PassInline, call, body))
			return body
		})
		out = append(out, pre...)
		out = append(out, s)
	}
	*list = out
	return recs
}
