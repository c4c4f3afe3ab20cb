package opt

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

// regionPass finds, inside one statement list, a pure expression computed
// more than once with no intervening write to its operands and makes every
// later occurrence reuse the first result. cse and arith differ only in the
// key that decides when two occurrences compute the same value.
type regionPass struct {
	name   string
	prefix string // for synthetic temporaries
	key    func(a *analysis, e ast.Expr) string
	// distinct requires a group to contain two different syntactic forms;
	// identical repeats are left to cse.
	distinct bool
}

func newCSE() *regionPass {
	return &regionPass{name: PassCSE, prefix: "__cse", key: (*analysis).key}
}

func (p *regionPass) Name() string { return p.name }

type occurrence struct {
	expr  ast.Expr
	stmt  int
	order int
}

type group struct {
	key   string
	occs  []*occurrence
	size  int
	reads map[*scope.Binding]bool
}

func (p *regionPass) Apply(prog *ast.Program, a *analysis, _ *diag.Set) []Record {
	var recs []Record
	for _, list := range stmtLists(prog) {
		recs = append(recs, p.region(list, a)...)
	}
	return recs
}

// candidateRoots returns the subtrees of s that are evaluated, without
// side effects, before anything else s does.
func (a *analysis) candidateRoots(s ast.Stmt) []ast.Expr {
	var e ast.Expr
	switch s := s.(type) {
	case *ast.VarDecl:
		e = s.Init
	case *ast.ExprStmt:
		e = s.X
	case *ast.ReturnStmt:
		e = s.Value
	case *ast.IfStmt:
		e = s.Cond
	}
	if e == nil {
		return nil
	}
	return a.pureRoots(e)
}

func (a *analysis) pureRoots(e ast.Expr) []ast.Expr {
	if a.pureExpr(e) {
		return []ast.Expr{e}
	}
	switch x := e.(type) {
	case *ast.Assign:
		return a.pureRoots(x.Value)
	case *ast.CallExpr:
		if _, ok := x.Callee.(*ast.Ident); !ok {
			return nil
		}
		for _, arg := range x.Args {
			if !a.pureExpr(arg) {
				return nil
			}
		}
		return x.Args
	}
	return nil
}

// subexprs lists the non-trivial subexpressions of e in evaluation order.
func subexprs(e ast.Expr) []ast.Expr {
	var out []ast.Expr
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		switch x := e.(type) {
		case *ast.BinaryExpr:
			walk(x.Left)
			walk(x.Right)
		case *ast.UnaryExpr:
			walk(x.X)
		case *ast.CallExpr:
			for _, arg := range x.Args {
				walk(arg)
			}
		default:
			return
		}
		if hasOperand(e) {
			out = append(out, e)
		}
	}
	walk(e)
	return out
}

func (p *regionPass) region(list *[]ast.Stmt, a *analysis) []Record {
	live := map[string]*group{}
	var groups []*group
	order := 0

	for i, s := range *list {
		for _, root := range a.candidateRoots(s) {
			for _, e := range subexprs(root) {
				k := p.key(a, e)
				g := live[k]
				if g == nil {
					g = &group{key: k, size: ast.CountNodes(e), reads: a.refs(e)}
					live[k] = g
					groups = append(groups, g)
				}
				g.occs = append(g.occs, &occurrence{expr: e, stmt: i, order: order})
				order++
			}
		}
		writes, impure := a.effects(s)
		for k, g := range live {
			if killed(g, writes, impure, a) {
				delete(live, k)
			}
		}
	}

	best := p.pick(groups, a)
	if best == nil {
		return nil
	}
	return p.apply(list, best, a)
}

func killed(g *group, writes map[*scope.Binding]bool, impure bool, a *analysis) bool {
	for b := range g.reads {
		if writes[b] || impure && a.closureWritten[b] {
			return true
		}
	}
	return false
}

// pick selects the largest eligible group, earliest first occurrence first.
func (p *regionPass) pick(groups []*group, a *analysis) *group {
	var best *group
	for _, g := range groups {
		if len(g.occs) < 2 {
			continue
		}
		if p.distinct && !hasDistinctForms(g, a) {
			continue
		}
		if best == nil || g.size > best.size {
			best = g
		}
	}
	return best
}

func hasDistinctForms(g *group, a *analysis) bool {
	first := a.key(g.occs[0].expr)
	for _, o := range g.occs[1:] {
		if a.key(o.expr) != first {
			return true
		}
	}
	return false
}

// holder returns the binding name that already stores the first occurrence,
// when that occurrence is the whole initializer of a binding declared once
// and never reassigned.
func holder(list []ast.Stmt, first *occurrence, a *analysis) string {
	d, ok := list[first.stmt].(*ast.VarDecl)
	if !ok || d.Init != first.expr {
		return ""
	}
	b := a.tree.Decls[d]
	if b == nil || len(b.Decls) != 1 || b.Writes != 0 {
		return ""
	}
	return d.Name
}

func (p *regionPass) apply(list *[]ast.Stmt, g *group, a *analysis) []Record {
	first := g.occs[0]
	name := holder(*list, first, a)
	replace := g.occs[1:]
	var temp *ast.VarDecl
	if name == "" {
		name = a.fresh(p.prefix)
		at := (*list)[first.stmt].Position()
		temp = &ast.VarDecl{Pos: at, Kind: ast.Const, Name: name, Init: ast.CloneExpr(first.expr)}
		replace = g.occs
	}

	var recs []Record
	repl := map[ast.Expr]ast.Expr{}
	for _, o := range replace {
		id := &ast.Ident{Pos: o.expr.Position(), Name: name}
		repl[o.expr] = id
		recs = append(recs, record(p.name, o.expr, id))
	}
	for _, o := range replace {
		rewriteOwnExprs((*list)[o.stmt], func(e ast.Expr) ast.Expr {
			if r, ok := repl[e]; ok {
				return r
			}
			return e
		})
	}
	if temp != nil {
		out := make([]ast.Stmt, 0, len(*list)+1)
		out = append(out, (*list)[:first.stmt]...)
		out = append(out, temp)
		out = append(out, (*list)[first.stmt:]...)
		*list = out
	}
	return recs
}
