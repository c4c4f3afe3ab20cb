package scope

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
)

// DefaultMaxDepth bounds statement/expression nesting during resolution.
const DefaultMaxDepth = 512

type Options struct {
	MaxDepth int // <= 0 selects DefaultMaxDepth
}

type pending struct {
	fn    *ast.FuncDecl
	scope ScopeID
	depth int
}

type builder struct {
	t     *Tree
	diags *diag.Set

	cur      ScopeID
	depth    int
	maxDepth int
	tooDeep  bool

	// Function bodies are resolved after the enclosing text is fully declared.
	queue []pending

	// passThrough records, per block-scope owner, the hoisted names declared
	// inside it.
	passThrough map[ast.Node]map[string]ast.Node
}

// Build resolves prog. Diagnostics never stop the walk; the returned set
// holds every problem found.
func Build(prog *ast.Program, opts Options) (*Tree, *diag.Set) {
	b := &builder{
		t:           newTree(),
		diags:       diag.NewSet(),
		maxDepth:    opts.MaxDepth,
		passThrough: map[ast.Node]map[string]ast.Node{},
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxDepth
	}
	g := b.t.newScope(Global, NoScope, prog)
	b.hoist(prog.Body, g)
	b.cur = g.ID
	b.stmts(prog.Body)

	for len(b.queue) > 0 {
		p := b.queue[0]
		b.queue = b.queue[1:]
		b.cur, b.depth = p.scope, p.depth
		b.stmts(p.fn.Body.Stmts)
	}
	return b.t, b.diags
}

func at(n ast.Node) diag.Pos { return diag.Pos(n.Position()) }

/* ---------- hoisting ---------- */

// hoist declares every var and function declaration of a function (or the
// program) in fs before any reference in it is resolved. Nested function
// bodies are not entered.
func (b *builder) hoist(stmts []ast.Stmt, fs *Scope) {
	var path []ast.Node
	var walk func(s ast.Stmt, depth int)
	inBlock := func(owner ast.Node, blk *ast.Block, depth int) {
		if blk == nil {
			return
		}
		path = push(path, owner)
		for _, s := range blk.Stmts {
			walk(s, depth+1)
		}
		path = pop(path)
	}
	walk = func(s ast.Stmt, depth int) {
		if depth > b.maxDepth {
			return
		}
		switch s := s.(type) {
		case *ast.VarDecl:
			if s.Kind == ast.Var {
				b.declareHoisted(fs, s.Name, s, BindVar, nil, path)
			}
		case *ast.FuncDecl:
			b.declareHoisted(fs, s.Name, s, BindFunction, s, path)
		case *ast.Block:
			inBlock(s, s, depth)
		case *ast.IfStmt:
			inBlock(s.Then, s.Then, depth)
			if s.Else != nil {
				walk(s.Else, depth+1)
			}
		case *ast.WhileStmt:
			inBlock(s.Body, s.Body, depth)
		case *ast.ForStmt:
			path = push[ast.Node](path, s)
			if s.Init != nil {
				walk(s.Init, depth+1)
			}
			inBlock(s.Body, s.Body, depth+1)
			path = pop(path)
		}
	}
	for _, s := range stmts {
		walk(s, 1)
	}
}

func (b *builder) declareHoisted(fs *Scope, name string, decl ast.Node, kind BindKind, fn *ast.FuncDecl, path []ast.Node) {
	for _, owner := range path {
		names := b.passThrough[owner]
		if names == nil {
			names = map[string]ast.Node{}
			b.passThrough[owner] = names
		}
		if _, ok := names[name]; !ok {
			names[name] = decl
		}
	}

	// Repeated var/function declarations share one binding.
	if prev := fs.names[name]; prev != nil {
		prev.Decls = append(prev.Decls, decl)
		if fn != nil && prev.Kind == BindFunction {
			prev.Func = fn
			prev.Arity = len(fn.Params)
		}
		b.t.Decls[decl] = prev
		return
	}
	bd := &Binding{
		Name:    name,
		Kind:    kind,
		Mutable: true,
		Decl:    decl,
		Decls:   []ast.Node{decl},
		Scope:   fs.ID,
		Arity:   -1,
		Func:    fn,
	}
	if fn != nil {
		bd.Arity = len(fn.Params)
	}
	fs.define(bd)
	b.t.Bindings = append(b.t.Bindings, bd)
	b.t.Decls[decl] = bd
}

/* ---------- declarations ---------- */

func (b *builder) declareLexical(s *ast.VarDecl) {
	sc := b.t.Scopes[b.cur]
	if prev := sc.names[s.Name]; prev != nil {
		b.redeclared(s, prev.Decl)
		b.t.Decls[s] = prev
		return
	}
	if sc.Kind == Block {
		if v := b.passThrough[sc.Owner][s.Name]; v != nil {
			b.redeclared(s, v)
		}
	}
	bd := &Binding{
		Name:    s.Name,
		Kind:    bindKindOf(s.Kind),
		Mutable: s.Kind != ast.Const,
		Decl:    s,
		Decls:   []ast.Node{s},
		Scope:   sc.ID,
		Arity:   -1,
	}
	sc.define(bd)
	b.t.Bindings = append(b.t.Bindings, bd)
	b.t.Decls[s] = bd
}

// redeclared reports a clash between two declarations at the textually
// later of the two.
func (b *builder) redeclared(s *ast.VarDecl, other ast.Node) {
	pos := s.Pos
	if p := other.Position(); pos.Before(p) {
		pos = p
	}
	b.diags.Add(diag.Redeclaration, diag.Pos(pos), "redeclaration of %q", s.Name)
}

func (b *builder) params(fs *Scope, fn *ast.FuncDecl) {
	for _, p := range fn.Params {
		if prev := fs.names[p.Name]; prev != nil {
			b.diags.Add(diag.Redeclaration, at(p), "duplicate parameter %q", p.Name)
			b.t.Decls[p] = prev
			continue
		}
		bd := &Binding{
			Name:    p.Name,
			Kind:    BindParam,
			Mutable: true,
			Decl:    p,
			Decls:   []ast.Node{p},
			Scope:   fs.ID,
			Arity:   -1,
		}
		fs.define(bd)
		b.t.Bindings = append(b.t.Bindings, bd)
		b.t.Decls[p] = bd
	}
}

/* ---------- walk ---------- */

func (b *builder) enter(n ast.Node) bool {
	b.depth++
	if b.depth <= b.maxDepth {
		return true
	}
	if !b.tooDeep {
		b.tooDeep = true
		b.diags.Add(diag.NestingTooDeep, at(n), "nesting exceeds the limit of %d", b.maxDepth)
	}
	return false
}

func (b *builder) leave() { b.depth-- }

func (b *builder) stmts(list []ast.Stmt) {
	for _, s := range list {
		b.stmt(s)
	}
}

func (b *builder) block(blk *ast.Block) {
	if blk == nil {
		return
	}
	saved := b.cur
	b.cur = b.t.newScope(Block, saved, blk).ID
	b.stmts(blk.Stmts)
	b.cur = saved
}

func (b *builder) stmt(s ast.Stmt) {
	defer b.leave()
	if !b.enter(s) {
		return
	}
	switch s := s.(type) {
	case *ast.VarDecl:
		if s.Init != nil {
			b.expr(s.Init)
		}
		if s.Kind != ast.Var {
			b.declareLexical(s)
		}
		if s.Kind == ast.Const && s.Init == nil {
			b.diags.Add(diag.MissingInitializer, at(s), "missing initializer in const declaration %q", s.Name)
		}
	case *ast.FuncDecl:
		fs := b.t.newScope(Function, b.cur, s)
		b.params(fs, s)
		if s.Body != nil {
			b.t.NodeScope[s.Body] = fs.ID
			b.hoist(s.Body.Stmts, fs)
			b.queue = append(b.queue, pending{fn: s, scope: fs.ID, depth: b.depth})
		}
	case *ast.Block:
		b.block(s)
	case *ast.IfStmt:
		b.expr(s.Cond)
		b.block(s.Then)
		if s.Else != nil {
			b.stmt(s.Else)
		}
	case *ast.WhileStmt:
		b.expr(s.Cond)
		b.block(s.Body)
	case *ast.ForStmt:
		saved := b.cur
		b.cur = b.t.newScope(Block, saved, s).ID
		if s.Init != nil {
			b.stmt(s.Init)
		}
		b.expr(s.Cond)
		b.expr(s.Post)
		b.block(s.Body)
		b.cur = saved
	case *ast.ReturnStmt:
		if b.t.Scopes[b.t.Scopes[b.cur].Hoist].Kind == Global {
			b.diags.Add(diag.IllegalReturn, at(s), "return outside of a function")
		}
		b.expr(s.Value)
	case *ast.ExprStmt:
		b.expr(s.X)
	}
}

func (b *builder) expr(e ast.Expr) {
	if e == nil {
		return
	}
	defer b.leave()
	if !b.enter(e) {
		return
	}
	switch e := e.(type) {
	case *ast.Ident:
		b.ref(e, false)
	case *ast.Assign:
		b.ref(e.Target, true)
		b.expr(e.Value)
	case *ast.BinaryExpr:
		b.expr(e.Left)
		b.expr(e.Right)
	case *ast.UnaryExpr:
		b.expr(e.X)
	case *ast.CallExpr:
		b.expr(e.Callee)
		for _, a := range e.Args {
			b.expr(a)
		}
	}
}

func (b *builder) ref(id *ast.Ident, write bool) {
	b.t.RefScope[id] = b.cur
	bd := b.t.Lookup(b.cur, id.Name)
	if bd == nil {
		b.diags.Add(diag.UndeclaredVariable, at(id), "%s is not declared", id.Name)
		return
	}
	b.t.Refs[id] = bd
	if write {
		bd.Writes++
		return
	}
	bd.Read = true
	bd.Reads++
}

// tiny generic stack helpers
func push[T any](s []T, v T) []T { return append(s, v) }
func pop[T any](s []T) []T       { return s[:len(s)-1] }
