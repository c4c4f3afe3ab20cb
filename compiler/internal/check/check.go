// Package check enforces the semantic rules that are not plain name
// lookups: immutability, call arity and unused bindings.
package check

import (
	"strings"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

type checker struct {
	tree  *scope.Tree
	diags *diag.Set
}

// Validate checks a resolved program. It never stops at the first problem.
func Validate(prog *ast.Program, tree *scope.Tree) *diag.Set {
	c := &checker{tree: tree, diags: diag.NewSet()}
	ast.Inspect(prog, c.visit)
	c.unused()
	return c.diags
}

// Analyze resolves prog and validates it, returning the merged diagnostics
// (builder findings first).
func Analyze(prog *ast.Program, opts scope.Options) (*scope.Tree, *diag.Set) {
	tree, ds := scope.Build(prog, opts)
	// Parts of an over-deep tree were never resolved.
	if ds.Count(diag.NestingTooDeep) == 0 {
		ds.Merge(Validate(prog, tree))
	}
	return tree, ds
}

func (c *checker) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.Assign:
		c.checkAssign(n)
	case *ast.CallExpr:
		c.checkCall(n)
	}
	return true
}

func (c *checker) checkAssign(a *ast.Assign) {
	b := c.tree.Refs[a.Target]
	if b == nil {
		return // already reported as undeclared
	}
	switch b.Kind {
	case scope.BindConst:
		c.diags.Add(diag.ConstAssignment, diag.Pos(a.Pos), "assignment to constant %q", b.Name)
	case scope.BindBuiltin:
		c.diags.Add(diag.ConstAssignment, diag.Pos(a.Pos), "assignment to builtin %q", b.Name)
	}
}

func (c *checker) checkCall(call *ast.CallExpr) {
	id, ok := call.Callee.(*ast.Ident)
	if !ok {
		return
	}
	b := c.tree.Refs[id]
	if !KnownArity(b) || len(call.Args) == b.Arity {
		return
	}
	c.diags.Add(diag.ArityMismatch, diag.Pos(call.Pos),
		"%s expects %d argument(s), got %d", b.Name, b.Arity, len(call.Args))
}

// KnownArity reports whether calls through b always reach a callee with a
// fixed parameter count: a builtin, or a function declared once and never
// reassigned.
func KnownArity(b *scope.Binding) bool {
	if b == nil {
		return false
	}
	switch b.Kind {
	case scope.BindBuiltin:
		return true
	case scope.BindFunction:
		return len(b.Decls) == 1 && b.Writes == 0
	}
	return false
}

// unused warns about var/let bindings that are never read. Names starting
// with "_" are exempt.
func (c *checker) unused() {
	for _, b := range c.tree.Bindings {
		if b.Kind != scope.BindVar && b.Kind != scope.BindLet {
			continue
		}
		if b.Read || strings.HasPrefix(b.Name, "_") {
			continue
		}
		c.diags.Add(diag.UnusedBinding, diag.Pos(b.Decl.Position()), "%s is declared but never read", b.Name)
	}
}
