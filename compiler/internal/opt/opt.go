// Package opt rewrites a validated program into a smaller, equivalent one.
//
// Passes run in a fixed order (fold, cse, arith, dse, inline). Each pass
// iterates to a local fixed point bounded by Options.MaxIterations. Every
// iteration works on a fresh clone of the tree and a fresh scope analysis
// of that clone; the input tree is never modified.
package opt

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/check"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

// Pass names, in execution order.
const (
	PassFold   = "fold"
	PassCSE    = "cse"
	PassArith  = "arith"
	PassDSE    = "dse"
	PassInline = "inline"
)

// PassNames lists every pass in the order the optimizer runs them.
var PassNames = []string{PassFold, PassCSE, PassArith, PassDSE, PassInline}

type Options struct {
	MaxIterations  int      // per pass; <= 0 selects 8
	InlineMaxNodes int      // callee body size limit; <= 0 selects 24
	InlineMaxStmts int      // callee statement limit; <= 0 selects 2
	Passes         []string // subset of PassNames; empty runs all
	MaxDepth       int      // forwarded to scope resolution
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 8
	}
	if o.InlineMaxNodes <= 0 {
		o.InlineMaxNodes = 24
	}
	if o.InlineMaxStmts <= 0 {
		o.InlineMaxStmts = 2
	}
	return o
}

// Record is one rewrite: the subtree before and after. Either side may be
// nil when a statement was removed or inserted.
type Record struct {
	Pass   string
	Pos    ast.Pos
	Before ast.Node
	After  ast.Node
}

func (r Record) String() string {
	return fmt.Sprintf("%d:%d %s: %s => %s", r.Pos.Line, r.Pos.Col, r.Pass, nodeText(r.Before), nodeText(r.After))
}

func nodeText(n ast.Node) string {
	if n == nil {
		return "∅"
	}
	return ast.NodeString(n)
}

type Result struct {
	Tree     *ast.Program
	Log      []Record
	Warnings *diag.Set
	// Aborted is set when the optimized tree failed the final consistency
	// check; Tree is then the input tree and Log is empty.
	Aborted bool
}

// pass is one rewrite strategy. Apply mutates prog, a private clone, and
// returns a record per rewrite; no records means the fixed point is reached.
type pass interface {
	Name() string
	Apply(prog *ast.Program, a *analysis, warn *diag.Set) []Record
}

type Optimizer struct {
	opts   Options
	passes []pass
	logger *slog.Logger
}

// New builds an optimizer. A nil logger discards output.
func New(opts Options, logger *slog.Logger) (*Optimizer, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	all := map[string]pass{
		PassFold:   foldPass{},
		PassCSE:    newCSE(),
		PassArith:  newArith(),
		PassDSE:    dsePass{},
		PassInline: inlinePass{maxNodes: opts.InlineMaxNodes, maxStmts: opts.InlineMaxStmts},
	}
	enabled := map[string]bool{}
	for _, name := range opts.Passes {
		if _, ok := all[name]; !ok {
			return nil, fmt.Errorf("unknown optimizer pass %q", name)
		}
		enabled[name] = true
	}
	o := &Optimizer{opts: opts, logger: logger}
	for _, name := range PassNames {
		if len(enabled) == 0 || enabled[name] {
			o.passes = append(o.passes, all[name])
		}
	}
	return o, nil
}

// Run optimizes prog, which must be free of Error diagnostics.
func (o *Optimizer) Run(prog *ast.Program) Result {
	warn := diag.NewSet()
	if !o.consistent(prog) {
		o.logger.Warn("input has errors; optimizer skipped")
		return Result{Tree: prog, Warnings: warn, Aborted: true}
	}

	cur := prog
	var log []Record
	for _, p := range o.passes {
		next, recs, pw, err := o.runPass(p, cur)
		if err != nil {
			o.logger.Warn("pass discarded", "pass", p.Name(), "err", err)
			continue
		}
		cur = next
		log = append(log, recs...)
		warn.Merge(pw)
	}

	if !o.consistent(cur) {
		o.logger.Warn("optimized tree failed final check; keeping input")
		return Result{Tree: prog, Warnings: diag.NewSet(), Aborted: true}
	}
	return Result{Tree: cur, Log: log, Warnings: warn}
}

// runPass iterates p to a fixed point. Any failed iteration discards the
// whole pass.
func (o *Optimizer) runPass(p pass, in *ast.Program) (out *ast.Program, log []Record, warn *diag.Set, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, log, warn, err = nil, nil, nil, fmt.Errorf("panic: %v", r)
		}
	}()
	warn = diag.NewSet()
	cur := in
	for i := 1; i <= o.opts.MaxIterations; i++ {
		work := ast.CloneProgram(cur)
		tree, _ := scope.Build(work, scope.Options{MaxDepth: o.opts.MaxDepth})
		recs := p.Apply(work, analyze(work, tree), warn)
		o.logger.Debug("pass iteration", "pass", p.Name(), "iteration", i, "records", len(recs))
		if len(recs) == 0 {
			break
		}
		if !o.consistent(work) {
			return nil, nil, nil, fmt.Errorf("iteration %d produced an invalid tree", i)
		}
		cur = work
		log = append(log, recs...)
	}
	return cur, log, warn, nil
}

func (o *Optimizer) consistent(prog *ast.Program) bool {
	_, ds := check.Analyze(prog, scope.Options{MaxDepth: o.opts.MaxDepth})
	return !ds.HasErrors()
}

func record(pass string, before, after ast.Node) Record {
	r := Record{Pass: pass, Before: cloneNode(before), After: cloneNode(after)}
	switch {
	case before != nil:
		r.Pos = before.Position()
	case after != nil:
		r.Pos = after.Position()
	}
	return r
}

func cloneNode(n ast.Node) ast.Node {
	switch n := n.(type) {
	case nil:
		return nil
	case ast.Expr:
		return ast.CloneExpr(n)
	case ast.Stmt:
		return ast.CloneStmt(n)
	}
	return n
}
