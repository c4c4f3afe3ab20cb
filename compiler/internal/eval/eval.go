// Package eval is a small tree-walking interpreter used to check that
// optimized programs behave like their input. It follows the language's
// hoisting and block-scoping rules but is not a complete runtime.
package eval

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/value"
)

var (
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrNotCallable = errors.New("value is not callable")
	ErrUndeclared  = errors.New("undeclared identifier")
)

const defaultMaxSteps = 1_000_000

type Options struct {
	MaxSteps int      // <= 0 selects 1e6
	Input    []string // successive results of input()
}

// Result is everything a run makes observable: the side-effecting builtin
// calls in order.
type Result struct {
	Trace []string
	Steps int
}

// Run executes prog. Runtime failures are returned as errors wrapping one
// of the package sentinels, together with the trace up to the failure.
func Run(prog *ast.Program, opts Options) (Result, error) {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	in := &interp{opts: opts}
	root := newEnv(nil)
	for _, name := range builtinNames {
		root.define(name, obj{builtin: name})
	}
	global := newEnv(root)
	in.hoist(prog.Body, global)
	_, _, err := in.stmts(prog.Body, global)
	return Result{Trace: in.trace, Steps: in.steps}, err
}

// obj is a runtime value: a literal value, a closure or a builtin.
type obj struct {
	v       value.Value
	fn      *closure
	builtin string
}

type closure struct {
	decl *ast.FuncDecl
	env  *env
}

func (o obj) prim() value.Value {
	switch {
	case o.fn != nil:
		return value.Str("function " + o.fn.decl.Name)
	case o.builtin != "":
		return value.Str("function " + o.builtin)
	}
	return o.v
}

type env struct {
	vars   map[string]*obj
	parent *env
}

func newEnv(parent *env) *env { return &env{vars: map[string]*obj{}, parent: parent} }

func (e *env) define(name string, o obj) { e.vars[name] = &o }

func (e *env) lookup(name string) *obj {
	for cur := e; cur != nil; cur = cur.parent {
		if o, ok := cur.vars[name]; ok {
			return o
		}
	}
	return nil
}

type interp struct {
	opts  Options
	trace []string
	steps int
	input int
}

func (in *interp) step() error {
	in.steps++
	if in.steps > in.opts.MaxSteps {
		return ErrStepLimit
	}
	return nil
}

// hoist declares the var names of a function body as undefined and binds
// its top-level function declarations. Block-level functions get their
// name here and their closure when the block is entered.
func (in *interp) hoist(body []ast.Stmt, e *env) {
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.VarDecl:
				if n.Kind == ast.Var {
					if _, ok := e.vars[n.Name]; !ok {
						e.define(n.Name, obj{})
					}
				}
			case *ast.FuncDecl:
				if _, ok := e.vars[n.Name]; !ok {
					e.define(n.Name, obj{})
				}
				return false
			}
			return true
		})
	}
	in.bindFuncs(body, e)
}

func (in *interp) bindFuncs(list []ast.Stmt, e *env) {
	for _, s := range list {
		if fd, ok := s.(*ast.FuncDecl); ok {
			o := obj{fn: &closure{decl: fd, env: e}}
			if slot := e.lookup(fd.Name); slot != nil {
				*slot = o
			} else {
				e.define(fd.Name, o)
			}
		}
	}
}

type control uint8

const (
	ctlNone control = iota
	ctlReturn
)

func (in *interp) stmts(list []ast.Stmt, e *env) (control, obj, error) {
	for _, s := range list {
		ctl, v, err := in.stmt(s, e)
		if err != nil || ctl != ctlNone {
			return ctl, v, err
		}
	}
	return ctlNone, obj{}, nil
}

func (in *interp) block(b *ast.Block, parent *env) (control, obj, error) {
	if b == nil {
		return ctlNone, obj{}, nil
	}
	e := newEnv(parent)
	in.bindFuncs(b.Stmts, e)
	return in.stmts(b.Stmts, e)
}

func (in *interp) stmt(s ast.Stmt, e *env) (control, obj, error) {
	if err := in.step(); err != nil {
		return ctlNone, obj{}, err
	}
	switch s := s.(type) {
	case *ast.FuncDecl:
		return ctlNone, obj{}, nil
	case *ast.VarDecl:
		var v obj
		if s.Init != nil {
			var err error
			if v, err = in.expr(s.Init, e); err != nil {
				return ctlNone, obj{}, err
			}
		}
		if s.Kind == ast.Var {
			slot := e.lookup(s.Name)
			if slot == nil {
				return ctlNone, obj{}, fmt.Errorf("%d:%d: %w: %s", s.Pos.Line, s.Pos.Col, ErrUndeclared, s.Name)
			}
			if s.Init != nil {
				*slot = v
			}
			return ctlNone, obj{}, nil
		}
		e.define(s.Name, v)
	case *ast.Block:
		return in.block(s, e)
	case *ast.IfStmt:
		c, err := in.expr(s.Cond, e)
		if err != nil {
			return ctlNone, obj{}, err
		}
		if value.Truthy(c.prim()) {
			return in.block(s.Then, e)
		}
		if s.Else != nil {
			if blk, ok := s.Else.(*ast.Block); ok {
				return in.block(blk, e)
			}
			return in.stmt(s.Else, e)
		}
	case *ast.WhileStmt:
		for {
			c, err := in.expr(s.Cond, e)
			if err != nil {
				return ctlNone, obj{}, err
			}
			if !value.Truthy(c.prim()) {
				break
			}
			if ctl, v, err := in.block(s.Body, e); err != nil || ctl != ctlNone {
				return ctl, v, err
			}
		}
	case *ast.ForStmt:
		head := newEnv(e)
		if s.Init != nil {
			if _, _, err := in.stmt(s.Init, head); err != nil {
				return ctlNone, obj{}, err
			}
		}
		for {
			if s.Cond != nil {
				c, err := in.expr(s.Cond, head)
				if err != nil {
					return ctlNone, obj{}, err
				}
				if !value.Truthy(c.prim()) {
					break
				}
			}
			if ctl, v, err := in.block(s.Body, head); err != nil || ctl != ctlNone {
				return ctl, v, err
			}
			if s.Post != nil {
				if _, err := in.expr(s.Post, head); err != nil {
					return ctlNone, obj{}, err
				}
			}
		}
	case *ast.ReturnStmt:
		var v obj
		if s.Value != nil {
			var err error
			if v, err = in.expr(s.Value, e); err != nil {
				return ctlNone, obj{}, err
			}
		}
		return ctlReturn, v, nil
	case *ast.ExprStmt:
		_, err := in.expr(s.X, e)
		return ctlNone, obj{}, err
	}
	return ctlNone, obj{}, nil
}

func (in *interp) expr(x ast.Expr, e *env) (obj, error) {
	if err := in.step(); err != nil {
		return obj{}, err
	}
	switch x := x.(type) {
	case *ast.Literal:
		return obj{v: x.Value}, nil
	case *ast.Ident:
		slot := e.lookup(x.Name)
		if slot == nil {
			return obj{}, fmt.Errorf("%d:%d: %w: %s", x.Pos.Line, x.Pos.Col, ErrUndeclared, x.Name)
		}
		return *slot, nil
	case *ast.Assign:
		v, err := in.expr(x.Value, e)
		if err != nil {
			return obj{}, err
		}
		slot := e.lookup(x.Target.Name)
		if slot == nil {
			return obj{}, fmt.Errorf("%d:%d: %w: %s", x.Pos.Line, x.Pos.Col, ErrUndeclared, x.Target.Name)
		}
		*slot = v
		return v, nil
	case *ast.UnaryExpr:
		v, err := in.expr(x.X, e)
		if err != nil {
			return obj{}, err
		}
		return obj{v: value.Unary(x.Op, v.prim())}, nil
	case *ast.BinaryExpr:
		l, err := in.expr(x.Left, e)
		if err != nil {
			return obj{}, err
		}
		if ast.IsLogical(x.Op) {
			if value.Truthy(l.prim()) == (x.Op == "||") {
				return l, nil
			}
			return in.expr(x.Right, e)
		}
		r, err := in.expr(x.Right, e)
		if err != nil {
			return obj{}, err
		}
		return obj{v: value.Binary(x.Op, l.prim(), r.prim())}, nil
	case *ast.CallExpr:
		return in.call(x, e)
	}
	return obj{}, fmt.Errorf("unsupported expression %T", x)
}

func (in *interp) call(x *ast.CallExpr, e *env) (obj, error) {
	callee, err := in.expr(x.Callee, e)
	if err != nil {
		return obj{}, err
	}
	args := make([]obj, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = in.expr(a, e); err != nil {
			return obj{}, err
		}
	}
	switch {
	case callee.builtin != "":
		return in.callBuiltin(callee.builtin, args), nil
	case callee.fn != nil:
		fd := callee.fn.decl
		fe := newEnv(callee.fn.env)
		for i, p := range fd.Params {
			var v obj
			if i < len(args) {
				v = args[i]
			}
			fe.define(p.Name, v)
		}
		if fd.Body == nil {
			return obj{}, nil
		}
		in.hoist(fd.Body.Stmts, fe)
		_, v, err := in.stmts(fd.Body.Stmts, fe)
		return v, err
	}
	return obj{}, fmt.Errorf("%d:%d: %w: %s", x.Pos.Line, x.Pos.Col, ErrNotCallable, ast.ExprString(x.Callee))
}

var builtinNames = []string{"print", "println", "input", "toNumber", "length", "concat"}

func arg(args []obj, i int) value.Value {
	if i < len(args) {
		return args[i].prim()
	}
	return value.Undefined
}

func (in *interp) callBuiltin(name string, args []obj) obj {
	switch name {
	case "print", "println":
		in.trace = append(in.trace, name+" "+arg(args, 0).String())
	case "input":
		in.trace = append(in.trace, "input")
		if in.input < len(in.opts.Input) {
			in.input++
			return obj{v: value.Str(in.opts.Input[in.input-1])}
		}
	case "toNumber":
		return obj{v: value.Num(value.ToNumber(arg(args, 0)))}
	case "length":
		return obj{v: value.Num(float64(len(utf16.Encode([]rune(arg(args, 0).String())))))}
	case "concat":
		return obj{v: value.Str(arg(args, 0).String() + arg(args, 1).String())}
	}
	return obj{}
}
