// Package tsbridge is an alternate frontend: it parses source with the
// tree-sitter JavaScript grammar and lowers the concrete tree into the same
// ast the native parser produces.
package tsbridge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/lexer"
	"github.com/desilang/jsopt/compiler/internal/parser"
	"github.com/desilang/jsopt/compiler/internal/value"
)

var ErrSyntax = errors.New("syntax error")

// Error is a syntax error or an unsupported construct at a source position.
type Error struct {
	Pos ast.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg) }
func (e *Error) Unwrap() error { return ErrSyntax }

// Parse parses src with tree-sitter. A fresh parser is used per call, so
// Parse is safe for concurrent use.
func Parse(src []byte) (*ast.Program, error) {
	p := sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(sitter.NewLanguage(tree_sitter_javascript.Language())); err != nil {
		return nil, fmt.Errorf("tsbridge: %w", err)
	}
	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tsbridge: parse returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "program" {
		return nil, fmt.Errorf("tsbridge: unexpected root node")
	}
	c := &converter{src: src, lines: lineStarts(src)}
	if root.HasError() {
		return nil, c.syntaxError(root)
	}
	prog := &ast.Program{Pos: ast.Pos{Line: 1, Col: 1}}
	for _, n := range c.children(root) {
		stmts, err := c.stmt(n)
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmts...)
	}
	return prog, nil
}

type converter struct {
	src   []byte
	lines []uint // byte offset of each line start
	depth int
}

func lineStarts(src []byte) []uint {
	out := []uint{0}
	for i, b := range src {
		if b == '\n' {
			out = append(out, uint(i+1))
		}
	}
	return out
}

// pos converts a node start to a 1-based line and rune column, matching
// the native lexer.
func (c *converter) pos(n *sitter.Node) ast.Pos {
	off := n.StartByte()
	line := sort.Search(len(c.lines), func(i int) bool { return c.lines[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	col := utf8.RuneCount(c.src[c.lines[line]:off]) + 1
	return ast.Pos{Line: line + 1, Col: col}
}

func (c *converter) text(n *sitter.Node) string { return n.Utf8Text(c.src) }

func (c *converter) errorf(n *sitter.Node, format string, args ...any) error {
	return &Error{Pos: c.pos(n), Msg: fmt.Sprintf(format, args...)}
}

func (c *converter) enter(n *sitter.Node) error {
	c.depth++
	if c.depth > parser.MaxNesting {
		return c.errorf(n, "nesting exceeds %d levels", parser.MaxNesting)
	}
	return nil
}
func (c *converter) leave() { c.depth-- }

// children returns the named children of n without comments.
func (c *converter) children(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Kind() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (c *converter) field(n *sitter.Node, name string) *sitter.Node {
	return n.ChildByFieldName(name)
}

/* ---------- syntax errors ---------- */

func (c *converter) syntaxError(root *sitter.Node) error {
	missing := findFirst(root, func(n *sitter.Node) bool { return n.IsMissing() })
	bad := missing
	if bad == nil {
		bad = findFirst(root, func(n *sitter.Node) bool { return n.IsError() })
	}
	if bad == nil {
		bad = root
	}
	msg := "syntax error"
	if missing != nil {
		msg = "syntax error: expected " + formatKind(missing.Kind())
	} else if t := strings.TrimSpace(c.text(bad)); t != "" {
		r, _ := utf8.DecodeRuneInString(t)
		msg = fmt.Sprintf("syntax error: unexpected %q", string(r))
	}
	return &Error{Pos: c.pos(bad), Msg: msg}
}

func findFirst(root *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	var best *sitter.Node
	walkNodes(root, func(n *sitter.Node) {
		if !match(n) {
			return
		}
		if best == nil || n.StartByte() < best.StartByte() {
			best = n
		}
	})
	return best
}

func walkNodes(root *sitter.Node, visit func(*sitter.Node)) {
	if root == nil {
		return
	}
	visit(root)
	for i := uint(0); i < root.ChildCount(); i++ {
		if ch := root.Child(i); ch != nil {
			walkNodes(ch, visit)
		}
	}
}

// formatKind quotes punctuation and spells out grammar symbols.
func formatKind(kind string) string {
	k := strings.TrimSpace(kind)
	if k == "" {
		return "token"
	}
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return strings.ReplaceAll(k, "_", " ")
		}
	}
	return fmt.Sprintf("%q", k)
}

/* ---------- statements ---------- */

func (c *converter) stmt(n *sitter.Node) ([]ast.Stmt, error) {
	if err := c.enter(n); err != nil {
		return nil, err
	}
	defer c.leave()

	switch n.Kind() {
	case "empty_statement":
		return nil, nil
	case "variable_declaration", "lexical_declaration":
		return c.decls(n)
	case "function_declaration":
		fn, err := c.funcDecl(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{fn}, nil
	case "statement_block":
		blk, err := c.block(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{blk}, nil
	case "if_statement":
		st, err := c.ifStmt(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{st}, nil
	case "while_statement":
		cond, err := c.expr(c.field(n, "condition"))
		if err != nil {
			return nil, err
		}
		body, err := c.body(c.field(n, "body"))
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.WhileStmt{Pos: c.pos(n), Cond: cond, Body: body}}, nil
	case "for_statement":
		st, err := c.forStmt(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{st}, nil
	case "return_statement":
		ret := &ast.ReturnStmt{Pos: c.pos(n)}
		if kids := c.children(n); len(kids) > 0 {
			v, err := c.expr(kids[0])
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return []ast.Stmt{ret}, nil
	case "expression_statement":
		kids := c.children(n)
		if len(kids) != 1 {
			return nil, c.errorf(n, "unsupported expression statement")
		}
		x, err := c.expr(kids[0])
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.ExprStmt{Pos: c.pos(kids[0]), X: x}}, nil
	}
	return nil, c.errorf(n, "unsupported statement %s", formatKind(n.Kind()))
}

func (c *converter) decls(n *sitter.Node) ([]ast.Stmt, error) {
	kind := ast.Var
	if n.Kind() == "lexical_declaration" {
		switch k := c.field(n, "kind"); {
		case k != nil && c.text(k) == "const":
			kind = ast.Const
		case k != nil && c.text(k) == "let":
			kind = ast.Let
		default:
			return nil, c.errorf(n, "unsupported declaration")
		}
	}
	var out []ast.Stmt
	for _, d := range c.children(n) {
		if d.Kind() != "variable_declarator" {
			continue
		}
		name := c.field(d, "name")
		if name == nil || name.Kind() != "identifier" {
			return nil, c.errorf(d, "unsupported binding pattern")
		}
		vd := &ast.VarDecl{Pos: c.pos(name), Kind: kind, Name: c.text(name)}
		if v := c.field(d, "value"); v != nil {
			init, err := c.expr(v)
			if err != nil {
				return nil, err
			}
			vd.Init = init
		}
		out = append(out, vd)
	}
	return out, nil
}

func (c *converter) funcDecl(n *sitter.Node) (*ast.FuncDecl, error) {
	for i := uint(0); i < n.ChildCount(); i++ {
		if ch := n.Child(i); ch != nil && ch.Kind() == "async" {
			return nil, c.errorf(n, "async functions are not supported")
		}
	}
	name := c.field(n, "name")
	if name == nil {
		return nil, c.errorf(n, "function declaration without a name")
	}
	fn := &ast.FuncDecl{Pos: c.pos(n), Name: c.text(name)}
	if ps := c.field(n, "parameters"); ps != nil {
		for _, p := range c.children(ps) {
			if p.Kind() != "identifier" {
				return nil, c.errorf(p, "unsupported parameter")
			}
			fn.Params = append(fn.Params, &ast.Param{Pos: c.pos(p), Name: c.text(p)})
		}
	}
	body, err := c.block(c.field(n, "body"))
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (c *converter) block(n *sitter.Node) (*ast.Block, error) {
	if n == nil || n.Kind() != "statement_block" {
		return nil, &Error{Pos: ast.Pos{Line: 1, Col: 1}, Msg: "expected block"}
	}
	blk := &ast.Block{Pos: c.pos(n)}
	for _, s := range c.children(n) {
		stmts, err := c.stmt(s)
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, stmts...)
	}
	return blk, nil
}

// body lowers a loop or branch body, wrapping a single statement in a block.
func (c *converter) body(n *sitter.Node) (*ast.Block, error) {
	if n == nil {
		return nil, &Error{Pos: ast.Pos{Line: 1, Col: 1}, Msg: "missing body"}
	}
	if n.Kind() == "statement_block" {
		return c.block(n)
	}
	stmts, err := c.stmt(n)
	if err != nil {
		return nil, err
	}
	return &ast.Block{Pos: c.pos(n), Stmts: stmts}, nil
}

func (c *converter) ifStmt(n *sitter.Node) (*ast.IfStmt, error) {
	cond, err := c.expr(c.field(n, "condition"))
	if err != nil {
		return nil, err
	}
	then, err := c.body(c.field(n, "consequence"))
	if err != nil {
		return nil, err
	}
	st := &ast.IfStmt{Pos: c.pos(n), Cond: cond, Then: then}
	alt := c.field(n, "alternative")
	if alt == nil {
		return st, nil
	}
	kids := c.children(alt)
	if len(kids) != 1 {
		return nil, c.errorf(alt, "malformed else clause")
	}
	if kids[0].Kind() == "if_statement" {
		if err := c.enter(kids[0]); err != nil {
			return nil, err
		}
		elif, err := c.ifStmt(kids[0])
		c.leave()
		if err != nil {
			return nil, err
		}
		st.Else = elif
		return st, nil
	}
	els, err := c.body(kids[0])
	if err != nil {
		return nil, err
	}
	st.Else = els
	return st, nil
}

// clause unwraps a for-header part that the grammar may present as an
// expression, an expression_statement or an empty statement.
func (c *converter) clause(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "empty_statement", ";":
		return nil
	case "expression_statement":
		if kids := c.children(n); len(kids) == 1 {
			return kids[0]
		}
	}
	return n
}

func (c *converter) forStmt(n *sitter.Node) (*ast.ForStmt, error) {
	st := &ast.ForStmt{Pos: c.pos(n)}
	if init := c.clause(c.field(n, "initializer")); init != nil {
		switch init.Kind() {
		case "variable_declaration", "lexical_declaration":
			decls, err := c.decls(init)
			if err != nil {
				return nil, err
			}
			if len(decls) != 1 {
				return nil, c.errorf(init, "for-loop initializer declares more than one name")
			}
			st.Init = decls[0]
		default:
			x, err := c.expr(init)
			if err != nil {
				return nil, err
			}
			st.Init = &ast.ExprStmt{Pos: c.pos(init), X: x}
		}
	}
	if cond := c.clause(c.field(n, "condition")); cond != nil {
		x, err := c.expr(cond)
		if err != nil {
			return nil, err
		}
		st.Cond = x
	}
	if post := c.clause(c.field(n, "increment")); post != nil {
		x, err := c.expr(post)
		if err != nil {
			return nil, err
		}
		st.Post = x
	}
	body, err := c.body(c.field(n, "body"))
	if err != nil {
		return nil, err
	}
	st.Body = body
	return st, nil
}

/* ---------- expressions ---------- */

var binaryOps = map[string]bool{
	"||": true, "&&": true,
	"==": true, "!=": true, "===": true, "!==": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
}

var compound = map[string]string{
	"+=": "+",
	"-=": "-",
	"*=": "*",
	"/=": "/",
	"%=": "%",
}

func (c *converter) expr(n *sitter.Node) (ast.Expr, error) {
	if n == nil {
		return nil, &Error{Pos: ast.Pos{Line: 1, Col: 1}, Msg: "missing expression"}
	}
	if err := c.enter(n); err != nil {
		return nil, err
	}
	defer c.leave()

	at := c.pos(n)
	switch n.Kind() {
	case "parenthesized_expression":
		kids := c.children(n)
		if len(kids) != 1 {
			return nil, c.errorf(n, "unsupported parenthesized expression")
		}
		return c.expr(kids[0])
	case "identifier":
		return &ast.Ident{Pos: at, Name: c.text(n)}, nil
	case "undefined":
		return &ast.Literal{Pos: at, Value: value.Undefined}, nil
	case "true", "false":
		return &ast.Literal{Pos: at, Value: value.Bool(n.Kind() == "true")}, nil
	case "number":
		f, err := lexer.ParseNumber(c.text(n))
		if err != nil {
			return nil, c.errorf(n, "bad number literal %s", c.text(n))
		}
		return &ast.Literal{Pos: at, Value: value.Num(f)}, nil
	case "string":
		s, err := lexer.Unquote(c.text(n))
		if err != nil {
			return nil, c.errorf(n, "%v", err)
		}
		return &ast.Literal{Pos: at, Value: value.Str(s)}, nil
	case "assignment_expression", "augmented_assignment_expression":
		return c.assign(n)
	case "binary_expression":
		opNode := c.field(n, "operator")
		if opNode == nil || !binaryOps[opNode.Kind()] {
			return nil, c.errorf(n, "unsupported binary operator")
		}
		left, err := c.expr(c.field(n, "left"))
		if err != nil {
			return nil, err
		}
		right, err := c.expr(c.field(n, "right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Pos: c.pos(opNode), Op: opNode.Kind(), Left: left, Right: right}, nil
	case "unary_expression":
		opNode := c.field(n, "operator")
		if opNode == nil {
			return nil, c.errorf(n, "malformed unary expression")
		}
		switch op := opNode.Kind(); op {
		case "!", "-", "+":
			x, err := c.expr(c.field(n, "argument"))
			if err != nil {
				return nil, err
			}
			return &ast.UnaryExpr{Pos: at, Op: op, X: x}, nil
		default:
			return nil, c.errorf(n, "unsupported unary operator %q", op)
		}
	case "call_expression":
		fn, err := c.expr(c.field(n, "function"))
		if err != nil {
			return nil, err
		}
		args := c.field(n, "arguments")
		if args == nil || args.Kind() != "arguments" {
			return nil, c.errorf(n, "unsupported call")
		}
		call := &ast.CallExpr{Pos: fn.Position(), Callee: fn}
		for _, a := range c.children(args) {
			x, err := c.expr(a)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, x)
		}
		return call, nil
	}
	return nil, c.errorf(n, "unsupported expression %s", formatKind(n.Kind()))
}

func (c *converter) assign(n *sitter.Node) (ast.Expr, error) {
	left := c.field(n, "left")
	if left == nil || left.Kind() != "identifier" {
		return nil, c.errorf(n, "invalid assignment target")
	}
	target := &ast.Ident{Pos: c.pos(left), Name: c.text(left)}
	rhs, err := c.expr(c.field(n, "right"))
	if err != nil {
		return nil, err
	}
	if n.Kind() == "augmented_assignment_expression" {
		opNode := c.field(n, "operator")
		if opNode == nil {
			return nil, c.errorf(n, "malformed compound assignment")
		}
		op, ok := compound[opNode.Kind()]
		if !ok {
			return nil, c.errorf(opNode, "unsupported assignment operator %q", opNode.Kind())
		}
		rhs = &ast.BinaryExpr{
			Pos:   c.pos(opNode),
			Op:    op,
			Left:  &ast.Ident{Pos: target.Pos, Name: target.Name},
			Right: rhs,
		}
	}
	return &ast.Assign{Pos: target.Pos, Target: target, Value: rhs}, nil
}
