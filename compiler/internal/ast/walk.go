package ast

import "strings"

// Inspect traverses n in source order, calling f for each node. If f returns
// false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if isNil(n) || !f(n) {
		return
	}
	switch v := n.(type) {
	case *Program:
		for _, s := range v.Body {
			Inspect(s, f)
		}
	case *FuncDecl:
		for _, p := range v.Params {
			Inspect(p, f)
		}
		Inspect(v.Body, f)
	case *VarDecl:
		Inspect(v.Init, f)
	case *Block:
		for _, s := range v.Stmts {
			Inspect(s, f)
		}
	case *IfStmt:
		Inspect(v.Cond, f)
		Inspect(v.Then, f)
		Inspect(v.Else, f)
	case *WhileStmt:
		Inspect(v.Cond, f)
		Inspect(v.Body, f)
	case *ForStmt:
		Inspect(v.Init, f)
		Inspect(v.Cond, f)
		Inspect(v.Post, f)
		Inspect(v.Body, f)
	case *ReturnStmt:
		Inspect(v.Value, f)
	case *ExprStmt:
		Inspect(v.X, f)
	case *Assign:
		Inspect(v.Target, f)
		Inspect(v.Value, f)
	case *BinaryExpr:
		Inspect(v.Left, f)
		Inspect(v.Right, f)
	case *UnaryExpr:
		Inspect(v.X, f)
	case *CallExpr:
		Inspect(v.Callee, f)
		for _, a := range v.Args {
			Inspect(a, f)
		}
	}
}

// isNil catches both untyped nil and typed nil pointers stored in interfaces.
func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Block:
		return v == nil
	case *Ident:
		return v == nil
	case *VarDecl:
		return v == nil
	case *IfStmt:
		return v == nil
	case *ExprStmt:
		return v == nil
	}
	return false
}

// CountNodes returns the number of nodes in the subtree rooted at n.
func CountNodes(n Node) int {
	count := 0
	Inspect(n, func(Node) bool { count++; return true })
	return count
}

// ContainsFunc reports whether some node under n satisfies pred, without
// descending into nested function declarations.
func ContainsFunc(n Node, pred func(Node) bool) bool {
	found := false
	Inspect(n, func(c Node) bool {
		if found {
			return false
		}
		if pred(c) {
			found = true
			return false
		}
		_, isFn := c.(*FuncDecl)
		return !isFn || c == n
	})
	return found
}

/*** CLONE ***/

func CloneProgram(p *Program) *Program {
	out := &Program{Pos: p.Pos, Body: make([]Stmt, len(p.Body))}
	for i, s := range p.Body {
		out.Body[i] = CloneStmt(s)
	}
	return out
}

func CloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Pos: b.Pos, Stmts: make([]Stmt, len(b.Stmts))}
	for i, s := range b.Stmts {
		out.Stmts[i] = CloneStmt(s)
	}
	return out
}

func CloneStmt(s Stmt) Stmt {
	switch v := s.(type) {
	case nil:
		return nil
	case *FuncDecl:
		ps := make([]*Param, len(v.Params))
		for i, p := range v.Params {
			cp := *p
			ps[i] = &cp
		}
		return &FuncDecl{Pos: v.Pos, Name: v.Name, Params: ps, Body: CloneBlock(v.Body)}
	case *VarDecl:
		return &VarDecl{Pos: v.Pos, Kind: v.Kind, Name: v.Name, Init: CloneExpr(v.Init)}
	case *Block:
		return CloneBlock(v)
	case *IfStmt:
		return &IfStmt{Pos: v.Pos, Cond: CloneExpr(v.Cond), Then: CloneBlock(v.Then), Else: CloneStmt(v.Else)}
	case *WhileStmt:
		return &WhileStmt{Pos: v.Pos, Cond: CloneExpr(v.Cond), Body: CloneBlock(v.Body)}
	case *ForStmt:
		return &ForStmt{Pos: v.Pos, Init: CloneStmt(v.Init), Cond: CloneExpr(v.Cond), Post: CloneExpr(v.Post), Body: CloneBlock(v.Body)}
	case *ReturnStmt:
		return &ReturnStmt{Pos: v.Pos, Value: CloneExpr(v.Value)}
	case *ExprStmt:
		return &ExprStmt{Pos: v.Pos, X: CloneExpr(v.X)}
	}
	panic("ast: unknown statement")
}

func CloneExpr(e Expr) Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case *Assign:
		return &Assign{Pos: v.Pos, Target: &Ident{Pos: v.Target.Pos, Name: v.Target.Name}, Value: CloneExpr(v.Value)}
	case *BinaryExpr:
		return &BinaryExpr{Pos: v.Pos, Op: v.Op, Left: CloneExpr(v.Left), Right: CloneExpr(v.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Pos: v.Pos, Op: v.Op, X: CloneExpr(v.X)}
	case *CallExpr:
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = CloneExpr(a)
		}
		return &CallExpr{Pos: v.Pos, Callee: CloneExpr(v.Callee), Args: args}
	case *Ident:
		return &Ident{Pos: v.Pos, Name: v.Name}
	case *Literal:
		return &Literal{Pos: v.Pos, Value: v.Value}
	}
	panic("ast: unknown expression")
}

/*** STRUCTURAL EQUALITY ***/

// Equal reports whether a and b are structurally identical, ignoring
// source positions.
func Equal(a, b Node) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	switch x := a.(type) {
	case *Program:
		y, ok := b.(*Program)
		return ok && equalStmts(x.Body, y.Body)
	case *FuncDecl:
		y, ok := b.(*FuncDecl)
		if !ok || x.Name != y.Name || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if x.Params[i].Name != y.Params[i].Name {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	case *VarDecl:
		y, ok := b.(*VarDecl)
		return ok && x.Kind == y.Kind && x.Name == y.Name && Equal(x.Init, y.Init)
	case *Block:
		y, ok := b.(*Block)
		return ok && equalStmts(x.Stmts, y.Stmts)
	case *IfStmt:
		y, ok := b.(*IfStmt)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	case *WhileStmt:
		y, ok := b.(*WhileStmt)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Body, y.Body)
	case *ForStmt:
		y, ok := b.(*ForStmt)
		return ok && Equal(x.Init, y.Init) && Equal(x.Cond, y.Cond) && Equal(x.Post, y.Post) && Equal(x.Body, y.Body)
	case *ReturnStmt:
		y, ok := b.(*ReturnStmt)
		return ok && Equal(x.Value, y.Value)
	case *ExprStmt:
		y, ok := b.(*ExprStmt)
		return ok && Equal(x.X, y.X)
	case Expr:
		y, ok := b.(Expr)
		return ok && Key(x) == Key(y)
	}
	return false
}

func equalStmts(a, b []Stmt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Key renders e as an unambiguous prefix form. Two expressions have the same
// Key exactly when they are structurally equal.
func Key(e Expr) string {
	var b strings.Builder
	writeKey(&b, e)
	return b.String()
}

func writeKey(b *strings.Builder, e Expr) {
	switch v := e.(type) {
	case nil:
		b.WriteString("_")
	case *Ident:
		b.WriteString("$")
		b.WriteString(v.Name)
	case *Literal:
		b.WriteString(v.Value.Source())
	case *UnaryExpr:
		b.WriteString("(u")
		b.WriteString(v.Op)
		b.WriteByte(' ')
		writeKey(b, v.X)
		b.WriteByte(')')
	case *BinaryExpr:
		b.WriteByte('(')
		b.WriteString(v.Op)
		b.WriteByte(' ')
		writeKey(b, v.Left)
		b.WriteByte(' ')
		writeKey(b, v.Right)
		b.WriteByte(')')
	case *Assign:
		b.WriteString("(= $")
		b.WriteString(v.Target.Name)
		b.WriteByte(' ')
		writeKey(b, v.Value)
		b.WriteByte(')')
	case *CallExpr:
		b.WriteString("(call ")
		writeKey(b, v.Callee)
		for _, a := range v.Args {
			b.WriteByte(' ')
			writeKey(b, a)
		}
		b.WriteByte(')')
	}
}
