package parser

import (
	"fmt"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/lexer"
	"github.com/desilang/jsopt/compiler/internal/value"
)

// MaxNesting bounds statement and expression nesting so that adversarial
// input fails with an error instead of exhausting the stack.
const MaxNesting = 1000

// Error is a syntax error at a source position.
type Error struct {
	Pos ast.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg) }

type Parser struct {
	src   lexer.Source
	tok   lexer.Token
	prev  lexer.Token
	depth int
}

func New(src string) *Parser {
	return NewFromSource(lexer.NewSource(src))
}

// NewFromSource parses tokens from any lexer.Source.
func NewFromSource(src lexer.Source) *Parser {
	p := &Parser{src: src}
	p.next()
	return p
}

// Parse is a convenience wrapper around New(src).ParseProgram().
func Parse(src string) (*ast.Program, error) {
	return New(src).ParseProgram()
}

func (p *Parser) next() {
	p.prev = p.tok
	p.tok = p.src.Next()
}
func (p *Parser) at(k lexer.TokKind) bool { return p.tok.Kind == k }
func (p *Parser) accept(k lexer.TokKind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	return false
}
func (p *Parser) pos() ast.Pos { return ast.Pos{Line: p.tok.Line, Col: p.tok.Col} }

func (p *Parser) errorf(format string, args ...any) error {
	return &Error{Pos: p.pos(), Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(what string) error {
	if p.at(lexer.TokIllegal) {
		return p.errorf("%s", p.tok.Lex)
	}
	if p.at(lexer.TokEOF) {
		return p.errorf("expected %s, got end of input", what)
	}
	return p.errorf("expected %s, got %q", what, p.tok.Lex)
}

func (p *Parser) expect(k lexer.TokKind) (lexer.Token, error) {
	if !p.at(k) {
		return p.tok, p.unexpected(fmt.Sprintf("%q", k.String()))
	}
	t := p.tok
	p.next()
	return t, nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > MaxNesting {
		return p.errorf("nesting exceeds %d levels", MaxNesting)
	}
	return nil
}
func (p *Parser) leave() { p.depth-- }

// endStatement applies automatic semicolon insertion: an explicit ';', a
// closing brace, end of input or a line break all terminate a statement.
func (p *Parser) endStatement() error {
	if p.accept(lexer.TokSemi) || p.at(lexer.TokRBrace) || p.at(lexer.TokEOF) || p.tok.NewlineBefore {
		return nil
	}
	return p.unexpected(`";"`)
}

func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{Pos: ast.Pos{Line: 1, Col: 1}}
	for !p.at(lexer.TokEOF) {
		stmts, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmts...)
	}
	return prog, nil
}

// parseStmt returns zero or more statements: an empty statement yields none
// and a declarator list yields one VarDecl per name.
func (p *Parser) parseStmt() ([]ast.Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch p.tok.Kind {
	case lexer.TokSemi:
		p.next()
		return nil, nil
	case lexer.TokVar, lexer.TokLet, lexer.TokConst:
		decls, err := p.parseDecls()
		if err != nil {
			return nil, err
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return decls, nil
	case lexer.TokFunction:
		fn, err := p.parseFuncDecl()
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{fn}, nil
	case lexer.TokLBrace:
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{blk}, nil
	case lexer.TokIf:
		st, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{st}, nil
	case lexer.TokWhile:
		at := p.pos()
		p.next()
		cond, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.WhileStmt{Pos: at, Cond: cond, Body: body}}, nil
	case lexer.TokFor:
		st, err := p.parseFor()
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{st}, nil
	case lexer.TokReturn:
		at := p.pos()
		p.next()
		ret := &ast.ReturnStmt{Pos: at}
		// a line break after `return` ends the statement
		if !p.at(lexer.TokSemi) && !p.at(lexer.TokRBrace) && !p.at(lexer.TokEOF) && !p.tok.NewlineBefore {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return []ast.Stmt{ret}, nil
	default:
		at := p.pos()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.ExprStmt{Pos: at, X: x}}, nil
	}
}

func (p *Parser) declKind() ast.DeclKind {
	switch p.tok.Kind {
	case lexer.TokLet:
		return ast.Let
	case lexer.TokConst:
		return ast.Const
	default:
		return ast.Var
	}
}

// parseDecls parses `kind a = 1, b, c = 2` without the terminator.
func (p *Parser) parseDecls() ([]ast.Stmt, error) {
	kind := p.declKind()
	p.next()
	var out []ast.Stmt
	for {
		id, err := p.expect(lexer.TokIdent)
		if err != nil {
			return nil, err
		}
		d := &ast.VarDecl{Pos: ast.Pos{Line: id.Line, Col: id.Col}, Kind: kind, Name: id.Lex}
		if p.accept(lexer.TokEq) {
			if d.Init, err = p.parseAssign(); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
		if !p.accept(lexer.TokComma) {
			return out, nil
		}
	}
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	// function <name> "(" params? ")" block
	at := p.pos()
	p.next()
	nameTok, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	var params []*ast.Param
	if !p.accept(lexer.TokRParen) {
		for {
			id, err := p.expect(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Param{Pos: ast.Pos{Line: id.Line, Col: id.Col}, Name: id.Lex})
			if p.accept(lexer.TokComma) {
				continue
			}
			if _, err := p.expect(lexer.TokRParen); err != nil {
				return nil, err
			}
			break
		}
	}
	if !p.at(lexer.TokLBrace) {
		return nil, p.unexpected(`"{"`)
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Pos: at, Name: nameTok.Lex, Params: params, Body: body}, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	at := p.pos()
	if _, err := p.expect(lexer.TokLBrace); err != nil {
		return nil, err
	}
	blk := &ast.Block{Pos: at}
	for !p.at(lexer.TokRBrace) {
		if p.at(lexer.TokEOF) {
			return nil, p.unexpected(`"}"`)
		}
		stmts, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, stmts...)
	}
	p.next()
	return blk, nil
}

// parseBody parses a braced block or wraps a single statement in one.
func (p *Parser) parseBody() (*ast.Block, error) {
	if p.at(lexer.TokLBrace) {
		return p.parseBlock()
	}
	at := p.pos()
	stmts, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.Block{Pos: at, Stmts: stmts}, nil
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *Parser) parseIf() (*ast.IfStmt, error) {
	at := p.pos()
	p.next()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	st := &ast.IfStmt{Pos: at, Cond: cond, Then: then}
	if p.accept(lexer.TokElse) {
		if p.at(lexer.TokIf) {
			if err := p.enter(); err != nil {
				return nil, err
			}
			elif, err := p.parseIf()
			p.leave()
			if err != nil {
				return nil, err
			}
			st.Else = elif
		} else {
			els, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			st.Else = els
		}
	}
	return st, nil
}

func (p *Parser) parseFor() (*ast.ForStmt, error) {
	at := p.pos()
	p.next()
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	st := &ast.ForStmt{Pos: at}
	switch {
	case p.at(lexer.TokSemi):
	case p.at(lexer.TokVar) || p.at(lexer.TokLet) || p.at(lexer.TokConst):
		declAt := p.pos()
		decls, err := p.parseDecls()
		if err != nil {
			return nil, err
		}
		if len(decls) != 1 {
			return nil, &Error{Pos: declAt, Msg: "for-loop initializer declares more than one name"}
		}
		st.Init = decls[0]
	default:
		initAt := p.pos()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Init = &ast.ExprStmt{Pos: initAt, X: x}
	}
	if _, err := p.expect(lexer.TokSemi); err != nil {
		return nil, err
	}
	if !p.at(lexer.TokSemi) {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Cond = cond
	}
	if _, err := p.expect(lexer.TokSemi); err != nil {
		return nil, err
	}
	if !p.at(lexer.TokRParen) {
		post, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Post = post
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	st.Body = body
	return st, nil
}

/* ---------- expressions ---------- */

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseAssign() }

var compound = map[lexer.TokKind]string{
	lexer.TokPlusEq:    "+",
	lexer.TokMinusEq:   "-",
	lexer.TokStarEq:    "*",
	lexer.TokSlashEq:   "/",
	lexer.TokPercentEq: "%",
}

func (p *Parser) parseAssign() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	op, isCompound := compound[p.tok.Kind]
	if !p.at(lexer.TokEq) && !isCompound {
		return left, nil
	}
	target, ok := left.(*ast.Ident)
	if !ok {
		return nil, p.errorf("invalid assignment target")
	}
	at := p.pos()
	p.next()
	rhs, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if isCompound {
		rhs = &ast.BinaryExpr{
			Pos:   at,
			Op:    op,
			Left:  &ast.Ident{Pos: target.Pos, Name: target.Name},
			Right: rhs,
		}
	}
	return &ast.Assign{Pos: target.Pos, Target: target, Value: rhs}, nil
}

var binaryOps = map[lexer.TokKind]string{
	lexer.TokOrOr:    "||",
	lexer.TokAndAnd:  "&&",
	lexer.TokEqEq:    "==",
	lexer.TokNe:      "!=",
	lexer.TokEqEqEq:  "===",
	lexer.TokNeEq:    "!==",
	lexer.TokLt:      "<",
	lexer.TokLe:      "<=",
	lexer.TokGt:      ">",
	lexer.TokGe:      ">=",
	lexer.TokPlus:    "+",
	lexer.TokMinus:   "-",
	lexer.TokStar:    "*",
	lexer.TokSlash:   "/",
	lexer.TokPercent: "%",
}

// parseBinary is precedence climbing over left-associative operators.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOps[p.tok.Kind]
		if !ok {
			return left, nil
		}
		prec := ast.BinaryPrec(op)
		if prec < minPrec {
			return left, nil
		}
		at := p.pos()
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Pos: at, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	var op string
	switch p.tok.Kind {
	case lexer.TokBang:
		op = "!"
	case lexer.TokMinus:
		op = "-"
	case lexer.TokPlus:
		op = "+"
	default:
		return p.parseCall()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	at := p.pos()
	p.next()
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Pos: at, Op: op, X: x}, nil
}

func (p *Parser) parseCall() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.TokLParen) {
		call := &ast.CallExpr{Pos: x.Position(), Callee: x}
		p.next()
		if !p.accept(lexer.TokRParen) {
			for {
				a, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, a)
				if p.accept(lexer.TokComma) {
					continue
				}
				if _, err := p.expect(lexer.TokRParen); err != nil {
					return nil, err
				}
				break
			}
		}
		x = call
	}
	return x, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	at := p.pos()
	switch p.tok.Kind {
	case lexer.TokIdent:
		name := p.tok.Lex
		p.next()
		return &ast.Ident{Pos: at, Name: name}, nil
	case lexer.TokNumber:
		f, err := lexer.ParseNumber(p.tok.Lex)
		if err != nil {
			return nil, p.errorf("bad number literal %s", p.tok.Lex)
		}
		p.next()
		return &ast.Literal{Pos: at, Value: value.Num(f)}, nil
	case lexer.TokString:
		s, err := lexer.Unquote(p.tok.Lex)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		p.next()
		return &ast.Literal{Pos: at, Value: value.Str(s)}, nil
	case lexer.TokTrue, lexer.TokFalse:
		b := p.at(lexer.TokTrue)
		p.next()
		return &ast.Literal{Pos: at, Value: value.Bool(b)}, nil
	case lexer.TokUndefined:
		p.next()
		return &ast.Literal{Pos: at, Value: value.Undefined}, nil
	case lexer.TokLParen:
		return p.parseParenExpr()
	}
	return nil, p.unexpected("expression")
}
