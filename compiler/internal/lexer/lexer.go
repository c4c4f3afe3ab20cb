package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Lexer scans source into tokens. Line breaks are not tokens; the parser
// reads Token.NewlineBefore where automatic semicolon insertion needs it.
type Lexer struct {
	src []rune
	i   int

	line int
	col  int

	sawNewline bool
}

func New(src string) *Lexer {
	return &Lexer{
		src:  []rune(src),
		line: 1,
		col:  0,
	}
}

func (lx *Lexer) make(kind TokKind, lex string, line, col int) Token {
	t := Token{Kind: kind, Lex: lex, Line: line, Col: col, NewlineBefore: lx.sawNewline}
	lx.sawNewline = false
	return t
}

func (lx *Lexer) peek() (rune, bool) {
	if lx.i >= len(lx.src) {
		return 0, false
	}
	return lx.src[lx.i], true
}

func (lx *Lexer) peekAt(off int) rune {
	if lx.i+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.i+off]
}

func (lx *Lexer) advance() (rune, bool) {
	ch, ok := lx.peek()
	if !ok {
		return 0, false
	}
	lx.i++
	if ch == '\n' {
		lx.line++
		lx.col = 0
		lx.sawNewline = true
	} else {
		lx.col++
	}
	return ch, true
}

func (lx *Lexer) match(expect rune) bool {
	ch, ok := lx.peek()
	if ok && ch == expect {
		lx.advance()
		return true
	}
	return false
}

func (lx *Lexer) atEOF() bool { return lx.i >= len(lx.src) }

// skipTrivia consumes whitespace and comments. It returns a non-empty
// message when a block comment is left open.
func (lx *Lexer) skipTrivia() string {
	for {
		ch, ok := lx.peek()
		if !ok {
			return ""
		}
		switch {
		case ch == '\n' || unicode.IsSpace(ch):
			lx.advance()
		case ch == '/' && lx.peekAt(1) == '/':
			for {
				c, ok := lx.peek()
				if !ok || c == '\n' {
					break
				}
				lx.advance()
			}
		case ch == '/' && lx.peekAt(1) == '*':
			lx.advance()
			lx.advance()
			closed := false
			for !lx.atEOF() {
				if c, _ := lx.peek(); c == '*' && lx.peekAt(1) == '/' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				return "unterminated block comment"
			}
		default:
			return ""
		}
	}
}

// Next returns the next token. It never panics on user input; malformed
// input yields TokIllegal with a description in Lex.
func (lx *Lexer) Next() Token {
	commentLine, commentCol := lx.line, lx.col+1
	if msg := lx.skipTrivia(); msg != "" {
		return lx.make(TokIllegal, msg, commentLine, commentCol)
	}

	startLine, startCol := lx.line, lx.col+1
	if lx.atEOF() {
		return lx.make(TokEOF, "", startLine, startCol)
	}

	// Identifiers / keywords
	if ch, ok := lx.peek(); ok && isIdentStart(ch) {
		lex := lx.scanIdent()
		if kind, ok := keywordKind(lex); ok {
			return lx.make(kind, lex, startLine, startCol)
		}
		return lx.make(TokIdent, lex, startLine, startCol)
	}

	// Numbers (decimal with fraction/exponent, 0x...)
	if ch, ok := lx.peek(); ok && (isDigit(ch) || (ch == '.' && isDigit(lx.peekAt(1)))) {
		lex, err := lx.scanNumber()
		if err != "" {
			return lx.make(TokIllegal, err, startLine, startCol)
		}
		return lx.make(TokNumber, lex, startLine, startCol)
	}

	// Strings ("..." or '...')
	if ch, ok := lx.peek(); ok && (ch == '"' || ch == '\'') {
		lex, closed := lx.scanString(ch)
		if !closed {
			return lx.make(TokIllegal, "unterminated string literal", startLine, startCol)
		}
		return lx.make(TokString, lex, startLine, startCol)
	}

	// Multi-char operators first
	if lx.match('=') {
		if lx.match('=') {
			if lx.match('=') {
				return lx.make(TokEqEqEq, "===", startLine, startCol)
			}
			return lx.make(TokEqEq, "==", startLine, startCol)
		}
		return lx.make(TokEq, "=", startLine, startCol)
	}
	if lx.match('!') {
		if lx.match('=') {
			if lx.match('=') {
				return lx.make(TokNeEq, "!==", startLine, startCol)
			}
			return lx.make(TokNe, "!=", startLine, startCol)
		}
		return lx.make(TokBang, "!", startLine, startCol)
	}
	if lx.match('<') {
		if lx.match('=') {
			return lx.make(TokLe, "<=", startLine, startCol)
		}
		return lx.make(TokLt, "<", startLine, startCol)
	}
	if lx.match('>') {
		if lx.match('=') {
			return lx.make(TokGe, ">=", startLine, startCol)
		}
		return lx.make(TokGt, ">", startLine, startCol)
	}
	if lx.match('&') {
		if lx.match('&') {
			return lx.make(TokAndAnd, "&&", startLine, startCol)
		}
		return lx.make(TokIllegal, "unexpected '&' (bitwise operators are not supported)", startLine, startCol)
	}
	if lx.match('|') {
		if lx.match('|') {
			return lx.make(TokOrOr, "||", startLine, startCol)
		}
		return lx.make(TokIllegal, "unexpected '|' (bitwise operators are not supported)", startLine, startCol)
	}

	// Arithmetic, optionally compound-assigning
	for _, op := range arith {
		if lx.match(op.ch) {
			if lx.match('=') {
				return lx.make(op.assign, string(op.ch)+"=", startLine, startCol)
			}
			if (op.ch == '+' || op.ch == '-') && lx.match(op.ch) {
				return lx.make(TokIllegal, "increment/decrement operators are not supported", startLine, startCol)
			}
			return lx.make(op.kind, string(op.ch), startLine, startCol)
		}
	}

	// Single-char punctuation
	if k, ok := punct[lx.src[lx.i]]; ok {
		ch, _ := lx.advance()
		return lx.make(k, string(ch), startLine, startCol)
	}

	ch, _ := lx.advance()
	return lx.make(TokIllegal, fmt.Sprintf("unexpected character %q", ch), startLine, startCol)
}

var arith = []struct {
	ch     rune
	kind   TokKind
	assign TokKind
}{
	{'+', TokPlus, TokPlusEq},
	{'-', TokMinus, TokMinusEq},
	{'*', TokStar, TokStarEq},
	{'/', TokSlash, TokSlashEq},
	{'%', TokPercent, TokPercentEq},
}

var punct = map[rune]TokKind{
	'(': TokLParen,
	')': TokRParen,
	'{': TokLBrace,
	'}': TokRBrace,
	',': TokComma,
	';': TokSemi,
}

// ----- scanning helpers -----

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}
func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (lx *Lexer) scanIdent() string {
	start := lx.i
	for {
		r, ok := lx.peek()
		if !ok || !isIdentPart(r) {
			break
		}
		lx.advance()
	}
	return string(lx.src[start:lx.i])
}

func (lx *Lexer) scanDigits() int {
	n := 0
	for {
		r, ok := lx.peek()
		if !ok || !isDigit(r) {
			return n
		}
		lx.advance()
		n++
	}
}

func (lx *Lexer) scanNumber() (string, string) {
	start := lx.i
	if ch, _ := lx.peek(); ch == '0' && (lx.peekAt(1) == 'x' || lx.peekAt(1) == 'X') {
		lx.advance()
		lx.advance()
		n := 0
		for {
			r, ok := lx.peek()
			if !ok || !isHex(r) {
				break
			}
			lx.advance()
			n++
		}
		if n == 0 {
			return "", "malformed hexadecimal literal"
		}
		return string(lx.src[start:lx.i]), ""
	}
	lx.scanDigits()
	if ch, ok := lx.peek(); ok && ch == '.' {
		lx.advance()
		lx.scanDigits()
	}
	if ch, ok := lx.peek(); ok && (ch == 'e' || ch == 'E') {
		lx.advance()
		if s, ok := lx.peek(); ok && (s == '+' || s == '-') {
			lx.advance()
		}
		if lx.scanDigits() == 0 {
			return "", "malformed exponent in number literal"
		}
	}
	if r, ok := lx.peek(); ok && isIdentStart(r) {
		return "", "identifier starts immediately after number literal"
	}
	return string(lx.src[start:lx.i]), ""
}

func (lx *Lexer) scanString(quote rune) (string, bool) {
	start := lx.i
	lx.advance() // consume opening quote
	for {
		r, ok := lx.peek()
		if !ok || r == '\n' {
			return string(lx.src[start:lx.i]), false
		}
		if r == '\\' {
			lx.advance() // backslash
			if _, ok := lx.advance(); !ok {
				return string(lx.src[start:lx.i]), false
			}
			continue
		}
		lx.advance()
		if r == quote {
			return string(lx.src[start:lx.i]), true
		}
	}
}

// ParseNumber converts the text of a TokNumber into its value.
func ParseNumber(lex string) (float64, error) {
	if len(lex) > 2 && lex[0] == '0' && (lex[1] == 'x' || lex[1] == 'X') {
		n, err := strconv.ParseUint(lex[2:], 16, 64)
		return float64(n), err
	}
	f, err := strconv.ParseFloat(lex, 64)
	if err != nil {
		// out-of-range literals saturate to ±Inf, as the language does
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, nil
		}
	}
	return f, err
}

// Unquote decodes the text of a TokString (quotes included).
func Unquote(lex string) (string, error) {
	rs := []rune(lex)
	if len(rs) < 2 || rs[0] != rs[len(rs)-1] || (rs[0] != '"' && rs[0] != '\'') {
		return "", fmt.Errorf("malformed string literal %s", lex)
	}
	rs = rs[1 : len(rs)-1]
	var b strings.Builder
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		i++
		if i >= len(rs) {
			return "", fmt.Errorf("dangling escape in %s", lex)
		}
		switch e := rs[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x', 'u':
			width := 2
			if e == 'u' {
				width = 4
			}
			if e == 'u' && i+1 < len(rs) && rs[i+1] == '{' {
				end := i + 2
				for end < len(rs) && rs[end] != '}' {
					end++
				}
				if end >= len(rs) {
					return "", fmt.Errorf("unterminated \\u{...} escape in %s", lex)
				}
				n, err := strconv.ParseUint(string(rs[i+2:end]), 16, 32)
				if err != nil {
					return "", fmt.Errorf("bad \\u{...} escape in %s", lex)
				}
				b.WriteRune(rune(n))
				i = end
				continue
			}
			if i+1+width > len(rs) {
				return "", fmt.Errorf("short \\%c escape in %s", e, lex)
			}
			n, err := strconv.ParseUint(string(rs[i+1:i+1+width]), 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad \\%c escape in %s", e, lex)
			}
			b.WriteRune(rune(n))
			i += width
		default:
			// \\, \', \" and any other escaped character stand for themselves
			b.WriteRune(e)
		}
	}
	return b.String(), nil
}

// keywordKind maps identifiers to keyword tokens.
func keywordKind(s string) (TokKind, bool) {
	switch s {
	case "var":
		return TokVar, true
	case "let":
		return TokLet, true
	case "const":
		return TokConst, true
	case "function":
		return TokFunction, true
	case "return":
		return TokReturn, true
	case "if":
		return TokIf, true
	case "else":
		return TokElse, true
	case "while":
		return TokWhile, true
	case "for":
		return TokFor, true
	case "true":
		return TokTrue, true
	case "false":
		return TokFalse, true
	case "undefined":
		return TokUndefined, true
	default:
		return 0, false
	}
}
