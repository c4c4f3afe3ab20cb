package lexer

// TokKind enumerates token kinds produced by the lexer.
type TokKind int

const (
	// Special
	TokEOF TokKind = iota
	TokIllegal

	// Literals/identifiers
	TokIdent
	TokNumber
	TokString

	// Keywords
	TokVar
	TokLet
	TokConst
	TokFunction
	TokReturn
	TokIf
	TokElse
	TokWhile
	TokFor
	TokTrue
	TokFalse
	TokUndefined

	// Operators/punctuation
	TokEq        // =
	TokPlusEq    // +=
	TokMinusEq   // -=
	TokStarEq    // *=
	TokSlashEq   // /=
	TokPercentEq // %=
	TokPlus      // +
	TokMinus     // -
	TokStar      // *
	TokSlash     // /
	TokPercent   // %
	TokBang      // !
	TokLt        // <
	TokLe        // <=
	TokGt        // >
	TokGe        // >=
	TokEqEq      // ==
	TokNe        // !=
	TokEqEqEq    // ===
	TokNeEq      // !==
	TokAndAnd    // &&
	TokOrOr      // ||
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokComma     // ,
	TokSemi      // ;
)

var kindNames = [...]string{
	TokEOF:       "EOF",
	TokIllegal:   "ILLEGAL",
	TokIdent:     "identifier",
	TokNumber:    "number",
	TokString:    "string",
	TokVar:       "var",
	TokLet:       "let",
	TokConst:     "const",
	TokFunction:  "function",
	TokReturn:    "return",
	TokIf:        "if",
	TokElse:      "else",
	TokWhile:     "while",
	TokFor:       "for",
	TokTrue:      "true",
	TokFalse:     "false",
	TokUndefined: "undefined",
	TokEq:        "=",
	TokPlusEq:    "+=",
	TokMinusEq:   "-=",
	TokStarEq:    "*=",
	TokSlashEq:   "/=",
	TokPercentEq: "%=",
	TokPlus:      "+",
	TokMinus:     "-",
	TokStar:      "*",
	TokSlash:     "/",
	TokPercent:   "%",
	TokBang:      "!",
	TokLt:        "<",
	TokLe:        "<=",
	TokGt:        ">",
	TokGe:        ">=",
	TokEqEq:      "==",
	TokNe:        "!=",
	TokEqEqEq:    "===",
	TokNeEq:      "!==",
	TokAndAnd:    "&&",
	TokOrOr:      "||",
	TokLParen:    "(",
	TokRParen:    ")",
	TokLBrace:    "{",
	TokRBrace:    "}",
	TokComma:     ",",
	TokSemi:      ";",
}

func (k TokKind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "token(?)"
}

// Token is a single lexeme with source position.
// NewlineBefore is set when a line break separates it from the previous token.
type Token struct {
	Kind          TokKind
	Lex           string
	Line          int
	Col           int
	NewlineBefore bool
}
