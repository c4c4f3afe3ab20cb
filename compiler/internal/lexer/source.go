package lexer

// Source is a minimal token source the parser can consume.
// Any implementation only needs to yield successive tokens via Next().
type Source interface {
	Next() Token
}

// NewSource returns a Source backed by the Go lexer for the input string.
func NewSource(src string) Source {
	return New(src)
}

// sliceSource replays a fixed token list, then EOF forever.
type sliceSource struct {
	toks []Token
	i    int
}

// FromTokens returns a Source that yields toks in order. A trailing EOF is
// synthesized if the list lacks one.
func FromTokens(toks []Token) Source {
	return &sliceSource{toks: toks}
}

func (s *sliceSource) Next() Token {
	if s.i >= len(s.toks) {
		line, col := 1, 1
		if n := len(s.toks); n > 0 {
			line, col = s.toks[n-1].Line, s.toks[n-1].Col
		}
		return Token{Kind: TokEOF, Line: line, Col: col}
	}
	t := s.toks[s.i]
	s.i++
	return t
}
