package diag

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/desilang/jsopt/compiler/internal/term"
)

// RenderPretty renders d with a source excerpt:
//
//	error[JSE0001]: use of undeclared identifier
//	 --> main.js:3:5
//	 3 | x = y
//	   |     ^ y is not declared
//	help: declare the name with var, let or const in an enclosing scope
//
// src may be nil, in which case the excerpt is omitted.
func RenderPretty(d Diagnostic, file string, src []byte) string {
	ce := MustLookup(d.Kind)

	var b strings.Builder
	term.Bprintf(&b, "%s[%s]: %s\n", d.Severity, ce.ID, ce.Title)
	if d.Pos.Line > 0 && d.Pos.Col > 0 {
		name := file
		if name == "" {
			name = "<input>"
		}
		term.Bprintf(&b, " --> %s:%d:%d\n", name, d.Pos.Line, d.Pos.Col)
	}
	if src != nil && d.Pos.Line > 0 {
		lineText := getLineText(src, d.Pos.Line)
		lnStr := strconv.Itoa(d.Pos.Line)
		term.Bprintf(&b, " %s | %s\n", lnStr, lineText)
		b.WriteString(" " + strings.Repeat(" ", len(lnStr)) + " | ")
		writeUnderline(&b, lineText, d.Pos.Col, d.Msg)
		b.WriteByte('\n')
	}
	if h := strings.TrimSpace(ce.Help); h != "" {
		term.Bprintf(&b, "help: %s\n", h)
	}
	return b.String()
}

// RenderAll renders every diagnostic of s, ordered by location, separated
// by blank lines.
func RenderAll(s *Set, file string, src []byte) string {
	var out strings.Builder
	for i, d := range s.SortedByLocation() {
		if i > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(RenderPretty(d, file, src))
	}
	return out.String()
}

// writeUnderline marks the word starting at col with ^~~ and appends label.
func writeUnderline(b *strings.Builder, line string, col int, label string) {
	vis := visualize(line)
	start := clamp(col-1, 0, len(vis))
	end := start
	for end < len(vis) && isWordRune(vis[end]) {
		end++
	}
	if end == start && start < len(vis) {
		end = start + 1
	}
	b.WriteString(strings.Repeat(" ", start))
	b.WriteString("^")
	if end-start > 1 {
		b.WriteString(strings.Repeat("~", end-start-1))
	}
	if strings.TrimSpace(label) != "" {
		b.WriteString(" ")
		b.WriteString(label)
	}
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func getLineText(src []byte, line int) string {
	if line <= 0 {
		return ""
	}
	cur := 1
	start := 0
	for i, c := range src {
		if c == '\n' {
			if cur == line {
				return strings.TrimSuffix(string(src[start:i]), "\r")
			}
			cur++
			start = i + 1
		}
	}
	if cur == line && start <= len(src) {
		return string(src[start:])
	}
	return ""
}

func visualize(s string) []rune {
	const tabw = 4
	var vis []rune
	for len(s) > 0 {
		r, sz := utf8.DecodeRuneInString(s)
		if r == '\t' {
			for i := 0; i < tabw; i++ {
				vis = append(vis, ' ')
			}
		} else if r == utf8.RuneError && sz == 1 {
			vis = append(vis, '�')
		} else {
			vis = append(vis, r)
		}
		s = s[sz:]
	}
	return vis
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
