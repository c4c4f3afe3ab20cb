package diag

import "sort"

type dedupKey struct {
	kind Kind
	pos  Pos
}

// Set accumulates diagnostics from any stage. Producers record freely;
// duplicates by (kind, location) are dropped here and nowhere else.
// The zero Set is ready to use.
type Set struct {
	items []Diagnostic
	seen  map[dedupKey]bool
}

func NewSet() *Set { return &Set{} }

// Record adds d unless a diagnostic of the same kind at the same location
// was already recorded.
func (s *Set) Record(d Diagnostic) {
	k := dedupKey{d.Kind, d.Pos}
	if s.seen[k] {
		return
	}
	if s.seen == nil {
		s.seen = map[dedupKey]bool{}
	}
	s.seen[k] = true
	s.items = append(s.items, d)
}

// Add is shorthand for Record(New(kind, pos, format, args...)).
func (s *Set) Add(kind Kind, pos Pos, format string, args ...any) {
	s.Record(New(kind, pos, format, args...))
}

// Merge records every diagnostic of other, in its discovery order.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		s.Record(d)
	}
}

// All returns the diagnostics in discovery order.
func (s *Set) All() []Diagnostic {
	return append([]Diagnostic(nil), s.items...)
}

// SortedByLocation orders by (line, column); ties keep discovery order.
func (s *Set) SortedByLocation() []Diagnostic {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return out
}

func (s *Set) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (s *Set) Len() int { return len(s.items) }

// Count returns how many diagnostics of kind k were recorded.
func (s *Set) Count(k Kind) int {
	n := 0
	for _, d := range s.items {
		if d.Kind == k {
			n++
		}
	}
	return n
}

func (s *Set) Errors() []Diagnostic   { return s.filter(Error) }
func (s *Set) Warnings() []Diagnostic { return s.filter(Warning) }

func (s *Set) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.items {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}
