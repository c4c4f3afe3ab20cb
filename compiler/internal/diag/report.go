package diag

import (
	"encoding/json"
	"fmt"
	"io"
)

// Record is the serialized shape of one diagnostic.
type Record struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Code     string `json:"code"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
}

// Report flattens s into records ordered by location.
func Report(s *Set, file string) []Record {
	sorted := s.SortedByLocation()
	out := make([]Record, 0, len(sorted))
	for _, d := range sorted {
		out = append(out, Record{
			Severity: d.Severity.String(),
			Kind:     d.Kind.String(),
			Code:     d.Kind.Code(),
			Line:     d.Pos.Line,
			Column:   d.Pos.Col,
			Message:  d.Msg,
			File:     file,
		})
	}
	return out
}

// WriteJSON writes the report of s as an indented JSON array.
func WriteJSON(w io.Writer, s *Set, file string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report(s, file))
}

// WriteText writes one `file:line:col: severity[Kind]: msg` line per
// diagnostic, ordered by location.
func WriteText(w io.Writer, s *Set, file string) error {
	for _, d := range s.SortedByLocation() {
		prefix := ""
		if file != "" {
			prefix = file + ":"
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, d.String()); err != nil {
			return err
		}
	}
	return nil
}
