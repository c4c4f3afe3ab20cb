// Package term wraps fmt printing for callers that do not act on write
// errors: CLI output and in-memory rendering.
package term

import (
	"fmt"
	"io"
	"strings"
)

func Wprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
func Wprintln(w io.Writer, a ...any)               { _, _ = fmt.Fprintln(w, a...) }

// Bprintf formats into b; a strings.Builder never fails a write.
func Bprintf(b *strings.Builder, format string, a ...any) { _, _ = fmt.Fprintf(b, format, a...) }
