package diag

import "fmt"

// Pos marks a 1-based line/column location in a file.
type Pos struct{ Line, Col int }

// Severity separates blocking errors from advisory warnings.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind identifies what a diagnostic is about.
type Kind uint8

const (
	UndeclaredVariable Kind = iota
	Redeclaration
	ConstAssignment
	IllegalReturn
	MissingInitializer
	NestingTooDeep
	UnusedBinding
	ArityMismatch
	DivisionByZeroLiteral
)

var kindNames = [...]string{
	UndeclaredVariable:    "UndeclaredVariable",
	Redeclaration:         "Redeclaration",
	ConstAssignment:       "ConstAssignment",
	IllegalReturn:         "IllegalReturn",
	MissingInitializer:    "MissingInitializer",
	NestingTooDeep:        "NestingTooDeep",
	UnusedBinding:         "UnusedBinding",
	ArityMismatch:         "ArityMismatch",
	DivisionByZeroLiteral: "DivisionByZeroLiteral",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Severity is the fixed severity of diagnostics of kind k.
func (k Kind) Severity() Severity {
	switch k {
	case UnusedBinding, ArityMismatch, DivisionByZeroLiteral:
		return Warning
	}
	return Error
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Diagnostic is a semantic finding at a source location.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Pos      Pos
	Msg      string
}

// New builds a diagnostic with the kind's default severity.
func New(kind Kind, pos Pos, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Severity: kind.Severity(), Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// String renders the one-line report form `line:col: severity[Kind]: msg`.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s[%s]: %s", d.Pos.Line, d.Pos.Col, d.Severity, d.Kind, d.Msg)
}
