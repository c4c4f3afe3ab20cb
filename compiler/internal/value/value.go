// Package value models the literal values of the scripting language and the
// operator semantics shared by constant folding and the test evaluator.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the closed set of literal value shapes.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNumber
	KindString
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	default:
		return "undefined"
	}
}

// Value is an immutable literal value. The zero Value is undefined.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Undefined is the undefined value.
var Undefined = Value{}

func Num(f float64) Value         { return Value{kind: KindNumber, num: f} }
func Str(s string) Value          { return Value{kind: KindString, str: s} }
func Bool(b bool) Value           { return Value{kind: KindBoolean, b: b} }
func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// AsNumber returns the raw number payload; it is 0 for other kinds.
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the raw string payload; it is "" for other kinds.
func (v Value) AsString() string { return v.str }

// AsBool returns the raw boolean payload; it is false for other kinds.
func (v Value) AsBool() bool { return v.b }

// String converts v the way the language's ToString does.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	case KindBoolean:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return "undefined"
	}
}

// Source renders v as it would be written in source text.
func (v Value) Source() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		if v.num == 0 && math.Signbit(v.num) {
			return "-0"
		}
		return FormatNumber(v.num)
	default:
		return v.String()
	}
}

// Same reports structural identity: NaN is the same as NaN and -0 differs
// from +0. It is the equality used when comparing syntax trees.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber:
		if math.IsNaN(a.num) || math.IsNaN(b.num) {
			return math.IsNaN(a.num) && math.IsNaN(b.num)
		}
		return a.num == b.num && math.Signbit(a.num) == math.Signbit(b.num)
	case KindString:
		return a.str == b.str
	case KindBoolean:
		return a.b == b.b
	default:
		return true
	}
}

// FormatNumber formats f like the language's Number-to-String conversion.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + string(sign) + exp
}

// ToNumber converts v the way the language's ToNumber does.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBoolean:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		return parseNumeric(v.str)
	default:
		return math.NaN()
	}
}

func parseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	lower := strings.ToLower(s)
	if strings.ContainsAny(lower, "xp_in") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Truthy reports the boolean interpretation of v.
func Truthy(v Value) bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	case KindBoolean:
		return v.b
	default:
		return false
	}
}
