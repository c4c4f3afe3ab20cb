package value

import (
	"math"
	"slices"
	"unicode/utf16"
)

// Binary applies a non-short-circuit binary operator with the language's
// coercion rules. Unknown operators yield undefined.
func Binary(op string, a, b Value) Value {
	switch op {
	case "+":
		if a.kind == KindString || b.kind == KindString {
			return Str(a.String() + b.String())
		}
		return Num(ToNumber(a) + ToNumber(b))
	case "-":
		return Num(ToNumber(a) - ToNumber(b))
	case "*":
		return Num(ToNumber(a) * ToNumber(b))
	case "/":
		return Num(ToNumber(a) / ToNumber(b))
	case "%":
		return Num(math.Mod(ToNumber(a), ToNumber(b)))
	case "<", "<=", ">", ">=":
		return Bool(compare(op, a, b))
	case "==":
		return Bool(LooseEqual(a, b))
	case "!=":
		return Bool(!LooseEqual(a, b))
	case "===":
		return Bool(StrictEqual(a, b))
	case "!==":
		return Bool(!StrictEqual(a, b))
	}
	return Undefined
}

// Logical evaluates && or || given both operand values; the result is one of
// the operands, as in the source language.
func Logical(op string, a, b Value) Value {
	if op == "&&" {
		if Truthy(a) {
			return b
		}
		return a
	}
	if Truthy(a) {
		return a
	}
	return b
}

// Unary applies a prefix operator.
func Unary(op string, a Value) Value {
	switch op {
	case "!":
		return Bool(!Truthy(a))
	case "-":
		return Num(-ToNumber(a))
	case "+":
		return Num(ToNumber(a))
	}
	return Undefined
}

func compare(op string, a, b Value) bool {
	if a.kind == KindString && b.kind == KindString {
		c := compareUTF16(a.str, b.str)
		switch op {
		case "<":
			return c < 0
		case "<=":
			return c <= 0
		case ">":
			return c > 0
		default:
			return c >= 0
		}
	}
	x, y := ToNumber(a), ToNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	default:
		return x >= y
	}
}

// StrictEqual implements ===.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindBoolean:
		return a.b == b.b
	default:
		return true
	}
}

// LooseEqual implements == for the closed value set.
func LooseEqual(a, b Value) bool {
	if a.kind == b.kind {
		return StrictEqual(a, b)
	}
	if a.kind == KindUndefined || b.kind == KindUndefined {
		return false
	}
	return ToNumber(a) == ToNumber(b)
}

// Foldable reports whether op over a and b is a well-defined combination that
// constant folding may evaluate at compile time. Division and remainder by
// zero and results that are not finite are excluded.
func Foldable(op string, a, b Value) bool {
	switch op {
	case "+":
		if a.kind == KindString && b.kind == KindString {
			return true
		}
		if a.kind != KindNumber || b.kind != KindNumber {
			return false
		}
	case "-", "*", "/", "%":
		if a.kind != KindNumber || b.kind != KindNumber {
			return false
		}
		if (op == "/" || op == "%") && b.num == 0 {
			return false
		}
	case "<", "<=", ">", ">=", "==", "!=":
		return a.kind == b.kind && a.kind != KindUndefined
	case "===", "!==", "&&", "||":
		return true
	default:
		return false
	}
	r := Binary(op, a, b)
	return !math.IsNaN(r.num) && !math.IsInf(r.num, 0)
}

// FoldableUnary reports whether a prefix operator may be folded over a.
func FoldableUnary(op string, a Value) bool {
	switch op {
	case "!":
		return true
	case "-", "+":
		return a.kind == KindNumber && !math.IsNaN(a.num) && !math.IsInf(a.num, 0)
	}
	return false
}

// compareUTF16 orders strings by UTF-16 code units, as JS relational
// operators do.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
