package opt

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/eval"
	"github.com/desilang/jsopt/compiler/internal/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v\n%s", err, src)
	}
	return prog
}

func optimize(t *testing.T, src string, passes ...string) (*ast.Program, Result) {
	t.Helper()
	prog := parse(t, src)
	o, err := New(Options{Passes: passes}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return prog, o.Run(prog)
}

// rewrites renders the log without positions.
func rewrites(log []Record) []string {
	var out []string
	for _, r := range log {
		out = append(out, r.Pass+": "+nodeText(r.Before)+" => "+nodeText(r.After))
	}
	return out
}

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

// sameBehavior runs both trees and compares their traces.
func sameBehavior(t *testing.T, before, after *ast.Program) {
	t.Helper()
	want, err1 := eval.Run(before, eval.Options{Input: []string{"7", "8"}})
	got, err2 := eval.Run(after, eval.Options{Input: []string{"7", "8"}})
	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("errors differ: before=%v after=%v", err1, err2)
	}
	if diff := cmp.Diff(want.Trace, got.Trace); diff != "" {
		t.Errorf("observable behavior changed (-before +after):\n%s\n%s", diff, ast.Dump(after))
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
		log  []string
	}{
		{
			name: "arith",
			src:  "var x = 1 + 2 * 3;\nprintln(x);\n",
			want: lines("var x = 7;", "println(x);"),
			log:  []string{"fold: 2 * 3 => 6", "fold: 1 + 6 => 7"},
		},
		{
			name: "strings",
			src:  `println("a" + "b");`,
			want: lines(`println("ab");`),
			log:  []string{`fold: "a" + "b" => "ab"`},
		},
		{
			name: "logical",
			src:  `println(!true || "x");`,
			want: lines(`println("x");`),
			log:  []string{"fold: !true => false", `fold: false || "x" => "x"`},
		},
		{
			name: "mixed_left_alone",
			src:  `println(1 + "a"); println(undefined < 1);`,
			want: lines(`println(1 + "a");`, `println(undefined < 1);`),
		},
		{
			name: "operands_not_literal",
			src:  "var y = 2;\nprintln(y * 3);\n",
			want: lines("var y = 2;", "println(y * 3);"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, res := optimize(t, tc.src, PassFold)
			if got := ast.Dump(res.Tree); got != tc.want {
				t.Errorf("tree:\n%s\nwant:\n%s", got, tc.want)
			}
			if diff := cmp.Diff(tc.log, rewrites(res.Log)); diff != "" {
				t.Errorf("log mismatch (-want +got):\n%s", diff)
			}
			sameBehavior(t, prog, res.Tree)
		})
	}
}

func TestFoldIdempotent(t *testing.T) {
	srcs := []string{
		"var a = (1 + 2) * (3 - 4) / 2;\nprintln(a);\n",
		`var s = "n=" + 4; println(s + ("x" + "y"));`,
		"var c = 1 < 2 && 3 >= 3;\nprintln(c === true);\n",
	}
	for _, src := range srcs {
		_, first := optimize(t, src, PassFold)
		o, _ := New(Options{Passes: []string{PassFold}}, nil)
		second := o.Run(first.Tree)
		if len(second.Log) != 0 {
			t.Errorf("%q: second fold rewrote %v", src, rewrites(second.Log))
		}
		if !ast.Equal(first.Tree, second.Tree) {
			t.Errorf("%q: second fold changed the tree", src)
		}
	}
}

func TestDivisionByZeroLiteral(t *testing.T) {
	prog, res := optimize(t, "var y = 1 / 0;\nvar z = 4 % 0;\nprintln(y + z);\n", PassFold)
	if len(res.Log) != 0 {
		t.Fatalf("division by zero was folded: %v", rewrites(res.Log))
	}
	if !ast.Equal(prog, res.Tree) {
		t.Fatalf("tree changed:\n%s", ast.Dump(res.Tree))
	}
	var got []string
	for _, d := range res.Warnings.SortedByLocation() {
		got = append(got, d.String())
	}
	want := []string{
		"1:11: warning[DivisionByZeroLiteral]: division by literal zero left unfolded",
		"2:11: warning[DivisionByZeroLiteral]: remainder by literal zero left unfolded",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
	if res.Warnings.HasErrors() {
		t.Fatalf("optimizer produced an error")
	}
}

func TestDivisionByZeroWithUnknownDividend(t *testing.T) {
	_, res := optimize(t, "var x = input();\nvar y = x / 0;\nprintln(y);\n", PassFold)
	var got []string
	for _, d := range res.Warnings.SortedByLocation() {
		got = append(got, d.String())
	}
	want := []string{"2:11: warning[DivisionByZeroLiteral]: division by literal zero left unfolded"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestCSE(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
		log  []string
	}{
		{
			name: "reuses_holder",
			src: lines(
				"function f(p, q) {",
				"  var s = p * q + 1;",
				"  var t = p * q + 1;",
				"  return s + t;",
				"}",
				"println(f(2, 3));"),
			want: lines(
				"function f(p, q) {",
				"  var s = p * q + 1;",
				"  var t = s;",
				"  return s + t;",
				"}",
				"println(f(2, 3));"),
			log: []string{"cse: p * q + 1 => s"},
		},
		{
			name: "synthetic_temp",
			src:  lines("var a = 4;", "println(a * a - 1);", "println(a * a - 1);"),
			want: lines("var a = 4;", "const __cse0 = a * a - 1;", "println(__cse0);", "println(__cse0);"),
			log:  []string{"cse: a * a - 1 => __cse0", "cse: a * a - 1 => __cse0"},
		},
		{
			name: "killed_by_write",
			src:  lines("var a = 4;", "println(a * a);", "a = 5;", "println(a * a);"),
			want: lines("var a = 4;", "println(a * a);", "a = 5;", "println(a * a);"),
		},
		{
			name: "killed_by_call_writing_operand",
			src: lines(
				"var n = 1;",
				"function bump() {",
				"  n = n + 1;",
				"}",
				"println(n * 3);",
				"bump();",
				"println(n * 3);"),
			want: lines(
				"var n = 1;",
				"function bump() {",
				"  n = n + 1;",
				"}",
				"println(n * 3);",
				"bump();",
				"println(n * 3);"),
		},
		{
			name: "impure_call_never_shared",
			src: lines(
				"function g(v) {",
				"  println(v);",
				"  return v;",
				"}",
				"var r1 = g(1) + 1;",
				"var r2 = g(1) + 1;",
				"println(r1 + r2);"),
			want: lines(
				"function g(v) {",
				"  println(v);",
				"  return v;",
				"}",
				"var r1 = g(1) + 1;",
				"var r2 = g(1) + 1;",
				"println(r1 + r2);"),
		},
		{
			name: "pure_call_shared",
			src: lines(
				"function sq(v) {",
				"  return v * v;",
				"}",
				"var k = 3;",
				"println(sq(k) + 1);",
				"println(sq(k) + 1);"),
			want: lines(
				"function sq(v) {",
				"  return v * v;",
				"}",
				"var k = 3;",
				"const __cse0 = sq(k) + 1;",
				"println(__cse0);",
				"println(__cse0);"),
			log: []string{"cse: sq(k) + 1 => __cse0", "cse: sq(k) + 1 => __cse0"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, res := optimize(t, tc.src, PassCSE)
			if res.Aborted {
				t.Fatalf("optimizer aborted")
			}
			if got := ast.Dump(res.Tree); got != tc.want {
				t.Errorf("tree:\n%s\nwant:\n%s", got, tc.want)
			}
			if diff := cmp.Diff(tc.log, rewrites(res.Log)); diff != "" {
				t.Errorf("log mismatch (-want +got):\n%s", diff)
			}
			sameBehavior(t, prog, res.Tree)
		})
	}
}

func TestRedundantArithmetic(t *testing.T) {
	src := lines(
		"var x = 21;",
		"var a = x * 2;",
		"var b = x + x;",
		"println(a);",
		"println(b);")
	prog, res := optimize(t, src)
	want := []string{"arith: x + x => a"}
	if diff := cmp.Diff(want, rewrites(res.Log)); diff != "" {
		t.Fatalf("log mismatch (-want +got):\n%s", diff)
	}
	if got := ast.StmtString(res.Tree.Body[2]); got != "var b = a;" {
		t.Fatalf("b's initializer not rewritten: %s", got)
	}
	sameBehavior(t, prog, res.Tree)
}

func TestArithNeedsNumbers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		log  []string
	}{
		{
			name: "string_operand",
			src:  lines(`var x = "ab";`, "var a = x * 2;", "var b = x + x;", "println(a);", "println(b);"),
		},
		{
			name: "input_operand",
			src:  lines("var x = input();", "var a = x * 2;", "var b = x + x;", "println(a);", "println(b);"),
		},
		{
			name: "numeric_param",
			src: lines(
				"function twice(x) {",
				"  var a = 2 * x;",
				"  var b = x + x;",
				"  return a - b;",
				"}",
				"println(twice(4));",
				"println(twice(toNumber(input())));"),
			log: []string{"arith: x + x => a"},
		},
		{
			name: "escaping_param",
			src: lines(
				"function twice(x) {",
				"  var a = 2 * x;",
				"  var b = x + x;",
				"  return a - b;",
				"}",
				"var alias = twice;",
				"println(alias(\"s\"));"),
		},
		{
			name: "times_one",
			src:  lines("var x = 2;", "println(x * 1 + 3);", "println(x + 3);"),
			log:  []string{"arith: x * 1 + 3 => __ari0", "arith: x + 3 => __ari0"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, res := optimize(t, tc.src, PassArith)
			if diff := cmp.Diff(tc.log, rewrites(res.Log)); diff != "" {
				t.Errorf("log mismatch (-want +got):\n%s", diff)
			}
			sameBehavior(t, prog, res.Tree)
		})
	}
}

func TestDeadStores(t *testing.T) {
	src := lines(
		"var unused = 1 + 2;",
		`let alsoUnused = "x";`,
		"var kept = 3;",
		"var effect = println(1);",
		"println(kept);")
	prog, res := optimize(t, src, PassDSE)
	want := lines(
		"var kept = 3;",
		"var effect = println(1);",
		"println(kept);")
	if got := ast.Dump(res.Tree); got != want {
		t.Errorf("tree:\n%s\nwant:\n%s", got, want)
	}
	log := []string{
		"dse: var unused = 1 + 2; => ∅",
		`dse: let alsoUnused = "x"; => ∅`,
	}
	if diff := cmp.Diff(log, rewrites(res.Log)); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	sameBehavior(t, prog, res.Tree)
}

func TestDeadStoreKeepsWrittenBindings(t *testing.T) {
	src := lines("var w = 1;", "w = 2;", "println(3);")
	_, res := optimize(t, src, PassDSE)
	if len(res.Log) != 0 {
		t.Fatalf("removed a binding that is still assigned: %v", rewrites(res.Log))
	}
}

func TestInline(t *testing.T) {
	cases := []struct {
		name string
		src  string
		log  []string
	}{
		{
			name: "direct",
			src:  lines("function square(n) {", "  return n * n;", "}", "var k = 7;", "println(square(k));"),
			log:  []string{"inline: square(k) => k * k"},
		},
		{
			name: "literal_args",
			src:  lines("function add(p, q) {", "  var r = p + q;", "  return r;", "}", "println(add(1, 2));"),
			log:  []string{"inline: add(1, 2) => 1 + 2"},
		},
		{
			name: "recursive",
			src:  lines("function fact(n) {", "  return n <= 1 && 1 || n * fact(n - 1);", "}", "println(fact(5));"),
		},
		{
			name: "param_name_live_at_site",
			src:  lines("function inc(x) {", "  return x + 1;", "}", "var x = 2;", "println(inc(x));"),
		},
		{
			name: "captured_mutable",
			src:  lines("var base = 10;", "function addBase(v) {", "  return v + base;", "}", "println(addBase(1));"),
		},
		{
			name: "captured_const",
			src:  lines("const base = 10;", "function addBase(v) {", "  return v + base;", "}", "println(addBase(1));"),
			log:  []string{"inline: addBase(1) => 1 + base"},
		},
		{
			name: "effectful_arg_not_at_root",
			src:  lines("function id(v) {", "  return v;", "}", "println(id(input()) + 1);"),
		},
		{
			name: "effectful_arg_at_root",
			src:  lines("function id(v) {", "  return v;", "}", "var got = id(input());", "println(got);"),
			log: []string{
				"inline: ∅ => const __inl0 = input();",
				"inline: id(input()) => __inl0",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, res := optimize(t, tc.src, PassInline)
			if res.Aborted {
				t.Fatalf("optimizer aborted")
			}
			if diff := cmp.Diff(tc.log, rewrites(res.Log)); diff != "" {
				t.Errorf("log mismatch (-want +got):\n%s", diff)
			}
			sameBehavior(t, prog, res.Tree)
		})
	}
}

func TestInlinePreservesArgumentOrder(t *testing.T) {
	src := lines(
		"function log(m) {",
		"  println(m);",
		"  return m;",
		"}",
		"function pick(a, b) {",
		"  return b + a;",
		"}",
		"var r = pick(log(1), log(2));",
		"println(r);")
	prog, res := optimize(t, src, PassInline)
	want := lines(
		"function log(m) {",
		"  println(m);",
		"  return m;",
		"}",
		"function pick(a, b) {",
		"  return b + a;",
		"}",
		"const __inl0 = log(1);",
		"const __inl1 = log(2);",
		"var r = __inl1 + __inl0;",
		"println(r);")
	if got := ast.Dump(res.Tree); got != want {
		t.Fatalf("tree:\n%s\nwant:\n%s", got, want)
	}
	before, _ := eval.Run(prog, eval.Options{})
	after, _ := eval.Run(res.Tree, eval.Options{})
	wantTrace := []string{"println 1", "println 2", "println 3"}
	if diff := cmp.Diff(wantTrace, before.Trace); diff != "" {
		t.Fatalf("unexpected baseline (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantTrace, after.Trace); diff != "" {
		t.Fatalf("argument evaluation changed (-want +got):\n%s", diff)
	}
}

func TestLoopsAreNotFolded(t *testing.T) {
	src := lines(
		"var total = 0;",
		"for (var i = 1; i <= 10; i = i + 1) {",
		"  total = total + 1;",
		"}",
		"println(total);")
	prog, res := optimize(t, src)
	if len(res.Log) != 0 {
		t.Fatalf("loop was rewritten: %v", rewrites(res.Log))
	}
	if !ast.Equal(prog, res.Tree) {
		t.Fatalf("tree changed:\n%s", ast.Dump(res.Tree))
	}
	sameBehavior(t, prog, res.Tree)
}

func TestEquivalence(t *testing.T) {
	srcs := []string{
		lines(
			"function calc(x) {",
			"  var a = x * 2;",
			"  var b = x + x;",
			"  var c = a + b;",
			"  return c;",
			"}",
			"function count() {",
			"  var total = 0;",
			"  for (var i = 1; i <= 10; i = i + 1) {",
			"    total = total + 1;",
			"  }",
			"  return total;",
			"}",
			"var k = 5 + 3;",
			"var r1 = calc(5);",
			"var r2 = count();",
			"println(k + r1 + r2);"),
		lines(
			"function add(a, b) {",
			"  return a + b;",
			"}",
			"function ops() {",
			"  var x = 10;",
			"  var y = 20;",
			"  var r1 = add(x, y);",
			"  var r2 = add(r1, 5);",
			"  return add(r2, x);",
			"}",
			"println(ops());",
			`println(add("a", input()));`),
		lines(
			"let age = 25;",
			"const adult = 18;",
			"if (age >= adult) {",
			`  var status = "adult";`,
			"} else {",
			`  var status = "minor";`,
			"}",
			"var allowed = age >= 18 && age <= 65;",
			"println(status);",
			"println(!allowed);"),
		lines(
			"var n = 0;",
			"function tick() {",
			"  n = n + 1;",
			"  return n;",
			"}",
			"var p = tick() * 2;",
			"var q = tick() * 2;",
			"println(p + q);",
			"println(n * n + n * n);"),
	}
	for i, src := range srcs {
		prog, res := optimize(t, src)
		if res.Aborted {
			t.Errorf("program %d: optimizer aborted", i)
			continue
		}
		if res.Warnings.HasErrors() {
			t.Errorf("program %d: optimizer reported errors", i)
		}
		sameBehavior(t, prog, res.Tree)
	}
}

// corruptPass leaves a reference to a name that does not exist.
type corruptPass struct{}

func (corruptPass) Name() string { return "corrupt" }

func (corruptPass) Apply(prog *ast.Program, _ *analysis, _ *diag.Set) []Record {
	ghost := &ast.ExprStmt{X: &ast.Ident{Name: "ghost"}}
	prog.Body = append(prog.Body, ghost)
	return []Record{record("corrupt", nil, ghost)}
}

type panicPass struct{}

func (panicPass) Name() string { return "panic" }

func (panicPass) Apply(*ast.Program, *analysis, *diag.Set) []Record { panic("boom") }

func TestFailingPassIsDiscarded(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	o := &Optimizer{
		opts:   Options{}.withDefaults(),
		passes: []pass{corruptPass{}, panicPass{}, foldPass{}},
		logger: logger,
	}
	prog := parse(t, "var a = 2 * 3;\nprintln(a);\n")
	res := o.Run(prog)
	if res.Aborted {
		t.Fatalf("aborted")
	}
	if diff := cmp.Diff([]string{"fold: 2 * 3 => 6"}, rewrites(res.Log)); diff != "" {
		t.Fatalf("log mismatch (-want +got):\n%s", diff)
	}
	if got := ast.Dump(res.Tree); got != lines("var a = 6;", "println(a);") {
		t.Fatalf("tree:\n%s", got)
	}
	if n := strings.Count(buf.String(), "pass discarded"); n != 2 {
		t.Fatalf("expected two discarded passes, log:\n%s", buf.String())
	}
	if got := ast.Dump(prog); got != lines("var a = 2 * 3;", "println(a);") {
		t.Fatalf("input tree was modified:\n%s", got)
	}
}

func TestRejectsInvalidInput(t *testing.T) {
	prog, res := optimize(t, "const c = 1;\nc = 2;\n")
	if !res.Aborted || res.Tree != prog || len(res.Log) != 0 {
		t.Fatalf("optimizer ran over an invalid program: %+v", res)
	}
}

func TestUnknownPass(t *testing.T) {
	if _, err := New(Options{Passes: []string{"fold", "unroll"}}, nil); err == nil {
		t.Fatal("expected an error for an unknown pass")
	}
}
