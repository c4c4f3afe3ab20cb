package check

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/parser"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

func analyze(t *testing.T, src string) *diag.Set {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v\n%s", err, src)
	}
	_, ds := Analyze(prog, scope.Options{})
	return ds
}

func summary(ds *diag.Set) []string {
	var out []string
	for _, d := range ds.SortedByLocation() {
		out = append(out, fmt.Sprintf("%d:%d %s %s", d.Pos.Line, d.Pos.Col, d.Severity, d.Kind))
	}
	return out
}

func TestConstAssignmentExactlyOnce(t *testing.T) {
	values := []string{"1", "\"s\"", "true", "undefined", "1 + 2"}
	for _, v := range values {
		for _, w := range values {
			src := fmt.Sprintf("const x = %s;\nx = %s;\n", v, w)
			ds := analyze(t, src)
			want := []string{"2:1 error ConstAssignment"}
			if diff := cmp.Diff(want, summary(ds)); diff != "" {
				t.Errorf("%q: mismatch (-want +got):\n%s", src, diff)
			}
		}
	}
}

func TestThreeErrorBatch(t *testing.T) {
	ds := analyze(t, ""+
		"const limit = 1;\n"+
		"const limit = 2;\n"+
		"limit = 3;\n"+
		"println(missing);\n")
	want := []string{
		"2:7 error Redeclaration",
		"3:1 error ConstAssignment",
		"4:9 error UndeclaredVariable",
	}
	if diff := cmp.Diff(want, summary(ds)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if n := len(ds.Errors()); n != 3 {
		t.Fatalf("expected 3 errors, got %d", n)
	}
}

func TestWarnings(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "unused_let_and_var",
			src:  "let a = 1;\nvar b = 2;\nconst c = 3;\nlet _d = 4;\n",
			want: []string{"1:5 warning UnusedBinding", "2:5 warning UnusedBinding"},
		},
		{
			name: "written_but_never_read",
			src:  "let a = 1;\na = 2;\n",
			want: []string{"1:5 warning UnusedBinding"},
		},
		{
			name: "function_arity",
			src:  "function add(a, b) { return a + b; }\nprintln(add(1));\n",
			want: []string{"2:9 warning ArityMismatch"},
		},
		{
			name: "builtin_arity",
			src:  "println(1, 2);\n",
			want: []string{"1:1 warning ArityMismatch"},
		},
		{
			name: "reassigned_function_not_checked",
			src:  "function f(a) { return a; }\nf = 1;\nprintln(f(1, 2));\n",
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ds := analyze(t, c.src)
			if diff := cmp.Diff(c.want, summary(ds)); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
			if ds.HasErrors() {
				t.Fatalf("warnings must not count as errors")
			}
		})
	}
}

func TestAssignToBuiltin(t *testing.T) {
	ds := analyze(t, "println = 1;\n")
	want := []string{"1:1 error ConstAssignment"}
	if diff := cmp.Diff(want, summary(ds)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
