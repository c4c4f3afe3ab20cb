package scope

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/parser"
)

func build(t *testing.T, src string) (*ast.Program, *Tree, *diag.Set) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v\n%s", err, src)
	}
	tree, ds := Build(prog, Options{})
	return prog, tree, ds
}

// kinds renders diagnostics as "line:col Kind" in location order.
func kinds(ds *diag.Set) []string {
	var out []string
	for _, d := range ds.SortedByLocation() {
		out = append(out, d.String()[:strings.Index(d.String(), ": ")]+" "+d.Kind.String())
	}
	return out
}

func TestVarHoistsOutOfBlocks(t *testing.T) {
	_, tree, ds := build(t, ""+
		"function f() {\n"+
		"  if (true) {\n"+
		"    var inner = 1;\n"+
		"  }\n"+
		"  return inner;\n"+
		"}\n")
	if ds.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", kinds(ds))
	}
	var inner *Binding
	for _, b := range tree.Bindings {
		if b.Name == "inner" {
			inner = b
		}
	}
	if inner == nil {
		t.Fatalf("no binding for inner")
	}
	if s := tree.Scopes[inner.Scope]; s.Kind != Function {
		t.Fatalf("var binding lives in a %s scope", s.Kind)
	}
	if !inner.Read || inner.Reads != 1 {
		t.Fatalf("read flag not set: %+v", inner)
	}
}

func TestLetStaysInBlock(t *testing.T) {
	_, _, ds := build(t, ""+
		"function f() {\n"+
		"  {\n"+
		"    let hidden = 1;\n"+
		"    println(hidden);\n"+
		"  }\n"+
		"  return hidden;\n"+
		"}\n")
	want := []string{"6:10 UndeclaredVariable"}
	if diff := cmp.Diff(want, kinds(ds)); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestShadowingPrefersInnermost(t *testing.T) {
	prog, tree, ds := build(t, ""+
		"var x = 1;\n"+
		"{\n"+
		"  let x = 2;\n"+
		"  println(x);\n"+
		"}\n"+
		"println(x);\n")
	if ds.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", kinds(ds))
	}
	var uses []*ast.Ident
	ast.Inspect(prog, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && id.Name == "x" {
			uses = append(uses, id)
		}
		return true
	})
	if len(uses) != 2 {
		t.Fatalf("expected 2 references, got %d", len(uses))
	}
	inner, outer := tree.Refs[uses[0]], tree.Refs[uses[1]]
	if inner.Kind != BindLet || outer.Kind != BindVar {
		t.Fatalf("inner resolved to %s, outer to %s", inner.Kind, outer.Kind)
	}
}

func TestReferencesResolveToAncestors(t *testing.T) {
	_, tree, _ := build(t, ""+
		"let a = 1;\n"+
		"function f(p) {\n"+
		"  for (let i = 0; i < p; i = i + 1) {\n"+
		"    { a = a + i; }\n"+
		"  }\n"+
		"}\n")
	for id, b := range tree.Refs {
		if b.Kind == BindBuiltin {
			continue
		}
		if !tree.IsAncestor(b.Scope, tree.RefScope[id]) {
			t.Errorf("%s at %v resolved outside its scope chain", id.Name, id.Pos)
		}
	}
	for _, s := range tree.Scopes {
		seen := map[string]bool{}
		for _, b := range s.Bindings() {
			if seen[b.Name] {
				t.Errorf("scope %d declares %s twice", s.ID, b.Name)
			}
			seen[b.Name] = true
		}
	}
}

func TestRedeclaration(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{"let_let", "let a = 1;\nlet a = 2;\nprintln(a);", []string{"2:5 Redeclaration"}},
		{"const_let", "const a = 1;\n{ let b = a; println(b); }\nlet a = 3;", []string{"3:5 Redeclaration"}},
		{"var_var_ok", "var a = 1;\nvar a = 2;\nprintln(a);", nil},
		{"var_after_let", "let a = 1;\nvar a = 2;\nprintln(a);", []string{"2:5 Redeclaration"}},
		{"var_in_nested_block", "{\n  let a = 1;\n  { var a = 2; }\n  println(a);\n}", []string{"3:9 Redeclaration"}},
		{"sibling_blocks_ok", "{ let a = 1; println(a); }\n{ let a = 2; println(a); }", nil},
		{"duplicate_param", "function f(a, a) { return a; }\nprintln(f(1, 2));", []string{"1:15 Redeclaration"}},
		{"let_shadows_param_in_block", "function f(a) { { let a = 2; return a; } }\nprintln(f(1));", nil},
		{"var_in_for_body_vs_header_let", "for (let i = 0; i < 1; i = i + 1) { var i = 2; println(i); }", []string{"1:41 Redeclaration"}},
		{"var_in_for_header_ok", "for (var i = 0; i < 2; i = i + 1) { var j = i; println(j); }\nprintln(i);", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, ds := build(t, c.src)
			if diff := cmp.Diff(c.want, kinds(ds)); diff != "" {
				t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIllegalReturn(t *testing.T) {
	_, _, ds := build(t, ""+
		"function ok() {\n"+
		"  if (true) { return 1; }\n"+
		"  return 2;\n"+
		"}\n"+
		"if (true) {\n"+
		"  return 3;\n"+
		"}\n"+
		"return ok();\n")
	want := []string{"6:3 IllegalReturn", "8:1 IllegalReturn"}
	if diff := cmp.Diff(want, kinds(ds)); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

// A top-level return referencing names that only exist inside a function,
// plus a second bare top-level return.
func TestScenarioErrorBatch(t *testing.T) {
	_, _, ds := build(t, ""+
		"function exemplo() {\n"+
		"  var localVar = 1;\n"+
		"  if (localVar > 0) {\n"+
		"    var blocoVar = 2;\n"+
		"  }\n"+
		"  return blocoVar + localVar;\n"+
		"}\n"+
		"return blocoVar + localVar;\n"+
		"return 10;\n"+
		"var teste = localVar;\n"+
		"println(teste);\n")
	want := []string{
		"8:1 IllegalReturn",
		"8:8 UndeclaredVariable",
		"8:19 UndeclaredVariable",
		"9:1 IllegalReturn",
		"10:13 UndeclaredVariable",
	}
	if diff := cmp.Diff(want, kinds(ds)); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionsSeeLaterDeclarations(t *testing.T) {
	_, _, ds := build(t, ""+
		"function f() { return limit + g(); }\n"+
		"function g() { return 1; }\n"+
		"const limit = 5;\n"+
		"println(f());\n")
	if ds.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", kinds(ds))
	}
}

func TestBuiltinsAndWrites(t *testing.T) {
	_, tree, ds := build(t, ""+
		"let n = toNumber(input());\n"+
		"n = n + 1;\n"+
		"println(concat(\"n=\", n));\n")
	if ds.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", kinds(ds))
	}
	n := tree.Lookup(0, "n")
	if n == nil || n.Writes != 1 || n.Reads != 2 {
		t.Fatalf("n binding = %+v", n)
	}
	if b := tree.Lookup(0, "println"); b == nil || b.Kind != BindBuiltin || b.Arity != 1 {
		t.Fatalf("println builtin = %+v", b)
	}
}

func TestMissingInitializer(t *testing.T) {
	_, _, ds := build(t, "const k;\nprintln(k);")
	want := []string{"1:7 MissingInitializer"}
	if diff := cmp.Diff(want, kinds(ds)); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestNestingTooDeep(t *testing.T) {
	src := "let x = " + strings.Repeat("!", 40) + "1;\nprintln(x);"
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	_, ds := Build(prog, Options{MaxDepth: 16})
	if ds.Count(diag.NestingTooDeep) != 1 {
		t.Fatalf("expected one NestingTooDeep, got %v", kinds(ds))
	}
}
