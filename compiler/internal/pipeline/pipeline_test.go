package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/eval"
	"github.com/desilang/jsopt/compiler/internal/parser"
)

// fixture is one testdata archive. Sections: input.js (required),
// diagnostics (required, may be empty), and optionally log, output.js and
// trace.
type fixture struct {
	name     string
	sections map[string]string
}

func loadFixtures(t *testing.T) []fixture {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures found")
	}
	var out []fixture
	for _, p := range paths {
		ar, err := txtar.ParseFile(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		f := fixture{name: strings.TrimSuffix(filepath.Base(p), ".txtar"), sections: map[string]string{}}
		for _, file := range ar.Files {
			f.sections[file.Name] = string(file.Data)
		}
		if _, ok := f.sections["input.js"]; !ok {
			t.Fatalf("%s: missing input.js", p)
		}
		out = append(out, f)
	}
	return out
}

func (f fixture) parse(t *testing.T) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(f.sections["input.js"])
	if err != nil {
		t.Fatalf("%s: parse: %v", f.name, err)
	}
	return prog
}

func renderLog(res Result) string {
	var b strings.Builder
	for _, r := range res.Log {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func TestFixtures(t *testing.T) {
	for _, f := range loadFixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			prog := f.parse(t)
			res, err := Run(prog, config.Default(), nil)
			if err != nil {
				t.Fatal(err)
			}

			var got strings.Builder
			if err := diag.WriteText(&got, res.Diagnostics, ""); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(f.sections["diagnostics"], got.String()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}

			if res.Diagnostics.HasErrors() {
				if res.Optimized || res.Tree != prog || len(res.Log) != 0 {
					t.Fatalf("optimizer ran despite errors")
				}
				return
			}
			if !res.Optimized || res.Aborted {
				t.Fatalf("optimizer did not complete: %+v", res)
			}
			if want, ok := f.sections["log"]; ok {
				if diff := cmp.Diff(want, renderLog(res)); diff != "" {
					t.Errorf("rewrite log mismatch (-want +got):\n%s", diff)
				}
			}
			if want, ok := f.sections["output.js"]; ok {
				if diff := cmp.Diff(want, ast.Dump(res.Tree)); diff != "" {
					t.Errorf("optimized program mismatch (-want +got):\n%s", diff)
				}
			}

			before, err := eval.Run(res.Original, eval.Options{})
			if err != nil {
				t.Fatalf("eval original: %v", err)
			}
			after, err := eval.Run(res.Tree, eval.Options{})
			if err != nil {
				t.Fatalf("eval optimized: %v", err)
			}
			if diff := cmp.Diff(before.Trace, after.Trace); diff != "" {
				t.Errorf("optimization changed behavior (-before +after):\n%s", diff)
			}
			if want, ok := f.sections["trace"]; ok {
				if diff := cmp.Diff(want, strings.Join(after.Trace, "\n")+"\n"); diff != "" {
					t.Errorf("trace mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOriginalTreeUntouched(t *testing.T) {
	for _, f := range loadFixtures(t) {
		prog := f.parse(t)
		before := ast.Dump(prog)
		if _, err := Run(prog, config.Default(), nil); err != nil {
			t.Fatal(err)
		}
		if after := ast.Dump(prog); after != before {
			t.Errorf("%s: input tree modified", f.name)
		}
	}
}

func TestRunAllMatchesRun(t *testing.T) {
	fixtures := loadFixtures(t)
	cfg := config.Default()
	cfg.Jobs = 3
	var units []Unit
	for _, f := range fixtures {
		units = append(units, Unit{Name: f.name, Prog: f.parse(t)})
	}
	results, err := RunAll(context.Background(), units, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(units) {
		t.Fatalf("got %d results for %d units", len(results), len(units))
	}
	for i, f := range fixtures {
		single, err := Run(f.parse(t), cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		r := results[i]
		if r.Name != f.name {
			t.Errorf("result %d is %q, want %q", i, r.Name, f.name)
		}
		if ast.Dump(r.Tree) != ast.Dump(single.Tree) {
			t.Errorf("%s: concurrent run produced a different tree", f.name)
		}
		if r.Diagnostics.Len() != single.Diagnostics.Len() {
			t.Errorf("%s: concurrent run produced %d diagnostics, want %d", f.name, r.Diagnostics.Len(), single.Diagnostics.Len())
		}
	}
}

func TestRunAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog, _ := parser.Parse("println(1);")
	_, err := RunAll(ctx, []Unit{{Name: "a", Prog: prog}}, config.Default(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestWerror(t *testing.T) {
	prog, err := parser.Parse("let unused = 1;\n")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(prog, config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed(false) {
		t.Error("a warning failed the run without werror")
	}
	if !res.Failed(true) {
		t.Error("a warning did not fail the run with werror")
	}
	if !res.Optimized {
		t.Error("warnings must not gate the optimizer")
	}
}

func TestBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Opt.Passes = []string{"unroll"}
	prog, _ := parser.Parse("println(1);")
	if _, err := Run(prog, cfg, nil); err == nil {
		t.Fatal("expected an error for an unknown pass")
	}
}
