package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/diag"
)

func writeJS(t *testing.T, name, src string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func runCLI(args ...string) (int, string, string) {
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want cliArgs
	}{
		{
			name: "flags_after_files",
			argv: []string{"a.js", "--json", "--Werror", "b.js"},
			want: cliArgs{files: []string{"a.js", "b.js"}, format: config.FormatJSON, werr: true},
		},
		{
			name: "separate_values",
			argv: []string{"--config", "c.yaml", "--jobs", "3", "--log-level=debug", "a.js"},
			want: cliArgs{files: []string{"a.js"}, configPath: "c.yaml", jobs: 3, logLevel: "debug"},
		},
		{
			name: "frontend_and_passes",
			argv: []string{"--use-tree-sitter", "--passes=fold,dse", "--show-log", "a.js"},
			want: cliArgs{files: []string{"a.js"}, treeSitter: true, passes: "fold,dse", showLog: true},
		},
		{
			name: "double_dash",
			argv: []string{"--", "--weird.js"},
			want: cliArgs{files: []string{"--weird.js"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.argv)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(cliArgs{})); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArgsRejects(t *testing.T) {
	for _, argv := range [][]string{
		nil,
		{"--json"},
		{"--bogus", "a.js"},
		{"--jobs", "many", "a.js"},
		{"a.js", "--config"},
	} {
		if _, err := parseArgs(argv); err == nil {
			t.Errorf("parseArgs(%q) accepted", argv)
		}
	}
}

func TestSettingsPrecedence(t *testing.T) {
	cfgPath := writeJS(t, "jsopt.yaml", "jobs: 2\nformat: text\nopt:\n  max_iterations: 4\n")
	t.Setenv("JSOPT_JOBS", "5")
	a := cliArgs{files: []string{"a.js"}, configPath: cfgPath, format: config.FormatJSON, treeSitter: true}
	cfg, err := a.settings()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Opt.MaxIterations != 4 {
		t.Errorf("config file ignored: max iterations %d", cfg.Opt.MaxIterations)
	}
	if cfg.Jobs != 5 {
		t.Errorf("environment did not override the file: jobs %d", cfg.Jobs)
	}
	if cfg.Format != config.FormatJSON || cfg.Frontend != config.FrontendTreeSitter {
		t.Errorf("flags did not win: %+v", cfg)
	}
}

func TestTopLevel(t *testing.T) {
	if code, _, stderr := runCLI(); code != 2 || !strings.Contains(stderr, "Usage:") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, stdout, _ := runCLI("help"); code != 0 || !strings.Contains(stdout, "Commands:") {
		t.Errorf("help: code %d", code)
	}
	if code, stdout, _ := runCLI("version"); code != 0 || !strings.HasPrefix(stdout, "jsopt ") {
		t.Errorf("version: code %d, %q", code, stdout)
	}
	if code, _, stderr := runCLI("frobnicate"); code != 2 || !strings.Contains(stderr, "unknown command") {
		t.Errorf("unknown command: code %d", code)
	}
}

func TestCheck(t *testing.T) {
	clean := writeJS(t, "clean.js", "let x = 1;\nprintln(x);\n")
	broken := writeJS(t, "broken.js", "let x = 1;\nprintln(y);\n")
	unused := writeJS(t, "unused.js", "let unused = 1;\n")

	if code, _, stderr := runCLI("check", clean); code != 0 || !strings.Contains(stderr, "summary: 0 error(s), 0 warning(s)") {
		t.Errorf("clean: code %d, stderr %q", code, stderr)
	}

	code, stdout, _ := runCLI("check", "--format=text", broken)
	if code != 1 || !strings.Contains(stdout, broken+":2:9: error[UndeclaredVariable]") {
		t.Errorf("broken: code %d, stdout %q", code, stdout)
	}

	code, _, stderr := runCLI("check", broken)
	if code != 1 || !strings.Contains(stderr, "--> "+broken+":2:9") {
		t.Errorf("pretty: code %d, stderr %q", code, stderr)
	}

	if code, _, _ := runCLI("check", unused); code != 0 {
		t.Errorf("a warning failed the check: code %d", code)
	}
	if code, _, _ := runCLI("check", "--Werror", unused); code != 1 {
		t.Errorf("--Werror did not fail on a warning: code %d", code)
	}
}

func TestCheckJSON(t *testing.T) {
	broken := writeJS(t, "broken.js", "println(y);\n")
	bad := writeJS(t, "bad.js", "let = ;\n")
	code, stdout, _ := runCLI("check", "--json", broken, bad)
	if code != 1 {
		t.Fatalf("code %d", code)
	}
	var recs []diag.Record
	if err := json.Unmarshal([]byte(stdout), &recs); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, stdout)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	if recs[0].Kind != "UndeclaredVariable" || recs[0].File != broken || recs[0].Line != 1 || recs[0].Column != 9 {
		t.Errorf("first record %+v", recs[0])
	}
	if recs[1].Kind != "SyntaxError" || recs[1].Line != 1 {
		t.Errorf("second record %+v", recs[1])
	}
}

func TestOpt(t *testing.T) {
	src := writeJS(t, "prog.js", "let x = 1 + 2;\nprintln(x * 1);\n")
	code, native, stderr := runCLI("opt", "--show-log", src)
	if code != 0 {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}
	if strings.Contains(native, "1 + 2") {
		t.Errorf("constant not folded:\n%s", native)
	}
	if !strings.Contains(stderr, "fold: 1 + 2 => 3") {
		t.Errorf("rewrite log missing:\n%s", stderr)
	}
	code, ts, _ := runCLI("opt", "--use-tree-sitter", src)
	if code != 0 {
		t.Fatalf("tree-sitter: code %d", code)
	}
	if diff := cmp.Diff(native, ts); diff != "" {
		t.Errorf("frontends disagree (-native +tree-sitter):\n%s", diff)
	}
}

func TestOptGatedByErrors(t *testing.T) {
	src := writeJS(t, "bad.js", "const c = 1;\nc = 2;\n")
	code, stdout, stderr := runCLI("opt", src)
	if code != 1 {
		t.Fatalf("code %d", code)
	}
	if stdout != "" {
		t.Errorf("optimized output printed despite errors:\n%s", stdout)
	}
	if !strings.Contains(stderr, "summary: 1 error(s)") {
		t.Errorf("stderr %q", stderr)
	}
}

func TestOptJSON(t *testing.T) {
	good := writeJS(t, "good.js", "println(2 * 3);\n")
	bad := writeJS(t, "bad.js", "println(;\n")
	code, stdout, _ := runCLI("opt", "--json", good, bad)
	if code != 1 {
		t.Fatalf("code %d", code)
	}
	var reports []optReport
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	if !reports[0].Optimized || !strings.Contains(reports[0].Output, "println(6)") {
		t.Errorf("first report %+v", reports[0])
	}
	if reports[1].Optimized || len(reports[1].Diagnostics) != 1 {
		t.Errorf("second report %+v", reports[1])
	}
}

func TestParseCommand(t *testing.T) {
	src := writeJS(t, "p.js", "var a = 1, b\nb += a\n")
	code, stdout, _ := runCLI("parse", src)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	want := "var a = 1;\nvar b;\nb = b + a;\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
	bad := writeJS(t, "bad.js", "let = ;\n")
	if code, _, _ := runCLI("parse", bad); code != 1 {
		t.Errorf("syntax error: code %d", code)
	}
}

func TestBadConfigIsUsageError(t *testing.T) {
	src := writeJS(t, "a.js", "println(1);\n")
	if code, _, stderr := runCLI("opt", "--passes=unroll", src); code != 2 || !strings.Contains(stderr, "unknown pass") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
	if code, _, _ := runCLI("check", "--bogus", src); code != 2 {
		t.Errorf("unknown flag: code %d", code)
	}
}
