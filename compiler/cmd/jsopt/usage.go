package main

import (
	"io"

	"github.com/desilang/jsopt/compiler/internal/term"
)

const flagsHelp = "[--json|--format=pretty|text|json] [--Werror] [--use-tree-sitter] [--config=file.yaml] [--log-level=L] [--jobs=N]"

func usage(w io.Writer) {
	term.Wprintln(w, "jsopt: validator and optimizer for a small JavaScript subset")
	term.Wprintln(w)
	term.Wprintln(w, "Usage:")
	term.Wprintln(w, "  jsopt <command> [flags] <file.js>...")
	term.Wprintln(w)
	term.Wprintln(w, "Commands:")
	term.Wprintln(w, "  version                 Print version")
	term.Wprintln(w, "  help                    Show this help")
	term.Wprintln(w, "  parse  <file>...        Parse and print the normalized program")
	term.Wprintln(w, "  check  <file>...        Report semantic diagnostics")
	term.Wprintln(w, "  opt    <file>...        Validate, then print the optimized program")
	term.Wprintln(w, "                          (--passes=fold,cse,arith,dse,inline selects passes;")
	term.Wprintln(w, "                           --show-log prints every rewrite to stderr)")
	term.Wprintln(w)
	term.Wprintln(w, "Flags (may appear before or after the files):")
	term.Wprintf(w, "  %s\n", flagsHelp)
	term.Wprintln(w)
	term.Wprintln(w, "Environment:")
	term.Wprintln(w, "  JSOPT_MAX_ITERATIONS, JSOPT_INLINE_MAX_NODES, JSOPT_INLINE_MAX_STMTS, JSOPT_PASSES,")
	term.Wprintln(w, "  JSOPT_MAX_DEPTH, JSOPT_JOBS, JSOPT_WERROR, JSOPT_LOG_LEVEL, JSOPT_FORMAT, JSOPT_FRONTEND")
	term.Wprintln(w, "  override the config file; flags override both.")
}
