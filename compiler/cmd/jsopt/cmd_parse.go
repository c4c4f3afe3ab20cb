package main

import (
	"io"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/term"
)

/* ---------- parse ---------- */

func cmdParse(args []string, stdout, stderr io.Writer) int {
	a, cfg, logger, code := setup("parse", args, stderr)
	if code != 0 {
		return code
	}
	files, err := loadFiles(a, cfg, logger)
	if err != nil {
		term.Wprintf(stderr, "error: %v\n", err)
		return 1
	}
	rc := 0
	for _, f := range files {
		if f.Err != nil {
			term.Wprintf(stderr, "error: %v\n", f.Err)
			rc = 1
			continue
		}
		if len(files) > 1 {
			term.Wprintf(stdout, "// %s\n", f.Path)
		}
		term.Wprintf(stdout, "%s", ast.Dump(f.Prog))
	}
	return rc
}
