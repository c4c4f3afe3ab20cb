package main

import (
	"io"

	"github.com/desilang/jsopt/compiler/internal/check"
	"github.com/desilang/jsopt/compiler/internal/scope"
	"github.com/desilang/jsopt/compiler/internal/term"
)

/* ---------- check ---------- */

func cmdCheck(args []string, stdout, stderr io.Writer) int {
	a, cfg, logger, code := setup("check", args, stderr)
	if code != 0 {
		return code
	}
	files, err := loadFiles(a, cfg, logger)
	if err != nil {
		term.Wprintf(stderr, "error: %v\n", err)
		return 1
	}
	rep := newReporter(cfg, stdout, stderr)
	for _, f := range files {
		if f.Err != nil {
			rep.loadError(f)
			continue
		}
		_, ds := check.Analyze(f.Prog, scope.Options{MaxDepth: cfg.MaxDepth})
		logger.Debug("checked", "file", f.Path, "diagnostics", ds.Len())
		rep.diagnostics(f.Path, f.Src, ds)
	}
	rep.finish()
	if rep.failed(cfg.Werror) {
		return 1
	}
	return 0
}
