package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/pipeline"
	"github.com/desilang/jsopt/compiler/internal/term"
)

/* ---------- opt ---------- */

// optReport is the JSON shape of one file's result.
type optReport struct {
	File        string        `json:"file"`
	Diagnostics []diag.Record `json:"diagnostics"`
	Optimized   bool          `json:"optimized"`
	Output      string        `json:"output,omitempty"`
	Log         []string      `json:"log,omitempty"`
}

func cmdOpt(args []string, stdout, stderr io.Writer) int {
	a, cfg, logger, code := setup("opt", args, stderr)
	if code != 0 {
		return code
	}
	files, err := loadFiles(a, cfg, logger)
	if err != nil {
		term.Wprintf(stderr, "error: %v\n", err)
		return 1
	}

	var units []pipeline.Unit
	for _, f := range files {
		if f.Err == nil {
			units = append(units, pipeline.Unit{Name: f.Path, Prog: f.Prog})
		}
	}
	results, err := pipeline.RunAll(context.Background(), units, cfg, logger)
	if err != nil {
		term.Wprintf(stderr, "error: %v\n", err)
		return 1
	}

	jsonOut := cfg.Format == config.FormatJSON
	rep := newReporter(cfg, stdout, stderr)
	reports := []optReport{}
	next := 0
	for _, f := range files {
		if f.Err != nil {
			rep.loadError(f)
			if jsonOut {
				reports = append(reports, optReport{File: f.Path, Diagnostics: rep.take()})
			}
			continue
		}
		res := results[next]
		next++
		rep.diagnostics(f.Path, f.Src, res.Diagnostics)

		var lines []string
		for _, r := range res.Log {
			lines = append(lines, r.String())
		}
		if jsonOut {
			rpt := optReport{File: f.Path, Diagnostics: rep.take(), Optimized: res.Optimized, Log: lines}
			if res.Optimized {
				rpt.Output = ast.Dump(res.Tree)
			}
			reports = append(reports, rpt)
			continue
		}
		if a.showLog {
			for _, l := range lines {
				term.Wprintf(stderr, "%s:%s\n", f.Path, l)
			}
		}
		if !res.Optimized {
			continue
		}
		if len(files) > 1 {
			term.Wprintf(stdout, "// %s\n", f.Path)
		}
		term.Wprintf(stdout, "%s", ast.Dump(res.Tree))
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(reports)
	}
	rep.summary()
	if rep.failed(cfg.Werror) {
		return 1
	}
	return 0
}
