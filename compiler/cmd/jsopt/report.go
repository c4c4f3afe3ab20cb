package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/build"
	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/parser"
	"github.com/desilang/jsopt/compiler/internal/term"
	"github.com/desilang/jsopt/compiler/internal/tsbridge"
)

// setup parses flags and resolves the configuration. A non-zero code means
// the command must stop with it.
func setup(cmd string, args []string, stderr io.Writer) (cliArgs, config.Config, *slog.Logger, int) {
	a, err := parseArgs(args)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			term.Wprintf(stderr, "error: %v\n", err)
		}
		term.Wprintf(stderr, "usage: jsopt %s %s <file.js>...\n", cmd, flagsHelp)
		return a, config.Config{}, nil, 2
	}
	cfg, err := a.settings()
	if err != nil {
		term.Wprintf(stderr, "error: %v\n", err)
		return a, cfg, nil, 2
	}
	logger := newLogger(stderr, cfg)
	logger.Debug("configuration", "config", cfg)
	return a, cfg, logger, 0
}

func loadFiles(a cliArgs, cfg config.Config, logger *slog.Logger) ([]build.File, error) {
	files, err := build.LoadAll(context.Background(), a.files, cfg.Frontend, cfg.Jobs)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		logger.Debug("loaded", "file", f.Path, "frontend", cfg.Frontend, "ok", f.Err == nil)
	}
	return files, nil
}

// reporter prints diagnostics in the configured format and keeps the
// totals for the summary line. JSON records are buffered and written as a
// single array by finish.
type reporter struct {
	format   string
	out, err io.Writer
	records  []diag.Record
	errors   int
	warnings int
}

func newReporter(cfg config.Config, stdout, stderr io.Writer) *reporter {
	return &reporter{format: cfg.Format, out: stdout, err: stderr, records: []diag.Record{}}
}

func (r *reporter) diagnostics(path, src string, s *diag.Set) {
	r.errors += len(s.Errors())
	r.warnings += len(s.Warnings())
	if s.Len() == 0 {
		return
	}
	switch r.format {
	case config.FormatJSON:
		r.records = append(r.records, diag.Report(s, path)...)
	case config.FormatText:
		_ = diag.WriteText(r.out, s, path)
	default:
		term.Wprintf(r.err, "%s\n", diag.RenderAll(s, path, []byte(src)))
	}
}

// loadError reports a file that could not be read or parsed.
func (r *reporter) loadError(f build.File) {
	r.errors++
	if r.format != config.FormatJSON {
		term.Wprintf(r.err, "error: %v\n", f.Err)
		return
	}
	rec := diag.Record{Severity: "error", Kind: "SyntaxError", Message: f.Err.Error(), File: f.Path}
	if pos, ok := errorPos(f.Err); ok {
		rec.Line, rec.Column = pos.Line, pos.Col
	}
	r.records = append(r.records, rec)
}

func errorPos(err error) (ast.Pos, bool) {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return pe.Pos, true
	}
	var te *tsbridge.Error
	if errors.As(err, &te) {
		return te.Pos, true
	}
	return ast.Pos{}, false
}

// take returns the buffered JSON records and clears the buffer.
func (r *reporter) take() []diag.Record {
	out := r.records
	r.records = []diag.Record{}
	return out
}

func (r *reporter) failed(werror bool) bool {
	return r.errors > 0 || (werror && r.warnings > 0)
}

func (r *reporter) finish() {
	if r.format == config.FormatJSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r.records)
	}
	r.summary()
}

func (r *reporter) summary() {
	term.Wprintf(r.err, "summary: %d error(s), %d warning(s)\n", r.errors, r.warnings)
}
