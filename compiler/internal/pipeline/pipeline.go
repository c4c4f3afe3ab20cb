// Package pipeline drives one or more programs through resolution,
// validation and, when no error was found, the optimizer.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/check"
	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/opt"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

type Result struct {
	Name        string
	Tree        *ast.Program // optimized tree, or Original when the optimizer did not run
	Original    *ast.Program
	Diagnostics *diag.Set
	Log         []opt.Record
	Optimized   bool
	Aborted     bool
}

// Failed reports whether the result should fail a build. With werror any
// warning counts.
func (r Result) Failed(werror bool) bool {
	if r.Diagnostics.HasErrors() {
		return true
	}
	return werror && r.Diagnostics.Len() > 0
}

// Run processes a single program. The returned error is reserved for an
// invalid configuration; semantic problems are reported in Diagnostics.
func Run(prog *ast.Program, cfg config.Config, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o, err := opt.New(cfg.OptOptions(), logger)
	if err != nil {
		return Result{}, err
	}
	return run(prog, cfg, o, logger), nil
}

func run(prog *ast.Program, cfg config.Config, o *opt.Optimizer, logger *slog.Logger) Result {
	_, ds := check.Analyze(prog, scope.Options{MaxDepth: cfg.MaxDepth})
	res := Result{Tree: prog, Original: prog, Diagnostics: ds}
	if ds.HasErrors() {
		logger.Debug("optimizer gated", "errors", len(ds.Errors()))
		return res
	}
	out := o.Run(prog)
	ds.Merge(out.Warnings)
	res.Tree = out.Tree
	res.Log = out.Log
	res.Aborted = out.Aborted
	res.Optimized = !out.Aborted
	logger.Debug("optimized", "rewrites", len(out.Log), "aborted", out.Aborted)
	return res
}

// Unit is one independent program.
type Unit struct {
	Name string
	Prog *ast.Program
}

// RunAll processes units concurrently, at most cfg.Jobs at a time. Results
// are in input order. Cancellation is observed between units.
func RunAll(ctx context.Context, units []Unit, cfg config.Config, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o, err := opt.New(cfg.OptOptions(), logger)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(units))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Jobs, 1))
	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", u.Name, err)
			}
			r := run(u.Prog, cfg, o, logger.With("unit", u.Name))
			r.Name = u.Name
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
