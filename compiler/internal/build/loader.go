// Package build reads source files from disk and parses them with the
// configured frontend.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/config"
	"github.com/desilang/jsopt/compiler/internal/parser"
	"github.com/desilang/jsopt/compiler/internal/tsbridge"
)

// File is one loaded source. Err holds a read or syntax error; the other
// files of a batch are unaffected by it.
type File struct {
	Path string // as given by the caller
	Abs  string
	Src  string
	Prog *ast.Program
	Err  error
}

// Parse parses src with the named frontend.
func Parse(src, frontend string) (*ast.Program, error) {
	switch frontend {
	case config.FrontendNative, "":
		return parser.Parse(src)
	case config.FrontendTreeSitter:
		return tsbridge.Parse([]byte(src))
	}
	return nil, fmt.Errorf("unknown frontend %q", frontend)
}

// Load reads and parses a single file.
func Load(path, frontend string) File {
	f := File{Path: path}
	abs, err := filepath.Abs(path)
	if err != nil {
		f.Err = fmt.Errorf("abs(%s): %v", path, err)
		return f
	}
	f.Abs = abs
	data, err := os.ReadFile(abs)
	if err != nil {
		f.Err = fmt.Errorf("read %s: %w", path, err)
		return f
	}
	f.Src = string(data)
	prog, err := Parse(f.Src, frontend)
	if err != nil {
		f.Err = fmt.Errorf("parse %s: %w", path, err)
		return f
	}
	f.Prog = prog
	return f
}

// LoadAll loads paths concurrently, at most jobs at a time, and returns the
// files in input order. A path named twice (after symlink resolution) is
// reported as an error on its second occurrence. The returned error is only
// set when ctx is done.
func LoadAll(ctx context.Context, paths []string, frontend string, jobs int) ([]File, error) {
	files := make([]File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files[i] = Load(p, frontend)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]string{}
	for i := range files {
		f := &files[i]
		if f.Abs == "" {
			continue
		}
		if first, ok := seen[canonical(f.Abs)]; ok {
			f.Prog = nil
			f.Err = fmt.Errorf("%s: duplicate of %s", f.Path, first)
			continue
		}
		seen[canonical(f.Abs)] = f.Path
	}
	return files, nil
}

func canonical(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return p
}

// Rel shortens p relative to root for display, falling back to p.
func Rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}
