// Package config holds the settings shared by the CLI and the pipeline.
// Values come from defaults, then an optional YAML file, then JSOPT_*
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/desilang/jsopt/compiler/internal/opt"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

const (
	FormatPretty = "pretty"
	FormatText   = "text"
	FormatJSON   = "json"

	FrontendNative     = "native"
	FrontendTreeSitter = "tree-sitter"
)

type Opt struct {
	MaxIterations  int      `yaml:"max_iterations"`
	InlineMaxNodes int      `yaml:"inline_max_nodes"`
	InlineMaxStmts int      `yaml:"inline_max_stmts"`
	Passes         []string `yaml:"passes,omitempty"`
}

type Config struct {
	Opt      Opt    `yaml:"opt"`
	MaxDepth int    `yaml:"max_depth"`
	Jobs     int    `yaml:"jobs"`
	Werror   bool   `yaml:"werror"`
	LogLevel string `yaml:"log_level"`
	Format   string `yaml:"format"`
	Frontend string `yaml:"frontend"`
}

func Default() Config {
	return Config{
		Opt: Opt{
			MaxIterations:  8,
			InlineMaxNodes: 24,
			InlineMaxStmts: 2,
		},
		MaxDepth: scope.DefaultMaxDepth,
		Jobs:     runtime.NumCPU(),
		LogLevel: "warn",
		Format:   FormatPretty,
		Frontend: FrontendNative,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return cfg, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	return decode(f, abs)
}

func decode(r io.Reader, name string) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("config: parse %s: %w", name, err)
	}
	return cfg, nil
}

// FromEnv returns base with every JSOPT_* variable that is set applied.
func FromEnv(base Config) Config {
	c := base
	c.Opt.MaxIterations = env.Int("JSOPT_MAX_ITERATIONS", c.Opt.MaxIterations)
	c.Opt.InlineMaxNodes = env.Int("JSOPT_INLINE_MAX_NODES", c.Opt.InlineMaxNodes)
	c.Opt.InlineMaxStmts = env.Int("JSOPT_INLINE_MAX_STMTS", c.Opt.InlineMaxStmts)
	if env.Has("JSOPT_PASSES") {
		c.Opt.Passes = splitList(env.Str("JSOPT_PASSES"))
	}
	c.MaxDepth = env.Int("JSOPT_MAX_DEPTH", c.MaxDepth)
	c.Jobs = env.Int("JSOPT_JOBS", c.Jobs)
	if env.Has("JSOPT_WERROR") {
		c.Werror = env.Bool("JSOPT_WERROR")
	}
	c.LogLevel = env.Str("JSOPT_LOG_LEVEL", c.LogLevel)
	c.Format = env.Str("JSOPT_FORMAT", c.Format)
	c.Frontend = env.Str("JSOPT_FRONTEND", c.Frontend)
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Opt.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("opt.max_iterations must be positive, got %d", c.Opt.MaxIterations))
	}
	if c.Opt.InlineMaxNodes < 1 {
		errs = append(errs, fmt.Errorf("opt.inline_max_nodes must be positive, got %d", c.Opt.InlineMaxNodes))
	}
	if c.Opt.InlineMaxStmts < 1 {
		errs = append(errs, fmt.Errorf("opt.inline_max_stmts must be positive, got %d", c.Opt.InlineMaxStmts))
	}
	for _, p := range c.Opt.Passes {
		if !slices.Contains(opt.PassNames, p) {
			errs = append(errs, fmt.Errorf("opt.passes: unknown pass %q (known: %s)", p, strings.Join(opt.PassNames, ", ")))
		}
	}
	if c.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth))
	}
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be positive, got %d", c.Jobs))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Format {
	case FormatPretty, FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("format must be pretty, text or json, got %q", c.Format))
	}
	switch c.Frontend {
	case FrontendNative, FrontendTreeSitter:
	default:
		errs = append(errs, fmt.Errorf("frontend must be native or tree-sitter, got %q", c.Frontend))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// OptOptions translates the optimizer settings.
func (c Config) OptOptions() opt.Options {
	return opt.Options{
		MaxIterations:  c.Opt.MaxIterations,
		InlineMaxNodes: c.Opt.InlineMaxNodes,
		InlineMaxStmts: c.Opt.InlineMaxStmts,
		Passes:         c.Opt.Passes,
		MaxDepth:       c.MaxDepth,
	}
}

// LogValue implements [slog.LogValuer].
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("maxIterations", c.Opt.MaxIterations),
		slog.Int("inlineMaxNodes", c.Opt.InlineMaxNodes),
		slog.Int("inlineMaxStmts", c.Opt.InlineMaxStmts),
		slog.String("passes", strings.Join(c.Opt.Passes, ",")),
		slog.Int("maxDepth", c.MaxDepth),
		slog.Int("jobs", c.Jobs),
		slog.Bool("werror", c.Werror),
		slog.String("logLevel", c.LogLevel),
		slog.String("format", c.Format),
		slog.String("frontend", c.Frontend),
	)
}
