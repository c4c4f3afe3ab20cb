package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/desilang/jsopt/compiler/internal/config"
)

/* ---------- flags (accepted before or after the files) ---------- */

type cliArgs struct {
	files      []string
	configPath string
	format     string
	logLevel   string
	passes     string
	jobs       int
	werr       bool // --Werror
	treeSitter bool
	showLog    bool
}

// value returns the argument of a flag given as --name=v or --name v.
func value(argv []string, i int, name string) (string, int, bool) {
	s := argv[i]
	if v, ok := strings.CutPrefix(s, name+"="); ok {
		return v, i + 1, true
	}
	if s == name {
		if i+1 >= len(argv) {
			return "", i, false
		}
		return argv[i+1], i + 2, true
	}
	return "", i, false
}

func parseArgs(argv []string) (cliArgs, error) {
	var a cliArgs
	i := 0
	for i < len(argv) {
		s := argv[i]
		if s == "--" {
			a.files = append(a.files, argv[i+1:]...)
			break
		}
		switch s {
		case "--json":
			a.format = config.FormatJSON
			i++
			continue
		case "--Werror", "--werror":
			a.werr = true
			i++
			continue
		case "--use-tree-sitter":
			a.treeSitter = true
			i++
			continue
		case "--show-log":
			a.showLog = true
			i++
			continue
		}
		if v, next, ok := value(argv, i, "--config"); ok {
			a.configPath, i = v, next
			continue
		}
		if v, next, ok := value(argv, i, "--format"); ok {
			a.format, i = v, next
			continue
		}
		if v, next, ok := value(argv, i, "--log-level"); ok {
			a.logLevel, i = v, next
			continue
		}
		if v, next, ok := value(argv, i, "--passes"); ok {
			a.passes, i = v, next
			continue
		}
		if v, next, ok := value(argv, i, "--jobs"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return a, fmt.Errorf("--jobs: %w", err)
			}
			a.jobs, i = n, next
			continue
		}
		if strings.HasPrefix(s, "-") {
			return a, flag.ErrHelp
		}
		a.files = append(a.files, s)
		i++
	}
	if len(a.files) == 0 {
		return a, flag.ErrHelp
	}
	return a, nil
}

// settings layers defaults, the config file, JSOPT_* variables and flags.
func (a cliArgs) settings() (config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return cfg, err
		}
	}
	cfg = config.FromEnv(cfg)
	if a.format != "" {
		cfg.Format = a.format
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.passes != "" {
		cfg.Opt.Passes = nil
		for _, p := range strings.Split(a.passes, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Opt.Passes = append(cfg.Opt.Passes, p)
			}
		}
	}
	if a.jobs != 0 {
		cfg.Jobs = a.jobs
	}
	if a.werr {
		cfg.Werror = true
	}
	if a.treeSitter {
		cfg.Frontend = config.FrontendTreeSitter
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
