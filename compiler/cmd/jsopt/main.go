package main

import (
	"io"
	"os"
	"runtime/debug"

	"github.com/desilang/jsopt/compiler/internal/term"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = ""

func versionString() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "devel"
}

/* ---------- main ---------- */

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a command and returns the process exit code: 0 on
// success, 1 when a file failed, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "version", "--version", "-v":
		term.Wprintf(stdout, "jsopt %s\n", versionString())
		return 0
	case "help", "--help", "-h":
		usage(stdout)
		return 0
	case "check":
		return cmdCheck(args[1:], stdout, stderr)
	case "opt":
		return cmdOpt(args[1:], stdout, stderr)
	case "parse":
		return cmdParse(args[1:], stdout, stderr)
	default:
		term.Wprintf(stderr, "unknown command: %s\n\n", args[0])
		usage(stderr)
		return 2
	}
}
