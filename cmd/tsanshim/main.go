// Package main implements the tsanshim CLI tool.
//
// The tsanshim tool wraps the go command so annotated programs are built
// with the engine compiled in. It works by:
//
//  1. Adding the tsan build tag to any tags the user passed
//  2. Checking that the target module can import the shim
//  3. Running the go command and propagating its exit code
//
// Usage:
//
//	tsanshim build ./cmd/server    # Build with annotations active
//	tsanshim run ./cmd/server      # Run with annotations active
//	tsanshim test ./...            # Test with annotations active
//
// The exit code of run and test is the program's own, so the engine's
// exitcode option (66 by default) reaches the caller when races were
// reported.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/kolkov/tsanshim/tsan"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	verbose := false
	if len(args) > 0 && args[0] == "-debug" {
		verbose, args = true, args[1:]
	}
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	log := newLogger(stderr, verbose)

	switch command {
	case "build", "run", "test", "vet":
		return goCommand(log, command, rest, stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, tsan.GetInfo())
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
}

func newLogger(w io.Writer, verbose bool) hclog.Logger {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "tsanshim",
		Level:  level,
		Output: w,
	})
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tsanshim - race detector annotations for concurrency runtimes

USAGE:
    tsanshim [-debug] <command> [arguments]

COMMANDS:
    build      Build packages with annotations active
    run        Build and run a program with annotations active
    test       Test packages with annotations active
    vet        Vet packages as they compile with annotations active
    version    Show version information
    help       Show this help message

    -debug     Log what the tool does

EXAMPLES:
    # Build a program with the engine compiled in
    tsanshim build -o myapp ./cmd/myapp

    # Run a program and stop at the first report
    TSAN_OPTIONS=halt_on_error=1 tsanshim run ./cmd/myapp --flag=value

    # Test packages with extra build tags
    tsanshim test -tags integration ./...

ABOUT:
    Without the tool, or without the tsan build tag, every annotation in
    github.com/kolkov/tsanshim/tsan compiles to an empty function and the
    program pays nothing for it. With the tag, annotations reach the
    engine, which reports data races and annotation misuse to stderr.

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/tsanshim

`)
}
