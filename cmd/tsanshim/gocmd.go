// gocmd.go runs the wrapped go commands.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"

	"github.com/kolkov/tsanshim/cmd/tsanshim/modcheck"
)

// goTool is the go command to run.
var goTool = "go"

// goCommand implements 'tsanshim build', 'run', 'test' and 'vet'.
//
// Flow:
//  1. Parse arguments (go flags, packages, program arguments)
//  2. Check the target module can import the shim
//  3. Call the go command with the tsan tag merged into -tags
//  4. For run, execute the built binary with the program arguments
//  5. Return the exit code of the go command or the program
//
// Example:
//
//	tsanshim build -o myapp ./cmd/myapp
//	tsanshim test -tags integration -run TestScheduler ./...
func goCommand(log hclog.Logger, verb string, args []string, stdout, stderr io.Writer) int {
	inv, err := parseGoArgs(verb, args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	checkModule(log, inv.dir())

	if verb == "run" {
		return runProgram(log, inv, stdout, stderr)
	}
	return execGo(log, inv.workDir, inv.goArgs(inv.outputFile), stdout, stderr)
}

// checkModule warns when the tsan tag cannot make a difference because the
// module does not depend on the shim.
func checkModule(log hclog.Logger, dir string) {
	res, err := modcheck.Check(dir)
	if err != nil {
		log.Warn("cannot inspect module", "error", err)
		return
	}
	log.Debug("module", "path", res.Module, "go.mod", res.GoMod,
		"version", res.Version, "replacement", res.Replacement)
	if !res.CanImport() {
		log.Warn("module does not require the shim; annotations will not be active",
			"module", res.Module, "shim", modcheck.ShimModule)
	}
}

// runProgram builds the program to a temporary binary and executes it.
func runProgram(log hclog.Logger, inv *goInvocation, stdout, stderr io.Writer) int {
	tempBinary, err := os.CreateTemp("", "tsanshim-run-*.exe")
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create temp file: %v\n", err)
		return 1
	}
	tempPath := tempBinary.Name()
	_ = tempBinary.Close() // Ignore close error on temp file

	defer func() { _ = os.Remove(tempPath) }() // Best effort cleanup

	if code := execGo(log, inv.workDir, inv.goArgs(tempPath), stdout, stderr); code != 0 {
		return code
	}

	log.Debug("executing", "binary", tempPath, "args", inv.programArgs)
	cmd := exec.Command(tempPath, inv.programArgs...)
	cmd.Dir = inv.dir()
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return exitCode(stderr, cmd.Run())
}

// execGo runs the go command in dir.
func execGo(log hclog.Logger, dir string, args []string, stdout, stderr io.Writer) int {
	log.Debug("running", "cmd", goTool, "args", args)
	cmd := exec.Command(goTool, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return exitCode(stderr, cmd.Run())
}

// exitCode maps the result of a finished command to the tool's exit code.
func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	// Check if it's an exit error using errors.As (errorlint compliant)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	// Other error (failed to start, etc.)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
