// goflags.go parses the go command lines the tool wraps.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// buildTag selects the active annotation files.
const buildTag = "tsan"

// goInvocation is a parsed go command line.
type goInvocation struct {
	// Go subcommand: build, run, test or vet
	verb string

	// Flags passed through unchanged, in order, with their values
	flags []string

	// Build tags from -tags, without the tsan tag
	tags []string

	// Output file (from -o)
	outputFile string

	// Package patterns or .go files
	packages []string

	// Arguments for the program (run only)
	programArgs []string

	// Directory from -C, as given
	chdir string

	// Working directory
	workDir string
}

// parseGoArgs parses the arguments that follow a go subcommand.
//
// It separates:
//   - Build tags (-tags), merged later with the tsan tag
//   - Directory change (-C), accepted anywhere and moved first
//   - Output file (-o)
//   - Other flags, passed through with their values
//   - Packages, and for run the program arguments after them
//
// Example:
//
//	parseGoArgs("test", []string{"-tags", "integration", "-run", "TestFoo", "./..."})
func parseGoArgs(verb string, args []string) (*goInvocation, error) {
	inv := &goInvocation{verb: verb}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	inv.workDir = cwd

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// Everything after the run target belongs to the program.
		if verb == "run" && len(inv.packages) > 0 && !strings.HasSuffix(arg, ".go") {
			inv.programArgs = append(inv.programArgs, args[i:]...)
			break
		}

		if arg == "--" {
			continue
		}

		// Handle -tags in both forms
		if arg == "-tags" || arg == "--tags" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-tags flag requires an argument")
			}
			i++
			inv.tags = append(inv.tags, splitTags(args[i])...)
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-tags="); ok {
			inv.tags = append(inv.tags, splitTags(v)...)
			continue
		}

		// Handle -C in both forms
		if arg == "-C" || arg == "--C" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-C flag requires an argument")
			}
			i++
			inv.chdir = args[i]
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-C="); ok {
			inv.chdir = v
			continue
		}

		// Handle -o in both forms
		if arg == "-o" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-o flag requires an argument")
			}
			i++
			inv.outputFile = args[i]
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-o="); ok {
			inv.outputFile = v
			continue
		}

		if strings.HasPrefix(arg, "-") {
			inv.flags = append(inv.flags, arg)
			// The value may itself start with a dash: -ldflags "-s -w"
			if needsValue(arg) {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("%s flag requires an argument", arg)
				}
				i++
				inv.flags = append(inv.flags, args[i])
			}
			continue
		}

		inv.packages = append(inv.packages, arg)
	}

	if inv.outputFile != "" && verb != "build" && verb != "test" {
		return nil, fmt.Errorf("-o is not supported by %s", verb)
	}

	// Default: the current directory
	if len(inv.packages) == 0 {
		inv.packages = []string{"."}
	}

	return inv, nil
}

// dir returns the directory the go command runs in after -C.
func (inv *goInvocation) dir() string {
	switch {
	case inv.chdir == "":
		return inv.workDir
	case filepath.IsAbs(inv.chdir):
		return inv.chdir
	default:
		return filepath.Join(inv.workDir, inv.chdir)
	}
}

// valueFlags are the go build and go test flags that take a separate value.
var valueFlags = map[string]bool{
	"-ldflags": true, "-gcflags": true, "-asmflags": true, "-gccgoflags": true,
	"-installsuffix": true, "-buildmode": true, "-mod": true, "-modfile": true,
	"-overlay": true, "-pkgdir": true, "-toolexec": true, "-p": true,
	"-exec": true, "-coverpkg": true, "-covermode": true, "-pgo": true,

	"-run": true, "-skip": true, "-bench": true, "-benchtime": true,
	"-blockprofile": true, "-blockprofilerate": true, "-coverprofile": true,
	"-count": true, "-cpu": true, "-cpuprofile": true, "-memprofile": true,
	"-memprofilerate": true, "-mutexprofile": true, "-mutexprofilefraction": true,
	"-outputdir": true, "-parallel": true, "-timeout": true, "-trace": true,
	"-fuzz": true, "-fuzztime": true, "-fuzzminimizetime": true, "-list": true,
	"-shuffle": true,
}

// needsValue returns true if the flag expects a following value.
func needsValue(flag string) bool {
	// Already has = format (e.g., -ldflags=-s)
	if strings.Contains(flag, "=") {
		return false
	}
	return valueFlags["-"+strings.TrimLeft(flag, "-")]
}

// splitTags splits a -tags value. Both the comma form and the legacy space
// separated form are accepted.
func splitTags(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
}

// mergedTags returns the -tags value with the tsan tag added once.
func (inv *goInvocation) mergedTags() string {
	tags := make([]string, 0, len(inv.tags)+1)
	for _, t := range inv.tags {
		if t != buildTag && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return strings.Join(append(tags, buildTag), ",")
}

// goArgs returns the go command line for the invocation. For run it is the
// build of the temporary binary at output.
func (inv *goInvocation) goArgs(output string) []string {
	verb := inv.verb
	if verb == "run" {
		verb = "build"
	}

	// go requires -C before any other flag.
	args := []string{verb}
	if inv.chdir != "" {
		args = append(args, "-C", inv.chdir)
	}
	args = append(args, "-tags="+inv.mergedTags())
	if output != "" {
		// Make output path absolute, relative to the -C directory
		if !filepath.IsAbs(output) {
			output = filepath.Join(inv.dir(), output)
		}
		args = append(args, "-o", output)
	}
	args = append(args, inv.flags...)
	return append(args, inv.packages...)
}
