// Package modcheck inspects the module being built to tell whether it can
// import the annotation shim.
//
// Building with the tsan tag only changes anything when the target module
// imports github.com/kolkov/tsanshim/tsan, which requires the shim module in
// its go.mod (or being the shim module itself).
package modcheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ShimModule is the module path of the annotation shim.
const ShimModule = "github.com/kolkov/tsanshim"

// ErrNoModule is returned when no go.mod encloses the directory.
var ErrNoModule = errors.New("no go.mod found")

// Result describes the target module.
type Result struct {
	// GoMod is the path of the go.mod file.
	GoMod string

	// Module is the target module path.
	Module string

	// Self is set when the target is the shim module.
	Self bool

	// Version is the required shim version, empty when not required.
	Version string

	// Replacement is where a replace directive points the shim, with local
	// paths made absolute. Empty when the shim is not replaced.
	Replacement string
}

// CanImport reports whether packages of the module can import the shim.
func (r *Result) CanImport() bool {
	return r.Self || r.Version != ""
}

// Check finds the go.mod enclosing dir and reports how it relates to the
// shim module.
func Check(dir string) (*Result, error) {
	goModPath := FindGoMod(dir)
	if goModPath == "" {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoModule)
	}

	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}

	f, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	res := &Result{GoMod: goModPath}
	if f.Module != nil {
		res.Module = f.Module.Mod.Path
		res.Self = res.Module == ShimModule
	}

	for _, req := range f.Require {
		if req.Mod.Path == ShimModule {
			res.Version = req.Mod.Version
		}
	}

	goModDir := filepath.Dir(goModPath)
	for _, rep := range f.Replace {
		if rep.Old.Path != ShimModule {
			continue
		}
		newPath := rep.New.Path
		// Local paths don't have a version and are filesystem paths
		if rep.New.Version == "" && isLocalPath(newPath) && !filepath.IsAbs(newPath) {
			if abs, err := filepath.Abs(filepath.Join(goModDir, newPath)); err == nil {
				newPath = abs
			}
		}
		res.Replacement = newPath
	}

	return res, nil
}

// FindGoMod walks up from startDir looking for a go.mod file. It returns
// the empty string when there is none.
func FindGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// isLocalPath checks if a path is a local filesystem path (not a module path).
//
// Local paths start with ./, ../, /, or a drive letter on Windows.
func isLocalPath(path string) bool {
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return true
	}
	if filepath.IsAbs(path) {
		return true
	}
	// Windows drive letter check (e.g., C:\)
	if len(path) >= 2 && path[1] == ':' {
		return true
	}
	return false
}
