package tsan

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// The inactive files must compile to nothing: no imports beyond unsafe and
// no work in any body. These tests check the source so they hold regardless
// of which mode the test binary was built in.

var facadeFiles = []struct {
	dir, active, inactive string
}{
	{".", "tsan_tsan.go", "tsan_notsan.go"},
	{"mutex", "mutex_tsan.go", "mutex_notsan.go"},
	{"fiber", "fiber_tsan.go", "fiber_notsan.go"},
}

func parseFile(t *testing.T, fset *token.FileSet, path string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return f
}

// exported returns the signature of every exported function in f.
func exported(t *testing.T, fset *token.FileSet, f *ast.File) map[string]string {
	t.Helper()
	sigs := make(map[string]string)
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || !fd.Name.IsExported() {
			continue
		}
		var buf bytes.Buffer
		if err := printer.Fprint(&buf, fset, fd.Type); err != nil {
			t.Fatalf("print %s: %v", fd.Name, err)
		}
		sigs[fd.Name.Name] = buf.String()
	}
	return sigs
}

func TestInactiveFiles_NoImports(t *testing.T) {
	fset := token.NewFileSet()
	for _, ff := range facadeFiles {
		path := filepath.Join(ff.dir, ff.inactive)
		f := parseFile(t, fset, path)
		for _, imp := range f.Imports {
			p, _ := strconv.Unquote(imp.Path.Value)
			if p != "unsafe" {
				t.Errorf("%s imports %q", path, p)
			}
		}
	}
}

func TestInactiveFiles_TrivialBodies(t *testing.T) {
	fset := token.NewFileSet()
	for _, ff := range facadeFiles {
		path := filepath.Join(ff.dir, ff.inactive)
		f := parseFile(t, fset, path)
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			switch body := fd.Body.List; {
			case len(body) == 0:
			case len(body) == 1:
				ret, ok := body[0].(*ast.ReturnStmt)
				if !ok || len(ret.Results) != 1 {
					t.Errorf("%s: %s does more than return", path, fd.Name)
					continue
				}
				switch ret.Results[0].(type) {
				case *ast.BasicLit, *ast.Ident:
				default:
					t.Errorf("%s: %s returns a computed value", path, fd.Name)
				}
			default:
				t.Errorf("%s: %s has %d statements", path, fd.Name, len(body))
			}
		}
	}
}

func TestInactiveFiles_MatchActive(t *testing.T) {
	fset := token.NewFileSet()
	for _, ff := range facadeFiles {
		active := exported(t, fset, parseFile(t, fset, filepath.Join(ff.dir, ff.active)))
		inactive := exported(t, fset, parseFile(t, fset, filepath.Join(ff.dir, ff.inactive)))
		if len(active) == 0 {
			t.Errorf("%s: no exported functions", ff.active)
		}
		if diff := cmp.Diff(active, inactive); diff != "" {
			t.Errorf("%s: exported API differs between modes (-active +inactive):\n%s", ff.dir, diff)
		}
	}
}
