package errors

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"strconv"
	"strings"
	"testing"
)

// TestErrorCodesAreUnique scans the package sources for vars initialized with
// an Error{...} literal and fails if two definitions share a Code. Reflection
// cannot enumerate package-level vars, so the AST is the only way.
func TestErrorCodesAreUnique(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(info fs.FileInfo) bool {
		return strings.HasSuffix(info.Name(), ".go") && !strings.HasSuffix(info.Name(), "_test.go")
	}, 0)
	if err != nil {
		t.Fatalf("parse dir: %v", err)
	}
	pkg, ok := pkgs["errors"]
	if !ok {
		t.Fatal("package 'errors' not found")
	}

	seen := map[int]string{}
	for _, f := range pkg.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			gd, ok := n.(*ast.GenDecl)
			if !ok || gd.Tok != token.VAR {
				return true
			}
			for _, spec := range gd.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for i, name := range vs.Names {
					if i >= len(vs.Values) {
						continue
					}
					cl, ok := vs.Values[i].(*ast.CompositeLit)
					if !ok {
						continue
					}
					if ident, ok := cl.Type.(*ast.Ident); !ok || ident.Name != "Error" {
						continue
					}
					code, ok := codeField(cl)
					if !ok {
						continue
					}
					if prev, dup := seen[code]; dup {
						t.Errorf("error code %d used by both %s and %s", code, prev, name.Name)
					}
					seen[code] = name.Name
				}
			}
			return true
		})
	}
}

// codeField extracts the "Code: <int>" entry from an Error composite literal.
func codeField(cl *ast.CompositeLit) (int, bool) {
	for _, elt := range cl.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || key.Name != "Code" {
			continue
		}
		lit, ok := kv.Value.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			continue
		}
		n, err := strconv.ParseInt(lit.Value, 0, 32)
		if err != nil {
			continue
		}
		return int(n), true
	}
	return 0, false
}
