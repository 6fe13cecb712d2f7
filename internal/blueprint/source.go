package blueprint

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type sourceExtractor struct {
	dir      string
	typeName string
}

// FromSource returns an Extractor that reads the non-test Go files in dir and
// describes typeName. Only methods declared in the package itself are seen;
// methods promoted from embedded fields are not.
func FromSource(dir, typeName string) Extractor {
	return sourceExtractor{dir: dir, typeName: typeName}
}

// Describe sorts methods by name so the result matches Reflect for the same type.
func (e sourceExtractor) Describe() (Blueprint, []Method, error) {
	files, err := e.parse()
	if err != nil {
		return Blueprint{}, nil, err
	}

	var bp Blueprint
	for _, f := range files {
		if spec := findType(f, e.typeName); spec != nil {
			if _, ok := spec.Type.(*ast.StructType); !ok {
				return Blueprint{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, e.typeName)
			}

			bp = Blueprint{Name: e.typeName, PkgName: f.Name.Name}
			break
		}
	}

	if bp.Name == "" {
		return Blueprint{}, nil, fmt.Errorf("%w: %s in %s", ErrTypeNotFound, e.typeName, e.dir)
	}

	var methods []Method
	for _, f := range files {
		imports := importNames(f)

		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || !fn.Name.IsExported() || receiverName(fn) != e.typeName {
				continue
			}

			methods = append(methods, Method{
				Name:    fn.Name.Name,
				Params:  refsOf(fn.Type.Params, imports),
				Results: refsOf(fn.Type.Results, imports),
			})
		}
	}

	sort.SliceStable(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})

	return bp, methods, nil
}

func (e sourceExtractor) parse() ([]*ast.File, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint directory: %w", err)
	}

	fset := token.NewFileSet()

	var files []*ast.File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		f, err := parser.ParseFile(fset, filepath.Join(e.dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}

		files = append(files, f)
	}

	return files, nil
}

func findType(f *ast.File, name string) *ast.TypeSpec {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}

		for _, spec := range gen.Specs {
			if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == name {
				return ts
			}
		}
	}

	return nil
}

func receiverName(fn *ast.FuncDecl) string {
	if len(fn.Recv.List) == 0 {
		return ""
	}

	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}

	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}

	return ""
}

// importNames maps the qualifier used in a file to its import path
func importNames(f *ast.File) map[string]string {
	names := make(map[string]string, len(f.Imports))

	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		name := PackageName(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}

		names[name] = path
	}

	return names
}

func refsOf(fields *ast.FieldList, imports map[string]string) []TypeRef {
	if fields == nil {
		return nil
	}

	var refs []TypeRef
	for _, field := range fields.List {
		ref := refOfExpr(field.Type, imports)

		n := len(field.Names)
		if n == 0 {
			n = 1
		}

		for i := 0; i < n; i++ {
			refs = append(refs, ref)
		}
	}

	return refs
}

func refOfExpr(expr ast.Expr, imports map[string]string) TypeRef {
	switch x := expr.(type) {
	case *ast.Ellipsis:
		ref := refOfExpr(x.Elt, imports)
		ref.Variadic = true
		return ref

	case *ast.StarExpr:
		ref := refOfExpr(x.X, imports)
		if ref.Name != "" && !ref.Pointer {
			ref.Pointer = true
			return ref
		}

		return TypeRef{Raw: types.ExprString(x)}

	case *ast.Ident:
		if obj, ok := types.Universe.Lookup(x.Name).(*types.TypeName); ok {
			return TypeRef{Name: obj.Name(), Builtin: true}
		}

		return TypeRef{Name: x.Name}

	case *ast.SelectorExpr:
		if pkg, ok := x.X.(*ast.Ident); ok {
			return TypeRef{Name: x.Sel.Name, Package: pkg.Name, PkgPath: imports[pkg.Name]}
		}
	}

	return TypeRef{Raw: types.ExprString(expr)}
}
