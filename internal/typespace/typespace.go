// Package typespace keeps the derived container definitions that have been
// loaded into the running process.
package typespace

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strings"
	"sync"
)

// Suffix is appended to a blueprint name to form the derived type name
const Suffix = "Compiled"

var (
	// ErrUndefined is returned when a definition has not been loaded
	ErrUndefined = errors.New("type is not defined")

	// ErrAlreadyDefined is returned by Define for a name that is already loaded
	ErrAlreadyDefined = errors.New("type is already defined")

	// ErrMalformedSource is returned when source does not declare a derived container
	ErrMalformedSource = errors.New("source does not declare a compiled container")
)

// Service is one memoized override of a derived container
type Service struct {
	// Name is the blueprint method being overridden
	Name string

	// Returns is the declared result type expression
	Returns string
}

// Definition is a loaded derived container type
type Definition struct {
	Package  string
	Name     string
	Base     string
	Services []Service
}

// QualifiedName returns "pkg.Name"
func (d *Definition) QualifiedName() string {
	return d.Package + "." + d.Name
}

// Service returns the override for method
func (d *Definition) Service(method string) (Service, bool) {
	for _, s := range d.Services {
		if s.Name == method {
			return s, true
		}
	}

	return Service{}, false
}

// Parse reads a derived container definition from Go source: a struct named
// <Base>Compiled embedding *<Base>, and its exported single-result methods in
// declaration order.
func Parse(src string) (*Definition, error) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, "compiled.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}

	def := &Definition{Package: f.Name.Name}

	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}

		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			if base := embeddedBase(ts); base != "" {
				def.Name = ts.Name.Name
				def.Base = base
			}
		}
	}

	if def.Name == "" {
		return nil, ErrMalformedSource
	}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || !fn.Name.IsExported() || !isReceiver(fn, def.Name) {
			continue
		}

		if fn.Type.Results == nil || len(fn.Type.Results.List) != 1 {
			continue
		}

		def.Services = append(def.Services, Service{
			Name:    fn.Name.Name,
			Returns: types.ExprString(fn.Type.Results.List[0].Type),
		})
	}

	return def, nil
}

// embeddedBase returns X when ts is "type XCompiled struct { *X ... }"
func embeddedBase(ts *ast.TypeSpec) string {
	st, ok := ts.Type.(*ast.StructType)
	if !ok || !strings.HasSuffix(ts.Name.Name, Suffix) {
		return ""
	}

	want := strings.TrimSuffix(ts.Name.Name, Suffix)
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}

		star, ok := field.Type.(*ast.StarExpr)
		if !ok {
			continue
		}

		if ident, ok := star.X.(*ast.Ident); ok && ident.Name == want {
			return want
		}
	}

	return ""
}

func isReceiver(fn *ast.FuncDecl, name string) bool {
	if len(fn.Recv.List) != 1 {
		return false
	}

	star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}

	ident, ok := star.X.(*ast.Ident)
	return ok && ident.Name == name
}

// Space is a registry of loaded definitions keyed by qualified name
type Space struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// Default is the process-wide space
var Default = New()

func New() *Space {
	return &Space{defs: make(map[string]*Definition)}
}

// Define loads src, failing if its type is already defined
func (s *Space) Define(src string) (*Definition, error) {
	def, err := Parse(src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.defs[def.QualifiedName()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDefined, def.QualifiedName())
	}

	s.defs[def.QualifiedName()] = def

	return def, nil
}

// Require loads src unless its type is already defined, in which case the
// existing definition is returned.
func (s *Space) Require(src string) (*Definition, error) {
	def, err := Parse(src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.defs[def.QualifiedName()]; ok {
		return existing, nil
	}

	s.defs[def.QualifiedName()] = def

	return def, nil
}

func (s *Space) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.defs[name]
	return ok
}

func (s *Space) Lookup(name string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
	}

	return def, nil
}

// Names lists the defined types in lexical order
func (s *Space) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.defs))
	for name := range s.defs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
