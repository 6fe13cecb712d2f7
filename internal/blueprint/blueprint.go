// Package blueprint extracts method metadata from the hand-written types that
// lazy containers are derived from.
//
// Two extractors are provided: Reflect inspects a type linked into the running
// program, FromSource parses the Go files of a package directory so that
// containers can be generated ahead of time.
package blueprint

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupportedType is returned for anything other than a named struct
	ErrUnsupportedType = errors.New("blueprint must be a named struct type")

	// ErrTypeNotFound is returned when a source directory does not declare the type
	ErrTypeNotFound = errors.New("blueprint type not found")
)

// Extractor yields the identity of a blueprint and its exported methods in a
// stable order.
type Extractor interface {
	Describe() (Blueprint, []Method, error)
}

// Blueprint identifies the type a container is derived from
type Blueprint struct {
	// Name is the short type name, e.g. "AppContainer"
	Name string

	// PkgName is the package clause the type lives in
	PkgName string

	// PkgPath is the import path; empty when unknown
	PkgPath string
}

// QualifiedName returns "pkg.Name"
func (b Blueprint) QualifiedName() string {
	if b.PkgName == "" {
		return b.Name
	}

	return b.PkgName + "." + b.Name
}

// Method describes one exported method of a blueprint. The receiver is not
// part of Params.
type Method struct {
	Name    string
	Params  []TypeRef
	Results []TypeRef
}

// TypeRef describes a parameter or result type.
type TypeRef struct {
	// Name is the bare type name; empty for unnamed types such as maps or funcs
	Name string

	// Package is the qualifier used in source; empty for builtins and types
	// declared next to the blueprint
	Package string

	// PkgPath is the import path matching Package
	PkgPath string

	// Pointer is set for *Name
	Pointer bool

	// Variadic is set for a trailing ...T parameter
	Variadic bool

	// Builtin is set for predeclared types (string, error, int, ...)
	Builtin bool

	// Raw is the type expression for unnamed types
	Raw string
}

// IsNamed reports whether r refers to a user-defined named type, optionally
// through a single pointer.
func (r TypeRef) IsNamed() bool {
	return r.Name != "" && !r.Builtin
}

// Expr renders r as a Go type expression using r.Package as qualifier
func (r TypeRef) Expr() string {
	return r.ExprWith(r.Package)
}

// ExprWith renders r using qualifier in place of r.Package
func (r TypeRef) ExprWith(qualifier string) string {
	var b strings.Builder

	if r.Variadic {
		b.WriteString("...")
	}

	if r.Name == "" {
		b.WriteString(r.Raw)
		return b.String()
	}

	if r.Pointer {
		b.WriteString("*")
	}

	if qualifier != "" && !r.Builtin {
		b.WriteString(qualifier)
		b.WriteString(".")
	}

	b.WriteString(r.Name)

	return b.String()
}

// PackageName guesses the package name for an import path: the last path
// element, skipping major version suffixes and trimming gopkg.in style
// ".vN" endings.
func PackageName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]

	if isMajorVersion(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}

	if i := strings.Index(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}

	name = strings.TrimPrefix(name, "go-")
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)

	return name
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}

	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
