package compiler

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/Norgate-AV/lazydi/internal/blueprint"
	"github.com/Norgate-AV/lazydi/internal/typespace"
)

// CompiledSuffix is appended to the blueprint name to form the derived type
const CompiledSuffix = typespace.Suffix

// Header is the first line of every generated file
const Header = "// Code generated by lazydi. DO NOT EDIT."

var sourceTemplate = template.Must(template.New("compiled").Parse(Header + `

package {{.Package}}
{{if .Imports}}
import (
{{- range $i, $group := .Imports}}{{if $i}}
{{end}}
{{- range $group}}
	{{if .Alias}}{{.Alias}} {{end}}{{.Quoted}}
{{- end}}
{{- end}}
)
{{end}}
// {{.Name}} memoizes the services declared by {{.Base}}.
type {{.Name}} struct {
	*{{.Base}}

	services map[string]any
}

// New{{.Name}} wraps parent so each of its services is built at most once.
func New{{.Name}}(parent *{{.Base}}) *{{.Name}} {
	return &{{.Name}}{ {{- .Base}}: parent, services: make(map[string]any)}
}

func (c *{{.Name}}) service(method string, name *string, build func() any) any {
	key := method
	if name != nil {
		key += "." + *name
	}

	if s, ok := c.services[key]; ok {
		return s
	}

	s := build()
	c.services[key] = s

	return s
}
{{range .Services}}
func (c *{{$.Name}}) {{.Method}}(name *string) {{.Returns}} {
	s, _ := c.service("{{.Method}}", name, func() any { return c.{{$.Base}}.{{.Method}}({{if .TakesName}}name{{end}}) }).({{.Returns}})
	return s
}
{{end}}`))

type importSpec struct {
	Alias  string
	Path   string
	Quoted string
}

type serviceView struct {
	Method    string
	Returns   string
	TakesName bool
}

type sourceView struct {
	Package  string
	Name     string
	Base     string
	Imports  [][]importSpec
	Services []serviceView
}

// CompiledName returns the derived type name for bp
func CompiledName(bp blueprint.Blueprint) string {
	return bp.Name + CompiledSuffix
}

// Generate renders the derived container for bp. methods must already have
// passed Validate; they are emitted in the order given.
func Generate(bp blueprint.Blueprint, methods []blueprint.Method) (string, error) {
	aliases, groups, err := collectImports(methods)
	if err != nil {
		return "", err
	}

	view := sourceView{
		Package: bp.PkgName,
		Name:    CompiledName(bp),
		Base:    bp.Name,
		Imports: groups,
	}

	for _, m := range methods {
		ret := m.Results[0]

		view.Services = append(view.Services, serviceView{
			Method:    m.Name,
			Returns:   ret.ExprWith(aliases[ret.PkgPath]),
			TakesName: len(m.Params) == 1,
		})
	}

	var buf bytes.Buffer
	if err := sourceTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", view.Name, err)
	}

	out, err := imports.Process(strings.ToLower(view.Name)+".go", buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format %s: %w", view.Name, err)
	}

	return string(out), nil
}

// collectImports assigns each imported package a unique qualifier. Standard
// library paths form the first group, everything else the second, each sorted
// by path.
func collectImports(methods []blueprint.Method) (map[string]string, [][]importSpec, error) {
	qualifiers := make(map[string]string)

	for _, m := range methods {
		ret := m.Results[0]

		if ret.Package != "" && ret.PkgPath == "" {
			return nil, nil, fmt.Errorf("%w: %s returns %s from an unresolved package", ErrInvalidReturnType, m.Name, ret.Expr())
		}

		if ret.PkgPath != "" {
			qualifiers[ret.PkgPath] = ret.Package
		}
	}

	paths := make([]string, 0, len(qualifiers))
	for path := range qualifiers {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	aliases := make(map[string]string, len(paths))
	taken := make(map[string]bool, len(paths))

	var std, other []importSpec
	for _, path := range paths {
		name := qualifiers[path]
		if name == "" {
			name = blueprint.PackageName(path)
		}

		unique := name
		for i := 2; taken[unique]; i++ {
			unique = name + strconv.Itoa(i)
		}

		taken[unique] = true
		aliases[path] = unique

		spec := importSpec{Path: path, Quoted: strconv.Quote(path)}
		if unique != blueprint.PackageName(path) {
			spec.Alias = unique
		}

		if isStdlib(path) {
			std = append(std, spec)
		} else {
			other = append(other, spec)
		}
	}

	var groups [][]importSpec
	for _, g := range [][]importSpec{std, other} {
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}

	return aliases, groups, nil
}

func isStdlib(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}
