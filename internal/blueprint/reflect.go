package blueprint

import (
	"fmt"
	"reflect"
)

type reflectExtractor struct {
	t reflect.Type
}

// Reflect returns an Extractor for B, which must be a named struct type.
func Reflect[B any]() Extractor {
	return FromType(reflect.TypeFor[B]())
}

// FromType returns an Extractor for t or the struct t points to.
func FromType(t reflect.Type) Extractor {
	return reflectExtractor{t: t}
}

// Describe lists the method set of *T. Methods come back sorted by name, the
// order reflect reports them in.
func (e reflectExtractor) Describe() (Blueprint, []Method, error) {
	t := e.t
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" || t.PkgPath() == "" {
		return Blueprint{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedType, e.t)
	}

	bp := Blueprint{
		Name:    t.Name(),
		PkgName: PackageName(t.PkgPath()),
		PkgPath: t.PkgPath(),
	}

	pt := reflect.PointerTo(t)
	methods := make([]Method, 0, pt.NumMethod())

	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		ft := m.Type

		method := Method{Name: m.Name}

		// In(0) is the receiver
		for j := 1; j < ft.NumIn(); j++ {
			in := ft.In(j)
			if ft.IsVariadic() && j == ft.NumIn()-1 {
				ref := refOf(in.Elem(), bp.PkgPath)
				ref.Variadic = true
				method.Params = append(method.Params, ref)
				continue
			}

			method.Params = append(method.Params, refOf(in, bp.PkgPath))
		}

		for j := 0; j < ft.NumOut(); j++ {
			method.Results = append(method.Results, refOf(ft.Out(j), bp.PkgPath))
		}

		methods = append(methods, method)
	}

	return bp, methods, nil
}

func refOf(t reflect.Type, home string) TypeRef {
	if t.Kind() == reflect.Pointer && t.Name() == "" && t.Elem().Name() != "" {
		ref := refOf(t.Elem(), home)
		ref.Pointer = true
		return ref
	}

	if t.Name() == "" {
		return TypeRef{Raw: t.String()}
	}

	if t.PkgPath() == "" {
		return TypeRef{Name: t.Name(), Builtin: true}
	}

	ref := TypeRef{Name: t.Name()}
	if t.PkgPath() != home {
		ref.PkgPath = t.PkgPath()
		ref.Package = PackageName(t.PkgPath())
	}

	return ref
}
