// Package container runs a loaded derived definition against a live
// blueprint value, memoizing each service per method and name.
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/Norgate-AV/lazydi/internal/typespace"
)

var (
	// ErrBlueprintMismatch is returned when the blueprint value is not the
	// type the definition was derived from
	ErrBlueprintMismatch = errors.New("blueprint does not match definition")

	// ErrUnknownService is returned for a method the definition does not override
	ErrUnknownService = errors.New("unknown service")

	// ErrServiceType is returned by Get when a service has an unexpected type
	ErrServiceType = errors.New("service has unexpected type")
)

// Binder is implemented by blueprints that want to resolve sibling services
// through the container that wraps them.
type Binder interface {
	BindContainer(c *Container)
}

type key struct {
	method string
	name   string
	named  bool
}

// Container is an instance of a derived definition. Each service is built at
// most once per container; two containers never share services.
type Container struct {
	def       *typespace.Definition
	blueprint any
	calls     map[string]reflect.Value

	mu       sync.Mutex
	services map[key]any
}

// New wraps blueprint, which must be a pointer to the definition's base type
// and provide every overridden method.
func New(def *typespace.Definition, blueprint any) (*Container, error) {
	v := reflect.ValueOf(blueprint)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type().Name() != def.Base {
		return nil, fmt.Errorf("%w: want *%s, got %T", ErrBlueprintMismatch, def.Base, blueprint)
	}

	c := &Container{
		def:       def,
		blueprint: blueprint,
		calls:     make(map[string]reflect.Value, len(def.Services)),
		services:  make(map[key]any),
	}

	for _, s := range def.Services {
		m := v.MethodByName(s.Name)
		if !m.IsValid() {
			return nil, fmt.Errorf("%w: %s has no method %s", ErrBlueprintMismatch, def.Base, s.Name)
		}

		if err := checkSignature(m.Type()); err != nil {
			return nil, fmt.Errorf("%w: %s.%s %w", ErrBlueprintMismatch, def.Base, s.Name, err)
		}

		c.calls[s.Name] = m
	}

	if b, ok := blueprint.(Binder); ok {
		b.BindContainer(c)
	}

	return c, nil
}

// Name returns a pointer to s, for use as a service discriminator
func Name(s string) *string {
	return &s
}

// Definition returns the definition the container was built from
func (c *Container) Definition() *typespace.Definition {
	return c.def
}

// Blueprint returns the wrapped blueprint value
func (c *Container) Blueprint() any {
	return c.blueprint
}

// Has reports whether method is a memoized service
func (c *Container) Has(method string) bool {
	_, ok := c.calls[method]
	return ok
}

// Resolved reports whether the service has already been built
func (c *Container) Resolved(method string, name *string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.services[keyOf(method, name)]
	return ok
}

// Service returns the memoized result of method for name, calling the
// blueprint the first time. A nil name and a non-nil name are distinct keys.
func (c *Container) Service(method string, name *string) (any, error) {
	call, ok := c.calls[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownService, c.def.Name, method)
	}

	k := keyOf(method, name)

	c.mu.Lock()
	if s, ok := c.services[k]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	// Built outside the lock so blueprint methods may resolve other services
	var args []reflect.Value
	if call.Type().NumIn() == 1 {
		args = []reflect.Value{reflect.ValueOf(name)}
	}

	s := call.Call(args)[0].Interface()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.services[k]; ok {
		return existing, nil
	}

	c.services[k] = s

	return s, nil
}

// Get resolves a service and asserts its type
func Get[T any](c *Container, method string, name *string) (T, error) {
	var zero T

	s, err := c.Service(method, name)
	if err != nil {
		return zero, err
	}

	t, ok := s.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrServiceType, method, s, zero)
	}

	return t, nil
}

// MustGet is like Get but panics on error
func MustGet[T any](c *Container, method string, name *string) T {
	t, err := Get[T](c, method, name)
	if err != nil {
		panic(err)
	}

	return t
}

var namePtr = reflect.TypeFor[*string]()

// checkSignature accepts func() R and func(*string) R
func checkSignature(t reflect.Type) error {
	if t.NumOut() != 1 {
		return fmt.Errorf("returns %d values, want 1", t.NumOut())
	}

	switch {
	case t.NumIn() == 0:
		return nil
	case t.NumIn() == 1 && !t.IsVariadic() && t.In(0) == namePtr:
		return nil
	default:
		return fmt.Errorf("has signature %s, want a single optional *string parameter", t)
	}
}

func keyOf(method string, name *string) key {
	if name == nil {
		return key{method: method}
	}

	return key{method: method, name: *name, named: true}
}
