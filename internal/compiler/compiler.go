// Package compiler validates blueprint types, generates their memoizing
// derived containers and loads them into a typespace.
package compiler

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Norgate-AV/lazydi/internal/blueprint"
	"github.com/Norgate-AV/lazydi/internal/container"
	"github.com/Norgate-AV/lazydi/internal/typespace"
	"github.com/Norgate-AV/lazydi/internal/values"
)

// Compiler is the shape shared by the standard and cached compilers
type Compiler interface {
	// CompiledName returns the qualified name of the derived type
	CompiledName() (string, error)

	// CompiledTypeExists reports whether the derived type has been loaded
	CompiledTypeExists() bool

	// GenerateCode renders the derived type without touching any state
	GenerateCode() (string, error)

	// Compile loads the derived type, at most once per typespace
	Compile() (Compiler, error)

	// NewInstance builds a container from cfg; the derived type must exist
	NewInstance(cfg values.Source) (*container.Container, error)
}

// Constructor builds a blueprint value from configuration
type Constructor func(cfg values.Source) (any, error)

// Option configures a Standard compiler
type Option func(*Standard)

// WithSpace loads definitions into space instead of typespace.Default
func WithSpace(space *typespace.Space) Option {
	return func(s *Standard) {
		s.space = space
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Standard) {
		s.log = log
	}
}

// WithConstructor sets how NewInstance builds the blueprint
func WithConstructor(construct Constructor) Option {
	return func(s *Standard) {
		s.construct = construct
	}
}

// Standard compiles a single blueprint
type Standard struct {
	extractor blueprint.Extractor
	construct Constructor
	space     *typespace.Space
	log       *zap.Logger
}

// New returns a compiler for the blueprint described by ext. Without
// WithConstructor the compiler can generate and load code but not build
// instances.
func New(ext blueprint.Extractor, opts ...Option) *Standard {
	s := &Standard{
		extractor: ext,
		space:     typespace.Default,
		log:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// For returns a compiler for B that builds blueprints with construct
func For[B any](construct func(cfg values.Source) *B, opts ...Option) *Standard {
	build := func(cfg values.Source) (any, error) {
		return construct(cfg), nil
	}

	return New(blueprint.Reflect[B](), append([]Option{WithConstructor(build)}, opts...)...)
}

// Space returns the typespace the compiler loads into
func (s *Standard) Space() *typespace.Space {
	return s.space
}

func (s *Standard) describe() (blueprint.Blueprint, []blueprint.Method, error) {
	bp, methods, err := s.extractor.Describe()
	if err != nil {
		return blueprint.Blueprint{}, nil, fmt.Errorf("%w: %w", ErrInvalidBlueprint, err)
	}

	return bp, methods, nil
}

// CompiledName returns the qualified name of the derived type
func (s *Standard) CompiledName() (string, error) {
	bp, _, err := s.describe()
	if err != nil {
		return "", err
	}

	return bp.PkgName + "." + CompiledName(bp), nil
}

func (s *Standard) CompiledTypeExists() bool {
	name, err := s.CompiledName()
	if err != nil {
		return false
	}

	return s.space.Has(name)
}

// GenerateCode stops at the first method that breaks the service contract
func (s *Standard) GenerateCode() (string, error) {
	bp, methods, err := s.describe()
	if err != nil {
		return "", err
	}

	var services []blueprint.Method
	for _, m := range methods {
		verdict, err := Validate(m)
		if err != nil {
			return "", &CompilationError{Blueprint: bp.QualifiedName(), Method: m.Name, Reason: err}
		}

		if verdict == Valid {
			services = append(services, m)
		}
	}

	return Generate(bp, services)
}

// Check validates every method and reports all failures at once
func (s *Standard) Check() ([]blueprint.Method, error) {
	bp, methods, err := s.describe()
	if err != nil {
		return nil, err
	}

	var (
		services []blueprint.Method
		errs     error
	)

	for _, m := range methods {
		verdict, err := Validate(m)
		if err != nil {
			errs = multierr.Append(errs, &CompilationError{Blueprint: bp.QualifiedName(), Method: m.Name, Reason: err})
			continue
		}

		if verdict == Valid {
			services = append(services, m)
		}
	}

	return services, errs
}

func (s *Standard) Compile() (Compiler, error) {
	name, err := s.CompiledName()
	if err != nil {
		return nil, err
	}

	if s.space.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompiled, name)
	}

	src, err := s.GenerateCode()
	if err != nil {
		return nil, err
	}

	def, err := s.space.Define(src)
	if err != nil {
		if errors.Is(err, typespace.ErrAlreadyDefined) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyCompiled, name)
		}

		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	s.log.Debug("compiled container",
		zap.String("type", def.QualifiedName()),
		zap.Int("services", len(def.Services)),
	)

	return s, nil
}

func (s *Standard) NewInstance(cfg values.Source) (*container.Container, error) {
	name, err := s.CompiledName()
	if err != nil {
		return nil, err
	}

	def, err := s.space.Lookup(name)
	if err != nil {
		return nil, err
	}

	if s.construct == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoConstructor, name)
	}

	bp, err := s.construct(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s: %w", def.Base, err)
	}

	return container.New(def, bp)
}
