package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCompiled      = errors.New("cannot recompile already compiled container")
	ErrMissingReturnType    = errors.New("service definitions must have return types")
	ErrInvalidReturnType    = errors.New("service definitions must return a single named type")
	ErrTooManyParameters    = errors.New("service definitions cannot take more than a name parameter")
	ErrInvalidParameterType = errors.New("service definitions only accept a single *string name parameter")
	ErrInvalidBlueprint     = errors.New("invalid blueprint")
	ErrNoConstructor        = errors.New("compiler has no blueprint constructor")
)

// CompilationError reports the service method that broke the contract
type CompilationError struct {
	Blueprint string
	Method    string
	Reason    error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Blueprint, e.Method, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Reason
}
