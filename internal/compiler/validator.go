package compiler

import (
	"strings"

	"github.com/Norgate-AV/lazydi/internal/blueprint"
)

// ServicePrefix marks a blueprint method as a service definition
const ServicePrefix = "Get"

// Verdict is the outcome of validating one blueprint method
type Verdict int

const (
	NotApplicable Verdict = iota
	Valid
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case NotApplicable:
		return "not applicable"
	case Valid:
		return "valid"
	default:
		return "invalid"
	}
}

// Validate decides whether m is a service method and whether it honours the
// service contract. Return types are checked before parameters.
func Validate(m blueprint.Method) (Verdict, error) {
	if !strings.HasPrefix(m.Name, ServicePrefix) {
		return NotApplicable, nil
	}

	if len(m.Results) == 0 {
		return Invalid, ErrMissingReturnType
	}

	if len(m.Results) > 1 || !m.Results[0].IsNamed() {
		return Invalid, ErrInvalidReturnType
	}

	if len(m.Params) > 1 {
		return Invalid, ErrTooManyParameters
	}

	if len(m.Params) == 1 && !isNameParam(m.Params[0]) {
		return Invalid, ErrInvalidParameterType
	}

	return Valid, nil
}

func isNameParam(r blueprint.TypeRef) bool {
	return r.Builtin && r.Name == "string" && r.Pointer && !r.Variadic
}
