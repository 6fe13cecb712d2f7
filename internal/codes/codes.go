package codes

import (
	"errors"

	"github.com/Norgate-AV/lazydi/internal/blueprint"
	"github.com/Norgate-AV/lazydi/internal/cache"
	"github.com/Norgate-AV/lazydi/internal/compiler"
	"github.com/Norgate-AV/lazydi/internal/config"
	"github.com/Norgate-AV/lazydi/internal/typespace"
	"github.com/Norgate-AV/lazydi/internal/values"
)

const (
	Success              = 0
	GeneralFailure       = 1
	InvalidConfiguration = 10
	MissingReturnType    = 20
	InvalidReturnType    = 21
	TooManyParameters    = 22
	InvalidParameterType = 23
	InvalidBlueprint     = 24
	AlreadyCompiled      = 30
	CacheWriteFailure    = 40
	CacheMismatch        = 41
	MissingConfigKey     = 50
)

// ErrorCodes maps lazydi exit codes to their descriptions
var ErrorCodes = map[int]string{
	Success:              "Success",
	GeneralFailure:       "General failure",
	InvalidConfiguration: "Invalid configuration",
	MissingReturnType:    "Service definition has no return type",
	InvalidReturnType:    "Service definition must return a single named type",
	TooManyParameters:    "Service definition takes more than a name parameter",
	InvalidParameterType: "Service definition parameter must be *string",
	InvalidBlueprint:     "Blueprint type not found or not a struct",
	AlreadyCompiled:      "Container is already compiled",
	CacheWriteFailure:    "Could not write cache for compiled container",
	CacheMismatch:        "Cache holds a different container",
	MissingConfigKey:     "Missing config value",
}

// IsSuccess returns true if the exit code indicates success
func IsSuccess(code int) bool {
	return code == Success
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

var errorCodes = []struct {
	err  error
	code int
}{
	{cache.ErrInvalidConfiguration, InvalidConfiguration},
	{config.ErrInvalidConfig, InvalidConfiguration},
	{compiler.ErrMissingReturnType, MissingReturnType},
	{compiler.ErrInvalidReturnType, InvalidReturnType},
	{compiler.ErrTooManyParameters, TooManyParameters},
	{compiler.ErrInvalidParameterType, InvalidParameterType},
	{compiler.ErrInvalidBlueprint, InvalidBlueprint},
	{blueprint.ErrTypeNotFound, InvalidBlueprint},
	{blueprint.ErrUnsupportedType, InvalidBlueprint},
	{compiler.ErrAlreadyCompiled, AlreadyCompiled},
	{typespace.ErrAlreadyDefined, AlreadyCompiled},
	{cache.ErrCacheWrite, CacheWriteFailure},
	{cache.ErrCacheMismatch, CacheMismatch},
	{values.ErrMissingKey, MissingConfigKey},
}

// FromError returns the exit code for err; the first matching kind wins
func FromError(err error) int {
	if err == nil {
		return Success
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}

	return GeneralFailure
}
