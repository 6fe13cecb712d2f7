package cache

import "errors"

var (
	ErrInvalidConfiguration = errors.New("max age must not be negative")
	ErrCacheWrite           = errors.New("could not write cache for compiled container")
	ErrStoreMissing         = errors.New("cache store does not exist")
	ErrCacheMismatch        = errors.New("cached source does not declare the compiled container")
)
