// Package values provides the read-only configuration lookup handed to
// blueprints when a container is instantiated.
package values

import (
	"errors"
	"time"

	"github.com/spf13/cast"
)

// ErrMissingKey is matched by every lookup of an absent key
var ErrMissingKey = errors.New("no such config value")

// MissingKeyError reports the key that could not be found
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return ErrMissingKey.Error() + ": " + e.Key
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// Source is the minimum a configuration value has to offer
type Source interface {
	Has(key string) bool
	Get(key string) any
}

// Store is a Source that can also be modified
type Store interface {
	Source
	Set(key string, value any)
	Unset(key string)
}

// Map is a plain key/value store
type Map map[string]any

func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m Map) Get(key string) any {
	return m[key]
}

func (m Map) Set(key string, value any) {
	m[key] = value
}

func (m Map) Unset(key string) {
	delete(m, key)
}

// Accessor looks up configuration values by key. It is meant to be embedded
// in blueprint types.
type Accessor struct {
	source Source
}

// NewAccessor wraps src; a nil src behaves as an empty Map
func NewAccessor(src Source) Accessor {
	if src == nil {
		src = Map{}
	}

	return Accessor{source: src}
}

// Source returns the wrapped configuration value unchanged
func (a Accessor) Source() Source {
	return a.source
}

// Lookup returns the value stored under key. Existence is checked first, so a
// key holding nil is returned as nil rather than reported missing.
func (a Accessor) Lookup(key string) (any, error) {
	if a.source == nil || !a.source.Has(key) {
		return nil, &MissingKeyError{Key: key}
	}

	return a.source.Get(key), nil
}

func (a Accessor) LookupString(key string) (string, error) {
	v, err := a.Lookup(key)
	if err != nil {
		return "", err
	}

	return cast.ToStringE(v)
}

func (a Accessor) LookupInt(key string) (int, error) {
	v, err := a.Lookup(key)
	if err != nil {
		return 0, err
	}

	return cast.ToIntE(v)
}

func (a Accessor) LookupBool(key string) (bool, error) {
	v, err := a.Lookup(key)
	if err != nil {
		return false, err
	}

	return cast.ToBoolE(v)
}

func (a Accessor) LookupDuration(key string) (time.Duration, error) {
	v, err := a.Lookup(key)
	if err != nil {
		return 0, err
	}

	return cast.ToDurationE(v)
}
