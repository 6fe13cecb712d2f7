package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Norgate-AV/lazydi/internal/blueprint"
	"github.com/Norgate-AV/lazydi/internal/cache"
	"github.com/Norgate-AV/lazydi/internal/compiler"
	"github.com/Norgate-AV/lazydi/internal/config"
	"github.com/Norgate-AV/lazydi/internal/typespace"
)

// newSourceCompiler returns a compiler reading cfg.Type from the Go files in
// cfg.Dir, loading into a space of its own
func newSourceCompiler(cfg *config.Config, log *zap.Logger) (*compiler.Standard, error) {
	if err := cfg.RequireType(); err != nil {
		return nil, err
	}

	ext := blueprint.FromSource(cfg.Dir, cfg.Type)
	if err := checkPackage(ext, cfg.Package); err != nil {
		return nil, err
	}

	return compiler.New(ext, compiler.WithSpace(typespace.New()), compiler.WithLogger(log)), nil
}

// checkPackage fails when want is set and the blueprint lives in another package
func checkPackage(ext blueprint.Extractor, want string) error {
	if want == "" {
		return nil
	}

	bp, _, err := ext.Describe()
	if err != nil {
		return fmt.Errorf("%w: %w", compiler.ErrInvalidBlueprint, err)
	}

	if bp.PkgName != want {
		return fmt.Errorf("%w: %s is in package %s, want %s", config.ErrInvalidConfig, bp.Name, bp.PkgName, want)
	}

	return nil
}

// openStore opens the configured backing store. Bolt entries are keyed by
// key, the qualified name of the derived type.
func openStore(cfg *config.Config, key string) (cache.Store, func() error, error) {
	if cfg.CachePath == "" {
		return nil, nil, fmt.Errorf("%w: cache location not specified", config.ErrInvalidConfig)
	}

	switch cfg.CacheStore {
	case "bolt":
		store, err := cache.OpenBoltStore(cfg.CachePath, key)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	default:
		return cache.NewFileStore(cfg.CachePath), func() error { return nil }, nil
	}
}
