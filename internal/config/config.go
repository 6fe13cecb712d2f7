package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/lazydi/internal/cache"
	"github.com/Norgate-AV/lazydi/internal/utils"
)

// Default configuration values
const (
	DefaultDir        = "."
	DefaultCacheStore = "file"
	DefaultMaxAge     = "0"
	DefaultVerbose    = false

	// Output value that writes generated source to stdout
	Stdout = "-"
)

var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Holds the configuration options for lazydi
type Config struct {
	// Directory holding the blueprint package
	Dir string `validate:"required"`

	// Blueprint type name
	Type string

	// Expected package name of the blueprint, unchecked when empty
	Package string

	// Generated source destination, "-" for stdout
	Output string

	// Cache location: a Go file for the file store, a database for bolt
	CachePath string

	// Cache backing store
	CacheStore string `validate:"oneof=file bolt"`

	// Age after which cached source is regenerated, 0 never expires
	MaxAge time.Duration `validate:"gte=0s"`

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	maxAge, err := utils.ParseMaxAge(viper.GetString("max_age"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Dir:        viper.GetString("dir"),
		Type:       viper.GetString("type"),
		Package:    viper.GetString("package"),
		Output:     viper.GetString("out"),
		CachePath:  viper.GetString("cache"),
		CacheStore: viper.GetString("store"),
		MaxAge:     maxAge,
		Verbose:    viper.GetBool("verbose"),
	}

	// Apply defaults if not set
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}

	if cfg.CacheStore == "" {
		cfg.CacheStore = DefaultCacheStore
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints, resolves paths and fills in the
// locations derived from Dir and Type
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	abs, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("%w: invalid directory: %w", ErrInvalidConfig, err)
	}
	c.Dir = abs

	if c.Output == "" && c.Type != "" {
		c.Output = utils.OutputTarget(c.Dir, c.Type)
	}

	if c.Output != "" && c.Output != Stdout {
		abs, err := filepath.Abs(c.Output)
		if err != nil {
			return fmt.Errorf("%w: invalid output path: %w", ErrInvalidConfig, err)
		}

		c.Output = abs
	}

	if c.CachePath == "" {
		c.CachePath = c.defaultCachePath()
	}

	if c.CachePath != "" {
		abs, err := filepath.Abs(c.CachePath)
		if err != nil {
			return fmt.Errorf("%w: invalid cache path: %w", ErrInvalidConfig, err)
		}

		c.CachePath = abs
	}

	return nil
}

func (c *Config) defaultCachePath() string {
	dir := filepath.Join(c.Dir, cache.DefaultCacheDir)

	switch {
	case c.CacheStore == "bolt":
		return filepath.Join(dir, "cache.db")
	case c.Type != "":
		return utils.OutputTarget(dir, c.Type)
	default:
		return ""
	}
}

// RequireType reports a missing blueprint type
func (c *Config) RequireType() error {
	if c.Type == "" {
		return fmt.Errorf("%w: blueprint type not specified", ErrInvalidConfig)
	}

	return nil
}
