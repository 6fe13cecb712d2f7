package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command flags to their viper keys
var flagKeys = map[string]string{
	"type":    "type",
	"package": "package",
	"out":     "out",
	"cache":   "cache",
	"store":   "store",
	"max-age": "max_age",
	"verbose": "verbose",
}

// Loader handles configuration loading from various sources
type Loader struct {
	userConfigDir func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{userConfigDir: os.UserConfigDir}
}

// LoadForCommand layers defaults, the global config, the nearest local config
// and the command's flags, in that order
func (l *Loader) LoadForCommand(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindCommandFlags(cmd)

	if len(args) > 0 {
		viper.Set("dir", args[0])
	}

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("dir", DefaultDir)
	viper.SetDefault("store", DefaultCacheStore)
	viper.SetDefault("max_age", DefaultMaxAge)
	viper.SetDefault("verbose", DefaultVerbose)
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	base, err := l.userConfigDir()
	if err != nil {
		return
	}

	if path := FindGlobalConfig(base); path != "" {
		viper.SetConfigFile(path)
		_ = viper.ReadInConfig()
	}
}

// loadLocalConfig merges the nearest .lazydi config above the target directory
func (l *Loader) loadLocalConfig(args []string) {
	dir := DefaultDir
	if len(args) > 0 {
		dir = args[0]
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return // Load reports bad directories
	}

	if path := FindLocalConfig(abs); path != "" {
		viper.SetConfigFile(path)
		_ = viper.MergeInConfig()
	}
}

// bindCommandFlags binds whichever known flags the command defines
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}
