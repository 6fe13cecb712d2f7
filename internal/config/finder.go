package config

import (
	"os"
	"path/filepath"
)

// Extensions viper reads configuration from
var Extensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds the nearest .lazydi config file, walking up from dir
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range Extensions {
			path := filepath.Join(dir, ".lazydi."+ext)

			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the first lazydi config file under base, the user
// config directory
func FindGlobalConfig(base string) string {
	if base == "" {
		return ""
	}

	for _, ext := range Extensions {
		path := filepath.Join(base, "lazydi", "config."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
