package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "UIRESOLVE_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the uiresolve home directory.
//
// Resolution order:
//  1. $UIRESOLVE_HOME environment variable
//  2. ~/.uiresolve
//  3. Current working directory
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetTemplatesPath returns <home>/templates.yaml.
func GetTemplatesPath() string {
	return filepath.Join(GetHome(), "templates.yaml")
}

// Discover loads the config from dir, falling back to the home directory.
// A user template file in the home directory is used when the config names none.
func Discover(dir string) (*Config, error) {
	path := findIn(dir)
	if path == "" {
		path = findIn(GetHome())
	}

	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	if cfg.Templates == "" {
		if _, err := os.Stat(GetTemplatesPath()); err == nil {
			cfg.Templates = GetTemplatesPath()
		}
	}
	return cfg, nil
}

func resolveHome() string {
	// 1. Environment variable
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// 2. User home
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".uiresolve")
	}

	// 3. Current working directory
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
