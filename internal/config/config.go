package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape. Pointer fields
// distinguish "unset" from zero values.
type FileConfig struct {
	Include    *string `yaml:"include"`
	Exclude    *string `yaml:"exclude"`
	IgnoreFile *string `yaml:"ignore_file"`
	MaxBytes   *int64  `yaml:"max_bytes"`
	MaxDepth   *int    `yaml:"max_depth"`
	Threads    *int    `yaml:"threads"`
	NoColor    *bool   `yaml:"no_color"`
	FailOn     *string `yaml:"fail_on"`
	Format     *string `yaml:"format"`
	LogLevel   *string `yaml:"log_level"`

	// Report submission
	Server *string `yaml:"server"`

	Watch *WatchConfig `yaml:"watch"`
}

// WatchConfig drives `repowatch watch`.
type WatchConfig struct {
	Schedule *string  `yaml:"schedule"`
	Targets  []string `yaml:"targets"`
}

// LocalNames are the repo-local config files, in search order.
var LocalNames = []string{".repowatch.yml", ".repowatch.yaml", "repowatch.yml", "repowatch.yaml"}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(repoRoot string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalDir returns $XDG_CONFIG_HOME/repowatch or ~/.config/repowatch.
func GlobalDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "repowatch"), nil
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	dir, err := GlobalDir()
	if err != nil {
		return cfg, err
	}
	p := filepath.Join(dir, "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// Starter is written by `repowatch config init`.
const Starter = `# repowatch configuration
# Values here are overridden by command-line flags.

# Comma-separated doublestar globs, relative to the scan root.
# include: "**/*.js,**/*.py"
# exclude: "**/testdata/**"

# gitignore-style file of paths to skip.
ignore_file: .repowatchignore

# Skip content rules for files larger than this many bytes (0 = no limit).
max_bytes: 0

# Parallel file workers (1 = sequential).
threads: 1

# Exit with status 1 when a finding is at or above this level.
fail_on: high

# text | table | json | sarif
format: text

# Archive server that receives scan reports.
# server: http://localhost:8080

# watch:
#   schedule: "@every 1h"
#   targets:
#     - .
#     - acme/web
`

// WriteStarter writes Starter to path unless the file exists and force is
// false.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return os.ErrExist
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Starter), 0o644)
}
