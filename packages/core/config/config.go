package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the srcguard configuration
type Config struct {
	Root        string    `yaml:"root,omitempty"`   // project root, relative to the config file
	Suites      []string  `yaml:"suites,omitempty"` // suite files or directories run when none are given
	Output      string    `yaml:"output,omitempty"` // console, json, junit, tap
	OutputFile  string    `yaml:"outputFile,omitempty"`
	Parallel    *bool     `yaml:"parallel,omitempty"`
	Concurrency int       `yaml:"concurrency,omitempty"`
	Bail        *bool     `yaml:"bail,omitempty"`
	Verbose     *bool     `yaml:"verbose,omitempty"`
	NoColor     *bool     `yaml:"noColor,omitempty"`
	History     string    `yaml:"history,omitempty"` // sqlite DSN for run history
	Markers     []string  `yaml:"markers,omitempty"` // project root markers for discovery
	Scaffold    *Scaffold `yaml:"scaffold,omitempty"`

	// path is the file the config was loaded from, empty for defaults.
	path string
}

// Scaffold configures the external commands run by `srcguard init`.
type Scaffold struct {
	Banner string `yaml:"banner,omitempty"`
	Steps  []Step `yaml:"steps,omitempty"`
}

// Step is one external command of the bootstrapper.
type Step struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetParallel returns the parallel setting, defaulting to false
func (c *Config) GetParallel() bool {
	return getBool(c.Parallel, false)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// ResolveRoot returns the configured root made absolute. A relative root is
// taken relative to the config file's directory, or to dir when the config
// came from defaults. An empty string means no root is configured.
func (c *Config) ResolveRoot(dir string) (string, error) {
	if c.Root == "" {
		return "", nil
	}
	if filepath.IsAbs(c.Root) {
		return filepath.Clean(c.Root), nil
	}
	base := dir
	if c.path != "" {
		base = filepath.Dir(c.path)
	}
	return filepath.Abs(filepath.Join(base, c.Root))
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".srcguard.yaml",
	".srcguard.yml",
	"srcguard.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	config.path = abs

	return config, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Output {
	case "", "console", "json", "junit", "tap":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Scaffold != nil {
		for i, s := range c.Scaffold.Steps {
			if s.Command == "" {
				return fmt.Errorf("scaffold step %d (%s) has no command", i+1, s.Name)
			}
		}
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Root != "" {
		result.Root = other.Root
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.History != "" {
		result.History = other.History
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Parallel != nil {
		result.Parallel = other.Parallel
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Suites) > 0 {
		result.Suites = other.Suites
	}
	if len(other.Markers) > 0 {
		result.Markers = other.Markers
	}
	if other.Scaffold != nil {
		result.Scaffold = other.Scaffold
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
