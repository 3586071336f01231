// Package config handles configuration loading and management for srcguard.
//
// It provides functionality for:
//   - Loading configuration from .srcguard.yaml, .srcguard.yml or srcguard.yaml
//   - Default configuration values
//   - Merging file configuration with command-line overrides
//   - Bootstrapper scaffold steps
package config
