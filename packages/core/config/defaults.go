package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Output:      "console",
		Concurrency: 5,
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Root == defaults.Root &&
		len(c.Suites) == 0 &&
		c.Output == defaults.Output &&
		c.OutputFile == defaults.OutputFile &&
		c.Parallel == nil &&
		c.Concurrency == defaults.Concurrency &&
		c.Bail == nil &&
		c.Verbose == nil &&
		c.NoColor == nil &&
		c.History == defaults.History &&
		len(c.Markers) == 0 &&
		c.Scaffold == nil
}
