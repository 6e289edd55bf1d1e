package app

import (
	"io"

	"kubemcp/internal/config"
	"kubemcp/internal/runtime"
)

// Config holds the settings a command passes to the application.
type Config struct {
	// Debug forces debug logging regardless of the config file.
	Debug bool

	// ConfigPath is the config file; empty uses the default location.
	ConfigPath string

	// InventoryPath is the YAML file listing installed servers. Optional.
	InventoryPath string

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer

	// Overrides are applied after the config file and environment, so
	// command line flags win.
	Overrides []func(*config.Config)

	// RuntimeOptions are passed to the runtime manager. Tests inject fake
	// cluster clients here.
	RuntimeOptions []runtime.Option
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, inventoryPath string) *Config {
	return &Config{
		Debug:         debug,
		ConfigPath:    configPath,
		InventoryPath: inventoryPath,
	}
}

// WithOverride appends a config override and returns c.
func (c *Config) WithOverride(fn func(*config.Config)) *Config {
	c.Overrides = append(c.Overrides, fn)
	return c
}
