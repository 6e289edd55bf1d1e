package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kubemcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/kubemcp"
	configFileName = "config.yaml"

	envPrefix = "KUBEMCP_"
)

// osUserHomeDir is a variable so tests can point the default path elsewhere.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/kubemcp/config.yaml, or an empty string
// when the home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}

// LoadConfig loads configuration from the given YAML file on top of the
// defaults. A missing file is not an error. Environment overrides
// (KUBEMCP_*) are applied after the file.
func LoadConfig(configPath string) (Config, error) {
	cfg := GetDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.Info("ConfigLoader", "No config file found at %s, using defaults", configPath)
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("error loading config from %s: %w", configPath, err)
			}
			logging.Info("ConfigLoader", "Loaded configuration from %s", configPath)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "NAMESPACE"); ok && v != "" {
		cfg.Kubernetes.Namespace = v
	}
	if v, ok := lookup(envPrefix + "KUBECONFIG"); ok && v != "" {
		cfg.Kubernetes.Kubeconfig = v
	}
	if v, ok := lookup(envPrefix + "KUBECONFIG_INLINE"); ok && v != "" {
		cfg.Kubernetes.KubeconfigInline = v
	}
	if v, ok := lookup(envPrefix + "IN_CLUSTER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sIN_CLUSTER value %q: %w", envPrefix, v, err)
		}
		cfg.Kubernetes.InCluster = b
	}
	if v, ok := lookup(envPrefix + "IMAGE"); ok && v != "" {
		cfg.Runtime.Image = v
	}
	if v, ok := lookup(envPrefix + "REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sREQUEST_TIMEOUT value %q: %w", envPrefix, v, err)
		}
		cfg.Timeouts.Request = d
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
