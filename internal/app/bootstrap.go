package app

import (
	"context"
	"errors"
	"fmt"

	"kubemcp/internal/config"
	"kubemcp/internal/inventory"
	"kubemcp/internal/metrics"
	"kubemcp/internal/runtime"
	"kubemcp/pkg/logging"
)

// ErrNoInventory is returned by commands that need server records when no
// inventory file was given.
var ErrNoInventory = errors.New("no inventory file configured (use --inventory)")

// Application wires configuration, logging, metrics and the runtime manager
// together.
//
// Construction only loads configuration; Initialize connects to the cluster.
type Application struct {
	config    *Config
	cfg       config.Config
	metrics   *metrics.Metrics
	manager   *runtime.Manager
	inventory *inventory.Inventory
}

// NewApplication loads configuration, configures logging and builds the
// runtime manager. The manager starts disabled.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cfg.LogOutput)

	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	kcfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	for _, override := range cfg.Overrides {
		override(&kcfg)
	}
	if err := config.Validate(&kcfg); err != nil {
		return nil, err
	}

	if err := configureLogging(cfg, kcfg.Logging); err != nil {
		return nil, err
	}

	a := &Application{
		config:  cfg,
		cfg:     kcfg,
		metrics: metrics.New(),
	}

	if cfg.InventoryPath != "" {
		inv, err := inventory.Load(cfg.InventoryPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load inventory")
			return nil, err
		}
		a.inventory = inv
	}

	opts := append([]runtime.Option{runtime.WithMetrics(a.metrics)}, cfg.RuntimeOptions...)
	a.manager = runtime.New(kcfg, opts...)
	return a, nil
}

// configureLogging switches to the level and format from the config file.
// The --debug flag keeps debug output.
func configureLogging(cfg *Config, lc config.LoggingConfig) error {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(logging.Options{
		Level:  level,
		Format: logging.Format(lc.Format),
		Output: cfg.LogOutput,
	})
	return nil
}

// Initialize connects the manager to the cluster and takes a first status
// snapshot. A failed connection leaves the manager disabled and is only
// logged.
func (a *Application) Initialize(ctx context.Context) {
	if err := a.manager.Initialize(ctx); err != nil {
		logging.Debug("Bootstrap", "Continuing with the runtime disabled")
	}
	if a.inventory != nil {
		a.manager.SetKnownServers(a.inventory.Servers)
	}
	if a.manager.IsEnabled() {
		if err := a.manager.RefreshStatus(ctx); err != nil {
			logging.Warn("Bootstrap", "Initial status snapshot failed: %v", err)
		}
	}
}

// Manager returns the runtime manager.
func (a *Application) Manager() *runtime.Manager {
	return a.manager
}

// Settings returns the effective configuration.
func (a *Application) Settings() config.Config {
	return a.cfg
}

// Metrics returns the application's metrics.
func (a *Application) Metrics() *metrics.Metrics {
	return a.metrics
}

// Inventory returns the loaded inventory or ErrNoInventory.
func (a *Application) Inventory() (*inventory.Inventory, error) {
	if a.inventory == nil {
		return nil, ErrNoInventory
	}
	return a.inventory, nil
}

// Close shuts the manager down. Workloads keep running.
func (a *Application) Close() {
	a.manager.Shutdown()
}
