package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"kubemcp/internal/kubeconfig"
	"kubemcp/internal/mcptools"
	"kubemcp/pkg/logging"
)

// ServeOptions controls Serve.
type ServeOptions struct {
	// StartInventory starts every local server of the inventory on startup.
	StartInventory bool
	// StopOnExit tears every bundle down before returning.
	StopOnExit bool
	// MCPStdio serves the admin tools on stdin/stdout until the client
	// disconnects, instead of waiting for ctx.
	MCPStdio bool
	// Version is reported to MCP clients.
	Version string
}

// Serve runs the manager until ctx is cancelled: it keeps the status
// snapshot fresh, reloads the cluster connection when the kubeconfig file
// changes and exposes metrics.
func (a *Application) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.Initialize(ctx)

	if opts.StartInventory {
		if err := a.startInventory(ctx); err != nil {
			logging.Warn("Serve", "Some servers failed to start: %v", err)
		}
	}

	a.manager.StartStatusPoller(ctx, a.cfg.Status.PollInterval)

	watcher, err := a.startWatcher(ctx)
	if err != nil {
		logging.Warn("Serve", "Kubeconfig watcher not started: %v", err)
	}

	var wg sync.WaitGroup
	metricsErr := make(chan error, 1)
	if addr := a.cfg.Metrics.Address; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.metrics.Serve(ctx, addr); err != nil {
				metricsErr <- fmt.Errorf("metrics server: %w", err)
				cancel()
			}
		}()
	}

	notify(daemon.SdNotifyReady)
	logging.Info("Serve", "kubemcp is running (runtime enabled: %t)", a.manager.IsEnabled())

	var runErr error
	if opts.MCPStdio {
		runErr = mcptools.New(a.manager, opts.Version).Start(ctx)
		if errors.Is(runErr, io.EOF) || errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
	} else {
		<-ctx.Done()
	}

	notify(daemon.SdNotifyStopping)
	logging.Info("Serve", "Shutting down")

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logging.Warn("Serve", "Failed to stop kubeconfig watcher: %v", err)
		}
	}
	if opts.StopOnExit {
		if err := a.manager.StopAll(context.WithoutCancel(ctx)); err != nil {
			logging.Error("Serve", err, "Failed to stop all servers")
			runErr = errors.Join(runErr, err)
		}
	}
	a.Close()

	cancel()
	wg.Wait()
	select {
	case err := <-metricsErr:
		runErr = errors.Join(runErr, err)
	default:
	}
	return runErr
}

func (a *Application) startInventory(ctx context.Context) error {
	inv, err := a.Inventory()
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range inv.LocalServers() {
		in, err := inv.StartInput(s.ID)
		if err == nil {
			err = a.manager.StartServer(ctx, in.Record, in.SecretValues, in.CatalogEnv)
		}
		if err != nil {
			logging.Error("Serve", err, "Failed to start MCP server %s", s.ID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// startWatcher reloads the manager when the configured kubeconfig changes.
func (a *Application) startWatcher(ctx context.Context) (*kubeconfig.Watcher, error) {
	path := a.cfg.Kubernetes.Kubeconfig
	if !a.cfg.Kubernetes.WatchKubeconfig || path == "" {
		return nil, nil
	}

	w := kubeconfig.NewWatcher(kubeconfig.WatcherConfig{
		Path: path,
		OnChange: func() {
			notify(daemon.SdNotifyReloading)
			if err := a.manager.Reload(ctx); err != nil {
				logging.Warn("Serve", "Reload after kubeconfig change left the runtime disabled: %v", err)
			}
			notify(daemon.SdNotifyReady)
		},
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	logging.Info("Serve", "Watching %s for changes", path)
	return w, nil
}
