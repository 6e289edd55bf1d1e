package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kubemcp/internal/app"
	"kubemcp/internal/config"
	"kubemcp/internal/runtime"
)

// runtimeOptions are passed to every manager the commands build. Tests set
// it to inject a fake cluster.
var runtimeOptions []runtime.Option

// newApplication builds the application from the global flags and any
// command specific overrides.
func newApplication(cmd *cobra.Command, overrides ...func(*config.Config)) (*app.Application, error) {
	cfg := app.NewConfig(debug, configPath, inventoryPath)
	cfg.LogOutput = cmd.ErrOrStderr()
	cfg.RuntimeOptions = runtimeOptions

	flags := cmd.Flags()
	if flags.Changed("namespace") {
		cfg.WithOverride(func(c *config.Config) { c.Kubernetes.Namespace = namespace })
	}
	if flags.Changed("kubeconfig") {
		cfg.WithOverride(func(c *config.Config) {
			c.Kubernetes.Kubeconfig = kubeconfigPath
			c.Kubernetes.KubeconfigInline = ""
		})
	}
	if flags.Changed("in-cluster") {
		cfg.WithOverride(func(c *config.Config) { c.Kubernetes.InCluster = inCluster })
	}
	for _, o := range overrides {
		cfg.WithOverride(o)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// connect builds the application and connects it to the cluster. The caller
// must Close it.
func connect(cmd *cobra.Command) (*app.Application, error) {
	application, err := newApplication(cmd)
	if err != nil {
		return nil, err
	}
	application.Initialize(commandContext(cmd))
	return application, nil
}

// requireEnabled fails commands that change the cluster when the runtime
// could not connect.
func requireEnabled(application *app.Application) error {
	if !application.Manager().IsEnabled() {
		return fmt.Errorf("%w: check --kubeconfig, --in-cluster or the kubernetes section of the config", runtime.ErrRuntimeDisabled)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
