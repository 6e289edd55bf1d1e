package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kubemcp/internal/app"
	"kubemcp/internal/config"
)

var (
	serveStartAll    bool
	serveStopOnExit  bool
	serveMCP         bool
	serveMetricsAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the runtime manager until interrupted",
	Long: `Connects to the cluster and keeps running until SIGINT or SIGTERM.

While running, kubemcp:
  - refreshes the status of every managed MCP server in the background
  - reloads the cluster connection when the kubeconfig file changes
    (kubernetes.watchKubeconfig)
  - serves Prometheus metrics on --metrics-addr
  - notifies systemd once ready (Type=notify units)

With --mcp the runtime_status, runtime_logs and regcred_list tools are
served over stdin/stdout for MCP clients; logs then go to stderr only.

Workloads keep running after kubemcp exits unless --stop-on-exit is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	var overrides []func(*config.Config)
	if cmd.Flags().Changed("metrics-addr") {
		overrides = append(overrides, func(c *config.Config) { c.Metrics.Address = serveMetricsAddr })
	}

	application, err := newApplication(cmd, overrides...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Serve(ctx, app.ServeOptions{
		StartInventory: serveStartAll,
		StopOnExit:     serveStopOnExit,
		MCPStdio:       serveMCP,
		Version:        GetVersion(),
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveStartAll, "start-all", false, "Start every local server of the inventory on startup")
	serveCmd.Flags().BoolVar(&serveStopOnExit, "stop-on-exit", false, "Stop every managed server before exiting")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Serve the admin tools over stdio (MCP)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", config.DefaultMetricsAddress, "Address for the Prometheus endpoint (empty disables it)")
}
