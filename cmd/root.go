package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"kubemcp/internal/runtime"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeRuntimeDisabled indicates the command needs a cluster connection
	// and none could be established.
	ExitCodeRuntimeDisabled = 2
)

// Global flags shared by every command.
var (
	configPath     string
	inventoryPath  string
	namespace      string
	kubeconfigPath string
	inCluster      bool
	debug          bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kubemcp",
	Short: "Run MCP servers as workloads on Kubernetes",
	Long: `kubemcp provisions installed MCP servers on a Kubernetes cluster.

Each server runs as a Deployment behind a ClusterIP Service, with its
environment in a generic Secret and, for private images, a shared registry
credential Secret. kubemcp tracks their status, streams their logs and tears
them down again without leaking objects.

Server records are read from an inventory file (--inventory).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kubemcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, runtime.ErrRuntimeDisabled) {
		return ExitCodeRuntimeDisabled
	}
	return ExitCodeError
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $HOME/.config/kubemcp/config.yaml)")
	flags.StringVar(&inventoryPath, "inventory", "", "YAML file listing installed MCP servers")
	flags.StringVarP(&namespace, "namespace", "n", "", "Namespace MCP servers run in (overrides config)")
	flags.StringVar(&kubeconfigPath, "kubeconfig", "", "Path to a kubeconfig file (overrides config)")
	flags.BoolVar(&inCluster, "in-cluster", false, "Use the in-cluster service account")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}
