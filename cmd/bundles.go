package cmd

import (
	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
)

var bundlesOutput cli.OutputFlags

var bundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "List the cluster objects owned by each deployed MCP server",
	Long: `Lists every MCP server found in the namespace together with the names of
its Deployment, Service, Secret and registry credentials.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := bundlesOutput.Printer(cmd)
		if err != nil {
			return err
		}
		application, err := connect(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := requireEnabled(application); err != nil {
			return err
		}
		return printer.PrintBundles(application.Manager().Bundles())
	},
}

func init() {
	rootCmd.AddCommand(bundlesCmd)
	cli.RegisterOutputFlags(bundlesCmd, &bundlesOutput)
}
