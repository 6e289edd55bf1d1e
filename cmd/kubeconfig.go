package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
	"kubemcp/internal/kubeconfig"
)

var kubeconfigCmd = &cobra.Command{
	Use:   "kubeconfig",
	Short: "Kubeconfig helpers",
}

var kubeconfigValidateCmd = &cobra.Command{
	Use:   "validate [PATH]",
	Short: "Check that a kubeconfig file can be used",
	Long: `Checks that the file exists and parses as YAML, that it has clusters,
contexts and users sections, and that its first cluster names a server.
Without PATH the --kubeconfig flag is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := kubeconfigPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return errors.New("no kubeconfig given: pass PATH or --kubeconfig")
		}

		if err := kubeconfig.Validate(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is a valid kubeconfig", path)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kubeconfigCmd)
	kubeconfigCmd.AddCommand(kubeconfigValidateCmd)
}
