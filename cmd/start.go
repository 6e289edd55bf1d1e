package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
	"kubemcp/internal/runtime"
)

var startAll bool

var startCmd = &cobra.Command{
	Use:   "start [SERVER_ID...]",
	Short: "Deploy MCP servers from the inventory",
	Long: `Creates the Secret, Service and Deployment of each named server, or of
every local server in the inventory with --all.

Starting a server that is already deployed is safe: existing objects are kept
and only missing secret keys are added.`,
	Example: `  # Deploy one server
  kubemcp start github --inventory servers.yaml

  # Deploy everything
  kubemcp start --all --inventory servers.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	if startAll == (len(args) > 0) {
		return errors.New("specify server ids or --all, not both")
	}

	application, err := connect(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := requireEnabled(application); err != nil {
		return err
	}
	inv, err := application.Inventory()
	if err != nil {
		return err
	}

	ids := args
	if startAll {
		ids = localIDs(inv.LocalServers())
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	var errs []error
	for _, id := range ids {
		in, err := inv.StartInput(id)
		if err == nil && !in.Record.IsLocal() {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s is a remote server, nothing to deploy", id)))
			continue
		}
		if err == nil {
			err = application.Manager().StartServer(ctx, in.Record, in.SecretValues, in.CatalogEnv)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
			errs = append(errs, err)
			continue
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Started %s", id)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to start %d of %d servers: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return nil
}

func localIDs(records []runtime.ServerRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVar(&startAll, "all", false, "Start every local server in the inventory")
}
