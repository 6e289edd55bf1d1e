package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
)

var stopAll bool

var stopCmd = &cobra.Command{
	Use:   "stop [SERVER_ID...]",
	Short: "Tear down deployed MCP servers",
	Long: `Deletes the Deployment, Service and Secret of each named server and
releases its registry credential. A registry credential still used by another
server is kept.

With --all every server found in the namespace is stopped, whether or not it
is listed in the inventory.`,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	if stopAll == (len(args) > 0) {
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

	ctx := commandContext(cmd)
	mgr := application.Manager()
	out := cmd.OutOrStdout()

	if stopAll {
		n := len(mgr.Bundles())
		if err := mgr.StopAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Stopped %d servers", n)))
		return nil
	}

	var errs []error
	for _, id := range args {
		if _, ok := mgr.Bundle(id); !ok {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s is not deployed", id)))
			continue
		}
		if err := mgr.StopServer(ctx, id); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
			errs = append(errs, err)
			continue
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Stopped %s", id)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d of %d servers: %w", len(errs), len(args), errors.Join(errs...))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().BoolVar(&stopAll, "all", false, "Stop every deployed server")
}
