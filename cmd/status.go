package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
	"kubemcp/internal/runtime"
)

var (
	statusOutput   cli.OutputFlags
	statusWatch    bool
	statusInterval time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the deployment state of every known MCP server",
	Long: `Shows one row per local server of the inventory with its synthesized state:
not_created, pending, discovering_tools, running or error.

With --watch the table is printed again every --interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer, err := statusOutput.Printer(cmd)
	if err != nil {
		return err
	}

	application, err := connect(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if !statusWatch {
		return printer.PrintStatus(application.Manager().StatusSummary())
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := application.Manager()
	mgr.StartStatusPoller(ctx, statusInterval)

	printErrs := make(chan error, 1)
	id := mgr.SubscribeStatus(ctx, "", statusInterval, func(summary runtime.StatusSummary) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", time.Now().Format(time.TimeOnly))
		if err := printer.PrintStatus(summary); err != nil {
			select {
			case printErrs <- err:
			default:
			}
		}
	})
	defer mgr.UnsubscribeStatus(id)

	select {
	case <-ctx.Done():
		return nil
	case err := <-printErrs:
		return err
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)

	cli.RegisterOutputFlags(statusCmd, &statusOutput)
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Keep printing the status until interrupted")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", 5*time.Second, "Refresh interval for --watch")
}
