package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kubemcp/internal/logstream"
)

var (
	logsFollow  bool
	logsTail    int64
	logsCommand bool
)

var logsCmd = &cobra.Command{
	Use:   "logs SERVER_ID",
	Short: "Print the logs of an MCP server",
	Long: `Prints the logs of the newest running pod of an MCP server.

With --follow new lines are streamed until interrupted. With --command the
equivalent kubectl command is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	serverID := args[0]

	application, err := connect(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	mgr := application.Manager()
	if logsCommand {
		fmt.Fprintln(cmd.OutOrStdout(), mgr.GetAppropriateCommand(serverID))
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := mgr.StreamMCPServerLogs(ctx, serverID, cmd.OutOrStdout(), logstream.StreamOptions{
		Lines:  logsTail,
		Follow: logsFollow,
	})
	if err != nil || sub == nil {
		return err
	}

	select {
	case <-sub.Done():
	case <-ctx.Done():
		sub.Cancel()
	}
	return sub.Err()
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream new log lines")
	logsCmd.Flags().Int64Var(&logsTail, "tail", 0, "Lines of recent log to show (default from config)")
	logsCmd.Flags().BoolVar(&logsCommand, "command", false, "Print the kubectl command instead of the logs")
}
