package cmd

import (
	"github.com/spf13/cobra"

	"kubemcp/internal/cli"
	"kubemcp/internal/secrets"
)

var (
	regcredOutput cli.OutputFlags
	regcredAdmin  bool
	regcredTeams  []string
)

var regcredCmd = &cobra.Command{
	Use:   "regcred",
	Short: "Inspect and maintain registry credential secrets",
}

var regcredListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry credential secrets",
	Long: `Lists the dockerconfigjson secrets kubemcp manages. Credential material
is never printed.

--admin shows every secret. --team limits the list to secrets labelled with
one of the given teams. Without either the list is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := regcredOutput.Printer(cmd)
		if err != nil {
			return err
		}
		application, err := connect(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		list, err := application.Manager().ListDockerRegistrySecrets(commandContext(cmd), secrets.ListOptions{
			IsAdmin: regcredAdmin,
			TeamIDs: regcredTeams,
		})
		if err != nil {
			return err
		}
		return printer.PrintRegcreds(list)
	},
}

var regcredBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Label legacy registry credentials with their team",
	Long: `Adds the team-id label to registry credential secrets created before
team labels existed, using the teamId of the inventory server that created
each secret. Secrets already labelled are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := regcredOutput.Printer(cmd)
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
		inv, err := application.Inventory()
		if err != nil {
			return err
		}
		result, err := application.Manager().BackfillRegcredTeamLabels(commandContext(cmd), inv.Servers)
		if err != nil {
			return err
		}
		return printer.PrintBackfill(result)
	},
}

func init() {
	rootCmd.AddCommand(regcredCmd)
	regcredCmd.AddCommand(regcredListCmd, regcredBackfillCmd)

	cli.RegisterOutputFlags(regcredListCmd, &regcredOutput)
	cli.RegisterOutputFlags(regcredBackfillCmd, &regcredOutput)
	regcredListCmd.Flags().BoolVar(&regcredAdmin, "admin", false, "Show every registry credential")
	regcredListCmd.Flags().StringSliceVar(&regcredTeams, "team", nil, "Show credentials of these teams")
}
