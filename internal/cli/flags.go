package cli

import (
	"github.com/spf13/cobra"
)

// OutputFlags holds the output flag values shared by commands that print
// results.
type OutputFlags struct {
	// OutputFormat specifies the desired output format
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
}

// RegisterOutputFlags registers --output/-o and --no-headers on cmd.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, wide, pretty, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
}

// Printer validates the flags and returns a Printer for cmd's output stream.
func (f *OutputFlags) Printer(cmd *cobra.Command) (*Printer, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return nil, err
	}
	return NewPrinter(cmd.OutOrStdout(), OutputFormat(f.OutputFormat), f.NoHeaders), nil
}
