package cli

import (
	"fmt"
	"strings"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a table with additional columns
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatPretty formats output as a bordered, colored table
	OutputFormatPretty OutputFormat = "pretty"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML converted from JSON
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatWide,
	OutputFormatPretty,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	for _, f := range ValidOutputFormats {
		if OutputFormat(format) == f {
			return nil
		}
	}
	valid := make([]string, len(ValidOutputFormats))
	for i, f := range ValidOutputFormats {
		valid[i] = string(f)
	}
	return fmt.Errorf("unsupported output format %q (valid: %s)", format, strings.Join(valid, ", "))
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
