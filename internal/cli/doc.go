// Package cli renders kubemcp command output.
//
// Results print as a kubectl-style plain table by default. The wide format
// adds columns, pretty draws a bordered table with colored states, and json
// and yaml emit the underlying data for scripts.
package cli
