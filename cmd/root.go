// Package cmd implements the lexa command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lexa",
	Short: "Lexa - retrieval-augmented agentic chat backend",
	Long: `Lexa answers chat messages with Gemini, grounding responses in the
user's documents and letting the model manage tasks through tool calls.

Run "lexa serve" to start the HTTP API, "lexa migrate" to apply the
database schema.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
