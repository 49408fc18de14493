package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "guardctl",
	Short: "Safety guardrail CLI for workflow step output",
	Long: `guardctl runs the safety guardrail locally, without the server.

Commands:
  scan        Scan step output for dangerous commands
  mask        Mask secrets in text
  check-path  Validate file paths against the project root

Examples:
  guardctl scan --step-id build-1 output.log
  cat step.log | guardctl scan --step-id build-1 --tool-category shell
  guardctl mask secrets.env
  guardctl check-path --root . --op delete src/main.go`,
	SilenceUsage: true,
}

// Execute runs the root command and exits nonzero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Guardrail YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output structured JSON")
}
