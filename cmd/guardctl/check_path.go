package main

import (
	"fmt"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/pathguard"
	"github.com/spf13/cobra"
)

var (
	checkPathRoot    string
	checkPathAllowed []string
	checkPathOp      string
)

var checkPathCmd = &cobra.Command{
	Use:   "check-path <path>...",
	Short: "Validate file paths against the project root",
	Long: `Check that file paths stay inside the project root, avoid sensitive
system locations, and (for delete) do not touch protected project files.

Examples:
  guardctl check-path --root . src/main.go
  guardctl check-path --root /srv/project --op delete build/out.bin
  guardctl check-path --root . --allowed-dir src --allowed-dir docs notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckPath,
}

func init() {
	rootCmd.AddCommand(checkPathCmd)
	checkPathCmd.Flags().StringVar(&checkPathRoot, "root", ".", "Project root to confine paths to")
	checkPathCmd.Flags().StringArrayVar(&checkPathAllowed, "allowed-dir", nil, "Restrict access to this directory (repeatable)")
	checkPathCmd.Flags().StringVar(&checkPathOp, "op", "read", "Operation to validate (read, write, delete)")
}

func runCheckPath(cmd *cobra.Command, args []string) error {
	var op pathguard.Operation
	switch checkPathOp {
	case "read":
		op = pathguard.OpRead
	case "write":
		op = pathguard.OpWrite
	case "delete":
		op = pathguard.OpDelete
	default:
		return fmt.Errorf("unknown operation %q (want read, write or delete)", checkPathOp)
	}

	validator, err := pathguard.NewValidator(checkPathRoot, checkPathAllowed)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range args {
		if err := validator.Validate(path, op); err != nil {
			fmt.Printf("DENY  %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("OK    %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d path(s) rejected", failed, len(args))
	}
	return nil
}
