package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/redact"
	"github.com/spf13/cobra"
)

var maskShowAudit bool

var maskCmd = &cobra.Command{
	Use:   "mask [file]",
	Short: "Mask secrets in text",
	Long: `Replace detected secrets (API keys, tokens, private keys) with a
redaction marker. Reads from the given file, or stdin when no file is given.

The audit trail records the kind and rounded length of each secret, never
the value itself.

Examples:
  guardctl mask secrets.env
  cat step.log | guardctl mask --audit
  guardctl mask output.log --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMask,
}

func init() {
	rootCmd.AddCommand(maskCmd)
	maskCmd.Flags().BoolVar(&maskShowAudit, "audit", false, "Print the redaction audit to stderr")
}

type maskJSON struct {
	Masked string          `json:"masked"`
	Audits []maskJSONAudit `json:"audits"`
}

type maskJSONAudit struct {
	SecretType     string `json:"secret_type"`
	RedactedLength int    `json:"redacted_length"`
	Position       int    `json:"position"`
}

func runMask(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}

	masked, audits := redact.Mask(text)

	if jsonOutput {
		out := maskJSON{
			Masked: masked,
			Audits: make([]maskJSONAudit, 0, len(audits)),
		}
		for _, a := range audits {
			out.Audits = append(out.Audits, maskJSONAudit{
				SecretType:     a.SecretType,
				RedactedLength: a.RedactedLength,
				Position:       a.Position,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Print(masked)
	if maskShowAudit {
		for _, a := range audits {
			fmt.Fprintf(os.Stderr, "redacted %s (%d chars) at offset %d\n",
				a.SecretType, a.RedactedLength, a.Position)
		}
	}
	return nil
}
