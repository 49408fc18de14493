package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/config"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scanStepID       string
	scanToolCategory string
	scanMode         string
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Scan step output for dangerous commands",
	Long: `Scan step output against the danger rule catalog and heuristics.

Reads from the given file, or stdin when no file is given. Exits nonzero
when the scan comes back blocked and the policy mode is block.

Examples:
  guardctl scan --step-id build-1 output.log
  cat step.log | guardctl scan --step-id build-1 --tool-category shell
  guardctl scan --step-id s1 --mode warn output.log --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanStepID, "step-id", "cli", "Step identifier for the scan result")
	scanCmd.Flags().StringVar(&scanToolCategory, "tool-category", "", "Tool category for tuning lookup")
	scanCmd.Flags().StringVar(&scanMode, "mode", "", "Override policy mode (warn, pause, block)")
}

// scanJSON is the --json output shape.
type scanJSON struct {
	StepID        string              `json:"step_id"`
	Status        string              `json:"status"`
	ScanCompleted bool                `json:"scan_completed"`
	DurationMs    float64             `json:"duration_ms"`
	Violations    []scanJSONViolation `json:"violations"`
}

type scanJSONViolation struct {
	Rule        string  `json:"rule"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Confidence  float32 `json:"confidence"`
	Line        int     `json:"line"`
	MatchedText string  `json:"matched_text"`
	Remediation string  `json:"remediation,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	output, err := readInput(args)
	if err != nil {
		return err
	}

	guard, err := buildGuardrail()
	if err != nil {
		return err
	}
	if scanMode != "" {
		mode := guardrail.ParseMode(scanMode)
		guard = guard.WithPolicy(&guardrail.PolicyOverride{Mode: &mode})
	}

	result := guard.Scan(scanStepID, output, scanToolCategory)

	if jsonOutput {
		out := scanJSON{
			StepID:        result.StepID,
			Status:        result.Status.String(),
			ScanCompleted: result.ScanCompleted,
			DurationMs:    result.DurationMs,
			Violations:    make([]scanJSONViolation, 0, len(result.Violations)),
		}
		for _, v := range result.Violations {
			out.Violations = append(out.Violations, scanJSONViolation{
				Rule:        v.RuleName,
				Category:    v.Category.String(),
				Severity:    v.Severity.String(),
				Confidence:  v.Confidence,
				Line:        v.LineNumber,
				MatchedText: v.MatchedText,
				Remediation: v.Remediation,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Print(guardrail.FormatResult(result))
	}

	return guardrail.Enforce(result, guard.Policy())
}

// buildGuardrail assembles the guardrail from the optional --config file.
func buildGuardrail() (*guardrail.Guardrail, error) {
	logger := zap.NewNop()
	if cfgFile == "" {
		return guardrail.New(nil, nil, nil, logger), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return guardrail.New(
		cfg.BuildCatalog(logger),
		cfg.BuildTuningTable(),
		cfg.BuildPolicy(),
		logger,
	), nil
}

// readInput reads the first file argument, or stdin when none is given.
func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
