package guardrail

import (
	"fmt"
	"strings"
)

// severityMarker returns the rendering prefix for a violation severity.
func severityMarker(s Severity) string {
	switch s {
	case SeverityBlock:
		return "[BLOCK]"
	case SeverityPause:
		return "[PAUSE]"
	default:
		return "[WARN] "
	}
}

// FormatResult renders a scan result for humans: violations grouped by
// category with severity markers, truncated matched text, and remediation.
func FormatResult(result *ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %s: %s", result.StepID, result.Status)
	if len(result.Violations) == 0 {
		b.WriteString(" (no violations)\n")
		return b.String()
	}
	fmt.Fprintf(&b, " (%d violation(s))\n", len(result.Violations))
	if !result.ScanCompleted {
		b.WriteString("scan stopped early: block-severity violation\n")
	}

	for _, cat := range Categories {
		var group []*Violation
		for _, v := range result.Violations {
			if v.Category == cat {
				group = append(group, v)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", cat)
		for _, v := range group {
			fmt.Fprintf(&b, "  %s line %d: %s (confidence %.2f)\n",
				severityMarker(v.Severity), v.LineNumber, v.RuleName, v.Confidence)
			fmt.Fprintf(&b, "          matched: %q\n", truncateMatch(v.MatchedText, 80))
			if v.Remediation != "" {
				fmt.Fprintf(&b, "          fix: %s\n", v.Remediation)
			}
			if v.UserDecision != DecisionNone {
				fmt.Fprintf(&b, "          decision: %s\n", v.UserDecision)
			}
		}
	}
	return b.String()
}
