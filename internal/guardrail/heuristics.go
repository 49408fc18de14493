package guardrail

import (
	"regexp"
	"time"
)

// Heuristic detectors run on every non-allowlisted line, outside the
// confidence-threshold gate, and are additive: they never suppress catalog
// rules and catalog rules never suppress them.
type heuristic struct {
	name        string
	category    Category
	severity    Severity
	confidence  float32
	remediation string
	re          *regexp.Regexp
}

const (
	// PipeToShellConfidence is the fixed confidence of the dangerous
	// pipe-to-shell heuristic.
	PipeToShellConfidence float32 = 0.95
	// ObfuscationConfidence is the fixed confidence of the obfuscation
	// indicator heuristic.
	ObfuscationConfidence float32 = 0.60
)

var heuristics = []heuristic{
	{
		name:        "dangerous_pipe_to_shell",
		category:    CategoryDestructive,
		severity:    SeverityBlock,
		confidence:  PipeToShellConfidence,
		remediation: "Never pipe remote content directly into a shell interpreter.",
		re:          regexp.MustCompile(`(?i)\b(curl|wget|fetch)\b[^|\n]*\|\s*(sudo\s+)?(ba|z|da|fi)?sh\b`),
	},
	{
		name:        "obfuscation_indicators",
		category:    CategoryCustom,
		severity:    SeverityWarn,
		confidence:  ObfuscationConfidence,
		remediation: "Encoded or substituted payloads hide intent; decode and review before running.",
		re: regexp.MustCompile(`(?i)(base64\s+(-d|--decode)\b[^|\n]*\|\s*(sudo\s+)?(ba|z)?sh\b` +
			`|echo\s+["']?[A-Za-z0-9+/=]{40,}["']?\s*\|\s*base64\b` +
			`|eval\s+["']?\$\(` +
			`|(\\x[0-9a-f]{2}){8,})`),
	},
}

// runHeuristics evaluates every heuristic against a line and returns one
// violation per firing detector.
func runHeuristics(line string, lineNumber int, now time.Time) []*Violation {
	var violations []*Violation
	for i := range heuristics {
		h := &heuristics[i]
		match := h.re.FindString(line)
		if match == "" {
			continue
		}
		violations = append(violations, &Violation{
			Category:    h.category,
			Severity:    h.severity,
			RuleName:    h.name,
			MatchedText: truncateMatch(match, maxMatchedTextLen),
			LineNumber:  lineNumber,
			Confidence:  h.confidence,
			Remediation: h.remediation,
			Timestamp:   now,
		})
	}
	return violations
}
