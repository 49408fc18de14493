package guardrail

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Guardrail scans step output against the rule catalog under one policy.
// The catalog, tuning table, and compiled allowlist are read-only after
// construction, so a single instance is safe for concurrent scans; each
// Scan call is a pure function of its inputs.
type Guardrail struct {
	catalog   *Catalog
	tuning    *TuningTable
	policy    *Policy
	allowlist *Allowlist
	logger    *zap.Logger
}

// New creates a guardrail. Nil arguments fall back to the built-in catalog,
// tuning table, default policy, and a no-op logger. The policy's allow
// patterns are compiled here, once.
func New(catalog *Catalog, tuning *TuningTable, policy *Policy, logger *zap.Logger) *Guardrail {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if tuning == nil {
		tuning = DefaultTuningTable()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guardrail{
		catalog:   catalog,
		tuning:    tuning,
		policy:    policy,
		allowlist: CompileAllowlist(policy.AllowPatterns, logger),
		logger:    logger,
	}
}

// Policy returns the guardrail's effective policy.
func (g *Guardrail) Policy() *Policy {
	return g.policy
}

// WithPolicy returns a new guardrail whose policy is the base policy merged
// with the override. The receiver is unchanged; the allowlist is recompiled
// when the override carries its own allow patterns.
func (g *Guardrail) WithPolicy(override *PolicyOverride) *Guardrail {
	merged := Merge(g.policy, override)
	return &Guardrail{
		catalog:   g.catalog,
		tuning:    g.tuning,
		policy:    merged,
		allowlist: CompileAllowlist(merged.AllowPatterns, g.logger),
		logger:    g.logger,
	}
}

// Scan inspects a step's raw output line by line and returns the verdict.
//
// Per line: allowlisted lines are skipped entirely; heuristics run
// unconditionally; catalog rules run in effective priority order for the
// tool category, threshold-gated on tuned confidence, and only the first
// catalog match per line is recorded. A block-severity violation stops the
// scan of all remaining lines.
func (g *Guardrail) Scan(stepID, rawOutput, toolCategory string) *ScanResult {
	start := time.Now()

	result := &ScanResult{
		StepID:        stepID,
		Status:        StatusSafe,
		ScanCompleted: true,
	}
	if !g.policy.Enabled {
		return result
	}

	tuning := g.tuning.Lookup(toolCategory)
	if toolCategory != "" && tuning == nil {
		g.logger.Debug("unknown tool category, using identity tuning",
			zap.String("tool_category", toolCategory),
		)
	}
	rules := tuning.orderedRules(g.catalog)
	threshold := tuning.EffectiveThreshold(g.policy.Threshold())
	now := time.Now()

	lines := strings.Split(rawOutput, "\n")
scan:
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if g.allowlist.Allowed(line) {
			continue
		}
		lineNumber := i + 1

		lineStart := len(result.Violations)
		result.Violations = append(result.Violations, runHeuristics(line, lineNumber, now)...)

		for _, rule := range rules {
			if tuning.Disabled(rule.Name) {
				continue
			}
			if !g.policy.CategoryEnabled(rule.Category) {
				continue
			}
			confidence := rule.Confidence * tuning.Multiplier(rule.Name)
			if confidence > 1 {
				confidence = 1
			}
			if confidence < threshold {
				continue
			}
			match := rule.Match(line)
			if match == "" {
				continue
			}
			result.Violations = append(result.Violations, &Violation{
				Category:    rule.Category,
				Severity:    rule.Severity,
				RuleName:    rule.Name,
				MatchedText: truncateMatch(match, maxMatchedTextLen),
				LineNumber:  lineNumber,
				Confidence:  confidence,
				Remediation: rule.Remediation,
				Timestamp:   now,
			})
			// First catalog match wins for this line. Heuristics above are
			// additive and unaffected.
			break
		}

		for _, v := range result.Violations[lineStart:] {
			if v.Severity == SeverityBlock {
				// A single block-severity hit ends the whole scan. Trailing
				// blank lines count as exhausted.
				result.ScanCompleted = allBlank(lines[i+1:])
				break scan
			}
		}
	}

	result.Status = computeStatus(result.Violations)
	result.DurationMs = float64(time.Since(start)) / float64(time.Millisecond)
	return result
}

// allBlank reports whether every line is empty or whitespace-only.
func allBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}
