package guardrail

// CategoryTuning adjusts catalog behavior for one tool category. All methods
// are safe on a nil receiver, which acts as identity tuning (no multipliers,
// no priority order, nothing disabled, policy threshold unchanged).
type CategoryTuning struct {
	ToolCategory string

	// ConfidenceMultipliers scales a rule's base confidence before the
	// threshold gate. Absent rules keep their base confidence.
	ConfidenceMultipliers map[string]float32

	// ConfidenceThreshold overrides the policy threshold for catalog rules
	// in this category. nil = use the policy value. Heuristic detectors are
	// never threshold-gated, so this has no effect on them.
	ConfidenceThreshold *float32

	// PrioritizedRules are evaluated first, in list order, before the rest
	// of the catalog in declaration order.
	PrioritizedRules []string

	// DisabledRules are skipped entirely for this category.
	DisabledRules []string
}

// Multiplier returns the confidence multiplier for a rule (1.0 if unset).
func (t *CategoryTuning) Multiplier(ruleName string) float32 {
	if t == nil || t.ConfidenceMultipliers == nil {
		return 1.0
	}
	m, ok := t.ConfidenceMultipliers[ruleName]
	if !ok {
		return 1.0
	}
	return m
}

// EffectiveThreshold returns the tuning threshold if set, else policyDefault.
func (t *CategoryTuning) EffectiveThreshold(policyDefault float32) float32 {
	if t == nil || t.ConfidenceThreshold == nil {
		return policyDefault
	}
	return *t.ConfidenceThreshold
}

// Disabled reports whether the rule is disabled for this category.
func (t *CategoryTuning) Disabled(ruleName string) bool {
	if t == nil {
		return false
	}
	for _, name := range t.DisabledRules {
		if name == ruleName {
			return true
		}
	}
	return false
}

// orderedRules returns catalog rules in effective priority order for this
// tuning: prioritized rules first (list order), then the remaining catalog
// rules in declaration order. Disabled-rule filtering happens in the scanner.
func (t *CategoryTuning) orderedRules(catalog *Catalog) []*PatternRule {
	if t == nil || len(t.PrioritizedRules) == 0 {
		return catalog.Rules()
	}

	ordered := make([]*PatternRule, 0, catalog.Len())
	seen := make(map[string]bool, len(t.PrioritizedRules))
	for _, name := range t.PrioritizedRules {
		if rule := catalog.Rule(name); rule != nil && !seen[name] {
			ordered = append(ordered, rule)
			seen[name] = true
		}
	}
	for _, rule := range catalog.Rules() {
		if !seen[rule.Name] {
			ordered = append(ordered, rule)
		}
	}
	return ordered
}

// TuningTable is the process-wide, read-only set of category tunings,
// keyed by the caller-supplied tool category string.
type TuningTable struct {
	byCategory map[string]*CategoryTuning
}

// NewTuningTable builds a table from entries. Later duplicates win.
func NewTuningTable(entries []*CategoryTuning) *TuningTable {
	byCategory := make(map[string]*CategoryTuning, len(entries))
	for _, e := range entries {
		if e == nil || e.ToolCategory == "" {
			continue
		}
		byCategory[e.ToolCategory] = e
	}
	return &TuningTable{byCategory: byCategory}
}

// Lookup returns the tuning for a tool category. Unknown or empty categories
// return nil, which every CategoryTuning method treats as identity tuning;
// novel tool categories must never fail a scan.
func (tt *TuningTable) Lookup(toolCategory string) *CategoryTuning {
	if tt == nil || toolCategory == "" {
		return nil
	}
	return tt.byCategory[toolCategory]
}

// DefaultTuningTable returns the built-in per-tool-category adjustments.
func DefaultTuningTable() *TuningTable {
	fileOpsThreshold := float32(0.70)
	shellThreshold := float32(0.80)

	return NewTuningTable([]*CategoryTuning{
		{
			// File tools touch the filesystem constantly; check those rules
			// first and gate them a little lower.
			ToolCategory:        "file-operations",
			ConfidenceThreshold: &fileOpsThreshold,
			PrioritizedRules: []string{
				"Recursive force delete",
				"System config write",
				"SSH directory access",
				"Cloud credential access",
			},
		},
		{
			ToolCategory: "network",
			PrioritizedRules: []string{
				"Environment dump to network",
				"File upload via curl",
				"Netcat remote connection",
			},
		},
		{
			// Installers legitimately fetch over the network; dampen the
			// upload rule but keep pipe-to-shell at full strength.
			ToolCategory: "package-manager",
			ConfidenceMultipliers: map[string]float32{
				"File upload via curl": 0.85,
			},
		},
		{
			ToolCategory:        "shell",
			ConfidenceThreshold: &shellThreshold,
		},
		{
			// Version-control tools force-push as part of normal rebase
			// flows; that rule is noise for them.
			ToolCategory:  "vcs",
			DisabledRules: []string{"Forced git push"},
		},
	})
}
