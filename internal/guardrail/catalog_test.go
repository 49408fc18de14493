package guardrail

import "testing"

func TestDefaultCatalog_AllRulesCompile(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != len(defaultRules) {
		t.Errorf("catalog dropped rules: %d compiled of %d defined",
			c.Len(), len(defaultRules))
	}
}

func TestDefaultCatalog_RuleInvariants(t *testing.T) {
	for _, r := range DefaultCatalog().Rules() {
		if r.Name == "" {
			t.Error("rule with empty name")
		}
		if r.Confidence <= 0 || r.Confidence > 1 {
			t.Errorf("rule %s has confidence %v outside (0,1]", r.Name, r.Confidence)
		}
		if r.Category == CategoryUnspecified {
			t.Errorf("rule %s has no category", r.Name)
		}
		if r.Severity < SeverityWarn || r.Severity > SeverityBlock {
			t.Errorf("rule %s has invalid severity %v", r.Name, r.Severity)
		}
		if r.Remediation == "" {
			t.Errorf("rule %s has no remediation text", r.Name)
		}
	}
}

func TestNewCatalog_SkipsInvalidAndDuplicate(t *testing.T) {
	c := NewCatalog([]RuleDef{
		{Name: "a", Pattern: `^a$`, Category: CategoryCustom, Severity: SeverityWarn, Confidence: 0.9, Remediation: "x"},
		{Name: "bad", Pattern: `[`, Category: CategoryCustom, Severity: SeverityWarn, Confidence: 0.9, Remediation: "x"},
		{Name: "a", Pattern: `^dup$`, Category: CategoryCustom, Severity: SeverityWarn, Confidence: 0.9, Remediation: "x"},
	}, nil)

	if c.Len() != 1 {
		t.Fatalf("expected 1 rule, got %d", c.Len())
	}
	if !c.Rule("a").Matches("a") {
		t.Error("first definition of duplicate name should win")
	}
	if c.Rule("bad") != nil {
		t.Error("invalid pattern should be skipped")
	}
}

func TestCatalog_RuleLookup(t *testing.T) {
	c := DefaultCatalog()
	if c.Rule("Curl piped to bash") == nil {
		t.Error("expected builtin rule")
	}
	if c.Rule("nope") != nil {
		t.Error("unknown name should return nil")
	}
}

func TestPatternRule_MatchReturnsSubstring(t *testing.T) {
	r := DefaultCatalog().Rule("Recursive force delete")
	m := r.Match("some prefix; rm -rf / # done")
	if m == "" {
		t.Fatal("expected a match")
	}
	if r.Match("rm -i file.txt") != "" {
		t.Error("interactive rm should not match")
	}
}
