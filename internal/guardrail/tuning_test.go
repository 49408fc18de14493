package guardrail

import "testing"

func TestTuning_NilReceiverIsIdentity(t *testing.T) {
	var tuning *CategoryTuning

	if m := tuning.Multiplier("anything"); m != 1.0 {
		t.Errorf("expected multiplier 1.0, got %v", m)
	}
	if th := tuning.EffectiveThreshold(0.75); th != 0.75 {
		t.Errorf("expected policy threshold passthrough, got %v", th)
	}
	if tuning.Disabled("anything") {
		t.Error("nil tuning must not disable rules")
	}
}

func TestTuningTable_UnknownCategoryReturnsNil(t *testing.T) {
	table := DefaultTuningTable()
	if table.Lookup("definitely-not-a-category") != nil {
		t.Error("unknown category should yield identity (nil) tuning")
	}
	if table.Lookup("") != nil {
		t.Error("empty category should yield identity (nil) tuning")
	}
	if table.Lookup("vcs") == nil {
		t.Error("known category missing from default table")
	}
}

func TestTuning_OrderedRulesPrioritizedFirst(t *testing.T) {
	catalog := DefaultCatalog()
	tuning := &CategoryTuning{
		ToolCategory:     "t",
		PrioritizedRules: []string{"Switch to root shell", "Curl piped to bash"},
	}

	ordered := tuning.orderedRules(catalog)
	if len(ordered) != catalog.Len() {
		t.Fatalf("ordered list length %d != catalog %d", len(ordered), catalog.Len())
	}
	if ordered[0].Name != "Switch to root shell" || ordered[1].Name != "Curl piped to bash" {
		t.Errorf("prioritized rules not first: %s, %s", ordered[0].Name, ordered[1].Name)
	}

	// Every catalog rule appears exactly once.
	seen := make(map[string]int)
	for _, r := range ordered {
		seen[r.Name]++
	}
	for name, n := range seen {
		if n != 1 {
			t.Errorf("rule %s appears %d times", name, n)
		}
	}
}

func TestTuning_OrderedRulesIgnoresUnknownNames(t *testing.T) {
	catalog := DefaultCatalog()
	tuning := &CategoryTuning{
		ToolCategory:     "t",
		PrioritizedRules: []string{"No Such Rule", "Fork bomb"},
	}

	ordered := tuning.orderedRules(catalog)
	if len(ordered) != catalog.Len() {
		t.Errorf("unknown prioritized name changed length: %d", len(ordered))
	}
	if ordered[0].Name != "Fork bomb" {
		t.Errorf("expected Fork bomb first, got %s", ordered[0].Name)
	}
}

func TestNewTuningTable_SkipsEmptyEntries(t *testing.T) {
	table := NewTuningTable([]*CategoryTuning{
		nil,
		{ToolCategory: ""},
		{ToolCategory: "real"},
	})
	if table.Lookup("real") == nil {
		t.Error("valid entry missing")
	}
	if table.Lookup("") != nil {
		t.Error("empty-key entry should be skipped")
	}
}
