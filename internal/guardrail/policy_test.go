package guardrail

import "testing"

func TestMerge_NilOverrideCopiesBase(t *testing.T) {
	base := DefaultPolicy()
	base.Categories[CategoryCustom] = false

	merged := Merge(base, nil)
	if merged == base {
		t.Fatal("merge must return a new policy")
	}
	if merged.Enabled != base.Enabled || merged.Mode != base.Mode {
		t.Error("merged policy differs from base")
	}
	if merged.Categories[CategoryCustom] {
		t.Error("category map not copied")
	}

	// Mutating the result must not touch the base.
	merged.Categories[CategoryCustom] = true
	if base.Categories[CategoryCustom] {
		t.Error("merge shares the base category map")
	}
}

func TestMerge_ShallowFieldOverride(t *testing.T) {
	base := DefaultPolicy()
	mode := ModePause
	threshold := float32(0.9)
	enabled := false

	merged := Merge(base, &PolicyOverride{
		Enabled:             &enabled,
		Mode:                &mode,
		ConfidenceThreshold: &threshold,
	})

	if merged.Enabled {
		t.Error("Enabled override not applied")
	}
	if merged.Mode != ModePause {
		t.Errorf("expected pause, got %v", merged.Mode)
	}
	if merged.ConfidenceThreshold != 0.9 {
		t.Errorf("expected 0.9, got %v", merged.ConfidenceThreshold)
	}
	if base.Mode != ModeBlock || !base.Enabled {
		t.Error("base policy mutated")
	}
}

func TestMerge_CategoriesMergedKeyByKey(t *testing.T) {
	base := DefaultPolicy()
	base.Categories = map[Category]bool{
		CategoryDestructive: false,
		CategoryPrivilege:   true,
	}

	merged := Merge(base, &PolicyOverride{
		Categories: map[Category]bool{
			CategoryPrivilege:  false,
			CategoryFilesystem: false,
		},
	})

	if merged.Categories[CategoryDestructive] {
		t.Error("unspecified key lost base value")
	}
	if merged.Categories[CategoryPrivilege] {
		t.Error("override key should win")
	}
	if merged.Categories[CategoryFilesystem] {
		t.Error("new override key not applied")
	}
	if !merged.CategoryEnabled(CategoryExfiltration) {
		t.Error("untouched categories default to enabled")
	}
}

func TestMerge_AllowPatternsReplaceWhenPresent(t *testing.T) {
	base := DefaultPolicy()
	base.AllowPatterns = []string{`^a$`}

	merged := Merge(base, &PolicyOverride{AllowPatterns: []string{`^b$`, `^c$`}})
	if len(merged.AllowPatterns) != 2 || merged.AllowPatterns[0] != `^b$` {
		t.Errorf("expected replacement, got %v", merged.AllowPatterns)
	}

	kept := Merge(base, &PolicyOverride{})
	if len(kept.AllowPatterns) != 1 || kept.AllowPatterns[0] != `^a$` {
		t.Errorf("nil AllowPatterns must keep base, got %v", kept.AllowPatterns)
	}
}

func TestPolicy_ThresholdFallsBackOnMalformedValue(t *testing.T) {
	p := DefaultPolicy()
	p.ConfidenceThreshold = 1.7
	if p.Threshold() != DefaultConfidenceThreshold {
		t.Errorf("expected default threshold, got %v", p.Threshold())
	}
	p.ConfidenceThreshold = -0.2
	if p.Threshold() != DefaultConfidenceThreshold {
		t.Errorf("expected default threshold, got %v", p.Threshold())
	}
}

func TestParseMode_UnknownDegradesToWarn(t *testing.T) {
	if ParseMode("nonsense") != ModeWarn {
		t.Error("unknown mode should degrade to warn")
	}
	if ParseMode("block") != ModeBlock || ParseMode("pause") != ModePause {
		t.Error("known modes misparsed")
	}
}
