package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
)

const sampleConfig = `
custom_rules:
  - name: Internal registry push
    pattern: 'docker\s+push\s+registry\.internal'
    category: exfiltration
    severity: pause
    confidence: 0.8
    remediation: Push through the release pipeline instead.
  - name: Broken rule
    pattern: '['
    category: custom
    severity: warn
    confidence: 0.9
    remediation: n/a
  - name: Bad confidence
    pattern: '^x$'
    category: custom
    severity: warn
    confidence: 1.5
    remediation: n/a

tuning:
  - tool_category: container
    confidence_threshold: 0.7
    disabled_rules:
      - Forced git push

allow_patterns:
  - '^docker\s+pull\b'

policy:
  mode: pause
  confidence_threshold: 0.8
  categories:
    custom: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guardrail.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CustomRules) != 3 {
		t.Errorf("expected 3 custom rules, got %d", len(cfg.CustomRules))
	}
	if len(cfg.Tuning) != 1 || cfg.Tuning[0].ToolCategory != "container" {
		t.Errorf("tuning not parsed: %+v", cfg.Tuning)
	}
}

func TestBuildCatalog_SkipsInvalidCustomRules(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	catalog := cfg.BuildCatalog(nil)

	// Built-ins plus exactly one valid custom rule.
	if catalog.Len() != guardrail.DefaultCatalog().Len()+1 {
		t.Errorf("expected defaults+1, got %d", catalog.Len())
	}
	rule := catalog.Rule("Internal registry push")
	if rule == nil {
		t.Fatal("custom rule missing")
	}
	if rule.Category != guardrail.CategoryExfiltration || rule.Severity != guardrail.SeverityPause {
		t.Errorf("custom rule misparsed: %+v", rule)
	}
	if catalog.Rule("Broken rule") != nil || catalog.Rule("Bad confidence") != nil {
		t.Error("invalid custom rules were not skipped")
	}
}

func TestBuildTuningTable(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table := cfg.BuildTuningTable()

	tuning := table.Lookup("container")
	if tuning == nil {
		t.Fatal("container tuning missing")
	}
	if tuning.EffectiveThreshold(0.75) != 0.7 {
		t.Errorf("threshold override not applied")
	}
	if !tuning.Disabled("Forced git push") {
		t.Error("disabled rule not applied")
	}

	// Config tuning replaces the default table.
	if table.Lookup("vcs") != nil {
		t.Error("default table should be replaced when config has tuning")
	}
}

func TestBuildPolicy(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.BuildPolicy()

	if p.Mode != guardrail.ModePause {
		t.Errorf("expected pause mode, got %v", p.Mode)
	}
	if p.ConfidenceThreshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", p.ConfidenceThreshold)
	}
	if p.CategoryEnabled(guardrail.CategoryCustom) {
		t.Error("custom category should be disabled")
	}
	if p.CategoryEnabled(guardrail.CategoryDestructive) != true {
		t.Error("untouched categories stay enabled")
	}
	if len(p.AllowPatterns) != 1 {
		t.Errorf("allow patterns not carried: %v", p.AllowPatterns)
	}
}

func TestBuildPolicy_EmptyConfigIsDefault(t *testing.T) {
	cfg := &Config{}
	p := cfg.BuildPolicy()
	def := guardrail.DefaultPolicy()
	if p.Mode != def.Mode || p.Enabled != def.Enabled || p.ConfidenceThreshold != def.ConfidenceThreshold {
		t.Errorf("empty config changed defaults: %+v", p)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
