// Package config loads the optional guardrail YAML config file: extra
// catalog rules, the category tuning table, and default allow patterns.
// Everything in the file layers over the built-in defaults; invalid entries
// are skipped with a warning, never fatal.
package config

import (
	"fmt"
	"os"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML document.
type Config struct {
	CustomRules   []RuleConfig    `yaml:"custom_rules"`
	Tuning        []TuningConfig  `yaml:"tuning"`
	AllowPatterns []string        `yaml:"allow_patterns"`
	Policy        *PolicyConfig   `yaml:"policy"`
	PathGuard     PathGuardConfig `yaml:"path_guard"`
}

// RuleConfig is one custom catalog rule.
type RuleConfig struct {
	Name        string  `yaml:"name"`
	Pattern     string  `yaml:"pattern"`
	Category    string  `yaml:"category"`
	Severity    string  `yaml:"severity"`
	Confidence  float32 `yaml:"confidence"`
	Remediation string  `yaml:"remediation"`
}

// TuningConfig is one category tuning entry.
type TuningConfig struct {
	ToolCategory          string             `yaml:"tool_category"`
	ConfidenceMultipliers map[string]float32 `yaml:"confidence_multipliers"`
	ConfidenceThreshold   *float32           `yaml:"confidence_threshold"`
	PrioritizedRules      []string           `yaml:"prioritized_rules"`
	DisabledRules         []string           `yaml:"disabled_rules"`
}

// PolicyConfig sets the server's base safety policy.
type PolicyConfig struct {
	Enabled             *bool           `yaml:"enabled"`
	Mode                string          `yaml:"mode"`
	ConfidenceThreshold *float32        `yaml:"confidence_threshold"`
	Categories          map[string]bool `yaml:"categories"`
}

// PathGuardConfig configures the path validator.
type PathGuardConfig struct {
	Root        string   `yaml:"root"`
	AllowedDirs []string `yaml:"allowed_dirs"`
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// BuildCatalog compiles the built-in rules plus the config's custom rules.
func (c *Config) BuildCatalog(logger *zap.Logger) *guardrail.Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return guardrail.NewCatalog(c.BuildRules(logger), logger)
}

// BuildRules returns the built-in rule definitions plus the config's custom
// rules. Custom rules with an unknown category land in the custom category;
// rules with confidence outside (0,1] are skipped with a warning.
func (c *Config) BuildRules(logger *zap.Logger) []guardrail.RuleDef {
	if logger == nil {
		logger = zap.NewNop()
	}
	defs := guardrail.DefaultRules()
	for _, rc := range c.CustomRules {
		if rc.Name == "" || rc.Pattern == "" {
			logger.Warn("custom rule missing name or pattern, skipping")
			continue
		}
		if rc.Confidence <= 0 || rc.Confidence > 1 {
			logger.Warn("custom rule confidence out of range, skipping",
				zap.String("rule", rc.Name),
				zap.Float32("confidence", rc.Confidence),
			)
			continue
		}
		category := guardrail.ParseCategory(rc.Category)
		if category == guardrail.CategoryUnspecified {
			category = guardrail.CategoryCustom
		}
		defs = append(defs, guardrail.RuleDef{
			Name:        rc.Name,
			Pattern:     rc.Pattern,
			Category:    category,
			Severity:    guardrail.ParseSeverity(rc.Severity),
			Confidence:  rc.Confidence,
			Remediation: rc.Remediation,
		})
	}
	return defs
}

// BuildTuningTable converts the config's tuning entries. When the config has
// no tuning section the built-in table is returned.
func (c *Config) BuildTuningTable() *guardrail.TuningTable {
	if len(c.Tuning) == 0 {
		return guardrail.DefaultTuningTable()
	}
	entries := make([]*guardrail.CategoryTuning, 0, len(c.Tuning))
	for _, tc := range c.Tuning {
		entries = append(entries, &guardrail.CategoryTuning{
			ToolCategory:          tc.ToolCategory,
			ConfidenceMultipliers: tc.ConfidenceMultipliers,
			ConfidenceThreshold:   tc.ConfidenceThreshold,
			PrioritizedRules:      tc.PrioritizedRules,
			DisabledRules:         tc.DisabledRules,
		})
	}
	return guardrail.NewTuningTable(entries)
}

// BuildPolicy converts the config's policy section layered over the default
// policy. Config allow patterns are appended to any policy-level ones.
func (c *Config) BuildPolicy() *guardrail.Policy {
	p := guardrail.DefaultPolicy()
	if len(c.AllowPatterns) > 0 {
		p.AllowPatterns = append(p.AllowPatterns, c.AllowPatterns...)
	}
	if c.Policy == nil {
		return p
	}
	if c.Policy.Enabled != nil {
		p.Enabled = *c.Policy.Enabled
	}
	if c.Policy.Mode != "" {
		p.Mode = guardrail.ParseMode(c.Policy.Mode)
	}
	if c.Policy.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *c.Policy.ConfidenceThreshold
	}
	for name, enabled := range c.Policy.Categories {
		if cat := guardrail.ParseCategory(name); cat != guardrail.CategoryUnspecified {
			p.Categories[cat] = enabled
		}
	}
	return p
}
