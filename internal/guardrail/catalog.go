package guardrail

import (
	"regexp"

	"go.uber.org/zap"
)

// RuleDef is the serializable form of a catalog rule. The compiled matcher
// is produced once at catalog construction and never serialized.
type RuleDef struct {
	Name        string
	Pattern     string
	Category    Category
	Severity    Severity
	Confidence  float32
	Remediation string
}

// PatternRule is a compiled danger rule. Immutable after catalog load.
type PatternRule struct {
	Name        string
	Category    Category
	Severity    Severity
	Confidence  float32
	Remediation string

	re *regexp.Regexp
}

// Match returns the matched substring of line, or "" if the rule does not fire.
func (r *PatternRule) Match(line string) string {
	return r.re.FindString(line)
}

// Matches reports whether the rule fires on line.
func (r *PatternRule) Matches(line string) bool {
	return r.re.MatchString(line)
}

// Catalog is an immutable, ordered set of danger rules. Safe for concurrent
// use by any number of scans.
type Catalog struct {
	rules  []*PatternRule
	byName map[string]*PatternRule
}

// NewCatalog compiles rule definitions into a catalog, preserving declaration
// order. Definitions with invalid patterns or duplicate names are skipped
// with a warning; catalog construction never fails.
func NewCatalog(defs []RuleDef, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{byName: make(map[string]*PatternRule, len(defs))}
	for _, def := range defs {
		if _, dup := c.byName[def.Name]; dup {
			logger.Warn("duplicate rule name, skipping", zap.String("rule", def.Name))
			continue
		}
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			logger.Warn("invalid rule pattern, skipping",
				zap.String("rule", def.Name),
				zap.Error(err),
			)
			continue
		}
		rule := &PatternRule{
			Name:        def.Name,
			Category:    def.Category,
			Severity:    def.Severity,
			Confidence:  def.Confidence,
			Remediation: def.Remediation,
			re:          re,
		}
		c.rules = append(c.rules, rule)
		c.byName[def.Name] = rule
	}
	return c
}

// Rules returns the catalog rules in declaration order.
func (c *Catalog) Rules() []*PatternRule {
	return c.rules
}

// Rule returns the rule with the given name, or nil.
func (c *Catalog) Rule(name string) *PatternRule {
	return c.byName[name]
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// DefaultRules returns the built-in rule definitions. Callers that extend the
// catalog append to a copy of this slice before calling NewCatalog.
func DefaultRules() []RuleDef {
	defs := make([]RuleDef, len(defaultRules))
	copy(defs, defaultRules)
	return defs
}

// DefaultCatalog compiles the built-in catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultRules, nil)
}

// Built-in danger rules, in catalog declaration order. Patterns must avoid
// exponential-time constructs; re2 semantics guarantee linear scans.
var defaultRules = []RuleDef{
	// destructive
	{
		Name:        "Recursive force delete",
		Pattern:     `(?i)\brm\s+-[a-z]*[rf][a-z]*[rf][a-z]*\s+(/|~|\$HOME|\*)`,
		Category:    CategoryDestructive,
		Severity:    SeverityBlock,
		Confidence:  0.98,
		Remediation: "Delete specific paths instead of root, home, or glob targets.",
	},
	{
		Name:        "Curl piped to bash",
		Pattern:     `(?i)\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z|da|fi)?sh\b`,
		Category:    CategoryDestructive,
		Severity:    SeverityBlock,
		Confidence:  0.99,
		Remediation: "Download the script, review it, then execute it explicitly.",
	},
	{
		Name:        "Raw disk overwrite",
		Pattern:     `(?i)\bdd\s+[^|\n]*of=/dev/(sd|hd|nvme|vd|xvd)`,
		Category:    CategoryDestructive,
		Severity:    SeverityBlock,
		Confidence:  0.97,
		Remediation: "Writing to raw block devices destroys data irrecoverably.",
	},
	{
		Name:        "Filesystem format",
		Pattern:     `(?i)\bmkfs(\.[a-z0-9]+)?\s+`,
		Category:    CategoryDestructive,
		Severity:    SeverityBlock,
		Confidence:  0.95,
		Remediation: "Formatting a filesystem erases it; confirm the device manually.",
	},
	{
		Name:        "Fork bomb",
		Pattern:     `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`,
		Category:    CategoryDestructive,
		Severity:    SeverityBlock,
		Confidence:  0.99,
		Remediation: "Fork bombs exhaust process tables; never execute.",
	},
	{
		Name:        "Database drop",
		Pattern:     `(?i)\b(DROP|TRUNCATE)\s+(TABLE|DATABASE|SCHEMA|INDEX)\b`,
		Category:    CategoryDestructive,
		Severity:    SeverityPause,
		Confidence:  0.88,
		Remediation: "Back up the affected objects and run the statement manually.",
	},
	{
		Name:        "Forced git push",
		Pattern:     `(?i)\bgit\s+push\b[^|\n]*(--force\b|-f\b)`,
		Category:    CategoryDestructive,
		Severity:    SeverityWarn,
		Confidence:  0.80,
		Remediation: "Prefer --force-with-lease to avoid clobbering remote history.",
	},

	// exfiltration
	{
		Name:        "Environment dump to network",
		Pattern:     `(?i)\b(env|printenv|set)\b\s*\|\s*(curl|wget|nc|ncat)\b`,
		Category:    CategoryExfiltration,
		Severity:    SeverityBlock,
		Confidence:  0.95,
		Remediation: "Environment variables often hold credentials; never pipe them off-host.",
	},
	{
		Name:        "File upload via curl",
		Pattern:     `(?i)\bcurl\b[^|\n]*(\s-(d|F|T)\s|--data\b|--form\b|--upload-file\b)[^|\n]*https?://`,
		Category:    CategoryExfiltration,
		Severity:    SeverityPause,
		Confidence:  0.85,
		Remediation: "Confirm the destination host before uploading file contents.",
	},
	{
		Name:        "Netcat remote connection",
		Pattern:     `(?i)\b(nc|ncat|netcat)\s+(-[a-z]+\s+)*\S+\s+\d{2,5}\b`,
		Category:    CategoryExfiltration,
		Severity:    SeverityPause,
		Confidence:  0.80,
		Remediation: "Raw socket connections from build steps are rarely legitimate.",
	},
	{
		Name:        "Secret file remote copy",
		Pattern:     `(?i)\b(scp|rsync)\b[^|\n]*\.(pem|key|env|kdbx|p12)\b`,
		Category:    CategoryExfiltration,
		Severity:    SeverityPause,
		Confidence:  0.90,
		Remediation: "Key material must not leave the host; rotate if already copied.",
	},

	// privilege
	{
		Name:        "Switch to root shell",
		Pattern:     `(?i)\bsudo\s+(su|-i|-s)\b|\bsu\s+(-\s+)?root\b`,
		Category:    CategoryPrivilege,
		Severity:    SeverityPause,
		Confidence:  0.90,
		Remediation: "Run the specific privileged command with sudo instead of a root shell.",
	},
	{
		Name:        "Sudoers modification",
		Pattern:     `(?i)\bNOPASSWD\b[^|\n]*/etc/sudoers|>>?\s*/etc/sudoers`,
		Category:    CategoryPrivilege,
		Severity:    SeverityBlock,
		Confidence:  0.96,
		Remediation: "Sudoers changes must go through visudo with human review.",
	},
	{
		Name:        "Credential file read",
		Pattern:     `(?i)\b(cat|less|head|tail|cp|vi|vim|nano)\s+/etc/(shadow|sudoers|gshadow)\b`,
		Category:    CategoryPrivilege,
		Severity:    SeverityBlock,
		Confidence:  0.95,
		Remediation: "System credential files are off limits to automated steps.",
	},
	{
		Name:        "Setuid permission grant",
		Pattern:     `(?i)\bchmod\s+([ugoa]*\+s\b|[0-7]?[24][0-7]{3}\b)`,
		Category:    CategoryPrivilege,
		Severity:    SeverityPause,
		Confidence:  0.85,
		Remediation: "Setuid bits grant persistent privilege escalation; justify explicitly.",
	},

	// filesystem
	{
		Name:        "System config write",
		Pattern:     `>>?\s*/etc/\S+`,
		Category:    CategoryFilesystem,
		Severity:    SeverityPause,
		Confidence:  0.82,
		Remediation: "Write to a project-local file and install it via configuration management.",
	},
	{
		Name:        "SSH directory access",
		Pattern:     `(~|\$HOME|/home/[a-z_][a-z0-9_-]*|/root)/\.ssh\b`,
		Category:    CategoryFilesystem,
		Severity:    SeverityPause,
		Confidence:  0.85,
		Remediation: "SSH keys are out of scope for workflow steps.",
	},
	{
		Name:        "Cloud credential access",
		Pattern:     `(~|\$HOME|/home/[a-z_][a-z0-9_-]*|/root)/\.(aws|azure|kube|gnupg|config/gcloud)\b`,
		Category:    CategoryFilesystem,
		Severity:    SeverityPause,
		Confidence:  0.85,
		Remediation: "Cloud credential stores are out of scope for workflow steps.",
	},
	{
		Name:        "World-writable permissions",
		Pattern:     `(?i)\bchmod\s+(-[a-z]+\s+)*[0-7]?777\b`,
		Category:    CategoryFilesystem,
		Severity:    SeverityWarn,
		Confidence:  0.78,
		Remediation: "World-writable modes invite tampering; use the narrowest mode that works.",
	},
}
