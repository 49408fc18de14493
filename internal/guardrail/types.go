package guardrail

import "time"

// Category classifies the kind of danger a rule covers.
type Category int

const (
	CategoryUnspecified Category = iota
	CategoryDestructive          // destructive
	CategoryExfiltration         // exfiltration
	CategoryPrivilege            // privilege
	CategoryFilesystem           // filesystem
	CategoryCustom               // custom
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryDestructive:
		return "destructive"
	case CategoryExfiltration:
		return "exfiltration"
	case CategoryPrivilege:
		return "privilege"
	case CategoryFilesystem:
		return "filesystem"
	case CategoryCustom:
		return "custom"
	default:
		return "unspecified"
	}
}

// ParseCategory maps a category string to its enum value.
// Unknown strings map to CategoryUnspecified.
func ParseCategory(s string) Category {
	switch s {
	case "destructive":
		return CategoryDestructive
	case "exfiltration":
		return CategoryExfiltration
	case "privilege":
		return CategoryPrivilege
	case "filesystem":
		return CategoryFilesystem
	case "custom":
		return CategoryCustom
	default:
		return CategoryUnspecified
	}
}

// Categories lists every concrete category in declaration order.
var Categories = []Category{
	CategoryDestructive,
	CategoryExfiltration,
	CategoryPrivilege,
	CategoryFilesystem,
	CategoryCustom,
}

// Severity is the ordinal risk level of a single violation.
// Ordering matters: warn < pause < block.
type Severity int

const (
	SeverityWarn Severity = iota + 1
	SeverityPause
	SeverityBlock
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityPause:
		return "pause"
	case SeverityBlock:
		return "block"
	default:
		return "unspecified"
	}
}

// ParseSeverity maps a severity string to its enum value.
// Unknown strings map to SeverityWarn (malformed config degrades to defaults).
func ParseSeverity(s string) Severity {
	switch s {
	case "pause":
		return SeverityPause
	case "block":
		return SeverityBlock
	default:
		return SeverityWarn
	}
}

// Status is the aggregate risk verdict for an entire scan, derived by
// severity precedence over the violation set.
type Status int

const (
	StatusSafe Status = iota + 1
	StatusWarning
	StatusPaused
	StatusBlocked
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusWarning:
		return "warning"
	case StatusPaused:
		return "paused"
	case StatusBlocked:
		return "blocked"
	default:
		return "unspecified"
	}
}

// Decision records a human reviewer's resolution of a violation.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionAllow
	DecisionDeny
	DecisionInspect
)

// String returns the lowercase decision name.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionInspect:
		return "inspect"
	default:
		return "none"
	}
}

// Violation is a single rule or heuristic match in a step's output.
// Immutable after creation except UserDecision, which a human-approval
// collaborator appends later for audit.
type Violation struct {
	Category     Category
	Severity     Severity
	RuleName     string
	MatchedText  string // truncated, never the full line
	LineNumber   int    // 1-based
	Confidence   float32
	Remediation  string
	Timestamp    time.Time
	UserDecision Decision
}

// RecordDecision attaches the reviewer's allow/deny/inspect decision.
func (v *Violation) RecordDecision(d Decision) {
	v.UserDecision = d
}

// ScanResult is the verdict for one step output scan. The guardrail does
// not retain results; persistence is the caller's concern.
type ScanResult struct {
	StepID        string
	Violations    []*Violation
	Status        Status
	ScanCompleted bool // false when a block-severity hit stopped the scan early
	DurationMs    float64
}

// computeStatus derives the aggregate status by severity precedence:
// blocked > paused > warning > safe.
func computeStatus(violations []*Violation) Status {
	status := StatusSafe
	for _, v := range violations {
		switch v.Severity {
		case SeverityBlock:
			return StatusBlocked
		case SeverityPause:
			status = StatusPaused
		case SeverityWarn:
			if status != StatusPaused {
				status = StatusWarning
			}
		}
	}
	return status
}

const maxMatchedTextLen = 160

// truncateMatch bounds matched text for violations and previews.
// It never splits a multi-byte UTF-8 character.
func truncateMatch(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
