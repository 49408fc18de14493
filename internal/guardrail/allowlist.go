package guardrail

import (
	"regexp"

	"go.uber.org/zap"
)

// Default allowlist entries. A line matching any allowlist entry is fully
// exempt from scanning, heuristics included.
var defaultAllowPatterns = []string{
	// Cleaning standard build artifacts is routine, not destructive.
	`^\s*rm\s+-[rf]+\s+(\./)?(node_modules|dist|build|target|vendor|\.cache|__pycache__)/?\s*$`,
	// Read-only VCS inspection.
	`^\s*git\s+(status|log|diff|show|branch)\b`,
	// Dry runs announce rather than act.
	`--dry-run\b`,
}

// Allowlist is an ordered list of compiled exemption matchers.
type Allowlist struct {
	matchers []*regexp.Regexp
}

// CompileAllowlist compiles the default entries followed by the caller's
// patterns, preserving order. Invalid entries are skipped with a warning;
// compilation never fails and is idempotent for the same inputs.
func CompileAllowlist(extra []string, logger *zap.Logger) *Allowlist {
	if logger == nil {
		logger = zap.NewNop()
	}

	sources := make([]string, 0, len(defaultAllowPatterns)+len(extra))
	sources = append(sources, defaultAllowPatterns...)
	sources = append(sources, extra...)

	a := &Allowlist{matchers: make([]*regexp.Regexp, 0, len(sources))}
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			logger.Warn("invalid allowlist pattern, skipping",
				zap.String("pattern", src),
				zap.Error(err),
			)
			continue
		}
		a.matchers = append(a.matchers, re)
	}
	return a
}

// Allowed reports whether a line matches any allowlist entry.
func (a *Allowlist) Allowed(line string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.matchers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled matchers.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.matchers)
}
