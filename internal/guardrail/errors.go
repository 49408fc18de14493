package guardrail

import (
	"fmt"
	"strings"
)

// ViolationError is returned by Enforce when a blocked scan occurs under
// block mode. It carries the full violation list so callers can branch on
// content without parsing the message.
type ViolationError struct {
	StepID     string
	Mode       Mode
	Violations []*Violation
}

func (e *ViolationError) Error() string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, v.RuleName)
	}
	return fmt.Sprintf("step %s blocked by safety scan (%d violation(s): %s)",
		e.StepID, len(e.Violations), strings.Join(names, ", "))
}

// Enforce converts a blocked result into a *ViolationError, but only under
// block mode. Warn and pause callers never receive an error from the scan
// path; they inspect Status and ShouldPause instead.
func Enforce(result *ScanResult, policy *Policy) error {
	if policy == nil || policy.Mode != ModeBlock {
		return nil
	}
	if result.Status != StatusBlocked {
		return nil
	}
	return &ViolationError{
		StepID:     result.StepID,
		Mode:       policy.Mode,
		Violations: result.Violations,
	}
}

// ShouldPause reports whether the caller should stop for human approval:
// pause mode with at least one violation.
func ShouldPause(result *ScanResult, policy *Policy) bool {
	if policy == nil || policy.Mode != ModePause {
		return false
	}
	return len(result.Violations) > 0
}
