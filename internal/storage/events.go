package storage

import "time"

// EventWriter is the interface for persisting scan events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *ScanEvent)
	Close()
}

// ScanEvent is one guardrail scan result flattened for persistence. The
// violation fields are parallel arrays, one element per violation.
type ScanEvent struct {
	ScanID        string
	WorkflowID    string
	StepID        string
	Timestamp     time.Time
	ToolCategory  string
	OutputPreview string // first 500 chars, secrets redacted
	OutputHash    string // SHA256 of the full raw output
	OutputSize    uint32
	Status        string
	Mode          string
	Enforced      bool // block mode turned this scan into a hard failure
	ScanCompleted bool

	ViolationRules       []string
	ViolationCategories  []string
	ViolationSeverities  []string
	ViolationConfidences []float32
	ViolationLines       []uint32

	RedactionCount uint32
	LatencyMs      float32
}

// OutputPreviewLength is the max chars stored in output_preview.
const OutputPreviewLength = 500

// TruncateOutput returns the first N characters (runes) of step output for
// preview storage. It never splits a multi-byte UTF-8 character.
func TruncateOutput(output string, maxLen int) string {
	runes := []rune(output)
	if len(runes) <= maxLen {
		return output
	}
	return string(runes[:maxLen])
}
