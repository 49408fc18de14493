package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/redact"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/storage"
	"github.com/google/uuid"
)

// handleScan implements POST /v1/scan.
// Auth middleware has already validated the Bearer token and injected the
// workflow with its per-workflow guardrail.
func (d *Dependencies) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ScanRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.StepID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "step_id is required"})
		return
	}

	wf := workflowFromContext(r.Context())
	if wf == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing workflow context"})
		return
	}

	result := wf.Guard.Scan(req.StepID, req.Output, req.ToolCategory)
	policy := wf.Guard.Policy()

	// Enforcement stays in the body: the HTTP layer always answers 200 and
	// the orchestrator decides what to do with the verdict.
	enforced := guardrail.Enforce(result, policy) != nil

	// Secrets never reach the event store. Mask before building the preview.
	masked, audits := redact.Mask(req.Output)

	scanID := uuid.New().String()
	scanLatencyMs := result.DurationMs

	// Fire-and-forget: write the scan event to ClickHouse
	d.writeScanEvent(req, wf.ID, scanID, result, policy, enforced, masked, len(audits))

	violations := make([]ViolationResp, 0, len(result.Violations))
	for _, v := range result.Violations {
		violations = append(violations, violationToResp(v))
	}

	totalLatencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	writeJSON(w, http.StatusOK, ScanResponse{
		ScanID:         scanID,
		StepID:         result.StepID,
		Status:         result.Status.String(),
		Mode:           policy.Mode.String(),
		Enforced:       enforced,
		ScanCompleted:  result.ScanCompleted,
		Violations:     violations,
		RedactionCount: len(audits),
		LatencyMs:      totalLatencyMs,
		ScanLatencyMs:  scanLatencyMs,
	})
}

// writeScanEvent builds a ScanEvent and fires it to the async ClickHouse writer.
func (d *Dependencies) writeScanEvent(
	req ScanRequest,
	workflowID, scanID string,
	result *guardrail.ScanResult,
	policy *guardrail.Policy,
	enforced bool,
	maskedOutput string,
	redactions int,
) {
	rules := make([]string, len(result.Violations))
	categories := make([]string, len(result.Violations))
	severities := make([]string, len(result.Violations))
	confidences := make([]float32, len(result.Violations))
	lines := make([]uint32, len(result.Violations))
	for i, v := range result.Violations {
		rules[i] = v.RuleName
		categories[i] = v.Category.String()
		severities[i] = v.Severity.String()
		confidences[i] = v.Confidence
		lines[i] = uint32(v.LineNumber)
	}

	hashBytes := sha256.Sum256([]byte(req.Output))

	event := &storage.ScanEvent{
		ScanID:               scanID,
		WorkflowID:           workflowID,
		StepID:               req.StepID,
		Timestamp:            time.Now(),
		ToolCategory:         req.ToolCategory,
		OutputPreview:        storage.TruncateOutput(maskedOutput, storage.OutputPreviewLength),
		OutputHash:           hex.EncodeToString(hashBytes[:]),
		OutputSize:           uint32(len(req.Output)),
		Status:               result.Status.String(),
		Mode:                 policy.Mode.String(),
		Enforced:             enforced,
		ScanCompleted:        result.ScanCompleted,
		ViolationRules:       rules,
		ViolationCategories:  categories,
		ViolationSeverities:  severities,
		ViolationConfidences: confidences,
		ViolationLines:       lines,
		RedactionCount:       uint32(redactions),
		LatencyMs:            float32(result.DurationMs),
	}

	d.Writer.Write(event)
}

func violationToResp(v *guardrail.Violation) ViolationResp {
	var remediation *string
	if v.Remediation != "" {
		rem := v.Remediation
		remediation = &rem
	}
	return ViolationResp{
		Rule:        v.RuleName,
		Category:    v.Category.String(),
		Severity:    v.Severity.String(),
		Confidence:  v.Confidence,
		Line:        v.LineNumber,
		MatchedText: v.MatchedText,
		Remediation: remediation,
	}
}
