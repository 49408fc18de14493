package api

import (
	"encoding/json"
	"time"
)

// --- POST /v1/scan request/response ---

// ScanRequest is the JSON body for POST /v1/scan.
type ScanRequest struct {
	StepID       string `json:"step_id"`
	Output       string `json:"output"`
	ToolCategory string `json:"tool_category,omitempty"`
}

// ViolationResp is one rule or heuristic match in the scan response.
type ViolationResp struct {
	Rule        string  `json:"rule"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Confidence  float32 `json:"confidence"`
	Line        int     `json:"line"`
	MatchedText string  `json:"matched_text"`
	Remediation *string `json:"remediation"`
}

// ScanResponse is the JSON body returned by POST /v1/scan.
type ScanResponse struct {
	ScanID         string          `json:"scan_id"`
	StepID         string          `json:"step_id"`
	Status         string          `json:"status"`
	Mode           string          `json:"mode"`
	Enforced       bool            `json:"enforced"`
	ScanCompleted  bool            `json:"scan_completed"`
	Violations     []ViolationResp `json:"violations"`
	RedactionCount int             `json:"redaction_count"`
	LatencyMs      float64         `json:"latency_ms"`
	ScanLatencyMs  float64         `json:"scan_latency_ms"`
}

// --- POST /v1/mask request/response ---

// MaskRequest is the JSON body for POST /v1/mask.
type MaskRequest struct {
	Text string `json:"text"`
}

// AuditResp describes one redaction without ever carrying the secret value.
type AuditResp struct {
	SecretType     string `json:"secret_type"`
	RedactedLength int    `json:"redacted_length"`
	Position       int    `json:"position"`
}

// MaskResponse is the JSON body returned by POST /v1/mask.
type MaskResponse struct {
	Masked string      `json:"masked"`
	Audits []AuditResp `json:"audits"`
}

// --- Workflow CRUD ---

// CreateWorkflowReq is the JSON body for POST /api/guardrail/workflows.
type CreateWorkflowReq struct {
	Name string `json:"name"`
}

// CreateWorkflowResp includes the plaintext API key (shown once).
type CreateWorkflowResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKey       string    `json:"api_key"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Mode         string    `json:"mode"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateWorkflowReq is the JSON body for PATCH /api/guardrail/workflows/{id}.
type UpdateWorkflowReq struct {
	Name    *string `json:"name,omitempty"`
	Mode    *string `json:"mode,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// WorkflowResp is the workflow representation without the plaintext key.
type WorkflowResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Mode         string    `json:"mode"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RotateKeyResp includes the new plaintext API key (shown once).
type RotateKeyResp struct {
	APIKey       string `json:"api_key"`
	APIKeyPrefix string `json:"api_key_prefix"`
}

// --- Policy CRUD ---

// UpdatePolicyReq is the JSON body for PATCH/PUT policy endpoints.
type UpdatePolicyReq struct {
	PolicyDoc   json.RawMessage `json:"policy_doc,omitempty"`
	CustomRules json.RawMessage `json:"custom_rules,omitempty"`
}

// PolicyResp is the stored policy representation.
type PolicyResp struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	PolicyDoc   json.RawMessage `json:"policy_doc"`
	CustomRules json.RawMessage `json:"custom_rules"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// --- Scan events ---

// ScanEventResp is the stored scan event representation.
type ScanEventResp struct {
	ScanID         string          `json:"scan_id"`
	WorkflowID     string          `json:"workflow_id"`
	StepID         string          `json:"step_id"`
	ToolCategory   *string         `json:"tool_category"`
	Status         string          `json:"status"`
	Mode           string          `json:"mode"`
	Enforced       bool            `json:"enforced"`
	ScanCompleted  bool            `json:"scan_completed"`
	OutputPreview  string          `json:"output_preview"`
	OutputSize     uint32          `json:"output_size"`
	Violations     []ViolationResp `json:"violations"`
	RedactionCount uint32          `json:"redaction_count"`
	LatencyMs      float32         `json:"latency_ms"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ScanListResp is the paginated scan listing.
type ScanListResp struct {
	Scans    []ScanEventResp `json:"scans"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// --- Analytics ---

// AnalyticsResp holds aggregated scan analytics.
type AnalyticsResp struct {
	Summary            SummaryStatsResp       `json:"summary"`
	BlocksOverTime     []TimeSeriesBucketResp `json:"blocks_over_time"`
	TopCategories      []CategoryCountResp    `json:"top_categories"`
	TopRules           []RuleCountResp        `json:"top_rules"`
	LatencyPercentiles LatencyPercentilesResp `json:"latency_percentiles"`
}

// SummaryStatsResp holds aggregate scan counts.
type SummaryStatsResp struct {
	TotalScans int `json:"total_scans"`
	Blocked    int `json:"blocked"`
	Paused     int `json:"paused"`
	Warnings   int `json:"warnings"`
	Safe       int `json:"safe"`
}

// TimeSeriesBucketResp holds an hourly count.
type TimeSeriesBucketResp struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// CategoryCountResp holds a violation category and its count.
type CategoryCountResp struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// RuleCountResp holds a rule name and its count.
type RuleCountResp struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// LatencyPercentilesResp holds scan latency percentiles.
type LatencyPercentilesResp struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
