package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/chread"
	"go.uber.org/zap"
)

func (d *Dependencies) handleListScans(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	q := r.URL.Query()
	workflowID := q.Get("workflow_id")
	if workflowID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "workflow_id query parameter is required"})
		return
	}

	params := chread.ListScansParams{
		WorkflowID: workflowID,
		Page:       queryInt(q, "page", 1),
		PageSize:   queryInt(q, "page_size", 50),
	}
	if params.PageSize > 200 {
		params.PageSize = 200
	}
	if params.Page < 1 {
		params.Page = 1
	}

	if v := q.Get("status"); v != "" {
		params.Status = &v
	}
	if v := q.Get("step_id"); v != "" {
		params.StepID = &v
	}
	if v := q.Get("tool_category"); v != "" {
		params.ToolCategory = &v
	}
	if v := q.Get("category"); v != "" {
		params.Category = &v
	}
	if v := q.Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartTime = &t
		}
	}
	if v := q.Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndTime = &t
		}
	}

	scans, total, err := d.Reader.ListScans(r.Context(), params)
	if err != nil {
		d.Logger.Error("failed to list scans", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list scans"})
		return
	}

	resp := ScanListResp{
		Scans:    make([]ScanEventResp, 0, len(scans)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, s := range scans {
		resp.Scans = append(resp.Scans, scanRowToResp(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	scanID := r.PathValue("scan_id")
	workflowID := r.URL.Query().Get("workflow_id")
	if workflowID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "workflow_id query parameter is required"})
		return
	}

	scan, err := d.Reader.GetScan(r.Context(), workflowID, scanID)
	if err != nil {
		d.Logger.Error("failed to get scan", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get scan"})
		return
	}
	if scan == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Scan not found."})
		return
	}

	writeJSON(w, http.StatusOK, scanRowToResp(*scan))
}

func (d *Dependencies) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	q := r.URL.Query()
	workflowID := q.Get("workflow_id")
	if workflowID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "workflow_id query parameter is required"})
		return
	}

	days := queryInt(q, "days", 7)
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	result, err := d.Reader.GetAnalytics(r.Context(), workflowID, days)
	if err != nil {
		d.Logger.Error("failed to get analytics", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get analytics"})
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResp{
		Summary: SummaryStatsResp{
			TotalScans: result.Summary.TotalScans,
			Blocked:    result.Summary.Blocked,
			Paused:     result.Summary.Paused,
			Warnings:   result.Summary.Warnings,
			Safe:       result.Summary.Safe,
		},
		BlocksOverTime: toTimeSeriesResp(result.BlocksOverTime),
		TopCategories:  toCategoryResp(result.TopCategories),
		TopRules:       toRuleCountResp(result.TopRules),
		LatencyPercentiles: LatencyPercentilesResp{
			P50: result.LatencyPercentiles.P50,
			P95: result.LatencyPercentiles.P95,
			P99: result.LatencyPercentiles.P99,
		},
	})
}

// scanRowToResp converts a ClickHouse ScanRow to the API response.
// Violations are stored as parallel arrays and reconstructed here.
func scanRowToResp(s chread.ScanRow) ScanEventResp {
	violations := make([]ViolationResp, 0, len(s.ViolationRules))
	for i, rule := range s.ViolationRules {
		category := "unspecified"
		if i < len(s.ViolationCategories) && s.ViolationCategories[i] != "" {
			category = s.ViolationCategories[i]
		}
		severity := "unspecified"
		if i < len(s.ViolationSeverities) && s.ViolationSeverities[i] != "" {
			severity = s.ViolationSeverities[i]
		}
		var confidence float32
		if i < len(s.ViolationConfidences) {
			confidence = s.ViolationConfidences[i]
		}
		var line int
		if i < len(s.ViolationLines) {
			line = int(s.ViolationLines[i])
		}
		violations = append(violations, ViolationResp{
			Rule:       rule,
			Category:   category,
			Severity:   severity,
			Confidence: confidence,
			Line:       line,
		})
	}

	return ScanEventResp{
		ScanID:         s.ScanID,
		WorkflowID:     s.WorkflowID,
		StepID:         s.StepID,
		ToolCategory:   nilIfEmpty(s.ToolCategory),
		Status:         s.Status,
		Mode:           s.Mode,
		Enforced:       s.Enforced == 1,
		ScanCompleted:  s.ScanCompleted == 1,
		OutputPreview:  s.OutputPreview,
		OutputSize:     s.OutputSize,
		Violations:     violations,
		RedactionCount: s.RedactionCount,
		LatencyMs:      s.LatencyMs,
		Timestamp:      s.Timestamp,
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func queryInt(q url.Values, key string, defaultVal int) int {
	v := q.Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func toTimeSeriesResp(buckets []chread.TimeSeriesBucket) []TimeSeriesBucketResp {
	out := make([]TimeSeriesBucketResp, len(buckets))
	for i, b := range buckets {
		out[i] = TimeSeriesBucketResp{Hour: b.Hour, Count: b.Count}
	}
	return out
}

func toCategoryResp(cats []chread.CategoryCount) []CategoryCountResp {
	out := make([]CategoryCountResp, len(cats))
	for i, c := range cats {
		out[i] = CategoryCountResp{Category: c.Category, Count: c.Count}
	}
	return out
}

func toRuleCountResp(rules []chread.RuleCount) []RuleCountResp {
	out := make([]RuleCountResp, len(rules))
	for i, rc := range rules {
		out[i] = RuleCountResp{Rule: rc.Rule, Count: rc.Count}
	}
	return out
}
