package chread

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides read access to the ClickHouse scan_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// ScanRow represents a single row from the scan_events table.
type ScanRow struct {
	ScanID        string
	WorkflowID    string
	StepID        string
	Timestamp     time.Time
	ToolCategory  string
	OutputPreview string
	OutputHash    string
	OutputSize    uint32
	Status        string
	Mode          string
	Enforced      uint8
	ScanCompleted uint8

	ViolationRules       []string
	ViolationCategories  []string
	ViolationSeverities  []string
	ViolationConfidences []float32
	ViolationLines       []uint32

	RedactionCount uint32
	LatencyMs      float32
}

// ListScansParams holds filters and pagination for scan listing.
type ListScansParams struct {
	WorkflowID   string
	Status       *string
	StepID       *string
	ToolCategory *string
	Category     *string
	StartTime    *time.Time
	EndTime      *time.Time
	Page         int
	PageSize     int
}

const scanColumns = "scan_id, workflow_id, step_id, timestamp, tool_category, " +
	"output_preview, output_hash, output_size, " +
	"status, mode, enforced, scan_completed, " +
	"violation_rules, violation_categories, violation_severities, " +
	"violation_confidences, violation_lines, " +
	"redaction_count, latency_ms"

func scanRow(scan func(dest ...any) error) (*ScanRow, error) {
	var e ScanRow
	err := scan(
		&e.ScanID, &e.WorkflowID, &e.StepID, &e.Timestamp, &e.ToolCategory,
		&e.OutputPreview, &e.OutputHash, &e.OutputSize,
		&e.Status, &e.Mode, &e.Enforced, &e.ScanCompleted,
		&e.ViolationRules, &e.ViolationCategories, &e.ViolationSeverities,
		&e.ViolationConfidences, &e.ViolationLines,
		&e.RedactionCount, &e.LatencyMs,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListScans returns paginated, filtered scan events and the total count.
func (r *Reader) ListScans(ctx context.Context, params ListScansParams) ([]ScanRow, int, error) {
	conditions := []string{"workflow_id = @workflow_id"}
	args := []any{
		clickhouse.Named("workflow_id", params.WorkflowID),
	}

	if params.Status != nil {
		conditions = append(conditions, "status = @status")
		args = append(args, clickhouse.Named("status", *params.Status))
	}
	if params.StepID != nil {
		conditions = append(conditions, "step_id = @step_id")
		args = append(args, clickhouse.Named("step_id", *params.StepID))
	}
	if params.ToolCategory != nil {
		conditions = append(conditions, "tool_category = @tool_category")
		args = append(args, clickhouse.Named("tool_category", *params.ToolCategory))
	}
	if params.Category != nil {
		conditions = append(conditions, "has(violation_categories, @category)")
		args = append(args, clickhouse.Named("category", *params.Category))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	where := strings.Join(conditions, " AND ")
	offset := (params.Page - 1) * params.PageSize

	// Count query
	var total uint64
	countQuery := fmt.Sprintf("SELECT count() FROM scan_events WHERE %s", where)
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListScans count: %w", err)
	}

	// Data query
	dataQuery := fmt.Sprintf(
		"SELECT "+scanColumns+" FROM scan_events WHERE %s "+
			"ORDER BY timestamp DESC "+
			"LIMIT @limit OFFSET @offset",
		where,
	)
	args = append(args,
		clickhouse.Named("limit", uint32(params.PageSize)),
		clickhouse.Named("offset", uint32(offset)),
	)

	rows, err := r.conn.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListScans query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []ScanRow
	for rows.Next() {
		e, err := scanRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("ListScans scan: %w", err)
		}
		events = append(events, *e)
	}

	return events, int(total), rows.Err()
}

// GetScan returns a single scan by workflow ID and scan ID, or nil if not found.
func (r *Reader) GetScan(ctx context.Context, workflowID, scanID string) (*ScanRow, error) {
	row := r.conn.QueryRow(ctx,
		"SELECT "+scanColumns+" FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND scan_id = @scan_id",
		clickhouse.Named("workflow_id", workflowID),
		clickhouse.Named("scan_id", scanID),
	)

	e, err := scanRow(row.Scan)
	if err != nil {
		// ClickHouse doesn't return sql.ErrNoRows, so check for empty result
		return nil, fmt.Errorf("GetScan: %w", err)
	}
	if e.ScanID == "" {
		return nil, nil
	}
	return e, nil
}

// SummaryStats holds aggregate scan counts.
type SummaryStats struct {
	TotalScans int `json:"total_scans"`
	Blocked    int `json:"blocked"`
	Paused     int `json:"paused"`
	Warnings   int `json:"warnings"`
	Safe       int `json:"safe"`
}

// TimeSeriesBucket holds an hourly count.
type TimeSeriesBucket struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// CategoryCount holds a violation category and its count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// RuleCount holds a rule name and its count.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// LatencyStats holds scan latency percentiles.
type LatencyStats struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// AnalyticsResult holds all analytics aggregations.
type AnalyticsResult struct {
	Summary            SummaryStats       `json:"summary"`
	BlocksOverTime     []TimeSeriesBucket `json:"blocks_over_time"`
	TopCategories      []CategoryCount    `json:"top_categories"`
	TopRules           []RuleCount        `json:"top_rules"`
	LatencyPercentiles LatencyStats       `json:"latency_percentiles"`
}

// GetAnalytics returns aggregated scan analytics for a workflow over the
// given number of days.
func (r *Reader) GetAnalytics(ctx context.Context, workflowID string, days int) (*AnalyticsResult, error) {
	now := time.Now().UTC()
	rangeStart := now.Add(-time.Duration(days) * 24 * time.Hour)
	dayStart := now.Add(-24 * time.Hour)

	baseArgs := []any{
		clickhouse.Named("workflow_id", workflowID),
		clickhouse.Named("range_start", rangeStart),
	}

	result := &AnalyticsResult{}

	// Summary counts
	var total, blocked, paused, warnings, safe uint64
	err := r.conn.QueryRow(ctx,
		"SELECT count() as total_scans, "+
			"countIf(status = 'blocked') as blocked, "+
			"countIf(status = 'paused') as paused, "+
			"countIf(status = 'warning') as warnings, "+
			"countIf(status = 'safe') as safe "+
			"FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND timestamp >= @range_start",
		baseArgs...,
	).Scan(&total, &blocked, &paused, &warnings, &safe)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics summary: %w", err)
	}
	result.Summary = SummaryStats{
		TotalScans: int(total),
		Blocked:    int(blocked),
		Paused:     int(paused),
		Warnings:   int(warnings),
		Safe:       int(safe),
	}

	// Blocked scans over time (hourly)
	botRows, err := r.conn.Query(ctx,
		"SELECT toStartOfHour(timestamp) as hour, count() as count "+
			"FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND status = 'blocked' "+
			"AND timestamp >= @range_start "+
			"GROUP BY hour ORDER BY hour",
		baseArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics blocks_over_time: %w", err)
	}
	defer func() { _ = botRows.Close() }()
	for botRows.Next() {
		var hour time.Time
		var count uint64
		if err := botRows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics blocks_over_time scan: %w", err)
		}
		result.BlocksOverTime = append(result.BlocksOverTime, TimeSeriesBucket{
			Hour:  hour.Format(time.RFC3339),
			Count: int(count),
		})
	}

	// Top violation categories
	catRows, err := r.conn.Query(ctx,
		"SELECT arrayJoin(violation_categories) as category, count() as count "+
			"FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND status != 'safe' "+
			"AND timestamp >= @range_start "+
			"GROUP BY category ORDER BY count DESC LIMIT 10",
		baseArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics top_categories: %w", err)
	}
	defer func() { _ = catRows.Close() }()
	for catRows.Next() {
		var cat string
		var count uint64
		if err := catRows.Scan(&cat, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics top_categories scan: %w", err)
		}
		result.TopCategories = append(result.TopCategories, CategoryCount{
			Category: cat, Count: int(count),
		})
	}

	// Top triggered rules
	ruleRows, err := r.conn.Query(ctx,
		"SELECT arrayJoin(violation_rules) as rule, count() as count "+
			"FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND status != 'safe' "+
			"AND timestamp >= @range_start "+
			"GROUP BY rule ORDER BY count DESC LIMIT 10",
		baseArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics top_rules: %w", err)
	}
	defer func() { _ = ruleRows.Close() }()
	for ruleRows.Next() {
		var rule string
		var count uint64
		if err := ruleRows.Scan(&rule, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics top_rules scan: %w", err)
		}
		result.TopRules = append(result.TopRules, RuleCount{
			Rule: rule, Count: int(count),
		})
	}

	// Latency percentiles (last 24h)
	var p50, p95, p99 float64
	err = r.conn.QueryRow(ctx,
		"SELECT quantile(0.5)(latency_ms) as p50, "+
			"quantile(0.95)(latency_ms) as p95, "+
			"quantile(0.99)(latency_ms) as p99 "+
			"FROM scan_events "+
			"WHERE workflow_id = @workflow_id AND timestamp >= @day_start",
		clickhouse.Named("workflow_id", workflowID),
		clickhouse.Named("day_start", dayStart),
	).Scan(&p50, &p95, &p99)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics latency: %w", err)
	}
	result.LatencyPercentiles = LatencyStats{
		P50: safeFloat(p50), P95: safeFloat(p95), P99: safeFloat(p99),
	}

	// Ensure slices are non-nil for JSON serialization
	if result.BlocksOverTime == nil {
		result.BlocksOverTime = []TimeSeriesBucket{}
	}
	if result.TopCategories == nil {
		result.TopCategories = []CategoryCount{}
	}
	if result.TopRules == nil {
		result.TopRules = []RuleCount{}
	}

	return result, nil
}

// safeFloat replaces NaN/Inf with 0.0.
// ClickHouse returns NaN for quantile() on empty result sets.
func safeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0
	}
	return f
}
