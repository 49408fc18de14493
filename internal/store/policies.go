package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PolicyRecord represents a row in the guardrail_policies table.
type PolicyRecord struct {
	ID          string
	WorkflowID  string
	PolicyDoc   json.RawMessage // JSONB, raw bytes
	CustomRules json.RawMessage // nullable JSONB
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdatePolicyParams holds optional fields for partial policy updates.
type UpdatePolicyParams struct {
	PolicyDoc   *json.RawMessage // nil = don't change
	CustomRules *json.RawMessage // nil = don't change
}

// ReplacePolicyParams holds fields for a full policy replace.
type ReplacePolicyParams struct {
	PolicyDoc   json.RawMessage
	CustomRules json.RawMessage // may be nil
}

// GetPolicy returns the policy for a workflow, or nil if not found.
func (s *Store) GetPolicy(ctx context.Context, workflowID string) (*PolicyRecord, error) {
	var p PolicyRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, policy_doc, COALESCE(custom_rules, 'null'::jsonb), created_at, updated_at
		FROM guardrail_policies WHERE workflow_id = $1`, workflowID,
	).Scan(&p.ID, &p.WorkflowID, &p.PolicyDoc, &p.CustomRules,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPolicy: %w", err)
	}
	return &p, nil
}

// UpdatePolicy applies a partial update to a policy. Only non-nil fields are changed.
func (s *Store) UpdatePolicy(ctx context.Context, workflowID string, params UpdatePolicyParams) (*PolicyRecord, error) {
	var p PolicyRecord
	err := s.db.QueryRowContext(ctx, `
		UPDATE guardrail_policies SET
			policy_doc   = COALESCE($2, policy_doc),
			custom_rules = COALESCE($3, custom_rules),
			updated_at   = now()
		WHERE workflow_id = $1
		RETURNING id, workflow_id, policy_doc, COALESCE(custom_rules, 'null'::jsonb), created_at, updated_at`,
		workflowID, nullableJSON(params.PolicyDoc), nullableJSON(params.CustomRules),
	).Scan(&p.ID, &p.WorkflowID, &p.PolicyDoc, &p.CustomRules,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdatePolicy: %w", err)
	}
	return &p, nil
}

// ReplacePolicy fully replaces a workflow's policy configuration.
func (s *Store) ReplacePolicy(ctx context.Context, workflowID string, params ReplacePolicyParams) (*PolicyRecord, error) {
	doc := params.PolicyDoc
	if doc == nil {
		doc = json.RawMessage(`{}`)
	}

	var p PolicyRecord
	err := s.db.QueryRowContext(ctx, `
		UPDATE guardrail_policies SET
			policy_doc   = $2,
			custom_rules = $3,
			updated_at   = now()
		WHERE workflow_id = $1
		RETURNING id, workflow_id, policy_doc, COALESCE(custom_rules, 'null'::jsonb), created_at, updated_at`,
		workflowID, doc, nullableRaw(params.CustomRules),
	).Scan(&p.ID, &p.WorkflowID, &p.PolicyDoc, &p.CustomRules,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReplacePolicy: %w", err)
	}
	return &p, nil
}

// nullableJSON returns nil (SQL NULL) if the pointer is nil, otherwise the raw bytes.
func nullableJSON(v *json.RawMessage) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullableRaw returns nil (SQL NULL) if the raw message is nil or empty.
func nullableRaw(v json.RawMessage) interface{} {
	if v == nil {
		return nil
	}
	return v
}
