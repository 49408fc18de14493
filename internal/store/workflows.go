package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Workflow represents a row in the workflows table.
type Workflow struct {
	ID           string
	Name         string
	APIKeyHash   string
	APIKeyPrefix string
	Mode         string // "warn", "pause" or "block"
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowWithPolicy is a Workflow joined with its policy document (for auth lookups).
type WorkflowWithPolicy struct {
	Workflow
	PolicyDoc   json.RawMessage // from guardrail_policies.policy_doc
	CustomRules json.RawMessage // from guardrail_policies.custom_rules
}

// UpdateWorkflowParams holds optional fields for partial workflow updates.
type UpdateWorkflowParams struct {
	Name    *string
	Mode    *string
	Enabled *bool
}

// GenerateAPIKey creates a new cwk_ API key with its bcrypt hash and prefix.
// Returns (fullKey, hash, prefix, error). The fullKey is shown to the user once.
func GenerateAPIKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}
	fullKey := "cwk_" + hex.EncodeToString(raw) // 68 chars total

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateAPIKey: %w", err)
	}

	prefix := fullKey[:8] // "cwk_abcd"
	return fullKey, string(hashBytes), prefix, nil
}

// CreateWorkflow inserts a new workflow and its default policy in a single transaction.
// Returns the workflow, policy, and plaintext API key (shown once).
func (s *Store) CreateWorkflow(ctx context.Context, name string) (*Workflow, *PolicyRecord, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, nil, "", fmt.Errorf("CreateWorkflow: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, "", fmt.Errorf("CreateWorkflow: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var w Workflow
	err = tx.QueryRowContext(ctx, `
		INSERT INTO workflows (name, api_key_hash, api_key_prefix)
		VALUES ($1, $2, $3)
		RETURNING id, name, api_key_hash, api_key_prefix, mode, enabled,
		          created_at, updated_at`,
		name, keyHash, keyPrefix,
	).Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.APIKeyPrefix, &w.Mode, &w.Enabled,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, nil, "", fmt.Errorf("CreateWorkflow: %w", err)
	}

	var pol PolicyRecord
	err = tx.QueryRowContext(ctx, `
		INSERT INTO guardrail_policies (workflow_id)
		VALUES ($1)
		RETURNING id, workflow_id, policy_doc, COALESCE(custom_rules, 'null'::jsonb), created_at, updated_at`,
		w.ID,
	).Scan(&pol.ID, &pol.WorkflowID, &pol.PolicyDoc, &pol.CustomRules,
		&pol.CreatedAt, &pol.UpdatedAt)
	if err != nil {
		return nil, nil, "", fmt.Errorf("CreateWorkflow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, "", fmt.Errorf("CreateWorkflow: %w", err)
	}

	return &w, &pol, fullKey, nil
}

// ListWorkflows returns all workflows ordered by created_at DESC.
func (s *Store) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, api_key_hash, api_key_prefix, mode, enabled,
		       created_at, updated_at
		FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListWorkflows: %w", err)
	}
	defer rows.Close()

	var workflows []*Workflow
	for rows.Next() {
		var w Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.APIKeyPrefix,
			&w.Mode, &w.Enabled, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListWorkflows: %w", err)
		}
		workflows = append(workflows, &w)
	}
	return workflows, rows.Err()
}

// GetWorkflow returns a workflow by ID, or nil if not found.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var w Workflow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, api_key_hash, api_key_prefix, mode, enabled,
		       created_at, updated_at
		FROM workflows WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.APIKeyPrefix,
		&w.Mode, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetWorkflow: %w", err)
	}
	return &w, nil
}

// UpdateWorkflow applies a partial update to a workflow. Only non-nil fields are changed.
func (s *Store) UpdateWorkflow(ctx context.Context, id string, params UpdateWorkflowParams) (*Workflow, error) {
	var w Workflow
	err := s.db.QueryRowContext(ctx, `
		UPDATE workflows SET
			name       = COALESCE($2, name),
			mode       = COALESCE($3, mode),
			enabled    = COALESCE($4, enabled),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, api_key_hash, api_key_prefix, mode, enabled,
		          created_at, updated_at`,
		id, params.Name, params.Mode, params.Enabled,
	).Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.APIKeyPrefix,
		&w.Mode, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateWorkflow: %w", err)
	}
	return &w, nil
}

// DeleteWorkflow deletes a workflow by ID. The policy cascades.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteWorkflow: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RotateAPIKey generates a new API key for a workflow.
// Returns the updated workflow and the plaintext key (shown once).
func (s *Store) RotateAPIKey(ctx context.Context, id string) (*Workflow, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("RotateAPIKey: %w", err)
	}

	var w Workflow
	err = s.db.QueryRowContext(ctx, `
		UPDATE workflows SET
			api_key_hash   = $2,
			api_key_prefix = $3,
			updated_at     = now()
		WHERE id = $1
		RETURNING id, name, api_key_hash, api_key_prefix, mode, enabled,
		          created_at, updated_at`,
		id, keyHash, keyPrefix,
	).Scan(&w.ID, &w.Name, &w.APIKeyHash, &w.APIKeyPrefix,
		&w.Mode, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("RotateAPIKey: workflow not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("RotateAPIKey: %w", err)
	}

	return &w, fullKey, nil
}

// LookupByPrefix finds a workflow by API key prefix (first 8 chars).
// Used by auth to narrow candidates before bcrypt verify.
func (s *Store) LookupByPrefix(ctx context.Context, prefix string) (*WorkflowWithPolicy, error) {
	var ww WorkflowWithPolicy
	err := s.db.QueryRowContext(ctx, `
		SELECT w.id, w.name, w.api_key_hash, w.api_key_prefix, w.mode, w.enabled,
		       w.created_at, w.updated_at,
		       COALESCE(pol.policy_doc, '{}'),
		       COALESCE(pol.custom_rules, 'null'::jsonb)
		FROM workflows w
		LEFT JOIN guardrail_policies pol ON pol.workflow_id = w.id
		WHERE w.api_key_prefix = $1`, prefix,
	).Scan(&ww.ID, &ww.Name, &ww.APIKeyHash, &ww.APIKeyPrefix,
		&ww.Mode, &ww.Enabled, &ww.CreatedAt, &ww.UpdatedAt,
		&ww.PolicyDoc, &ww.CustomRules)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupByPrefix: %w", err)
	}
	return &ww, nil
}
