package api

import (
	"database/sql"
	"net/http"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" || len(req.Name) > 255 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
		return
	}

	workflow, _, plainKey, err := d.Store.CreateWorkflow(r.Context(), req.Name)
	if err != nil {
		d.Logger.Error("failed to create workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create workflow"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateWorkflowResp{
		ID:           workflow.ID,
		Name:         workflow.Name,
		APIKey:       plainKey,
		APIKeyPrefix: workflow.APIKeyPrefix,
		Mode:         workflow.Mode,
		Enabled:      workflow.Enabled,
		CreatedAt:    workflow.CreatedAt,
	})
}

func (d *Dependencies) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := d.Store.ListWorkflows(r.Context())
	if err != nil {
		d.Logger.Error("failed to list workflows", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list workflows"})
		return
	}

	resp := make([]WorkflowResp, 0, len(workflows))
	for _, wf := range workflows {
		resp = append(resp, workflowToResp(wf))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("workflow_id")
	workflow, err := d.Store.GetWorkflow(r.Context(), id)
	if err != nil {
		d.Logger.Error("failed to get workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get workflow"})
		return
	}
	if workflow == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Workflow not found."})
		return
	}
	writeJSON(w, http.StatusOK, workflowToResp(workflow))
}

func (d *Dependencies) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("workflow_id")

	var req UpdateWorkflowReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	// Validate name if provided
	if req.Name != nil && (len(*req.Name) == 0 || len(*req.Name) > 255) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
		return
	}

	// Validate mode if provided
	if req.Mode != nil && *req.Mode != "warn" && *req.Mode != "pause" && *req.Mode != "block" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "mode must be 'warn', 'pause' or 'block'"})
		return
	}

	workflow, err := d.Store.UpdateWorkflow(r.Context(), id, store.UpdateWorkflowParams{
		Name:    req.Name,
		Mode:    req.Mode,
		Enabled: req.Enabled,
	})
	if err != nil {
		d.Logger.Error("failed to update workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to update workflow"})
		return
	}
	if workflow == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Workflow not found."})
		return
	}
	writeJSON(w, http.StatusOK, workflowToResp(workflow))
}

func (d *Dependencies) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("workflow_id")
	err := d.Store.DeleteWorkflow(r.Context(), id)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Workflow not found."})
		return
	}
	if err != nil {
		d.Logger.Error("failed to delete workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete workflow"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dependencies) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("workflow_id")
	workflow, plainKey, err := d.Store.RotateAPIKey(r.Context(), id)
	if err != nil {
		d.Logger.Error("failed to rotate key", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to rotate API key"})
		return
	}
	writeJSON(w, http.StatusOK, RotateKeyResp{
		APIKey:       plainKey,
		APIKeyPrefix: workflow.APIKeyPrefix,
	})
}

func workflowToResp(wf *store.Workflow) WorkflowResp {
	return WorkflowResp{
		ID:           wf.ID,
		Name:         wf.Name,
		APIKeyPrefix: wf.APIKeyPrefix,
		Mode:         wf.Mode,
		Enabled:      wf.Enabled,
		CreatedAt:    wf.CreatedAt,
		UpdatedAt:    wf.UpdatedAt,
	}
}
