package api

import (
	"encoding/json"
	"net/http"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/store"
	"go.uber.org/zap"
)

func (d *Dependencies) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")
	policy, err := d.Store.GetPolicy(r.Context(), workflowID)
	if err != nil {
		d.Logger.Error("failed to get policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func (d *Dependencies) handleReplacePolicy(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")

	var req UpdatePolicyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	doc := req.PolicyDoc
	if doc == nil {
		doc = json.RawMessage(`{}`)
	}
	if err := store.ValidatePolicyDoc(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
		return
	}
	if req.CustomRules != nil {
		if err := store.ValidateCustomRules(req.CustomRules); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
	}

	policy, err := d.Store.ReplacePolicy(r.Context(), workflowID, store.ReplacePolicyParams{
		PolicyDoc:   doc,
		CustomRules: req.CustomRules,
	})
	if err != nil {
		d.Logger.Error("failed to replace policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to replace policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func (d *Dependencies) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")

	var req UpdatePolicyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	params := store.UpdatePolicyParams{}
	if req.PolicyDoc != nil {
		if err := store.ValidatePolicyDoc(req.PolicyDoc); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		params.PolicyDoc = &req.PolicyDoc
	}
	if req.CustomRules != nil {
		if err := store.ValidateCustomRules(req.CustomRules); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		params.CustomRules = &req.CustomRules
	}

	policy, err := d.Store.UpdatePolicy(r.Context(), workflowID, params)
	if err != nil {
		d.Logger.Error("failed to update policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to update policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func policyToResp(p *store.PolicyRecord) PolicyResp {
	doc := p.PolicyDoc
	if doc == nil {
		doc = json.RawMessage(`{}`)
	}
	return PolicyResp{
		ID:          p.ID,
		WorkflowID:  p.WorkflowID,
		PolicyDoc:   doc,
		CustomRules: p.CustomRules,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
