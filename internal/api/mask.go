package api

import (
	"net/http"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/redact"
)

// handleMask implements POST /v1/mask. The response carries the masked text
// and per-redaction audits; the secret values themselves are never echoed.
func (d *Dependencies) handleMask(w http.ResponseWriter, r *http.Request) {
	var req MaskRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	masked, audits := redact.Mask(req.Text)

	resp := MaskResponse{
		Masked: masked,
		Audits: make([]AuditResp, 0, len(audits)),
	}
	for _, a := range audits {
		resp.Audits = append(resp.Audits, AuditResp{
			SecretType:     a.SecretType,
			RedactedLength: a.RedactedLength,
			Position:       a.Position,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
