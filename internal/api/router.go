package api

import (
	"net/http"
	"time"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/chread"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/storage"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/store"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store     *store.Store
	Guard     *guardrail.Guardrail // base instance; per-workflow policies layer on top
	BaseRules []guardrail.RuleDef  // defs behind Guard's catalog, for custom-rule extension
	Tuning    *guardrail.TuningTable
	Writer    storage.EventWriter
	Reader    *chread.Reader // nil if ClickHouse unavailable
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Scan and mask endpoints (auth required via Bearer cwk_ token)
	mux.HandleFunc("POST /v1/scan", deps.authMiddleware(deps.handleScan))
	mux.HandleFunc("POST /v1/mask", deps.authMiddleware(deps.handleMask))

	// Workflow CRUD (no auth yet, dashboard auth added later)
	mux.HandleFunc("POST /api/guardrail/workflows", deps.handleCreateWorkflow)
	mux.HandleFunc("GET /api/guardrail/workflows", deps.handleListWorkflows)
	mux.HandleFunc("GET /api/guardrail/workflows/{workflow_id}", deps.handleGetWorkflow)
	mux.HandleFunc("PATCH /api/guardrail/workflows/{workflow_id}", deps.handleUpdateWorkflow)
	mux.HandleFunc("DELETE /api/guardrail/workflows/{workflow_id}", deps.handleDeleteWorkflow)
	mux.HandleFunc("POST /api/guardrail/workflows/{workflow_id}/rotate-key", deps.handleRotateKey)

	// Policy CRUD (no auth)
	mux.HandleFunc("GET /api/guardrail/workflows/{workflow_id}/policy", deps.handleGetPolicy)
	mux.HandleFunc("PUT /api/guardrail/workflows/{workflow_id}/policy", deps.handleReplacePolicy)
	mux.HandleFunc("PATCH /api/guardrail/workflows/{workflow_id}/policy", deps.handleUpdatePolicy)

	// Scan history & analytics (no auth)
	mux.HandleFunc("GET /api/guardrail/scans", deps.handleListScans)
	mux.HandleFunc("GET /api/guardrail/scans/{scan_id}", deps.handleGetScan)
	mux.HandleFunc("GET /api/guardrail/analytics", deps.handleGetAnalytics)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
