package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/guardrail"
	"github.com/Ayush-CS-89112521/Copilot-Workflow-Composer-CWC--sub001/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey int

const workflowCtxKey contextKey = iota

// authWorkflow holds the authenticated workflow context for a request.
// Guard is pre-built at cache-fill time with the workflow's policy and any
// custom rules applied, so the scan hot path never touches the database.
type authWorkflow struct {
	ID    string
	Name  string
	Guard *guardrail.Guardrail
}

// workflowFromContext extracts the authenticated workflow from the request context.
func workflowFromContext(ctx context.Context) *authWorkflow {
	v, _ := ctx.Value(workflowCtxKey).(*authWorkflow)
	return v
}

// --- Auth cache (stale-while-revalidate) ---

type cacheEntry struct {
	workflow   *authWorkflow
	expiresAt  time.Time
	refreshing atomic.Bool
}

type authCache struct {
	store sync.Map // map[string]*cacheEntry (keyed by full API key)
	ttl   time.Duration
}

func newAuthCache(ttl time.Duration) *authCache {
	return &authCache{ttl: ttl}
}

func (c *authCache) get(key string) (wf *authWorkflow, hit bool, needsRefresh bool) {
	v, ok := c.store.Load(key)
	if !ok {
		return nil, false, false
	}
	entry := v.(*cacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return entry.workflow, true, false // fresh
	}
	// Stale: return value but signal refresh needed (only one goroutine refreshes)
	needsRefresh = entry.refreshing.CompareAndSwap(false, true)
	return entry.workflow, true, needsRefresh
}

func (c *authCache) set(key string, wf *authWorkflow) {
	c.store.Store(key, &cacheEntry{
		workflow:  wf,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// --- Auth middleware ---

// authMiddleware returns an http.HandlerFunc that validates Bearer cwk_ tokens
// and injects the authenticated workflow into the request context.
func (d *Dependencies) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	cache := newAuthCache(d.CacheTTL)

	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Missing or invalid Authorization header"})
			return
		}
		if len(token) < 8 || !strings.HasPrefix(token, "cwk_") {
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid API key format"})
			return
		}

		// Cache lookup
		wf, hit, needsRefresh := cache.get(token)
		if hit && needsRefresh {
			// Stale hit: return stale immediately, refresh in background
			go d.refreshAuth(cache, token)
		}
		if hit && wf != nil {
			ctx := context.WithValue(r.Context(), workflowCtxKey, wf)
			next(w, r.WithContext(ctx))
			return
		}

		// Cache miss: synchronous lookup
		wf, err := d.authenticateToken(r.Context(), token)
		if err != nil {
			d.Logger.Warn("auth failed", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "Invalid API key"})
			return
		}

		cache.set(token, wf)
		ctx := context.WithValue(r.Context(), workflowCtxKey, wf)
		next(w, r.WithContext(ctx))
	}
}

// authenticateToken validates an API key against Postgres and returns the
// workflow context with a ready-to-use guardrail instance.
func (d *Dependencies) authenticateToken(ctx context.Context, token string) (*authWorkflow, error) {
	prefix := token[:8]
	ww, err := d.Store.LookupByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if ww == nil {
		return nil, fmt.Errorf("workflow not found for prefix")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ww.APIKeyHash), []byte(token)); err != nil {
		return nil, err
	}

	return &authWorkflow{
		ID:    ww.ID,
		Name:  ww.Name,
		Guard: d.guardForWorkflow(ww),
	}, nil
}

// refreshAuth refreshes the cache entry in the background.
func (d *Dependencies) refreshAuth(cache *authCache, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wf, err := d.authenticateToken(ctx, token)
	if err != nil {
		d.Logger.Warn("background auth refresh failed", zap.Error(err))
		return
	}
	cache.set(token, wf)
}

// guardForWorkflow builds the per-workflow guardrail: the workflow's mode and
// enabled columns plus its stored policy document layered over the base
// policy, and any custom rules appended to the base catalog.
func (d *Dependencies) guardForWorkflow(ww *store.WorkflowWithPolicy) *guardrail.Guardrail {
	override := &guardrail.PolicyOverride{
		Enabled: &ww.Enabled,
	}
	mode := guardrail.ParseMode(ww.Mode)
	override.Mode = &mode
	applyPolicyDoc(override, ww.PolicyDoc)

	customDefs := parseCustomRules(ww.CustomRules, d.Logger)
	if len(customDefs) == 0 {
		return d.Guard.WithPolicy(override)
	}

	defs := append(append([]guardrail.RuleDef{}, d.BaseRules...), customDefs...)
	catalog := guardrail.NewCatalog(defs, d.Logger)
	merged := guardrail.Merge(d.Guard.Policy(), override)
	return guardrail.New(catalog, d.Tuning, merged, d.Logger)
}

// policyDoc mirrors the JSONB policy_doc column. Absent fields keep the base
// policy values.
type policyDoc struct {
	Enabled             *bool           `json:"enabled,omitempty"`
	Mode                *string         `json:"mode,omitempty"`
	ConfidenceThreshold *float32        `json:"confidence_threshold,omitempty"`
	Categories          map[string]bool `json:"categories,omitempty"`
	AllowPatterns       []string        `json:"allow_patterns,omitempty"`
}

// applyPolicyDoc layers the stored policy document onto the override.
// Document fields win over the workflow's mode and enabled columns.
func applyPolicyDoc(override *guardrail.PolicyOverride, raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return
	}
	var doc policyDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}

	if doc.Enabled != nil {
		override.Enabled = doc.Enabled
	}
	if doc.Mode != nil {
		mode := guardrail.ParseMode(*doc.Mode)
		override.Mode = &mode
	}
	if doc.ConfidenceThreshold != nil {
		override.ConfidenceThreshold = doc.ConfidenceThreshold
	}
	if len(doc.Categories) > 0 {
		override.Categories = make(map[guardrail.Category]bool, len(doc.Categories))
		for name, enabled := range doc.Categories {
			cat := guardrail.ParseCategory(name)
			if cat == guardrail.CategoryUnspecified {
				continue
			}
			override.Categories[cat] = enabled
		}
	}
	if doc.AllowPatterns != nil {
		override.AllowPatterns = doc.AllowPatterns
	}
}

// ruleDoc mirrors one entry of the JSONB custom_rules column.
type ruleDoc struct {
	Name        string  `json:"name"`
	Pattern     string  `json:"pattern"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Confidence  float32 `json:"confidence"`
	Remediation string  `json:"remediation,omitempty"`
}

// parseCustomRules converts the custom_rules document into rule definitions.
// Unknown categories map to the custom category; invalid patterns are skipped
// later at catalog compile time.
func parseCustomRules(raw json.RawMessage, logger *zap.Logger) []guardrail.RuleDef {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var docs []ruleDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		logger.Warn("failed to parse custom_rules, ignoring", zap.Error(err))
		return nil
	}

	defs := make([]guardrail.RuleDef, 0, len(docs))
	for _, doc := range docs {
		cat := guardrail.ParseCategory(doc.Category)
		if cat == guardrail.CategoryUnspecified {
			cat = guardrail.CategoryCustom
		}
		defs = append(defs, guardrail.RuleDef{
			Name:        doc.Name,
			Pattern:     doc.Pattern,
			Category:    cat,
			Severity:    guardrail.ParseSeverity(doc.Severity),
			Confidence:  doc.Confidence,
			Remediation: doc.Remediation,
		})
	}
	return defs
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

// --- JSON helpers ---

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// readJSON decodes a JSON request body into the given pointer.
func readJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Request logging ---

func requestLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// --- CORS ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
