package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	domainaudit "github.com/safeboy/safeboy/internal/domain/audit"
	"github.com/safeboy/safeboy/internal/infra/logger"
)

// AuditLogger is satisfied by domainaudit.AuditService.
type AuditLogger interface {
	LogWithDetails(
		ctx context.Context,
		tenantID string,
		action string,
		entityType *string,
		entityID *string,
		details *domainaudit.EventDetails,
		outcome domainaudit.Outcome,
	) error
}

// AuditMiddleware records every protected request in audit_event.
// Expected order in router: AuthMiddleware -> AuditMiddleware -> handlers.
func AuditMiddleware(auditLogger AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auditLogger == nil {
				next.ServeHTTP(w, r)
				return
			}
			tenantID := ctxkeys.String(r.Context(), ctxkeys.TenantID)
			if tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			action, entityType, entityID := actionFromRequest(r.Method, r.URL.Path)
			err := auditLogger.LogWithDetails(
				r.Context(),
				tenantID,
				action,
				entityType,
				entityID,
				&domainaudit.EventDetails{Metadata: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status_code": recorder.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
				}},
				outcomeFromStatus(recorder.statusCode),
			)
			if err != nil {
				logger.Get().Warn().Err(err).Str("action", action).Msg("audit write failed")
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Flush keeps streaming responses (the MCP endpoint) working through the recorder.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func outcomeFromStatus(statusCode int) domainaudit.Outcome {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return domainaudit.OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domainaudit.OutcomeDenied
	default:
		return domainaudit.OutcomeError
	}
}

// rpcActions covers the single-verb endpoints that are not resource collections.
var rpcActions = map[string]struct{ action, entity string }{
	"chat-ai":          {"chat_completion", "chat"},
	"smart-search":     {"smart_search", "knowledge_document"},
	"analyze-document": {"analyze_document", "document_analysis"},
	"mcp":              {"mcp_call", "mcp"},
}

// actionFromRequest derives (action, entity type, entity id) from a /api/v1 path, e.g.
// "DELETE /api/v1/knowledge/documents/42" -> ("delete_knowledge_document", "knowledge_document", "42").
func actionFromRequest(method, path string) (string, *string, *string) {
	generic := strings.ToLower(method) + "_request"
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return generic, nil, nil
	}
	rest := segments[2:]

	if rpc, ok := rpcActions[rest[0]]; ok {
		return rpc.action, strPtr(rpc.entity), nil
	}
	if rest[0] == "knowledge" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return generic, nil, nil
	}
	entity := singularEntity(rest[0])
	if entity == "" {
		return generic, nil, nil
	}

	switch len(rest) {
	case 1:
		return actionForCollection(method, entity), strPtr(entity), nil
	case 2:
		return actionForEntity(method, entity), strPtr(entity), strPtr(rest[1])
	}

	sub := rest[2]
	if child := singularEntity(sub); child != "" {
		return actionForCollection(method, child), strPtr(entity), strPtr(rest[1])
	}
	verb := strings.ReplaceAll(sub, "-", "_")
	if method == http.MethodPut || method == http.MethodPatch {
		return "update_" + entity + "_" + verb, strPtr(entity), strPtr(rest[1])
	}
	return verb + "_" + entity, strPtr(entity), strPtr(rest[1])
}

func singularEntity(entity string) string {
	entityMap := map[string]string{
		"documents":            "knowledge_document",
		"categories":           "knowledge_category",
		"conversations":        "conversation",
		"messages":             "message",
		"chatbot-instructions": "chatbot_instruction",
	}
	return entityMap[entity]
}

func actionForCollection(method, entity string) string {
	switch method {
	case http.MethodPost:
		return "create_" + entity
	case http.MethodGet:
		return "list_" + entity
	case http.MethodPut:
		return "save_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}

func actionForEntity(method, entity string) string {
	switch method {
	case http.MethodGet:
		return "get_" + entity
	case http.MethodPut, http.MethodPatch:
		return "update_" + entity
	case http.MethodDelete:
		return "delete_" + entity
	case http.MethodPost:
		return "create_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}

func strPtr(v string) *string {
	return &v
}
