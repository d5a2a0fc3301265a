// Package mcp exposes knowledge retrieval as Model Context Protocol tools over
// streamable HTTP, so agents can query a tenant's knowledge base directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/version"
)

const (
	ToolSearchKnowledge = "search_knowledge"
	ToolSmartSearch     = "smart_search"
)

var errQueryRequired = errors.New("query is required")

type smartSearcher interface {
	Search(ctx context.Context, tenantID, query string) (*knowledge.SmartSearchResult, error)
}

type SearchKnowledgeArgs struct {
	Query         string `json:"query" jsonschema:"free-text question or keywords"`
	KnowledgeBase string `json:"knowledgeBase,omitempty" jsonschema:"normal (company documents) or whatsapp (past answers)"`
}

type SmartSearchArgs struct {
	Query string `json:"query" jsonschema:"free-text query; expanded with related safety terms before ranking"`
}

type searchKnowledgePayload struct {
	Mode      knowledge.Mode                 `json:"mode"`
	Documents []*knowledge.RetrievedDocument `json:"documents"`
	Messages  []*knowledge.RetrievedMessage  `json:"messages"`
}

// Handler serves /api/v1/mcp. Each request gets its own stateless server bound to
// the authenticated tenant, so tools never see another tenant's data.
type Handler struct {
	sources *knowledge.Sources
	smart   smartSearcher
	http    http.Handler
}

func NewHandler(sources *knowledge.Sources, smart smartSearcher) *Handler {
	h := &Handler{sources: sources, smart: smart}
	h.http = mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return h.NewServer(ctxkeys.String(r.Context(), ctxkeys.TenantID))
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ctxkeys.String(r.Context(), ctxkeys.TenantID) == "" {
		http.Error(w, `{"error":"missing tenant"}`, http.StatusUnauthorized)
		return
	}
	// go-sdk rejects requests that do not accept both encodings.
	r.Header.Set("Accept", "application/json, text/event-stream")
	h.http.ServeHTTP(w, r)
}

// NewServer builds an MCP server whose tools are scoped to tenantID.
func (h *Handler) NewServer(tenantID string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "safeboy", Version: version.Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchKnowledge,
		Description: "Searches the tenant knowledge base the same way the chat assistant does, with keyword fallback for documents.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SearchKnowledgeArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.Query) == "" {
			return toolError(errQueryRequired), nil, nil
		}
		mode := knowledge.ParseMode(args.KnowledgeBase)
		src := h.sources.For(mode)
		records, err := src.Search(ctx, tenantID, args.Query)
		if err != nil {
			logger.Get().Warn().Err(err).Str("tool", ToolSearchKnowledge).Str("tenant_id", tenantID).Msg("mcp tool failed")
			return toolError(err), nil, nil
		}

		payload := searchKnowledgePayload{
			Mode:      mode,
			Documents: []*knowledge.RetrievedDocument{},
			Messages:  []*knowledge.RetrievedMessage{},
		}
		for _, rec := range records {
			switch v := rec.(type) {
			case *knowledge.RetrievedDocument:
				payload.Documents = append(payload.Documents, v)
			case *knowledge.RetrievedMessage:
				payload.Messages = append(payload.Messages, v)
			}
		}
		return jsonResult(payload)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSmartSearch,
		Description: "Ranks the tenant's public documents against the query and LLM-expanded related terms.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args SmartSearchArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.Query) == "" {
			return toolError(errQueryRequired), nil, nil
		}
		res, err := h.smart.Search(ctx, tenantID, args.Query)
		if err != nil {
			logger.Get().Warn().Err(err).Str("tool", ToolSmartSearch).Str("tenant_id", tenantID).Msg("mcp tool failed")
			return toolError(err), nil, nil
		}
		return jsonResult(res)
	})

	return server
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}}}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
