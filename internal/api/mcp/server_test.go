package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/infra/sqlite/sqlitetest"
)

type stubSmart struct {
	tenant string
	res    *knowledge.SmartSearchResult
	err    error
}

func (s *stubSmart) Search(_ context.Context, tenantID, _ string) (*knowledge.SmartSearchResult, error) {
	s.tenant = tenantID
	return s.res, s.err
}

func newTestHandler(t *testing.T, smart smartSearcher) (*Handler, string, string) {
	t.Helper()
	db := sqlitetest.Open(t)
	tenantA := sqlitetest.CreateTenant(t, db)
	tenantB := sqlitetest.CreateTenant(t, db)

	docs := knowledge.NewDocumentService(db, nil)
	if _, err := docs.Create(context.Background(), tenantA, knowledge.DocumentInput{
		Title:   "Uso de capacete",
		Content: "O capacete é obrigatório em obras.",
	}); err != nil {
		t.Fatalf("create document: %v", err)
	}

	sources := knowledge.NewSources(knowledge.NewDocumentSource(db), knowledge.NewWhatsAppSource(db))
	return NewHandler(sources, smart), tenantA, tenantB
}

func connect(t *testing.T, h *Handler, tenantID string) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientT, serverT := mcp.NewInMemoryTransports()
	if _, err := h.NewServer(tenantID).Connect(ctx, serverT, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, tool string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", tool, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("content len = %d; want 1", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T; want *mcp.TextContent", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	h, tenant, _ := newTestHandler(t, &stubSmart{})
	cs := connect(t, h, tenant)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	if !names[ToolSearchKnowledge] || !names[ToolSmartSearch] {
		t.Errorf("tools = %v; want %s and %s", names, ToolSearchKnowledge, ToolSmartSearch)
	}
}

func TestSearchKnowledge_ScopedToTenant(t *testing.T) {
	h, tenantA, tenantB := newTestHandler(t, &stubSmart{})

	text, isErr := callText(t, connect(t, h, tenantA), ToolSearchKnowledge, map[string]any{"query": "capacete"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var got searchKnowledgePayload
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.Mode != knowledge.ModeNormal || len(got.Documents) != 1 || got.Documents[0].Title != "Uso de capacete" {
		t.Errorf("payload = %+v", got)
	}

	text, _ = callText(t, connect(t, h, tenantB), ToolSearchKnowledge, map[string]any{"query": "capacete"})
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(got.Documents) != 0 {
		t.Errorf("other tenant saw %d documents", len(got.Documents))
	}
}

func TestSearchKnowledge_EmptyQueryIsToolError(t *testing.T) {
	h, tenant, _ := newTestHandler(t, &stubSmart{})

	text, isErr := callText(t, connect(t, h, tenant), ToolSearchKnowledge, map[string]any{"query": "  "})
	if !isErr || text != errQueryRequired.Error() {
		t.Errorf("got (%q, %v); want query error", text, isErr)
	}
}

func TestSmartSearch(t *testing.T) {
	smart := &stubSmart{res: &knowledge.SmartSearchResult{
		Results:       []*knowledge.RetrievedDocument{{ID: "d1", Title: "NR-35", Score: 7}},
		ExpandedTerms: []string{"altura"},
		TotalFound:    1,
	}}
	h, tenant, _ := newTestHandler(t, smart)

	text, isErr := callText(t, connect(t, h, tenant), ToolSmartSearch, map[string]any{"query": "trabalho em altura"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if smart.tenant != tenant {
		t.Errorf("search ran for tenant %q; want %q", smart.tenant, tenant)
	}
	var got knowledge.SmartSearchResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.TotalFound != 1 || got.Results[0].Title != "NR-35" {
		t.Errorf("payload = %+v", got)
	}
}

func TestSmartSearch_FailureIsToolError(t *testing.T) {
	h, tenant, _ := newTestHandler(t, &stubSmart{err: errors.New("database is locked")})

	text, isErr := callText(t, connect(t, h, tenant), ToolSmartSearch, map[string]any{"query": "epi"})
	if !isErr || !strings.Contains(text, "locked") {
		t.Errorf("got (%q, %v); want tool error", text, isErr)
	}
}

func TestServeHTTP_RequiresTenant(t *testing.T) {
	h, _, _ := newTestHandler(t, &stubSmart{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rr.Code)
	}
}

func TestServeHTTP_ToolsList(t *testing.T) {
	h, tenant, _ := newTestHandler(t, &stubSmart{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(ctxkeys.WithValue(req.Context(), ctxkeys.TenantID, tenant))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), ToolSearchKnowledge) {
		t.Errorf("body = %s; want %s listed", rr.Body.String(), ToolSearchKnowledge)
	}
}
