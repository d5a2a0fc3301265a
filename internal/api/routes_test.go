package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/infra/llm/llmtest"
	"github.com/safeboy/safeboy/internal/infra/sqlite/sqlitetest"
)

var errStub = errors.New("upstream unavailable")

func TestMain(m *testing.M) {
	// AuthMiddleware and the auth service read JWT_SECRET.
	os.Setenv("JWT_SECRET", "test-secret-key-32-chars-min!!!") //nolint:errcheck
	os.Exit(m.Run())
}

type testAPI struct {
	t      *testing.T
	db     *sql.DB
	router http.Handler
	stub   *llmtest.Stub
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := sqlitetest.Open(t)
	stub := &llmtest.Stub{Reply: "Utilize capacete com jugular."}
	a := &testAPI{
		t:  t,
		db: db,
		router: NewRouter(Deps{
			DB:           db,
			LLM:          stub,
			Weights:      knowledge.DefaultWeights(),
			PromptBudget: 15000,
		}),
		stub: stub,
	}
	return a
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/auth/register", map[string]string{"email": email, "password": "SenhaSegura123!"})
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("register status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		a.t.Fatalf("decode register: %v", err)
	}
	a.token = resp.Token
	return resp.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func TestNewRouter_Health(t *testing.T) {
	a := newTestAPI(t)

	rr := a.do(http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	a := newTestAPI(t)
	a.do(http.MethodGet, "/health", nil)

	rr := a.do(http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "safeboy_http_requests_total") {
		t.Error("metrics output is missing safeboy_http_requests_total")
	}
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	a := newTestAPI(t)

	for _, path := range []string{
		"/api/v1/chat-ai",
		"/api/v1/smart-search",
		"/api/v1/analyze-document",
		"/api/v1/mcp",
		"/api/v1/knowledge/documents",
		"/api/v1/conversations",
		"/api/v1/chatbot-instructions",
	} {
		if rr := a.do(http.MethodPost, path, map[string]string{}); rr.Code != http.StatusUnauthorized {
			t.Errorf("POST %s status = %d; want 401", path, rr.Code)
		}
	}
}

func TestNewRouter_ChatUsesTenantKnowledge(t *testing.T) {
	a := newTestAPI(t)
	a.register("sesmt@empresa.com")

	rr := a.do(http.MethodPost, "/api/v1/knowledge/documents", map[string]any{
		"title":    "NR-35 Trabalho em Altura",
		"content":  "Acima de 2 metros é obrigatório o uso de cinto paraquedista.",
		"isPublic": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create document status = %d: %s", rr.Code, rr.Body.String())
	}

	// The full question matches nothing; the "altura" keyword finds the document.
	question := "Qual a altura mínima para uso de cinto?"
	rr = a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{
		"message":       question,
		"knowledgeBase": "normal",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[map[string]string](t, rr)["response"]; got != a.stub.Reply {
		t.Errorf("response = %q; want %q", got, a.stub.Reply)
	}
	req, _ := a.stub.LastCall()
	if !strings.Contains(req.Messages[0].Content, "NR-35 Trabalho em Altura") {
		t.Error("system prompt does not include the tenant document")
	}

	// A second tenant must not see the first tenant's document.
	a.register("outra@empresa.com")
	if rr := a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{"message": question}); rr.Code != http.StatusOK {
		t.Fatalf("second tenant chat status = %d: %s", rr.Code, rr.Body.String())
	}
	req, _ = a.stub.LastCall()
	if strings.Contains(req.Messages[0].Content, "NR-35 Trabalho em Altura") {
		t.Error("system prompt leaked another tenant's document")
	}
}

func TestNewRouter_ChatErrors(t *testing.T) {
	a := newTestAPI(t)
	a.register("erros@empresa.com")

	if rr := a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{"message": " "}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d; want 400", rr.Code)
	}
	if rr := a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{"message": "oi", "conversationId": "missing"}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown conversation status = %d; want 404", rr.Code)
	}

	a.stub.Err = errStub
	rr := a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{"message": "oi"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("llm failure status = %d; want 500", rr.Code)
	}
	body := decode[map[string]string](t, rr)
	if body["error"] == "" || body["fallbackResponse"] == "" {
		t.Errorf("body = %v; want error and fallbackResponse", body)
	}
}

func TestNewRouter_SmartSearchShapes(t *testing.T) {
	a := newTestAPI(t)
	a.register("busca@empresa.com")

	rr := a.do(http.MethodPost, "/api/v1/smart-search", map[string]string{"query": ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty query status = %d; want 400", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	for _, key := range []string{"results", "expandedTerms", "totalFound", "error"} {
		if _, ok := body[key]; !ok {
			t.Errorf("400 body missing %q: %v", key, body)
		}
	}

	a.stub.Reply = "altura, cinto"
	a.do(http.MethodPost, "/api/v1/knowledge/documents", map[string]any{
		"title": "Cinto paraquedista", "content": "Inspeção do cinto antes do uso.", "isPublic": true,
	})
	rr = a.do(http.MethodPost, "/api/v1/smart-search", map[string]string{"query": "cinto"})
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rr.Code, rr.Body.String())
	}
	res := decode[knowledge.SmartSearchResult](t, rr)
	if res.TotalFound != 1 || res.Results[0].Title != "Cinto paraquedista" {
		t.Errorf("result = %+v", res)
	}
}

func TestNewRouter_PersonaAndConversationFlow(t *testing.T) {
	a := newTestAPI(t)
	a.register("persona@empresa.com")

	if rr := a.do(http.MethodGet, "/api/v1/chatbot-instructions/active", nil); rr.Code != http.StatusNotFound {
		t.Errorf("active before save status = %d; want 404", rr.Code)
	}
	rr := a.do(http.MethodPut, "/api/v1/chatbot-instructions", map[string]string{
		"personaName": "Vigia", "instructions": "Responda em tópicos.",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rr.Code, rr.Body.String())
	}
	second := decode[map[string]any](t, a.do(http.MethodPost, "/api/v1/chatbot-instructions", map[string]string{"personaName": "Guardião"}))
	rr = a.do(http.MethodPost, "/api/v1/chatbot-instructions/"+second["id"].(string)+"/activate", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("activate status = %d: %s", rr.Code, rr.Body.String())
	}
	active := decode[map[string]any](t, a.do(http.MethodGet, "/api/v1/chatbot-instructions/active", nil))
	if active["personaName"] != "Guardião" {
		t.Errorf("active persona = %v; want Guardião", active["personaName"])
	}

	conv := decode[map[string]any](t, a.do(http.MethodPost, "/api/v1/conversations", map[string]string{"title": "Dúvidas"}))
	convID := conv["id"].(string)
	if rr := a.do(http.MethodPost, "/api/v1/chat-ai", map[string]any{"message": "Preciso de EPI?", "conversationId": convID}); rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", rr.Code, rr.Body.String())
	}
	req, _ := a.stub.LastCall()
	if !strings.Contains(req.Messages[0].Content, "Guardião") {
		t.Error("system prompt does not use the active persona")
	}

	msgs := decode[struct {
		Data []map[string]any `json:"data"`
	}](t, a.do(http.MethodGet, "/api/v1/conversations/"+convID+"/messages", nil))
	if len(msgs.Data) != 2 {
		t.Fatalf("messages = %d; want 2 persisted turns", len(msgs.Data))
	}
	rr = a.do(http.MethodPut, "/api/v1/messages/"+msgs.Data[1]["id"].(string)+"/tags", map[string][]string{"tags": {"epi"}})
	if rr.Code != http.StatusOK {
		t.Errorf("set tags status = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNewRouter_ProtectedRequestsAreAudited(t *testing.T) {
	a := newTestAPI(t)
	a.register("audit@empresa.com")
	a.do(http.MethodGet, "/api/v1/conversations", nil)

	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM audit_event WHERE action = 'list_conversation'`).Scan(&n); err != nil {
		t.Fatalf("count audit events: %v", err)
	}
	if n != 1 {
		t.Errorf("audit events = %d; want 1", n)
	}
}
