// Uses httptest.NewServer to mock the Ollama HTTP API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaProvider_ChatCompletion_Success(t *testing.T) {
	t.Parallel()

	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaChatResponse{ //nolint:errcheck
			Message:         ollamaChatMessage{Role: RoleAssistant, Content: "Use o cinto de segurança."},
			DoneReason:      "stop",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       5,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2:3b", 5*time.Second)
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Messages:  []Message{{Role: RoleUser, Content: "trabalho em altura"}},
		MaxTokens: 100,
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if resp.Content != "Use o cinto de segurança." || resp.StopReason != "stop" || resp.Tokens != 15 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got.Model != "llama3.2:3b" || got.Stream {
		t.Errorf("request model=%q stream=%v; want default model, stream=false", got.Model, got.Stream)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser {
		t.Errorf("messages not forwarded: %+v", got.Messages)
	}
}

func TestOllamaProvider_ChatCompletion_ServerError_ReturnsUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2:3b", 5*time.Second)
	_, err := p.ChatCompletion(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v; want *UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d; want 400", upstream.StatusCode)
	}
}

func TestOllamaProvider_HealthCheck(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}}) //nolint:errcheck
	}))
	p := NewOllamaProvider(srv.URL, "llama3.2:3b", 5*time.Second)
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	srv.Close()
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("expected error once the server is down")
	}
}

func TestOllamaProvider_ModelInfo(t *testing.T) {
	t.Parallel()

	meta := NewOllamaProvider("http://localhost:11434", "llama3.2:3b", time.Second).ModelInfo()
	if meta.ID != "llama3.2:3b" || meta.Provider != "ollama" {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestBuildChatOptions(t *testing.T) {
	t.Parallel()

	opts := buildChatOptions(ChatRequest{Temperature: 0.7, MaxTokens: 256})
	if opts["temperature"] != float32(0.7) {
		t.Errorf("temperature = %v; want 0.7", opts["temperature"])
	}
	if opts["num_predict"] != 256 {
		t.Errorf("num_predict = %v; want 256", opts["num_predict"])
	}

	if opts := buildChatOptions(ChatRequest{}); opts != nil {
		t.Errorf("expected nil opts for zero values, got %v", opts)
	}
}
