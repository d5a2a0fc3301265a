package llm

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	id  string
	err error
}

func (s *stubProvider) ChatCompletion(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{Content: "stub:" + s.id}, nil
}
func (s *stubProvider) ModelInfo() ModelMeta                { return ModelMeta{ID: s.id, Provider: "stub"} }
func (s *stubProvider) HealthCheck(_ context.Context) error { return s.err }

var _ LLMProvider = (*Router)(nil)

func TestRouter_Route_ReturnsDefaultProvider(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]LLMProvider{
		"openai": &stubProvider{id: "gpt-4o-mini"},
		"ollama": &stubProvider{id: "llama3.2:3b"},
	}, "ollama")

	p, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if p.ModelInfo().ID != "llama3.2:3b" {
		t.Errorf("unexpected provider: %v", p.ModelInfo())
	}
}

func TestRouter_UnknownDefault_ReturnsError(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]LLMProvider{"ollama": &stubProvider{id: "x"}}, "openai")
	if _, err := r.Route(context.Background()); err == nil {
		t.Error("expected error for unknown default provider")
	}
	if _, err := r.ChatCompletion(context.Background(), ChatRequest{}); err == nil {
		t.Error("ChatCompletion should surface the routing error")
	}
	if got := r.ModelInfo().Provider; got != "openai" {
		t.Errorf("ModelInfo().Provider = %q; want openai", got)
	}
}

func TestRouter_DelegatesChatAndHealth(t *testing.T) {
	t.Parallel()

	down := errors.New("down")
	r := NewRouter(map[string]LLMProvider{}, "openai")
	r.Register("openai", &stubProvider{id: "gpt"})

	resp, err := r.ChatCompletion(context.Background(), ChatRequest{})
	if err != nil || resp.Content != "stub:gpt" {
		t.Fatalf("ChatCompletion = %+v, %v", resp, err)
	}

	r.Register("openai", &stubProvider{id: "gpt", err: down})
	if err := r.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("HealthCheck err = %v; want %v", err, down)
	}
}

func TestNewRouter_CopiesProviderMap(t *testing.T) {
	t.Parallel()

	in := map[string]LLMProvider{"ollama": &stubProvider{id: "a"}}
	r := NewRouter(in, "ollama")
	delete(in, "ollama")

	if _, err := r.Route(context.Background()); err != nil {
		t.Errorf("router should keep its own copy of providers: %v", err)
	}
}
