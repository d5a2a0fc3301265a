package llm

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/safeboy/safeboy/internal/infra/httpclient"
)

// OllamaProvider talks to a local Ollama daemon; meant for development without an OpenAI key.
//   - POST /api/chat  non-streaming chat completion
//   - GET  /api/tags  health check
type OllamaProvider struct {
	client        *resty.Client
	model         string
	contextTokens int
}

// NewOllamaProvider creates a provider for model served at baseURL.
func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		client:        httpclient.NewClient("ollama", timeout).SetBaseURL(baseURL),
		model:         model,
		contextTokens: 4096,
	}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaChatMessage `json:"message"`
	DoneReason      string            `json:"done_reason"`
	Done            bool              `json:"done"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
}

func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]ollamaChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollamaChatMessage(m)
	}

	var out ollamaChatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ollamaChatRequest{Model: model, Messages: msgs, Options: buildChatOptions(req)}).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if resp.IsError() {
		return nil, &UpstreamError{Provider: "ollama", StatusCode: resp.StatusCode(), Err: fmt.Errorf("%s", resp.String())}
	}

	return &ChatResponse{
		Content:    out.Message.Content,
		StopReason: out.DoneReason,
		Tokens:     out.PromptEvalCount + out.EvalCount,
	}, nil
}

func buildChatOptions(req ChatRequest) map[string]any {
	opts := map[string]any{}
	if req.Temperature != 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens != 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func (p *OllamaProvider) ModelInfo() ModelMeta {
	return ModelMeta{ID: p.model, Provider: "ollama", MaxTokens: p.contextTokens}
}

func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama healthcheck: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama healthcheck: %w", &UpstreamError{Provider: "ollama", StatusCode: resp.StatusCode()})
	}
	return nil
}
