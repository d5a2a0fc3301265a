package llm

import (
	"context"
	"fmt"
	"net/http"
)

// LLMProvider is implemented by every chat model adapter.
type LLMProvider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ModelInfo() ModelMeta
	HealthCheck(ctx context.Context) error
}

// UpstreamError reports a non-2xx answer from a model API.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *UpstreamError) Unwrap() error { return e.Err }
