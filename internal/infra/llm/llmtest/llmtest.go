// Package llmtest provides a scripted llm.LLMProvider for package tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/safeboy/safeboy/internal/infra/llm"
)

// Stub answers every completion with Reply, or fails with Err. Requests are recorded.
type Stub struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls []llm.ChatRequest
}

var _ llm.LLMProvider = (*Stub)(nil)

func (s *Stub) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return &llm.ChatResponse{Content: s.Reply, StopReason: "stop"}, nil
}

func (s *Stub) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{ID: "stub-model", Provider: "stub", MaxTokens: 16000}
}

func (s *Stub) HealthCheck(context.Context) error { return s.Err }

// Calls returns a copy of the recorded requests.
func (s *Stub) Calls() []llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ChatRequest(nil), s.calls...)
}

// LastCall returns the most recent request; ok is false when there was none.
func (s *Stub) LastCall() (llm.ChatRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return llm.ChatRequest{}, false
	}
	return s.calls[len(s.calls)-1], true
}
