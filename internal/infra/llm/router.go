package llm

import (
	"context"
	"fmt"
	"sort"
)

// Router resolves the configured provider per request. It satisfies LLMProvider itself,
// so domain services depend only on the interface.
type Router struct {
	providers       map[string]LLMProvider
	defaultProvider string
}

// NewRouter copies providers so later mutations of the caller's map have no effect.
func NewRouter(providers map[string]LLMProvider, defaultProvider string) *Router {
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultProvider: defaultProvider}
}

// Register adds or replaces a provider under key. Not safe for use after serving starts.
func (r *Router) Register(key string, p LLMProvider) {
	r.providers[key] = p
}

// Route returns the default provider or an error naming the registered ones.
func (r *Router) Route(_ context.Context) (LLMProvider, error) {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", r.defaultProvider, r.keys())
	}
	return p, nil
}

func (r *Router) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := r.Route(ctx)
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}

func (r *Router) ModelInfo() ModelMeta {
	p, ok := r.providers[r.defaultProvider]
	if !ok {
		return ModelMeta{Provider: r.defaultProvider}
	}
	return p.ModelInfo()
}

func (r *Router) HealthCheck(ctx context.Context) error {
	p, err := r.Route(ctx)
	if err != nil {
		return err
	}
	return p.HealthCheck(ctx)
}

func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
