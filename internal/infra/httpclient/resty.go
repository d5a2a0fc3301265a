// Package httpclient builds the resty clients used for outbound calls (Ollama, n8n).
package httpclient

import (
	"context"
	"time"

	"resty.dev/v3"

	"github.com/safeboy/safeboy/internal/infra/logger"
)

type startedAtKey struct{}

// NewClient returns a resty client with a request timeout and debug-level call logging.
// name tags the log lines so concurrent clients can be told apart.
func NewClient(name string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	client.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAtKey{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		started, _ := r.Request.Context().Value(startedAtKey{}).(time.Time)
		log := logger.Get()
		log.Debug().
			Str("client", name).
			Str("method", r.Request.Method).
			Str("url", r.Request.URL).
			Int("status", r.StatusCode()).
			Dur("latency", time.Since(started)).
			Msg("http client request")
		return nil
	})
	return client
}
