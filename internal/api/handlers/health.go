package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/safeboy/safeboy/internal/version"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB, cache.Cache and llm.LLMProvider adapters.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	required map[string]Pinger
	optional map[string]Pinger
}

// NewHealthHandler reports 503 when any required check fails. Optional checks only
// mark the response as degraded.
func NewHealthHandler(required, optional map[string]Pinger) *HealthHandler {
	return &HealthHandler{required: required, optional: optional}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Version: version.Version, Checks: map[string]string{}}
	code := http.StatusOK
	for name, check := range h.required {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	for name, check := range h.optional {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, code, resp)
}
