package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/metrics"
)

// RequestLogger logs one zerolog line per request and records the HTTP metrics under the
// matched chi route pattern, so path parameters do not explode label cardinality.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		metrics.ObserveHTTP(r.Method, route, status, elapsed)

		log := logger.Get()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		if id := chimw.GetReqID(r.Context()); id != "" {
			event = event.Str("request_id", id)
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", elapsed).
			Str("client_ip", r.RemoteAddr).
			Msg("http request")
	})
}
