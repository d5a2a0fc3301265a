// Package middleware holds the HTTP middleware of the protected API: bearer auth, audit
// and request logging.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	pkgauth "github.com/safeboy/safeboy/pkg/auth"
)

// AuthMiddleware validates "Authorization: Bearer <jwt>" and injects the tenant id into
// the request context. Missing, malformed or expired tokens get 401.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearerToken(r)
		if tokenString == "" {
			writeUnauthorized(w, "missing or invalid Authorization header")
			return
		}

		claims, err := pkgauth.ParseJWT(tokenString)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := ctxkeys.WithValue(r.Context(), ctxkeys.TenantID, claims.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken returns "" for a missing header, another scheme, or an empty token.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
