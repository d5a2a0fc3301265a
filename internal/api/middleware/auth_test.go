package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	"github.com/safeboy/safeboy/internal/api/middleware"
	pkgauth "github.com/safeboy/safeboy/pkg/auth"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-key-32-chars-min!!!") //nolint:errcheck
	os.Exit(m.Run())
}

func nextHandler(called *bool, capturedCtx *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if capturedCtx != nil {
			*capturedCtx = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func makeRequest(authHeader string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	t.Parallel()

	valid, err := pkgauth.GenerateJWT("tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &pkgauth.Claims{
		TenantID:         "tenant-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Second))},
	}).SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{
		"missing header": "",
		"empty bearer":   "Bearer ",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"garbage token":  "Bearer not.a.real.jwt",
		"tampered token": "Bearer " + valid[:len(valid)-10] + "TAMPERED!!",
		"expired token":  "Bearer " + expired,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			called := false
			rr := httptest.NewRecorder()
			middleware.AuthMiddleware(nextHandler(&called, nil)).ServeHTTP(rr, makeRequest(header))

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d; want 401", rr.Code)
			}
			if called {
				t.Error("next handler should not be called")
			}
		})
	}
}

func TestAuthMiddleware_InjectsTenant(t *testing.T) {
	t.Parallel()

	token, err := pkgauth.GenerateJWT("tenant-abc")
	if err != nil {
		t.Fatal(err)
	}

	called := false
	var ctx context.Context
	rr := httptest.NewRecorder()
	middleware.AuthMiddleware(nextHandler(&called, &ctx)).ServeHTTP(rr, makeRequest("Bearer "+token))

	if rr.Code != http.StatusOK || !called {
		t.Fatalf("status=%d called=%v", rr.Code, called)
	}
	if got := ctxkeys.String(ctx, ctxkeys.TenantID); got != "tenant-abc" {
		t.Errorf("tenant in context = %q; want tenant-abc", got)
	}
}
