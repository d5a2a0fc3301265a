// Package ctxkeys holds the typed request context keys shared by middleware and handlers.
// It is a leaf package so api and api/handlers can both import it.
package ctxkeys

import "context"

// Key is the named type for API context keys; context.Value compares type and value,
// so plain string keys from other packages cannot collide.
type Key string

const (
	// TenantID is injected by AuthMiddleware from the JWT claims.
	TenantID Key = "tenant_id"
)

func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the key's value, or "" when absent.
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
