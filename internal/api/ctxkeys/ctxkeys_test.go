package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValue_SetsAndGetsTypedKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), TenantID, "tenant-999")
	if got := String(ctx, TenantID); got != "tenant-999" {
		t.Fatalf("expected tenant-999, got %q", got)
	}
}

func TestString_UntypedKeyDoesNotCollide(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // deliberately using a plain string key
	ctx := context.WithValue(context.Background(), "tenant_id", "spoofed")
	if got := String(ctx, TenantID); got != "" {
		t.Fatalf("plain string key leaked into typed lookup: %q", got)
	}
}
