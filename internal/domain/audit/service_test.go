package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/safeboy/safeboy/internal/infra/sqlite/sqlitetest"
)

func strPtr(s string) *string { return &s }

func TestLog_PersistsEvent(t *testing.T) {
	t.Parallel()

	db := sqlitetest.Open(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	event := &Event{
		TenantID:   "tenant-1",
		Action:     "create_document",
		EntityType: strPtr("document"),
		EntityID:   strPtr("doc-1"),
		Details:    json.RawMessage(`{"metadata":{"source":"api"}}`),
		Outcome:    OutcomeSuccess,
		IPAddress:  strPtr("127.0.0.1"),
		UserAgent:  strPtr("test-agent"),
	}
	if err := svc.Log(ctx, event); err != nil {
		t.Fatalf("Log error = %v", err)
	}
	if event.ID == "" || event.CreatedAt.IsZero() {
		t.Fatal("Log should fill ID and CreatedAt")
	}

	got, err := svc.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetByID error = %v", err)
	}
	if got.Action != "create_document" || *got.EntityID != "doc-1" || got.Outcome != OutcomeSuccess {
		t.Errorf("unexpected event: %+v", got)
	}
	if *got.IPAddress != "127.0.0.1" {
		t.Errorf("IPAddress = %q", *got.IPAddress)
	}
	if !got.CreatedAt.Equal(event.CreatedAt) {
		t.Errorf("CreatedAt = %v; want %v", got.CreatedAt, event.CreatedAt)
	}
}

func TestLogWithDetails_NilFields(t *testing.T) {
	t.Parallel()

	db := sqlitetest.Open(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	if err := svc.LogWithDetails(ctx, "tenant-1", "login", nil, nil, nil, OutcomeDenied); err != nil {
		t.Fatalf("LogWithDetails error = %v", err)
	}

	events, total, err := svc.ListByTenant(ctx, "tenant-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByTenant error = %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("total=%d len=%d; want 1", total, len(events))
	}
	e := events[0]
	if e.EntityType != nil || e.EntityID != nil {
		t.Errorf("entity fields should be nil, got %v %v", e.EntityType, e.EntityID)
	}
	if string(e.Details) != "{}" {
		t.Errorf("Details = %s; want {}", e.Details)
	}
	if e.Outcome != OutcomeDenied {
		t.Errorf("Outcome = %q", e.Outcome)
	}
}

func TestLogWithDetails_MarshalsDetails(t *testing.T) {
	t.Parallel()

	db := sqlitetest.Open(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	details := &EventDetails{Metadata: map[string]any{"status_code": 201}}
	if err := svc.LogWithDetails(ctx, "t", "create_conversation", strPtr("conversation"), nil, details, OutcomeSuccess); err != nil {
		t.Fatalf("LogWithDetails error = %v", err)
	}

	events, _, _ := svc.ListByTenant(ctx, "t", 1, 0)
	var decoded EventDetails
	if err := json.Unmarshal(events[0].Details, &decoded); err != nil {
		t.Fatalf("details not valid JSON: %v", err)
	}
	meta, _ := decoded.Metadata.(map[string]any)
	if meta["status_code"] != float64(201) {
		t.Errorf("metadata = %v", decoded.Metadata)
	}
}

func TestListByTenant_IsolatedAndNewestFirst(t *testing.T) {
	t.Parallel()

	db := sqlitetest.Open(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	for _, action := range []string{"first", "second", "third"} {
		if err := svc.LogWithDetails(ctx, "tenant-a", action, nil, nil, nil, OutcomeSuccess); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.LogWithDetails(ctx, "tenant-b", "other", nil, nil, nil, OutcomeSuccess); err != nil {
		t.Fatal(err)
	}

	events, total, err := svc.ListByTenant(ctx, "tenant-a", 2, 0)
	if err != nil {
		t.Fatalf("ListByTenant error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d; want 3", total)
	}
	if len(events) != 2 || events[0].Action != "third" || events[1].Action != "second" {
		t.Errorf("unexpected page: %+v", events)
	}
	for _, e := range events {
		if e.TenantID != "tenant-a" {
			t.Errorf("leaked event from %s", e.TenantID)
		}
	}
}

func TestGetByID_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewAuditService(sqlitetest.Open(t))
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v; want ErrNotFound", err)
	}
}
