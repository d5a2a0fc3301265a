// Package audit is the append-only audit trail of protected requests and persona changes.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

// ErrNotFound is returned by GetByID for unknown ids.
var ErrNotFound = errors.New("audit event not found")

// AuditService writes and reads audit_event. There is no update or delete path.
//
//nolint:revive // audit.AuditService reads fine at call sites
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// Log inserts event, filling ID and CreatedAt when empty.
func (s *AuditService) Log(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	details := event.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (id, tenant_id, action, entity_type, entity_id, details, outcome, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.TenantID, event.Action, event.EntityType, event.EntityID, string(details),
		string(event.Outcome), event.IPAddress, event.UserAgent, sqlite.FormatTime(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// LogWithDetails is the common case: marshal details and log.
func (s *AuditService) LogWithDetails(
	ctx context.Context,
	tenantID string,
	action string,
	entityType *string,
	entityID *string,
	details *EventDetails,
	outcome Outcome,
) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		raw = b
	}
	return s.Log(ctx, &Event{
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		Outcome:    outcome,
	})
}

func (s *AuditService) GetByID(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListByTenant returns a page of events, newest first, and the tenant's total count.
func (s *AuditService) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Event, int, error) {
	rows, err := s.db.QueryContext(ctx, selectEvent+`
		WHERE tenant_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_event WHERE tenant_id = ?`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit events: %w", err)
	}
	return out, total, nil
}

const selectEvent = `
	SELECT id, tenant_id, action, entity_type, entity_id, details, outcome, ip_address, user_agent, created_at
	FROM audit_event`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e         Event
		details   string
		outcome   string
		createdAt string
	)
	if err := sc.Scan(&e.ID, &e.TenantID, &e.Action, &e.EntityType, &e.EntityID, &details,
		&outcome, &e.IPAddress, &e.UserAgent, &createdAt); err != nil {
		return nil, err
	}
	e.Details = json.RawMessage(details)
	e.Outcome = Outcome(outcome)
	e.CreatedAt = sqlite.ParseTime(createdAt)
	return &e, nil
}
