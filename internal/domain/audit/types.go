package audit

import (
	"encoding/json"
	"time"
)

// Outcome is the result of an audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Event is one immutable audit_event row. The actor is always the tenant itself.
type Event struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	Action     string          `json:"action"`
	EntityType *string         `json:"entityType,omitempty"`
	EntityID   *string         `json:"entityId,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	IPAddress  *string         `json:"ipAddress,omitempty"`
	UserAgent  *string         `json:"userAgent,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// EventDetails is serialized into Event.Details.
type EventDetails struct {
	OldValue any `json:"old_value,omitempty"`
	NewValue any `json:"new_value,omitempty"`
	Metadata any `json:"metadata,omitempty"`
}
