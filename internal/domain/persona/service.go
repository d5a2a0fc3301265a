// Package persona stores the tenant-configurable chatbot instructions. At most one record
// per tenant is active; the chat prompt uses it in place of the built-in persona.
package persona

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainaudit "github.com/safeboy/safeboy/internal/domain/audit"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

var (
	ErrNotFound     = errors.New("chatbot instruction not found")
	ErrNameRequired = errors.New("personaName is required")
)

// Instruction is one chatbot_instruction row.
type Instruction struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenantId"`
	PersonaName        string    `json:"personaName"`
	PersonaDescription string    `json:"personaDescription"`
	Instructions       string    `json:"instructions"`
	AdditionalContext  string    `json:"additionalContext"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Input struct {
	PersonaName        string
	PersonaDescription string
	Instructions       string
	AdditionalContext  string
}

type auditLogger interface {
	LogWithDetails(
		ctx context.Context,
		tenantID string,
		action string,
		entityType *string,
		entityID *string,
		details *domainaudit.EventDetails,
		outcome domainaudit.Outcome,
	) error
}

type Service struct {
	db    *sql.DB
	audit auditLogger
}

// NewService creates the store. audit may be nil.
func NewService(db *sql.DB, audit auditLogger) *Service {
	return &Service{db: db, audit: audit}
}

// Save updates the tenant's current record in place (the active one, else the most recent)
// or inserts a new active record when the tenant has none.
func (s *Service) Save(ctx context.Context, tenantID string, in Input) (*Instruction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := sqlite.FormatTime(time.Now())

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM chatbot_instruction WHERE tenant_id = ?
		ORDER BY is_active DESC, updated_at DESC LIMIT 1
	`, tenantID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.Must(uuid.NewV7()).String()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO chatbot_instruction
				(id, tenant_id, persona_name, persona_description, instructions, additional_context, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, id, tenantID, in.PersonaName, in.PersonaDescription, in.Instructions, in.AdditionalContext, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert chatbot instruction: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find chatbot instruction: %w", err)
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE chatbot_instruction
			SET persona_name = ?, persona_description = ?, instructions = ?, additional_context = ?, updated_at = ?
			WHERE id = ?
		`, in.PersonaName, in.PersonaDescription, in.Instructions, in.AdditionalContext, now, id)
		if err != nil {
			return nil, fmt.Errorf("update chatbot instruction: %w", err)
		}
	}
	return s.get(ctx, tenantID, id)
}

// Create inserts an additional record. It becomes active only if the tenant has no
// active record yet.
func (s *Service) Create(ctx context.Context, tenantID string, in Input) (*Instruction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	id := uuid.Must(uuid.NewV7()).String()
	now := sqlite.FormatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chatbot_instruction
			(id, tenant_id, persona_name, persona_description, instructions, additional_context, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?,
			NOT EXISTS (SELECT 1 FROM chatbot_instruction WHERE tenant_id = ? AND is_active = 1), ?, ?)
	`, id, tenantID, in.PersonaName, in.PersonaDescription, in.Instructions, in.AdditionalContext, tenantID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert chatbot instruction: %w", err)
	}
	return s.get(ctx, tenantID, id)
}

// GetActive returns the tenant's active record, or ErrNotFound.
func (s *Service) GetActive(ctx context.Context, tenantID string) (*Instruction, error) {
	row := s.db.QueryRowContext(ctx, selectInstruction+` WHERE tenant_id = ? AND is_active = 1`, tenantID)
	return scanInstruction(row)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]*Instruction, error) {
	rows, err := s.db.QueryContext(ctx, selectInstruction+` WHERE tenant_id = ? ORDER BY created_at DESC, id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list chatbot instructions: %w", err)
	}
	defer rows.Close()

	out := []*Instruction{}
	for rows.Next() {
		in, err := scanInstruction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Activate makes id the tenant's only active record. Deactivation of the others and
// activation of id commit together; an unknown id changes nothing.
func (s *Service) Activate(ctx context.Context, tenantID, id string) (*Instruction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var previous sql.NullString
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM chatbot_instruction WHERE tenant_id = ? AND is_active = 1
	`, tenantID).Scan(&previous); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find active instruction: %w", err)
	}

	now := sqlite.FormatTime(time.Now())
	if _, err := tx.ExecContext(ctx, `
		UPDATE chatbot_instruction SET is_active = 0, updated_at = ?
		WHERE tenant_id = ? AND is_active = 1 AND id != ?
	`, now, tenantID, id); err != nil {
		return nil, fmt.Errorf("deactivate instructions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE chatbot_instruction SET is_active = 1, updated_at = ? WHERE id = ? AND tenant_id = ?
	`, now, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("activate instruction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activate: %w", err)
	}

	s.logActivation(ctx, tenantID, id, previous.String)
	return s.get(ctx, tenantID, id)
}

func (s *Service) logActivation(ctx context.Context, tenantID, id, previous string) {
	if s.audit == nil {
		return
	}
	entityType := "chatbot_instruction"
	details := &domainaudit.EventDetails{NewValue: map[string]string{"activeId": id}}
	if previous != "" {
		details.OldValue = map[string]string{"activeId": previous}
	}
	if err := s.audit.LogWithDetails(ctx, tenantID, "persona.activate", &entityType, &id, details, domainaudit.OutcomeSuccess); err != nil {
		logger.Get().Warn().Err(err).Str("tenant_id", tenantID).Msg("audit persona activation failed")
	}
}

func (s *Service) get(ctx context.Context, tenantID, id string) (*Instruction, error) {
	row := s.db.QueryRowContext(ctx, selectInstruction+` WHERE id = ? AND tenant_id = ?`, id, tenantID)
	return scanInstruction(row)
}

func (in *Input) validate() error {
	in.PersonaName = strings.TrimSpace(in.PersonaName)
	if in.PersonaName == "" {
		return ErrNameRequired
	}
	return nil
}

const selectInstruction = `
	SELECT id, tenant_id, persona_name, persona_description, instructions, additional_context,
	       is_active, created_at, updated_at
	FROM chatbot_instruction`

type scanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row scanner) (*Instruction, error) {
	var in Instruction
	var created, updated string
	err := row.Scan(&in.ID, &in.TenantID, &in.PersonaName, &in.PersonaDescription, &in.Instructions,
		&in.AdditionalContext, &in.IsActive, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan chatbot instruction: %w", err)
	}
	in.CreatedAt = sqlite.ParseTime(created)
	in.UpdatedAt = sqlite.ParseTime(updated)
	return &in, nil
}
