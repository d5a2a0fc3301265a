// Package conversation stores chat conversations and their ordered messages.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyContent    = errors.New("message content is required")
)

const defaultTitle = "Nova conversa"

type Conversation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn. IsUser distinguishes the end user from the assistant.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	IsUser         bool      `json:"isUser"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create starts a conversation; a blank title becomes the default.
func (s *Service) Create(ctx context.Context, tenantID, title string) (*Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	now := time.Now().UTC()
	c := &Conversation{ID: uuid.Must(uuid.NewV7()).String(), TenantID: tenantID, Title: title, CreatedAt: now, UpdatedAt: now}
	ts := sqlite.FormatTime(now)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation (id, tenant_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.TenantID, c.Title, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*Conversation, error) {
	var c Conversation
	var created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, created_at, updated_at FROM conversation WHERE id = ? AND tenant_id = ?
	`, id, tenantID).Scan(&c.ID, &c.TenantID, &c.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	c.CreatedAt = sqlite.ParseTime(created)
	c.UpdatedAt = sqlite.ParseTime(updated)
	return &c, nil
}

// List returns the tenant's conversations, most recently active first.
func (s *Service) List(ctx context.Context, tenantID string) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, created_at, updated_at FROM conversation
		WHERE tenant_id = ?
		ORDER BY updated_at DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []*Conversation{}
	for rows.Next() {
		var c Conversation
		var created, updated string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.CreatedAt = sqlite.ParseTime(created)
		c.UpdatedAt = sqlite.ParseTime(updated)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Delete removes the conversation and, by cascade, its messages.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversation WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage adds a message and bumps the conversation's updated_at in one transaction.
func (s *Service) AppendMessage(ctx context.Context, tenantID, conversationID, content string, isUser bool) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	now := time.Now().UTC()
	ts := sqlite.FormatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE conversation SET updated_at = ? WHERE id = ? AND tenant_id = ?
	`, ts, conversationID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	m := &Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Content:        content,
		IsUser:         isUser,
		Tags:           []string{},
		CreatedAt:      now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message (id, conversation_id, content, is_user, tags, created_at) VALUES (?, ?, ?, ?, '[]', ?)
	`, m.ID, m.ConversationID, m.Content, m.IsUser, ts); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append message: %w", err)
	}
	return m, nil
}

// ListMessages returns the conversation's messages in insertion order.
func (s *Service) ListMessages(ctx context.Context, tenantID, conversationID string) ([]*Message, error) {
	if _, err := s.Get(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, content, is_user, tags, created_at FROM message
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetTags replaces a message's tags. It is the only mutation allowed on a message.
func (s *Service) SetTags(ctx context.Context, tenantID, messageID string, tags []string) (*Message, error) {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE message SET tags = ?
		WHERE id = ? AND conversation_id IN (SELECT id FROM conversation WHERE tenant_id = ?)
	`, string(raw), messageID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("set message tags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrMessageNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, content, is_user, tags, created_at FROM message WHERE id = ?
	`, messageID)
	return scanMessage(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*Message, error) {
	var m Message
	var tags, created string
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsUser, &tags, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil || m.Tags == nil {
		m.Tags = []string{}
	}
	m.CreatedAt = sqlite.ParseTime(created)
	return &m, nil
}
