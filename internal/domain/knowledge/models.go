// Package knowledge holds the tenant knowledge base and everything that retrieves from it:
// keyword extraction, the per-mode sources used by chat, and relevance-ranked smart search.
package knowledge

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("knowledge document not found")
	ErrCategoryNotFound = errors.New("knowledge category not found")
	ErrCategoryExists   = errors.New("knowledge category already exists")
	ErrTitleRequired    = errors.New("title is required")
	ErrNameRequired     = errors.New("name is required")
)

// Document is a tenant-owned knowledge base entry. Tags are an unordered set.
type Document struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Summary    *string   `json:"summary,omitempty"`
	CategoryID *string   `json:"categoryId,omitempty"`
	Category   *string   `json:"category,omitempty"` // joined name, read-only
	Tags       []string  `json:"tags"`
	IsPublic   bool      `json:"isPublic"`
	ViewCount  int       `json:"viewCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Category struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentInput is used for both create and full update.
type DocumentInput struct {
	Title      string
	Content    string
	Summary    *string
	CategoryID *string
	Tags       []string
	IsPublic   bool
}

type ListDocumentsInput struct {
	Limit      int
	Offset     int
	CategoryID string
}

// Record is a retrieval result carried through one chat request and never persisted.
// It is either a *RetrievedDocument or a *RetrievedMessage.
type Record interface {
	isRecord()
}

type RetrievedDocument struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags"`
	Score    float64  `json:"score"`
}

type RetrievedMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Score          float64   `json:"score"`
}

func (*RetrievedDocument) isRecord() {}
func (*RetrievedMessage) isRecord()  {}
