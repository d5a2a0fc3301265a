package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safeboy/safeboy/internal/infra/eventbus"
	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// DocumentService is the tenant-scoped CRUD surface of the knowledge base.
// Every statement filters on tenant_id; another tenant's id behaves as not found.
type DocumentService struct {
	db  *sql.DB
	bus eventbus.EventBus
}

// NewDocumentService creates the service. bus may be nil.
func NewDocumentService(db *sql.DB, bus eventbus.EventBus) *DocumentService {
	return &DocumentService{db: db, bus: bus}
}

// DocumentCreatedPayload is published on eventbus.TopicDocumentCreated.
type DocumentCreatedPayload struct {
	DocumentID string   `json:"documentId"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	IsPublic   bool     `json:"isPublic"`
}

func (s *DocumentService) Create(ctx context.Context, tenantID string, in DocumentInput) (*Document, error) {
	if err := s.validate(ctx, tenantID, &in); err != nil {
		return nil, err
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	id := uuid.Must(uuid.NewV7()).String()
	now := sqlite.FormatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_document (id, tenant_id, category_id, title, content, summary, tags, is_public, view_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, tenantID, in.CategoryID, in.Title, in.Content, in.Summary, tags, in.IsPublic, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert knowledge document: %w", err)
	}

	doc, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicDocumentCreated, tenantID, DocumentCreatedPayload{
			DocumentID: doc.ID, Title: doc.Title, Tags: doc.Tags, IsPublic: doc.IsPublic,
		})
	}
	return doc, nil
}

// Get returns the document and counts the read in view_count.
func (s *DocumentService) Get(ctx context.Context, tenantID, id string) (*Document, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE knowledge_document SET view_count = view_count + 1 WHERE id = ? AND tenant_id = ?
	`, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("increment view count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.load(ctx, tenantID, id)
}

// List returns a page of documents, newest first, and the tenant's total.
func (s *DocumentService) List(ctx context.Context, tenantID string, in ListDocumentsInput) ([]*Document, int, error) {
	limit, offset := clampPage(in.Limit, in.Offset)

	where := `d.tenant_id = ?`
	args := []any{tenantID}
	if in.CategoryID != "" {
		where += ` AND d.category_id = ?`
		args = append(args, in.CategoryID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_document d WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count knowledge documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, selectDocument+` WHERE `+where+`
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list knowledge documents: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Update replaces every editable field.
func (s *DocumentService) Update(ctx context.Context, tenantID, id string, in DocumentInput) (*Document, error) {
	if err := s.validate(ctx, tenantID, &in); err != nil {
		return nil, err
	}
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE knowledge_document
		SET category_id = ?, title = ?, content = ?, summary = ?, tags = ?, is_public = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`, in.CategoryID, in.Title, in.Content, in.Summary, tags, in.IsPublic, sqlite.FormatTime(time.Now()), id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("update knowledge document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.load(ctx, tenantID, id)
}

func (s *DocumentService) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_document WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete knowledge document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCategory adds a category; names are unique per tenant.
func (s *DocumentService) CreateCategory(ctx context.Context, tenantID, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	c := &Category{ID: uuid.Must(uuid.NewV7()).String(), TenantID: tenantID, Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge_category (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)
	`, c.ID, c.TenantID, c.Name, sqlite.FormatTime(c.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("insert knowledge category: %w", err)
	}
	return c, nil
}

func (s *DocumentService) ListCategories(ctx context.Context, tenantID string) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, created_at FROM knowledge_category WHERE tenant_id = ? ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge categories: %w", err)
	}
	defer rows.Close()

	out := []*Category{}
	for rows.Next() {
		var c Category
		var created string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = sqlite.ParseTime(created)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *DocumentService) validate(ctx context.Context, tenantID string, in *DocumentInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	if in.CategoryID == nil || *in.CategoryID == "" {
		in.CategoryID = nil
		return nil
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM knowledge_category WHERE id = ? AND tenant_id = ?
	`, *in.CategoryID, tenantID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("check knowledge category: %w", err)
	}
	return nil
}

func (s *DocumentService) load(ctx context.Context, tenantID, id string) (*Document, error) {
	rows, err := s.db.QueryContext(ctx, selectDocument+` WHERE d.id = ? AND d.tenant_id = ?`, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get knowledge document: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

const selectDocument = `
	SELECT d.id, d.tenant_id, d.title, d.content, d.summary, d.category_id, c.name,
	       d.tags, d.is_public, d.view_count, d.created_at, d.updated_at
	FROM knowledge_document d
	LEFT JOIN knowledge_category c ON c.id = d.category_id`

func scanDocuments(rows *sql.Rows) ([]*Document, error) {
	out := []*Document{}
	for rows.Next() {
		var (
			d                Document
			tags             string
			created, updated string
		)
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Title, &d.Content, &d.Summary, &d.CategoryID, &d.Category,
			&tags, &d.IsPublic, &d.ViewCount, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan knowledge document: %w", err)
		}
		d.Tags = decodeTags(tags)
		d.CreatedAt = sqlite.ParseTime(created)
		d.UpdatedAt = sqlite.ParseTime(updated)
		out = append(out, &d)
	}
	return out, rows.Err()
}

// encodeTags stores tags as a JSON array, trimmed and without empty or repeated entries.
func encodeTags(tags []string) (string, error) {
	clean := normalizeTags(tags)
	b, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
