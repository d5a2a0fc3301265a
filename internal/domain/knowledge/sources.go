package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

// Mode selects the knowledge source for a chat turn.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeWhatsApp Mode = "whatsapp"
)

// ParseMode maps the client flag to a Mode; anything unrecognised is ModeNormal.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeWhatsApp {
		return ModeWhatsApp
	}
	return ModeNormal
}

const (
	documentLimit = 3
	messageLimit  = 5
)

// Source retrieves records for one tenant. Implementations return query errors to the
// caller; the chat pipeline decides to degrade.
type Source interface {
	Name() string
	Search(ctx context.Context, tenantID, query string) ([]Record, error)
}

// DocumentSource matches the query as a case-insensitive literal substring of a
// document's title, content or summary.
type DocumentSource struct {
	db *sql.DB
}

func NewDocumentSource(db *sql.DB) *DocumentSource {
	return &DocumentSource{db: db}
}

func (s *DocumentSource) Name() string { return string(ModeNormal) }

func (s *DocumentSource) Search(ctx context.Context, tenantID, query string) ([]Record, error) {
	pattern := sqlite.ContainsPattern(query)
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.content, COALESCE(d.summary, ''), COALESCE(c.name, ''), d.tags
		FROM knowledge_document d
		LEFT JOIN knowledge_category c ON c.id = d.category_id
		WHERE d.tenant_id = ?
		  AND (casefold(d.title) LIKE ? ESCAPE '\'
		       OR casefold(d.content) LIKE ? ESCAPE '\'
		       OR casefold(d.summary) LIKE ? ESCAPE '\')
		ORDER BY d.created_at DESC
		LIMIT ?
	`, tenantID, pattern, pattern, pattern, documentLimit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge documents: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var d RetrievedDocument
		var tags string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Summary, &d.Category, &tags); err != nil {
			return nil, fmt.Errorf("scan knowledge document: %w", err)
		}
		d.Tags = decodeTags(tags)
		out = append(out, &d)
	}
	return out, rows.Err()
}

// WhatsAppSource searches assistant-authored messages in the tenant's conversations,
// newest first.
type WhatsAppSource struct {
	db *sql.DB
}

func NewWhatsAppSource(db *sql.DB) *WhatsAppSource {
	return &WhatsAppSource{db: db}
}

func (s *WhatsAppSource) Name() string { return string(ModeWhatsApp) }

func (s *WhatsAppSource) Search(ctx context.Context, tenantID, query string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.content, m.created_at
		FROM message m
		JOIN conversation c ON c.id = m.conversation_id
		WHERE c.tenant_id = ?
		  AND m.is_user = 0
		  AND casefold(m.content) LIKE ? ESCAPE '\'
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ?
	`, tenantID, sqlite.ContainsPattern(query), messageLimit)
	if err != nil {
		return nil, fmt.Errorf("search whatsapp history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var m RetrievedMessage
		var created string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = sqlite.ParseTime(created)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// RetrieveDocuments runs the full query against src and, if that finds nothing, one
// search per extracted keyword in order, stopping once documentLimit records have
// accumulated. Records sharing a title are collapsed to the first occurrence, so
// distinct documents with identical titles are intentionally dropped.
func RetrieveDocuments(ctx context.Context, src Source, tenantID, query string) ([]Record, error) {
	records, err := src.Search(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		for _, kw := range ExtractKeywords(query) {
			if len(records) >= documentLimit {
				break
			}
			found, err := src.Search(ctx, tenantID, kw)
			if err != nil {
				return nil, err
			}
			records = append(records, found...)
		}
	}

	records = dedupeByTitle(records)
	if len(records) > documentLimit {
		records = records[:documentLimit]
	}
	return records, nil
}

func dedupeByTitle(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if d, ok := r.(*RetrievedDocument); ok {
			if _, dup := seen[d.Title]; dup {
				continue
			}
			seen[d.Title] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

// keywordFallbackSource applies RetrieveDocuments on top of a document source.
type keywordFallbackSource struct {
	inner Source
}

func (s keywordFallbackSource) Name() string { return s.inner.Name() }

func (s keywordFallbackSource) Search(ctx context.Context, tenantID, query string) ([]Record, error) {
	return RetrieveDocuments(ctx, s.inner, tenantID, query)
}

// Sources holds one adapter per Mode.
type Sources struct {
	normal   Source
	whatsapp Source
}

// NewSources wires the per-mode adapters; the document source gets keyword fallback.
func NewSources(documents, whatsapp Source) *Sources {
	return &Sources{normal: keywordFallbackSource{inner: documents}, whatsapp: whatsapp}
}

// For returns the adapter for mode.
func (s *Sources) For(mode Mode) Source {
	if mode == ModeWhatsApp {
		return s.whatsapp
	}
	return s.normal
}
