package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safeboy/safeboy/internal/infra/sqlite"
)

const (
	maxExpansionTerms = 10
	candidateLimit    = 20
	resultLimit       = 10
)

// SmartSearchResult is the ranked answer of SmartSearch.Search.
type SmartSearchResult struct {
	Results       []*RetrievedDocument `json:"results"`
	ExpandedTerms []string             `json:"expandedTerms"`
	TotalFound    int                  `json:"totalFound"`
}

// SmartSearch expands the query, fetches public candidates matching any term, and ranks them.
type SmartSearch struct {
	db       *sql.DB
	expander *Expander
	scorer   *Scorer
}

func NewSmartSearch(db *sql.DB, expander *Expander, scorer *Scorer) *SmartSearch {
	return &SmartSearch{db: db, expander: expander, scorer: scorer}
}

// Search ranks the tenant's public documents for query. Only database failures are
// returned; expansion problems degrade to the raw query.
func (s *SmartSearch) Search(ctx context.Context, tenantID, query string) (*SmartSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return &SmartSearchResult{Results: []*RetrievedDocument{}, ExpandedTerms: []string{}}, nil
	}
	expanded := s.expander.Expand(ctx, query)

	terms := []string{query}
	for i, t := range expanded {
		if i >= maxExpansionTerms {
			break
		}
		terms = append(terms, t)
	}

	candidates, err := s.candidates(ctx, tenantID, terms)
	if err != nil {
		return nil, err
	}
	ranked := s.scorer.Rank(candidates, query, expanded, resultLimit)
	return &SmartSearchResult{Results: ranked, ExpandedTerms: expanded, TotalFound: len(ranked)}, nil
}

func (s *SmartSearch) candidates(ctx context.Context, tenantID string, terms []string) ([]*RetrievedDocument, error) {
	var (
		clauses []string
		args    = []any{tenantID}
	)
	for _, t := range terms {
		p := sqlite.ContainsPattern(strings.TrimSpace(t))
		clauses = append(clauses, `casefold(d.title) LIKE ? ESCAPE '\'`,
			`casefold(d.content) LIKE ? ESCAPE '\'`,
			`casefold(d.summary) LIKE ? ESCAPE '\'`)
		args = append(args, p, p, p)
	}
	args = append(args, candidateLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.content, COALESCE(d.summary, ''), COALESCE(c.name, ''), d.tags
		FROM knowledge_document d
		LEFT JOIN knowledge_category c ON c.id = d.category_id
		WHERE d.tenant_id = ? AND d.is_public = 1
		  AND (`+strings.Join(clauses, " OR ")+`)
		ORDER BY d.created_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("smart search candidates: %w", err)
	}
	defer rows.Close()

	var out []*RetrievedDocument
	for rows.Next() {
		var d RetrievedDocument
		var tags string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Summary, &d.Category, &tags); err != nil {
			return nil, fmt.Errorf("scan smart search candidate: %w", err)
		}
		d.Tags = decodeTags(tags)
		out = append(out, &d)
	}
	return out, rows.Err()
}
