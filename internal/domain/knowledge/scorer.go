package knowledge

import (
	"sort"
	"strings"
)

// Scorer ranks smart-search candidates. Matching is case-insensitive substring
// containment; a tag matches when the tag contains the term.
type Scorer struct {
	w Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Score computes the additive relevance of d for query and its expansion terms.
func (s *Scorer) Score(d *RetrievedDocument, query string, expanded []string) float64 {
	var score float64
	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" {
		score += s.fieldScore(d, q, s.w.QueryTitle, s.w.QuerySummary, s.w.QueryContent, s.w.QueryTag)
		if containsFold(d.Category, q) {
			score += s.w.QueryCategory
		}
	}
	for _, term := range expanded {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		score += s.fieldScore(d, t, s.w.ExpandedTitle, s.w.ExpandedSummary, s.w.ExpandedContent, s.w.ExpandedTag)
	}
	return score
}

func (s *Scorer) fieldScore(d *RetrievedDocument, term string, title, summary, content, tag float64) float64 {
	var score float64
	if containsFold(d.Title, term) {
		score += title
	}
	if containsFold(d.Summary, term) {
		score += summary
	}
	if containsFold(d.Content, term) {
		score += content
	}
	for _, tg := range d.Tags {
		if containsFold(tg, term) {
			score += tag
		}
	}
	return score
}

// Rank scores every document, drops zero scores, and returns at most limit entries
// sorted by descending score. Ties keep the input order.
func (s *Scorer) Rank(docs []*RetrievedDocument, query string, expanded []string, limit int) []*RetrievedDocument {
	out := make([]*RetrievedDocument, 0, len(docs))
	for _, d := range docs {
		d.Score = s.Score(d, query, expanded)
		if d.Score > 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// containsFold reports whether lowerTerm (already lower-cased) occurs in s ignoring case.
func containsFold(s, lowerTerm string) bool {
	if s == "" || lowerTerm == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), lowerTerm)
}
