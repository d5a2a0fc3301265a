package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/safeboy/safeboy/internal/domain/knowledge"
)

type smartSearcher interface {
	Search(ctx context.Context, tenantID, query string) (*knowledge.SmartSearchResult, error)
}

type SmartSearchHandler struct {
	search smartSearcher
}

func NewSmartSearchHandler(search smartSearcher) *SmartSearchHandler {
	return &SmartSearchHandler{search: search}
}

type SmartSearchRequest struct {
	Query string `json:"query"`
}

// smartSearchResponse keeps the success shape on failures so clients can render it unchanged.
type smartSearchResponse struct {
	Results       []*knowledge.RetrievedDocument `json:"results"`
	ExpandedTerms []string                       `json:"expandedTerms"`
	TotalFound    int                            `json:"totalFound"`
	Error         string                         `json:"error,omitempty"`
}

func emptySearch(msg string) smartSearchResponse {
	return smartSearchResponse{
		Results:       []*knowledge.RetrievedDocument{},
		ExpandedTerms: []string{},
		Error:         msg,
	}
}

// Search handles POST /api/v1/smart-search.
func (h *SmartSearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req SmartSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, emptySearch("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, emptySearch("query is required"))
		return
	}

	res, err := h.search.Search(r.Context(), tenantID, req.Query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, emptySearch(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, smartSearchResponse{
		Results:       res.Results,
		ExpandedTerms: res.ExpandedTerms,
		TotalFound:    res.TotalFound,
	})
}
