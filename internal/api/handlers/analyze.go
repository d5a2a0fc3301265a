package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/safeboy/safeboy/internal/domain/analyze"
)

type documentAnalyzer interface {
	Analyze(ctx context.Context, in analyze.Input) (*analyze.Result, error)
}

type AnalyzeHandler struct {
	analyzer documentAnalyzer
}

func NewAnalyzeHandler(a documentAnalyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

// Analyze handles POST /api/v1/analyze-document. Model failures still answer 200 with
// the fallback analysis; only an undecodable upload is rejected.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireTenant(w, r); !ok {
		return
	}
	var in analyze.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.File == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), in)
	if err != nil {
		if errors.Is(err, analyze.ErrInvalidFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
