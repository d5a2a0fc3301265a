// Package handlers translates HTTP requests into domain service calls and maps domain
// errors to status codes. Every response body is JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/safeboy/safeboy/internal/api/ctxkeys"
	"github.com/safeboy/safeboy/internal/infra/logger"
)

const (
	defaultPaginationLimit = 25
	maxPaginationLimit     = 100

	// maxBodyBytes bounds request bodies; analyze-document carries base64 uploads.
	maxBodyBytes = 20 << 20
)

var errMissingTenant = errors.New("tenant_id not found in context")

type paginationParams struct {
	Limit  int
	Offset int
}

// getTenantID reads the tenant injected by AuthMiddleware.
func getTenantID(r *http.Request) (string, error) {
	id := ctxkeys.String(r.Context(), ctxkeys.TenantID)
	if id == "" {
		return "", errMissingTenant
	}
	return id, nil
}

// requireTenant writes 401 and returns false when the request carries no tenant.
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := getTenantID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing tenant")
		return "", false
	}
	return id, true
}

func parsePaginationParams(r *http.Request) paginationParams {
	limit := defaultPaginationLimit
	offset := 0

	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		limit = min(lim, maxPaginationLimit)
	}
	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		offset = off
	}
	return paginationParams{Limit: limit, Offset: offset}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Get().Warn().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// dataResponse wraps list payloads with their pagination metadata.
type dataResponse struct {
	Data any            `json:"data"`
	Meta *paginationMeta `json:"meta,omitempty"`
}

type paginationMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
