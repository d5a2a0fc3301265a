package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeboy/safeboy/internal/domain/knowledge"
)

type KnowledgeHandler struct {
	docs *knowledge.DocumentService
}

func NewKnowledgeHandler(docs *knowledge.DocumentService) *KnowledgeHandler {
	return &KnowledgeHandler{docs: docs}
}

type DocumentRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    *string  `json:"summary"`
	CategoryID *string  `json:"categoryId"`
	Tags       []string `json:"tags"`
	IsPublic   bool     `json:"isPublic"`
}

func (req DocumentRequest) input() knowledge.DocumentInput {
	return knowledge.DocumentInput{
		Title:      req.Title,
		Content:    req.Content,
		Summary:    req.Summary,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
		IsPublic:   req.IsPublic,
	}
}

type CategoryRequest struct {
	Name string `json:"name"`
}

func (h *KnowledgeHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.docs.Create(r.Context(), tenantID, req.input())
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *KnowledgeHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	page := parsePaginationParams(r)
	docs, total, err := h.docs.List(r.Context(), tenantID, knowledge.ListDocumentsInput{
		Limit:      page.Limit,
		Offset:     page.Offset,
		CategoryID: r.URL.Query().Get("categoryId"),
	})
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{
		Data: docs,
		Meta: &paginationMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (h *KnowledgeHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *KnowledgeHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req DocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.docs.Update(r.Context(), tenantID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *KnowledgeHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.docs.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		writeKnowledgeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KnowledgeHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cat, err := h.docs.CreateCategory(r.Context(), tenantID, req.Name)
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (h *KnowledgeHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	cats, err := h.docs.ListCategories(r.Context(), tenantID)
	if err != nil {
		writeKnowledgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: cats})
}

func writeKnowledgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, knowledge.ErrTitleRequired),
		errors.Is(err, knowledge.ErrNameRequired),
		errors.Is(err, knowledge.ErrCategoryNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, knowledge.ErrCategoryExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "knowledge base request failed")
	}
}
