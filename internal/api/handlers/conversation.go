package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeboy/safeboy/internal/domain/conversation"
)

type ConversationHandler struct {
	conversations *conversation.Service
}

func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{conversations: svc}
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type AppendMessageRequest struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

type SetTagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req CreateConversationRequest
	// An empty body is allowed; the conversation gets the default title.
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	c, err := h.conversations.Create(r.Context(), tenantID, req.Title)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	list, err := h.conversations.List(r.Context(), tenantID)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: list})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	c, err := h.conversations.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	if err := h.conversations.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		writeConversationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	msgs, err := h.conversations.ListMessages(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: msgs})
}

func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req AppendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := h.conversations.AppendMessage(r.Context(), tenantID, chi.URLParam(r, "id"), req.Content, req.IsUser)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// SetTags handles PUT /api/v1/messages/{id}/tags.
func (h *ConversationHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req SetTagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := h.conversations.SetTags(r.Context(), tenantID, chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func writeConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, conversation.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, conversation.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "conversation request failed")
	}
}
