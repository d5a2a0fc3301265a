package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/safeboy/safeboy/internal/domain/chat"
	"github.com/safeboy/safeboy/internal/domain/conversation"
)

type chatReplier interface {
	Reply(ctx context.Context, tenantID string, in chat.Input) (*chat.Output, error)
}

type ChatHandler struct {
	chat chatReplier
}

func NewChatHandler(svc chatReplier) *ChatHandler {
	return &ChatHandler{chat: svc}
}

type ChatRequest struct {
	Message             string              `json:"message"`
	ConversationHistory []chat.HistoryEntry `json:"conversationHistory"`
	KnowledgeBase       string              `json:"knowledgeBase"`
	ConversationID      string              `json:"conversationId"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type chatErrorResponse struct {
	Error            string `json:"error"`
	FallbackResponse string `json:"fallbackResponse"`
}

// Reply handles POST /api/v1/chat-ai.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.chat.Reply(r.Context(), tenantID, chat.Input{
		Message:        req.Message,
		History:        req.ConversationHistory,
		KnowledgeBase:  req.KnowledgeBase,
		ConversationID: req.ConversationID,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ChatResponse{Response: out.Response})
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeJSON(w, http.StatusInternalServerError, chatErrorResponse{
			Error:            err.Error(),
			FallbackResponse: chat.FallbackResponse,
		})
	}
}
