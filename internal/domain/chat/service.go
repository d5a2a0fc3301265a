// Package chat runs one retrieval-augmented chat turn: retrieve from the selected knowledge
// source, assemble the prompt, call the model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safeboy/safeboy/internal/domain/conversation"
	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/domain/persona"
	"github.com/safeboy/safeboy/internal/infra/eventbus"
	"github.com/safeboy/safeboy/internal/infra/llm"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/metrics"
)

// FallbackResponse is shown to the user when the model call fails.
const FallbackResponse = "Desculpe, estou com dificuldades técnicas no momento. Por favor, tente novamente em alguns instantes."

var ErrEmptyMessage = errors.New("message is required")

type PersonaStore interface {
	GetActive(ctx context.Context, tenantID string) (*persona.Instruction, error)
}

// ConversationStore persists turns when the client names a conversation.
type ConversationStore interface {
	Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, tenantID, conversationID, content string, isUser bool) (*conversation.Message, error)
}

type Input struct {
	Message        string
	History        []HistoryEntry
	KnowledgeBase  string
	ConversationID string
}

type Output struct {
	Response string
	Mode     knowledge.Mode
	Records  int
}

// CompletedPayload is published on eventbus.TopicChatCompleted.
type CompletedPayload struct {
	Mode           knowledge.Mode `json:"mode"`
	Records        int            `json:"records"`
	ConversationID string         `json:"conversationId,omitempty"`
	Message        string         `json:"message"`
	Response       string         `json:"response"`
}

type Config struct {
	// PromptBudget is the token allowance for the assembled prompt; <= 0 disables trimming.
	PromptBudget int
}

type Service struct {
	sources       *knowledge.Sources
	personas      PersonaStore
	conversations ConversationStore
	llm           llm.LLMProvider
	bus           eventbus.EventBus
	cfg           Config
}

// NewService wires the pipeline. conversations and bus may be nil.
func NewService(sources *knowledge.Sources, personas PersonaStore, conversations ConversationStore,
	provider llm.LLMProvider, bus eventbus.EventBus, cfg Config) *Service {
	return &Service{
		sources:       sources,
		personas:      personas,
		conversations: conversations,
		llm:           provider,
		bus:           bus,
		cfg:           cfg,
	}
}

// Reply answers in.Message for tenantID. Retrieval and persona lookups degrade silently;
// only validation, an unknown conversation and the model call itself can fail.
func (s *Service) Reply(ctx context.Context, tenantID string, in Input) (*Output, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if in.ConversationID != "" && s.conversations != nil {
		if _, err := s.conversations.Get(ctx, tenantID, in.ConversationID); err != nil {
			return nil, err
		}
	}

	log := logger.Get().With().Str("tenant_id", tenantID).Logger()
	mode := knowledge.ParseMode(in.KnowledgeBase)
	src := s.sources.For(mode)

	records, err := src.Search(ctx, tenantID, in.Message)
	if err != nil {
		log.Warn().Err(err).Str("source", src.Name()).Msg("knowledge retrieval failed, answering without context")
		metrics.RetrievalFailuresTotal.WithLabelValues(src.Name()).Inc()
		records = nil
	}

	active, err := s.personas.GetActive(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, persona.ErrNotFound) {
			log.Warn().Err(err).Msg("persona lookup failed, using default persona")
		}
		active = nil
	}

	msgs := BuildMessages(PromptInput{
		Mode:    mode,
		Records: records,
		Persona: active,
		History: in.History,
		Message: in.Message,
	})
	if trimmed := TrimToBudget(msgs, s.cfg.PromptBudget); len(trimmed) < len(msgs) {
		log.Debug().Int("dropped", len(msgs)-len(trimmed)).Msg("history trimmed to prompt budget")
		msgs = trimmed
	}

	started := time.Now()
	resp, err := s.llm.ChatCompletion(ctx, llm.ChatRequest{Messages: msgs})
	metrics.ObserveLLMCall("chat", started, err)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	s.persist(ctx, tenantID, in, resp.Content)
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicChatCompleted, tenantID, CompletedPayload{
			Mode:           mode,
			Records:        len(records),
			ConversationID: in.ConversationID,
			Message:        in.Message,
			Response:       resp.Content,
		})
	}
	return &Output{Response: resp.Content, Mode: mode, Records: len(records)}, nil
}

func (s *Service) persist(ctx context.Context, tenantID string, in Input, answer string) {
	if in.ConversationID == "" || s.conversations == nil {
		return
	}
	for _, turn := range []struct {
		content string
		isUser  bool
	}{{in.Message, true}, {answer, false}} {
		if _, err := s.conversations.AppendMessage(ctx, tenantID, in.ConversationID, turn.content, turn.isUser); err != nil {
			logger.Get().Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("persist chat turn failed")
			return
		}
	}
}
