package knowledge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/safeboy/safeboy/internal/infra/cache"
	"github.com/safeboy/safeboy/internal/infra/llm"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/metrics"
)

const (
	expansionKeyPrefix   = "expansion:v1:"
	expansionTemperature = 0.3
	expansionMaxTokens   = 150
)

const expansionSystemPrompt = `Você é um especialista em segurança do trabalho. ` +
	`Gere termos relacionados e sinônimos para a busca do usuário no contexto de segurança do trabalho, ` +
	`normas regulamentadoras (NRs), EPIs e prevenção de acidentes. ` +
	`Responda apenas com os termos separados por vírgula, sem numeração nem explicações.`

// Expander asks the model for related search terms. It never fails: any model or cache
// problem yields an empty or uncached expansion.
type Expander struct {
	llm   llm.LLMProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewExpander wires the expander; a nil cache disables caching.
func NewExpander(provider llm.LLMProvider, c cache.Cache, ttl time.Duration) *Expander {
	if c == nil {
		c = cache.Noop{}
	}
	return &Expander{llm: provider, cache: c, ttl: ttl}
}

// Expand returns the related terms for query, possibly empty.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	norm := normalizeQuery(query)
	if norm == "" {
		return []string{}
	}
	key := expansionKeyPrefix + norm

	if cached, err := e.cache.Get(ctx, key); err == nil {
		metrics.ExpansionCacheTotal.WithLabelValues("hit").Inc()
		return splitTerms(cached)
	} else if !errors.Is(err, cache.ErrMiss) {
		metrics.ExpansionCacheTotal.WithLabelValues("error").Inc()
		logger.Get().Debug().Err(err).Msg("expansion cache read failed")
	} else {
		metrics.ExpansionCacheTotal.WithLabelValues("miss").Inc()
	}

	started := time.Now()
	resp, err := e.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: expansionSystemPrompt},
			{Role: llm.RoleUser, Content: "Busca: " + strings.TrimSpace(query)},
		},
		Temperature: expansionTemperature,
		MaxTokens:   expansionMaxTokens,
	})
	metrics.ObserveLLMCall("expander", started, err)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("query expansion failed, searching raw query only")
		return []string{}
	}

	terms := splitTerms(resp.Content)
	if len(terms) > 0 {
		if err := e.cache.Set(ctx, key, strings.Join(terms, ","), e.ttl); err != nil {
			logger.Get().Debug().Err(err).Msg("expansion cache write failed")
		}
	}
	return terms
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// splitTerms splits a comma-separated model answer, trimming and dropping empties.
func splitTerms(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
