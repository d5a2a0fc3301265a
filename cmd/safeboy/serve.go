package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/safeboy/safeboy/internal/api"
	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/infra/cache"
	"github.com/safeboy/safeboy/internal/infra/config"
	"github.com/safeboy/safeboy/internal/infra/eventbus"
	"github.com/safeboy/safeboy/internal/infra/llm"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/sqlite"
	"github.com/safeboy/safeboy/internal/infra/webhook"
	"github.com/safeboy/safeboy/internal/server"
)

const expansionKeyPrefix = "safeboy:"

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DatabasePath != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sqlite.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, cfg config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	v, err := sqlite.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	logger.Get().Info().Int("version", v).Str("path", cfg.DatabasePath).Msg("migrations applied")
	return nil
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.Get()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}

	weights, err := knowledge.LoadWeights(cfg.ScoringWeightsFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.ScoringWeightsFile).Msg("scoring weights unreadable, using defaults")
	}

	expansionCache := newCache(ctx, cfg)
	defer expansionCache.Close()

	bus := eventbus.New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var notifier *webhook.Notifier
	if cfg.N8NWebhookURL != "" {
		notifier = webhook.New(cfg.N8NWebhookURL)
		notifier.Start(ctx, bus, eventbus.TopicChatCompleted, eventbus.TopicDocumentCreated)
	}

	router := api.NewRouter(api.Deps{
		DB:           db,
		LLM:          newLLM(cfg),
		Cache:        expansionCache,
		Bus:          bus,
		Weights:      weights,
		ExpansionTTL: cfg.ExpansionCacheTTL,
		PromptBudget: cfg.ChatContextTokens - cfg.LLMMaxTokens,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Host, srvCfg.Port = cfg.HTTPHost, cfg.HTTPPort
	if floor := cfg.LLMTimeout + srvCfg.ReadTimeout; srvCfg.WriteTimeout < floor {
		srvCfg.WriteTimeout = floor
	}
	// The server closes the database once requests have drained.
	err = server.NewServer(db, router, srvCfg).Start(ctx)
	cancel()
	if notifier != nil {
		notifier.Wait()
	}
	return err
}

func newLLM(cfg config.Config) llm.LLMProvider {
	providers := map[string]llm.LLMProvider{
		config.ProviderOllama: llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LLMTimeout),
	}
	if cfg.OpenAIAPIKey != "" {
		providers[config.ProviderOpenAI] = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIBaseURL,
			Model:         cfg.OpenAIModel,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			ContextTokens: cfg.ChatContextTokens,
			Timeout:       cfg.LLMTimeout,
		})
	}
	return llm.NewRouter(providers, strings.ToLower(cfg.LLMProvider))
}

// newCache connects to Redis when configured. An unreachable Redis disables caching
// instead of failing startup.
func newCache(ctx context.Context, cfg config.Config) cache.Cache {
	if cfg.RedisURL == "" {
		return cache.Noop{}
	}
	c, err := cache.NewRedisCache(ctx, cfg.RedisURL, expansionKeyPrefix)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("redis unavailable, query expansion cache disabled")
		return cache.Noop{}
	}
	return c
}
