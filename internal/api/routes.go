package api

import (
	"database/sql"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safeboy/safeboy/internal/api/handlers"
	apimcp "github.com/safeboy/safeboy/internal/api/mcp"
	apmiddleware "github.com/safeboy/safeboy/internal/api/middleware"
	"github.com/safeboy/safeboy/internal/domain/analyze"
	domainaudit "github.com/safeboy/safeboy/internal/domain/audit"
	domainauth "github.com/safeboy/safeboy/internal/domain/auth"
	"github.com/safeboy/safeboy/internal/domain/chat"
	"github.com/safeboy/safeboy/internal/domain/conversation"
	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/domain/persona"
	"github.com/safeboy/safeboy/internal/infra/cache"
	"github.com/safeboy/safeboy/internal/infra/eventbus"
	"github.com/safeboy/safeboy/internal/infra/llm"
)

// Deps are the long-lived resources the router wires its services from.
// Cache and Bus may be nil.
type Deps struct {
	DB           *sql.DB
	LLM          llm.LLMProvider
	Cache        cache.Cache
	Bus          eventbus.EventBus
	Weights      knowledge.Weights
	ExpansionTTL time.Duration
	// PromptBudget caps the assembled chat prompt in tokens; <= 0 disables trimming.
	PromptBudget int
}

// NewRouter builds the HTTP surface: public /health, /metrics and /auth, and the
// JWT-protected /api/v1 tree.
func NewRouter(d Deps) *chi.Mux {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	db := d.DB
	auditService := domainaudit.NewAuditService(db)

	conversations := conversation.NewService(db)
	personas := persona.NewService(db, auditService)
	documents := knowledge.NewDocumentService(db, d.Bus)
	sources := knowledge.NewSources(knowledge.NewDocumentSource(db), knowledge.NewWhatsAppSource(db))
	smart := knowledge.NewSmartSearch(db,
		knowledge.NewExpander(d.LLM, d.Cache, d.ExpansionTTL),
		knowledge.NewScorer(d.Weights))
	chatService := chat.NewService(sources, personas, conversations, d.LLM, d.Bus, chat.Config{PromptBudget: d.PromptBudget})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	health := handlers.NewHealthHandler(
		map[string]handlers.Pinger{"database": db.PingContext},
		map[string]handlers.Pinger{"cache": d.Cache.Ping, "llm": d.LLM.HealthCheck},
	)
	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handlers.NewAuthHandler(domainauth.NewAuthServiceWithAudit(db, auditService))
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware)
		r.Use(apmiddleware.AuditMiddleware(auditService))

		r.Post("/chat-ai", handlers.NewChatHandler(chatService).Reply)
		r.Post("/smart-search", handlers.NewSmartSearchHandler(smart).Search)
		r.Post("/analyze-document", handlers.NewAnalyzeHandler(analyze.NewAnalyzer(d.LLM)).Analyze)
		r.Handle("/mcp", apimcp.NewHandler(sources, smart))

		kh := handlers.NewKnowledgeHandler(documents)
		r.Route("/knowledge", func(r chi.Router) {
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", kh.CreateDocument)
				r.Get("/", kh.ListDocuments)
				r.Get("/{id}", kh.GetDocument)
				r.Put("/{id}", kh.UpdateDocument)
				r.Delete("/{id}", kh.DeleteDocument)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Post("/", kh.CreateCategory)
				r.Get("/", kh.ListCategories)
			})
		})

		ch := handlers.NewConversationHandler(conversations)
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", ch.Create)
			r.Get("/", ch.List)
			r.Get("/{id}", ch.Get)
			r.Delete("/{id}", ch.Delete)
			r.Get("/{id}/messages", ch.ListMessages)
			r.Post("/{id}/messages", ch.AppendMessage)
		})
		r.Put("/messages/{id}/tags", ch.SetTags)

		ph := handlers.NewPersonaHandler(personas)
		r.Route("/chatbot-instructions", func(r chi.Router) {
			r.Get("/", ph.List)
			r.Put("/", ph.Save)
			r.Post("/", ph.Create)
			r.Get("/active", ph.GetActive)
			r.Post("/{id}/activate", ph.Activate)
		})
	})

	return r
}
