package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/auth"
	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
	"github.com/Luizbragga/rag-faq-bot/internal/config"
	"github.com/Luizbragga/rag-faq-bot/internal/embedder"
	"github.com/Luizbragga/rag-faq-bot/internal/ingestion"
	"github.com/Luizbragga/rag-faq-bot/internal/llm"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
	"github.com/Luizbragga/rag-faq-bot/internal/repository/postgres"
	"github.com/Luizbragga/rag-faq-bot/internal/reranker"
	"github.com/Luizbragga/rag-faq-bot/internal/retrieval"
	"github.com/Luizbragga/rag-faq-bot/internal/server"
	"github.com/Luizbragga/rag-faq-bot/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting FAQ bot service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"chunk_store", cfg.ChunkStore,
	)

	// Initialize PostgreSQL and metadata schema
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepo(db)
	documentRepo := postgres.NewDocumentRepo(db)
	qaLogRepo := postgres.NewQALogRepo(db)

	// The Postgres chunk store is always present: it serves lexical
	// candidates and embedding backfill even when Qdrant holds the vectors.
	pgChunks, err := chunkstore.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create chunk store: %w", err)
	}
	defer pgChunks.Close()
	if err := pgChunks.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate chunk store: %w", err)
	}

	var chunks chunkstore.Store = pgChunks
	switch cfg.ChunkStore {
	case "postgres":
		// Dense and lexical both from Postgres.
	case "qdrant":
		qdrantStore, err := chunkstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		defer qdrantStore.Close()
		slog.Info("connected to Qdrant")
		chunks = &chunkstore.Composite{Dense: qdrantStore, Lexical: pgChunks}
	default:
		return fmt.Errorf("unknown chunk store backend %q", cfg.ChunkStore)
	}

	// Initialize embeddings provider
	var embed embedder.Embedder
	switch cfg.EmbeddingsProvider {
	case "jina":
		embed = embedder.NewJinaEmbedder(embedder.JinaConfig{APIKey: cfg.JinaAPIKey})
	case "openai":
		embed = embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
	default:
		return fmt.Errorf("unknown embeddings provider %q", cfg.EmbeddingsProvider)
	}
	slog.Info("initialized embedder", "provider", cfg.EmbeddingsProvider, "model", embed.ModelName())

	// Retrieval engine; the reranker is optional and fail-soft.
	engineOpts := []retrieval.Option{
		retrieval.WithLogger(slog.Default()),
		retrieval.WithDefaultParams(retrieval.Params{
			K:          cfg.DefaultTopK,
			DenseLimit: cfg.DenseLimit,
			BM25Limit:  cfg.BM25Limit,
			MaxPerDoc:  cfg.MaxPerDoc,
		}),
	}
	if cfg.JinaAPIKey != "" {
		engineOpts = append(engineOpts,
			retrieval.WithReranker(reranker.NewJinaReranker(reranker.JinaConfig{APIKey: cfg.JinaAPIKey})),
			retrieval.WithRerankTimeout(cfg.RerankTimeout),
		)
		slog.Info("reranker enabled")
	}
	engine := retrieval.NewEngine(embed, chunks, documentRepo, engineOpts...)

	// LLM is optional; without a key the chat falls back to extractive
	// answers over the retrieved passages.
	var llmClient llm.LLM
	if cfg.GroqAPIKey != "" {
		llmClient, err = llm.NewGroqLLM(cfg.GroqAPIKey, cfg.GroqModel)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		slog.Info("initialized Groq LLM", "model", cfg.GroqModel)
	} else {
		slog.Info("no GROQ_API_KEY set, chat uses extractive answers")
	}

	if err := ensureDefaultTenant(ctx, tenantRepo, cfg); err != nil {
		return fmt.Errorf("failed to ensure default tenant: %w", err)
	}

	// Initialize services
	searchSvc := service.NewSearchService(engine, tenantRepo)
	chatSvc := service.NewChatService(searchSvc, llmClient, qaLogRepo, cfg.GroqModel, slog.Default())
	feedbackSvc := service.NewFeedbackService(qaLogRepo)
	metricsSvc := service.NewMetricsService(qaLogRepo, documentRepo, pgChunks)
	backfillSvc := service.NewBackfillService(pgChunks, embed, slog.Default())
	pipeline := ingestion.NewPipeline(ingestion.NewChunker(ingestion.ChunkerConfig{}), embed, chunks, documentRepo, slog.Default())

	// API-key auth is enforced outside development so local runs stay
	// curl-friendly.
	var apiKeyAuth *auth.APIKeyAuth
	if cfg.Environment != "development" {
		apiKeyAuth = auth.NewAPIKeyAuth(tenantRepo)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Expiry = cfg.JWTExpiry
	jwtManager := auth.NewJWTManager(jwtConfig)

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production

		Search:   searchSvc,
		Chat:     chatSvc,
		Feedback: feedbackSvc,
		Metrics:  metricsSvc,
		Backfill: backfillSvc,
		Pipeline: pipeline,
		Docs:     documentRepo,

		Auth:          apiKeyAuth,
		JWT:           jwtManager,
		AdminAPIKey:   cfg.AdminAPIKey,
		DefaultTenant: cfg.DefaultTenant,
		Ready: func(ctx context.Context) error {
			return db.Pool.Ping(ctx)
		},
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// ensureDefaultTenant creates the configured default tenant on first boot so
// ingestion and chat work out of the box.
func ensureDefaultTenant(ctx context.Context, tenants repository.TenantRepository, cfg *config.Config) error {
	_, err := tenants.GetByID(ctx, cfg.DefaultTenant)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	tenant := &repository.Tenant{
		ID:     cfg.DefaultTenant,
		Name:   cfg.DefaultTenant,
		APIKey: uuid.NewString(),
		Config: repository.TenantConfig{
			TopK:            cfg.DefaultTopK,
			MaxPerDoc:       cfg.MaxPerDoc,
			RerankerEnabled: true,
		},
	}
	if err := tenants.Create(ctx, tenant); err != nil {
		return err
	}
	slog.Info("created default tenant", "tenant", tenant.ID, "api_key", tenant.APIKey)
	return nil
}
