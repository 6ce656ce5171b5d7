package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ragchat/app/agent"
	"ragchat/app/api"
	"ragchat/config"
	"ragchat/ingest"
	"ragchat/model"
	"ragchat/retrieve"
	"ragchat/store"

	"github.com/gofiber/fiber/v2"
)

type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *fiber.App
	pool   *store.PostgresStore
}

func New(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Run wires the pipeline and serves until Stop. The store, embedder and
// LLM client are created once and shared by all requests.
func (s *Server) Run(ctx context.Context) error {
	pool, err := store.NewPostgresStore(ctx, s.cfg.VectorDBURL)
	if err != nil {
		return fmt.Errorf("connect to vector store: %w", err)
	}
	s.pool = pool

	if err := pool.Init(ctx); err != nil {
		return fmt.Errorf("init vector store schema: %w", err)
	}

	embedder, err := model.NewOpenAIEmbedder(s.cfg.OpenAIAPIKey, s.cfg.EmbeddingModel)
	if err != nil {
		return err
	}

	completer, err := model.NewOpenAIClient(s.cfg.OpenAIAPIKey, s.cfg.LLMModel, s.cfg.Temperature, s.cfg.MaxOutputTokens)
	if err != nil {
		return err
	}

	assembler, err := agent.NewAssembler(s.cfg.PromptTokenBudget)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.cfg.DocsDir, 0755); err != nil {
		return fmt.Errorf("create documents directory: %w", err)
	}

	retriever := retrieve.New(embedder, pool, s.cfg.TopK)
	ingestSvc := ingest.NewService(pool, embedder, s.cfg.DocsDir, s.cfg.ChunkSize, s.cfg.ChunkOverlap, s.cfg.BatchSize)

	if s.cfg.WatchDocs {
		watcher := ingest.NewWatcher(ingestSvc, s.cfg.DocsDir, 0)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				s.logger.Error("document watcher failed", "error", err)
			}
		}()
	}

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler: api.NewErrorHandler(s.cfg.Production()),
		})
		checkHandler  = api.NewCheckHandler()
		chatHandler   = api.NewChatHandler(retriever, completer, assembler, s.cfg.RequestBudget)
		ingestHandler = api.NewIngestHandler(ingestSvc)
		uploadHandler = api.NewUploadHandler(s.cfg.DocsDir)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/ingest", ingestHandler.HandleIngest)
	apiv1.Get("/ingest", ingestHandler.HandleStatus)
	apiv1.Post("/documents", uploadHandler.HandleUpload)

	s.logger.Info("server listening", "addr", s.cfg.ServerAddr)
	return app.Listen(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("server shutdown", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.logger.Info("server stopped")
}
