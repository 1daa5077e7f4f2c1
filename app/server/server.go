package server

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"supportbot/app/agent"
	"supportbot/app/api"
	"supportbot/config"
	"supportbot/loader"
	"supportbot/model"
	"supportbot/store"
)

type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	app      *fiber.App
	pool     *store.PostgresStore
	sessions *store.SessionStore
	mirror   *store.GCSMirror
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Stop shuts the server down and waits for in-flight session log
// mirroring before releasing the database pool.
func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error shutting down server", "error", err)
		}
	}
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.mirror != nil {
		_ = s.mirror.Close()
	}
	if s.pool != nil {
		_ = s.pool.Close()
	}
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	pool, err := store.NewPostgresStore(ctx, s.cfg.ConnString())
	if err != nil {
		log.Fatal("error to connect to Postgres database", err)
		return
	}
	s.pool = pool

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables", err)
		return
	}

	embedder := model.NewHFEmbedder(s.cfg.EmbedURL, s.cfg.Token, s.cfg.EmbedTimeout)
	endpoint := model.NewHFEndpoint(s.cfg.EndpointURL, s.cfg.Token, s.cfg.LLMTimeout)
	index := store.NewVectorIndex(pool, embedder, s.cfg.IndexBatchSize, s.cfg.IndexMaxDocs)

	if s.cfg.GCSBucket != "" {
		mirror, err := store.NewGCSMirror(ctx, s.cfg.GCSBucket, s.cfg.GCSCredentialsPath)
		if err != nil {
			log.Fatal("error to connect to GCS", err)
			return
		}
		s.mirror = mirror
	} else {
		s.logger.Info("GCS bucket not configured, cold-storage mirroring disabled")
	}

	var mirror store.Mirror
	if s.mirror != nil {
		mirror = s.mirror
	}
	sessions, err := store.NewSessionStore(s.cfg.HistoryCSV, mirror)
	if err != nil {
		log.Fatal("error to open session log", err)
		return
	}
	s.sessions = sessions

	s.seedIndex(ctx, index)

	pipeline := agent.NewPipeline(index, endpoint, sessions, s.cfg.TopK)

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler: api.ErrorHandler,
		})
		checkHandler = api.NewCheckHandler(endpoint, index)
		chatHandler  = api.NewChatHandler(pipeline, index, endpoint, sessions, s.cfg.TopK)
		apiGroup     = app.Group("/api")
	)
	s.app = app

	app.Get("/health", checkHandler.HandleLive)
	apiGroup.Get("/health", checkHandler.HandleHealthy)
	apiGroup.Post("/chat", chatHandler.HandleChat)
	apiGroup.Post("/generate_response", chatHandler.HandleGenerateResponse)
	apiGroup.Post("/new_session", chatHandler.HandleNewSession)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

// seedIndex bulk-loads the support corpus at startup when a data CSV is
// configured and present. Failures are logged, not fatal: the index may
// already be populated from a previous run.
func (s *Server) seedIndex(ctx context.Context, index *store.VectorIndex) {
	if s.cfg.DataCSVPath == "" {
		return
	}
	if _, err := os.Stat(s.cfg.DataCSVPath); err != nil {
		s.logger.Warn("data CSV not found, skipping index seeding", "path", s.cfg.DataCSVPath)
		return
	}

	docs, err := loader.LoadCSV(s.cfg.DataCSVPath)
	if err != nil {
		s.logger.Error("failed to load data CSV", "path", s.cfg.DataCSVPath, "error", err)
		return
	}
	s.logger.Info("seeding vector index", "documents", len(docs))

	if err := index.Index(ctx, docs); err != nil {
		s.logger.Error("failed to seed vector index", "error", err)
		return
	}
	if count, err := index.Health(ctx); err == nil {
		s.logger.Info("vector index ready", "documents", count)
	}
}
