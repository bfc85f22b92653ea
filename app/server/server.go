package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"ragchat/app/agent"
	"ragchat/app/api"
	"ragchat/ingest"
	"ragchat/model"
	"ragchat/retrieve"
	"ragchat/store"
	"ragchat/stream"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
	app        *fiber.App
	store      *store.PostgresStore
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error during shutdown", "error", err.Error())
		}
	}
	if s.store != nil {
		s.store.Close()
	}
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	mustHaveEnvVariables("PG_HOST", "PG_PORT", "PG_USER", "PG_PASS", "PG_DB_NAME", "OLLAMA_BASE_URL")

	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
		return
	}
	s.store = pool

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables ", err)
		return
	}

	var (
		ollamaBaseURL = os.Getenv("OLLAMA_BASE_URL")
		embedModel    = envOr("EMBED_MODEL", "nomic-embed-text")
		llmModel      = envOr("LLM_MODEL", "llama3.2")
		namespace     = os.Getenv("RAG_NAMESPACE")
		chunkSize, _  = strconv.Atoi(os.Getenv("CHUNK_SIZE"))
		overlap, _    = strconv.Atoi(os.Getenv("CHUNK_OVERLAP"))

		embedder     = model.NewOllamaEmbedder(ollamaBaseURL, embedModel)
		generator    = agent.NewGenerator(ollamaBaseURL, llmModel)
		transport    = stream.TransportFor(os.Getenv("STREAM_FORMAT"))
		ingestEngine = ingest.NewEngine(pool, embedder, model.NewPDFExtractor(), model.NewWebExtractor(), chunkSize, overlap)
		index        = retrieve.NewBruteForce(pool, namespace)
		retriever    = retrieve.NewEngine(embedder, index)

		app              = fiber.New(config)
		checkHandler     = api.NewCheckHandler()
		questionsHandler = api.NewQuestionsHandler()
		embedHandler     = api.NewEmbedHandler(ingestEngine)
		chatHandler      = api.NewChatHandler(retriever, generator, pool, transport)
		convHandler      = api.NewConversationHandler(pool)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/embed", embedHandler.HandleEmbed)
	apiv1.Post("/embed/url", embedHandler.HandleEmbedURL)
	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Get("/questions", questionsHandler.HandleQuestions)
	apiv1.Post("/conversations", convHandler.HandleCreate)
	apiv1.Get("/conversations/:id", convHandler.HandleGet)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

func mustHaveEnvVariables(keys ...string) {
	for _, key := range keys {
		if os.Getenv(key) == "" {
			log.Fatalf("missing required environment variable %s", key)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
