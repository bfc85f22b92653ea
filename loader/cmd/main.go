package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ragchat/ingest"
	"ragchat/loader"
	"ragchat/model"
	"ragchat/store"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	ctx := context.Background()
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
		return
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables ", err)
		return
	}

	embedder := model.NewOllamaEmbedder(os.Getenv("OLLAMA_BASE_URL"), envOr("EMBED_MODEL", "nomic-embed-text"))
	chunkSize, _ := strconv.Atoi(os.Getenv("CHUNK_SIZE"))
	overlap, _ := strconv.Atoi(os.Getenv("CHUNK_OVERLAP"))
	engine := ingest.NewEngine(pool, embedder, model.NewPDFExtractor(), model.NewWebExtractor(), chunkSize, overlap)

	settle, _ := strconv.Atoi(os.Getenv("LOADER_SETTLE_SECONDS"))
	watcher, err := loader.NewWatcher(loader.Config{
		SourceDir:  envOr("LOADER_SOURCE_DIR", "loader_data/source"),
		ArchiveDir: envOr("LOADER_ARCHIVE_DIR", "loader_data/archive"),
		BadDir:     envOr("LOADER_BAD_DIR", "loader_data/bad"),
		SettleTime: time.Duration(settle) * time.Second,
	})
	if err != nil {
		log.Fatal("error to prepare loader directories ", err)
		return
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	namespace := envOr("LOADER_NAMESPACE", "documents")
	loader.New(engine, watcher, namespace).Run(runCtx)
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
