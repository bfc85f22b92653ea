package loader

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ragchat/ingest"
)

// Service drives bulk ingestion from a watched folder: one goroutine
// detects settled files, another runs each through the ingestion engine and
// archives the original. Both stop on context cancellation.
type Service struct {
	logger    *slog.Logger
	engine    *ingest.Engine
	watcher   *Watcher
	namespace string
}

func New(engine *ingest.Engine, watcher *Watcher, namespace string) *Service {
	return &Service{
		logger:    slog.Default(),
		engine:    engine,
		watcher:   watcher,
		namespace: namespace,
	}
}

func (s *Service) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.watcher.Watch(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processFiles(ctx, fileChan)
	}()

	<-ctx.Done()

	// give in-flight work a moment before reporting a forced stop
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All goroutines stopped successfully")
	case <-time.After(5 * time.Second):
		log.Println("Timeout waiting for goroutines to stop, forcing shutdown...")
	}

	s.logger.Info("Loader Service stopped")
}

func (s *Service) processFiles(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case filePath, ok := <-fileChan:
			if !ok {
				return
			}
			s.ingestFile(ctx, filePath)
			s.watcher.Forget(filePath)
		}
	}
}

func (s *Service) ingestFile(ctx context.Context, filePath string) {
	log.Printf("[LOADER] processing file: %s", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		s.logger.Error("failed to read file", "path", filePath, "error", err)
		s.watcher.MoveToArchive(filePath, true)
		return
	}

	report := s.engine.IngestFiles(ctx, s.namespace, []ingest.Upload{{
		Name: filepath.Base(filePath),
		Data: data,
	}})

	failed := report.TotalAdded == 0
	for _, r := range report.Results {
		if r.Error != "" {
			s.logger.Error("ingestion failed", "source", r.Source, "error", r.Error)
		}
	}
	if !failed {
		log.Printf("[LOADER] ingested %s: %d chunks", filePath, report.TotalAdded)
	}
	s.watcher.MoveToArchive(filePath, failed)
}
