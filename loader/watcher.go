package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds the directory layout and timing of the folder watcher.
// Files land in SourceDir, move to ArchiveDir on success and BadDir on
// failure.
type Config struct {
	SourceDir  string
	ArchiveDir string
	BadDir     string
	// SettleTime is how long a file must stay unmodified before it is
	// considered fully written and picked up.
	SettleTime time.Duration
}

// Watcher polls the source directory and emits paths of files that have
// settled. A file is tracked from first sight; once it has been present
// longer than SettleTime it is handed to the channel exactly once.
type Watcher struct {
	cfg Config

	mu         sync.Mutex
	firstSeen  map[string]time.Time
	processing map[string]bool
}

func NewWatcher(cfg Config) (*Watcher, error) {
	for _, dir := range []string{cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if cfg.SettleTime <= 0 {
		cfg.SettleTime = 2 * time.Second
	}
	return &Watcher{
		cfg:        cfg,
		firstSeen:  make(map[string]time.Time),
		processing: make(map[string]bool),
	}, nil
}

func (w *Watcher) Watch(ctx context.Context, fileChan chan<- string) {
	fmt.Printf("Start monitoring folder: %s\n", w.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer fmt.Println("File watcher stopped and cleaned up")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			files, err := os.ReadDir(w.cfg.SourceDir)
			if err != nil {
				fmt.Printf("error while reading source directory: %s\n", err)
				continue
			}

			currentFiles := make(map[string]bool)
			for _, file := range files {
				if file.IsDir() {
					continue
				}

				filePath := filepath.Join(w.cfg.SourceDir, file.Name())
				currentFiles[filePath] = true

				w.mu.Lock()
				if w.processing[filePath] {
					w.mu.Unlock()
					continue
				}
				if _, exists := w.firstSeen[filePath]; !exists {
					w.firstSeen[filePath] = time.Now()
					fmt.Printf("New file detected: %s\n", filePath)
					w.mu.Unlock()
					continue
				}
				firstSeen := w.firstSeen[filePath]
				w.mu.Unlock()

				if time.Since(firstSeen) <= w.cfg.SettleTime {
					continue
				}

				w.mu.Lock()
				w.processing[filePath] = true
				w.mu.Unlock()

				select {
				case fileChan <- filePath:
				case <-ctx.Done():
					return
				}
			}

			// drop tracking state for files that disappeared
			w.mu.Lock()
			for filePath := range w.firstSeen {
				if !currentFiles[filePath] {
					delete(w.firstSeen, filePath)
					delete(w.processing, filePath)
				}
			}
			w.mu.Unlock()
		}
	}
}

// Forget releases tracking state so a re-dropped copy of the same file gets
// processed again.
func (w *Watcher) Forget(filePath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.processing, filePath)
	delete(w.firstSeen, filePath)
}

// MoveToArchive moves a processed file out of the source directory into a
// dated subfolder of the archive (or bad) directory, deduplicating names.
func (w *Watcher) MoveToArchive(filePath string, failed bool) {
	destRoot := w.cfg.ArchiveDir
	if failed {
		destRoot = w.cfg.BadDir
	}

	destDir := filepath.Join(destRoot, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		fmt.Printf("error creating directory: %s\n", err)
		return
	}

	destPath := filepath.Join(destDir, filepath.Base(filePath))
	counter := 1
	for {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(filePath)
		baseName := strings.TrimSuffix(filepath.Base(filePath), ext)
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
		counter++
	}

	// copy then remove; a rename would fail across filesystems
	in, err := os.Open(filePath)
	if err != nil {
		fmt.Printf("error open file: %s\n", err)
		return
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		fmt.Printf("error create file: %s\n", err)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		fmt.Printf("error moving file to archive: %s\n", err)
		return
	}

	in.Close()
	os.Remove(filePath)
	fmt.Printf("File moved to archive: %s\n", destPath)
}
