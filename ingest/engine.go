package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"ragchat/model"
	"ragchat/types"
)

// Upserter is the slice of the chunk store the engine needs: write chunks
// keyed by their id.
type Upserter interface {
	UpsertChunks(ctx context.Context, chunks []types.Chunk) error
}

// FileExtractor turns an uploaded byte buffer into page texts.
type FileExtractor interface {
	Extract(data []byte) (*model.Document, error)
}

// PageFetcher retrieves and extracts a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Document, error)
}

// Upload is one named file buffer to ingest. Namespace overrides the batch
// namespace when set.
type Upload struct {
	Name      string
	Data      []byte
	Namespace string
}

// Engine runs the ingestion pipeline for files and URLs. Sources are
// processed sequentially and independently: one source failing is recorded
// in its result entry and never aborts its siblings.
type Engine struct {
	store     Upserter
	embedder  model.Embedder
	extractor FileExtractor
	fetcher   PageFetcher
	logger    *slog.Logger

	chunkSize    int
	chunkOverlap int
}

func NewEngine(store Upserter, embedder model.Embedder, extractor FileExtractor, fetcher PageFetcher, chunkSize, chunkOverlap int) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Engine{
		store:        store,
		embedder:     embedder,
		extractor:    extractor,
		fetcher:      fetcher,
		logger:       slog.Default(),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestFiles embeds one or more uploaded documents into namespace.
func (e *Engine) IngestFiles(ctx context.Context, namespace string, uploads []Upload) types.IngestReport {
	report := types.IngestReport{
		ChunkSize:    e.chunkSize,
		ChunkOverlap: e.chunkOverlap,
		Results:      []types.SourceResult{},
	}

	for _, up := range uploads {
		ns := up.Namespace
		if ns == "" {
			ns = namespace
		}

		doc, err := e.extractor.Extract(up.Data)
		if err != nil {
			e.logger.Error("embedding failed for source", "source", up.Name, "error", err)
			report.Results = append(report.Results, types.SourceResult{
				Source: up.Name, Namespace: ns, Added: 0, Error: err.Error(),
			})
			continue
		}

		added, err := e.embedDocument(ctx, doc, ns, types.Metadata{
			Source:    up.Name,
			Namespace: ns,
		})
		if err != nil {
			e.logger.Error("embedding failed for source", "source", up.Name, "error", err)
			report.Results = append(report.Results, types.SourceResult{
				Source: up.Name, Namespace: ns, Added: 0, Error: err.Error(),
			})
			continue
		}

		report.TotalAdded += added
		report.Results = append(report.Results, types.SourceResult{
			Source:    up.Name,
			Namespace: ns,
			Added:     added,
			Pages:     len(doc.Pages),
		})
	}
	return report
}

// IngestURLs fetches, extracts and embeds one or more web pages. Every URL
// must already have passed ValidateURL.
func (e *Engine) IngestURLs(ctx context.Context, namespace string, urls []string) types.IngestReport {
	report := types.IngestReport{
		ChunkSize:    e.chunkSize,
		ChunkOverlap: e.chunkOverlap,
		Results:      []types.SourceResult{},
	}

	for _, u := range urls {
		doc, err := e.fetcher.Fetch(ctx, u)
		if err != nil {
			e.logger.Error("embedding failed for url", "url", u, "error", err)
			report.Results = append(report.Results, types.SourceResult{
				URL: u, Namespace: namespace, Added: 0, Error: err.Error(),
			})
			continue
		}

		added, err := e.embedDocument(ctx, doc, namespace, types.Metadata{
			Source:    u,
			Namespace: namespace,
			Title:     doc.Title,
			URL:       u,
		})
		if err != nil {
			e.logger.Error("embedding failed for url", "url", u, "error", err)
			report.Results = append(report.Results, types.SourceResult{
				URL: u, Namespace: namespace, Added: 0, Error: err.Error(),
			})
			continue
		}

		report.TotalAdded += added
		report.Results = append(report.Results, types.SourceResult{
			URL:       u,
			Namespace: namespace,
			Added:     added,
			Chunks:    added,
			Title:     doc.Title,
		})
	}
	return report
}

// embedDocument runs normalize -> split -> ids -> embed -> upsert for one
// extracted document and returns the number of chunks written.
func (e *Engine) embedDocument(ctx context.Context, doc *model.Document, namespace string, meta types.Metadata) (int, error) {
	type span struct {
		text string
		page int
	}

	var spans []span
	for _, page := range doc.Pages {
		normalized := Normalize(page.Text)
		for _, text := range Split(normalized, e.chunkSize, e.chunkOverlap) {
			spans = append(spans, span{text: text, page: page.Number})
		}
	}

	blank := true
	for _, s := range spans {
		if strings.TrimSpace(s.text) != "" {
			blank = false
			break
		}
	}
	if blank {
		return 0, fmt.Errorf("no extractable text from source")
	}

	ids := BuildIDs(len(spans), namespace)

	chunks := make([]types.Chunk, 0, len(spans))
	for i, s := range spans {
		embedding, err := e.embedder.Embed(ctx, s.text)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		m := meta
		m.Page = s.page
		chunks = append(chunks, types.Chunk{
			ID:        ids[i],
			Text:      s.text,
			Embedding: embedding,
			Metadata:  m,
		})
	}

	if err := e.store.UpsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return len(chunks), nil
}

// ValidateURL accepts only absolute http/https URLs and returns the
// normalized form. Everything else (file:, ftp:, javascript:, relative
// paths) is rejected before any fetch happens.
func ValidateURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// ValidateURLs filters a list down to the valid entries, order preserved.
func ValidateURLs(raw []string) []string {
	var out []string
	for _, r := range raw {
		if v, ok := ValidateURL(r); ok {
			out = append(out, v)
		}
	}
	return out
}
