package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ragchat/model"
	"ragchat/types"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	chunks []types.Chunk
	err    error
}

func (s *fakeStore) UpsertChunks(ctx context.Context, chunks []types.Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

type fakeEmbedder struct{ err error }

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// fakeExtractor treats the upload bytes as plain text, one page per
// form-feed-separated section.
type fakeExtractor struct {
	failFor string
}

func (e *fakeExtractor) Extract(data []byte) (*model.Document, error) {
	text := string(data)
	if e.failFor != "" && strings.Contains(text, e.failFor) {
		return nil, errors.New("unreadable document")
	}
	doc := &model.Document{}
	for i, section := range strings.Split(text, "\f") {
		doc.Pages = append(doc.Pages, model.Page{Number: i + 1, Text: section})
	}
	return doc, nil
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*model.Document, error) {
	text, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch failed for %s", url)
	}
	return &model.Document{
		Title: "Page " + url,
		Pages: []model.Page{{Number: 0, Text: text}},
	}, nil
}

func newTestEngine(store *fakeStore, extractor *fakeExtractor, fetcher *fakeFetcher) *Engine {
	return NewEngine(store, &fakeEmbedder{}, extractor, fetcher, 500, 80)
}

func TestIngestFilesSingleSource(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store, &fakeExtractor{}, nil)

	data := []byte(strings.Repeat("a", 1200))
	report := engine.IngestFiles(context.Background(), "docs", []Upload{{Name: "doc.pdf", Data: data}})

	require.Equal(t, 3, report.TotalAdded)
	require.Equal(t, 500, report.ChunkSize)
	require.Equal(t, 80, report.ChunkOverlap)
	require.Len(t, report.Results, 1)
	require.Equal(t, "doc.pdf", report.Results[0].Source)
	require.Equal(t, 3, report.Results[0].Added)
	require.Equal(t, 1, report.Results[0].Pages)
	require.Empty(t, report.Results[0].Error)

	require.Len(t, store.chunks, 3)
	for i, c := range store.chunks {
		require.True(t, strings.HasPrefix(c.ID, "docs-"), "id %s", c.ID)
		require.True(t, strings.HasSuffix(c.ID, fmt.Sprintf("-%d", i)), "id %s", c.ID)
		require.Equal(t, "docs", c.Metadata.Namespace)
		require.Equal(t, "doc.pdf", c.Metadata.Source)
		require.NotEmpty(t, c.Embedding)
	}
}

func TestIngestFilesFailureDoesNotAbortSiblings(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store, &fakeExtractor{failFor: "BROKEN"}, nil)

	uploads := []Upload{
		{Name: "good.pdf", Data: []byte(strings.Repeat("b", 600))},
		{Name: "bad.pdf", Data: []byte("BROKEN")},
		{Name: "also-good.pdf", Data: []byte("short text")},
	}
	report := engine.IngestFiles(context.Background(), "docs", uploads)

	require.Len(t, report.Results, 3)
	require.Equal(t, report.Results[0].Added+report.Results[2].Added, report.TotalAdded)
	require.Greater(t, report.TotalAdded, 0)

	require.Equal(t, "bad.pdf", report.Results[1].Source)
	require.Zero(t, report.Results[1].Added)
	require.Equal(t, "unreadable document", report.Results[1].Error)

	require.Empty(t, report.Results[0].Error)
	require.Empty(t, report.Results[2].Error)
}

func TestIngestFilesBlankDocument(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store, &fakeExtractor{}, nil)

	report := engine.IngestFiles(context.Background(), "docs", []Upload{{Name: "empty.pdf", Data: []byte("   \n  ")}})

	require.Zero(t, report.TotalAdded)
	require.Len(t, report.Results, 1)
	require.Contains(t, report.Results[0].Error, "no extractable text")
	require.Empty(t, store.chunks)
}

func TestIngestFilesNamespaceOverride(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store, &fakeExtractor{}, nil)

	report := engine.IngestFiles(context.Background(), "default", []Upload{
		{Name: "a.pdf", Data: []byte("text one"), Namespace: "special"},
		{Name: "b.pdf", Data: []byte("text two")},
	})

	require.Equal(t, "special", report.Results[0].Namespace)
	require.Equal(t, "default", report.Results[1].Namespace)
}

func TestIngestURLs(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/a": "page a content",
	}}
	engine := newTestEngine(store, nil, fetcher)

	report := engine.IngestURLs(context.Background(), "website", []string{
		"https://example.com/a",
		"https://example.com/missing",
	})

	require.Len(t, report.Results, 2)
	require.Equal(t, 1, report.Results[0].Added)
	require.Equal(t, 1, report.Results[0].Chunks)
	require.Equal(t, "Page https://example.com/a", report.Results[0].Title)
	require.Equal(t, "https://example.com/a", report.Results[0].URL)

	require.Zero(t, report.Results[1].Added)
	require.Contains(t, report.Results[1].Error, "fetch failed")
	require.Equal(t, 1, report.TotalAdded)

	require.Len(t, store.chunks, 1)
	require.Equal(t, "https://example.com/a", store.chunks[0].Metadata.URL)
	require.Equal(t, "Page https://example.com/a", store.chunks[0].Metadata.Title)
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"https://example.com/page", true},
		{"http://example.com", true},
		{"ftp://example.com/file", false},
		{"javascript:alert(1)", false},
		{"file:///etc/passwd", false},
		{"/relative/path", false},
		{"https://", false},
		{"", false},
	}
	for _, tc := range cases {
		_, ok := ValidateURL(tc.in)
		require.Equal(t, tc.ok, ok, "url %q", tc.in)
	}
}

func TestValidateURLsKeepsOrder(t *testing.T) {
	urls := ValidateURLs([]string{
		"https://a.example.com",
		"not a url at all://",
		"http://b.example.com",
	})
	require.Equal(t, []string{"https://a.example.com", "http://b.example.com"}, urls)
}
