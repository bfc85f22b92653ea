package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document is the extractor output: page texts plus whatever title the
// source declared. Web pages come back as a single page numbered 0.
type Document struct {
	Title       string
	Description string
	Pages       []Page
}

type Page struct {
	Number int
	Text   string
}

// PDFExtractor turns an uploaded PDF buffer into per-page plain text. The
// buffer is validated with pdfcpu first so a corrupt upload fails with a
// parse error instead of garbage chunks.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(data []byte) (*Document, error) {
	rs := bytes.NewReader(data)
	if _, err := pdfapi.PageCount(rs, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	doc := &Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}
	return doc, nil
}

// WebExtractor fetches a page and strips it down to readable text: title,
// meta description, and body text with script/style noise removed.
type WebExtractor struct {
	client *http.Client
}

func NewWebExtractor() *WebExtractor {
	return &WebExtractor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *WebExtractor) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	return ExtractHTML(resp.Body)
}

// ExtractHTML pulls title, description and body text out of an HTML stream.
func ExtractHTML(r io.Reader) (*Document, error) {
	sel, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel.Find("script, style, noscript, iframe, svg, canvas").Remove()

	title := strings.TrimSpace(sel.Find("title").First().Text())
	description := strings.TrimSpace(sel.Find(`meta[name="description"]`).AttrOr("content", ""))
	body := strings.TrimSpace(sel.Find("body").Text())

	var parts []string
	for _, s := range []string{title, description, body} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return &Document{
		Title:       title,
		Description: description,
		Pages:       []Page{{Number: 0, Text: strings.Join(parts, "\n\n")}},
	}, nil
}
