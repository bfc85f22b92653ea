package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// TokenSource streams generated text token by token. Implementations must
// stop promptly when ctx is cancelled so an abandoned client does not leave
// orphaned generation work running.
type TokenSource interface {
	Stream(ctx context.Context, prompt string, onToken func(token string) error) error
}

// Generator calls the Ollama generate endpoint with streaming enabled and
// forwards each response fragment as it arrives.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func NewGenerator(baseURL, model string) *Generator {
	return &Generator{
		baseURL: baseURL,
		model:   model,
		// generation can legitimately run for minutes; the request context
		// is the real lifetime bound
		client: &http.Client{Timeout: 0},
	}
}

func (g *Generator) Stream(ctx context.Context, prompt string, onToken func(token string) error) error {
	start := time.Now()

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: true,
		Options: map[string]any{
			"temperature": 0.2,
			"num_predict": 2000,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach generation backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generation backend error: status %d, body: %s", resp.StatusCode, string(b))
	}

	chars := 0
	dec := json.NewDecoder(bufio.NewReader(resp.Body))
	for {
		var chunk generateChunk
		if err := dec.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("malformed generation chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("generation backend error: %s", chunk.Error)
		}
		if chunk.Response != "" {
			chars += len(chunk.Response)
			if err := onToken(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}

	log.Printf("[GENERATE] finished: ms=%d chars=%d", time.Since(start).Milliseconds(), chars)
	return nil
}
