package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// Event is one unit of the generation wire protocol: a text delta, the
// terminal marker, or an error payload. Events exist only for the duration
// of one stream.
type Event struct {
	Text     string
	LastWord string
	Final    bool
}

// GenerationTransport frames coalesced events onto the wire. Two variants
// exist: line-delimited JSON envelopes with duplicate-suffix repair, and
// server-sent-event delta framing. Both wrap the same coalescer.
type GenerationTransport interface {
	// ContentType is the response content type for this framing.
	ContentType() string
	// RetainOverlap reports whether the coalescer should keep the final
	// word of each flush in its buffer so the consumer can verify
	// continuity across chunk boundaries.
	RetainOverlap() bool
	// WriteEvent frames one delta (or the final flush) onto w.
	WriteEvent(w *bufio.Writer, ev Event) error
	// WriteError frames a terminal error payload onto w.
	WriteError(w *bufio.Writer, detail error) error
	// Close writes the end-of-stream marker, if the framing has one.
	Close(w *bufio.Writer) error
}

// EnvelopeTransport emits line-delimited JSON envelopes
// {text, lastWord?, isLast?}. The lastWord of each envelope is re-sent at
// the start of the next one; the consumer strips the duplicate.
type EnvelopeTransport struct{}

type envelope struct {
	Text     string `json:"text,omitempty"`
	LastWord string `json:"lastWord,omitempty"`
	IsLast   bool   `json:"isLast,omitempty"`
	Error    string `json:"error,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func (EnvelopeTransport) ContentType() string { return "application/json" }
func (EnvelopeTransport) RetainOverlap() bool { return true }

func (EnvelopeTransport) WriteEvent(w *bufio.Writer, ev Event) error {
	return writeJSONLine(w, envelope{
		Text:     ev.Text,
		LastWord: ev.LastWord,
		IsLast:   ev.Final,
	})
}

func (EnvelopeTransport) WriteError(w *bufio.Writer, detail error) error {
	return writeJSONLine(w, envelope{
		Error:  "Generation failed",
		Detail: detail.Error(),
	})
}

func (EnvelopeTransport) Close(w *bufio.Writer) error {
	return w.Flush()
}

func writeJSONLine(w *bufio.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

// SSETransport frames each delta as
// data: {"choices":[{"delta":{"content":...}}]} and terminates the stream
// with a literal [DONE] sentinel.
type SSETransport struct{}

type sseDelta struct {
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Delta sseContent `json:"delta"`
}

type sseContent struct {
	Content string `json:"content"`
}

type sseError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (SSETransport) ContentType() string { return "text/event-stream" }
func (SSETransport) RetainOverlap() bool { return false }

func (SSETransport) WriteEvent(w *bufio.Writer, ev Event) error {
	payload := sseDelta{Choices: []sseChoice{{Delta: sseContent{Content: ev.Text}}}}
	return writeSSE(w, payload)
}

func (SSETransport) WriteError(w *bufio.Writer, detail error) error {
	return writeSSE(w, sseError{Error: "Generation failed", Detail: detail.Error()})
}

func (SSETransport) Close(w *bufio.Writer) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func writeSSE(w *bufio.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}

// TransportFor maps a configured format name to its transport. Unknown
// names fall back to SSE framing.
func TransportFor(format string) GenerationTransport {
	if format == "json" || format == "envelope" {
		return EnvelopeTransport{}
	}
	return SSETransport{}
}
