package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Format selects which wire framing the consumer parses.
type Format int

const (
	// FormatSSE parses server-sent-event records terminated by a [DONE]
	// sentinel.
	FormatSSE Format = iota
	// FormatEnvelope parses line-delimited JSON envelopes and repairs the
	// duplicated word the coalescer re-sends across chunk boundaries.
	FormatEnvelope
)

// ErrGeneration is returned when the stream carries an error payload
// instead of more text.
var ErrGeneration = errors.New("generation failed")

type sseRecord struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type envelopeRecord struct {
	Text     string `json:"text"`
	LastWord string `json:"lastWord"`
	IsLast   bool   `json:"isLast"`
	Error    string `json:"error"`
	Detail   string `json:"detail"`
}

// Consumer reconstructs readable text from a coalesced generation stream.
// Records are processed strictly in arrival order; OnText observes each
// appended piece (after duplicate repair) as it happens.
type Consumer struct {
	format   Format
	OnText   func(text string)
	rendered strings.Builder
	lastWord string
}

func NewConsumer(format Format) *Consumer {
	return &Consumer{format: format}
}

// Consume reads the transport until end-of-stream and returns the full
// reconstructed text. A mid-stream error payload surfaces as an error
// wrapping ErrGeneration; ctx cancellation stops reading immediately.
func (c *Consumer) Consume(ctx context.Context, r io.Reader) (string, error) {
	switch c.format {
	case FormatEnvelope:
		return c.consumeEnvelopes(ctx, r)
	default:
		return c.consumeSSE(ctx, r)
	}
}

func (c *Consumer) consumeSSE(ctx context.Context, r io.Reader) (string, error) {
	var buffer string
	chunk := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return c.rendered.String(), err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			buffer += string(chunk[:n])
			// complete records are separated by a blank line; the trailing
			// fragment stays buffered for the next read
			parts := strings.Split(buffer, "\n\n")
			buffer = parts[len(parts)-1]
			for _, part := range parts[:len(parts)-1] {
				done, perr := c.handleSSERecord(part)
				if perr != nil {
					return c.rendered.String(), perr
				}
				if done {
					return c.rendered.String(), nil
				}
			}
		}
		if err == io.EOF {
			return c.rendered.String(), nil
		}
		if err != nil {
			return c.rendered.String(), err
		}
	}
}

func (c *Consumer) handleSSERecord(record string) (done bool, err error) {
	var payload string
	for _, line := range strings.Split(record, "\n") {
		if strings.HasPrefix(line, "data:") {
			payload = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			break
		}
	}
	if payload == "" {
		return false, nil
	}
	if payload == "[DONE]" {
		return true, nil
	}

	var rec sseRecord
	if jsonErr := json.Unmarshal([]byte(payload), &rec); jsonErr != nil {
		// not JSON: treat the raw payload as text
		c.append(payload)
		return false, nil
	}
	if rec.Error != "" {
		return false, fmt.Errorf("%w: %s: %s", ErrGeneration, rec.Error, rec.Detail)
	}
	if len(rec.Choices) > 0 {
		if delta := rec.Choices[0].Delta.Content; delta != "" {
			c.append(delta)
		} else if msg := rec.Choices[0].Message.Content; msg != "" {
			c.append(msg)
		}
	}
	return false, nil
}

func (c *Consumer) consumeEnvelopes(ctx context.Context, r io.Reader) (string, error) {
	dec := json.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return c.rendered.String(), err
		}

		var rec envelopeRecord
		if err := dec.Decode(&rec); err == io.EOF {
			return c.rendered.String(), nil
		} else if err != nil {
			return c.rendered.String(), fmt.Errorf("malformed envelope: %w", err)
		}

		if rec.Error != "" {
			return c.rendered.String(), fmt.Errorf("%w: %s: %s", ErrGeneration, rec.Error, rec.Detail)
		}

		c.append(c.repairOverlap(rec.Text))
		c.lastWord = rec.LastWord

		if rec.IsLast {
			return c.rendered.String(), nil
		}
	}
}

// repairOverlap drops the duplicated region from the front of an incoming
// envelope: the coalescer re-sends the previously reported lastWord (plus
// the whitespace that followed it), so when the rendered text already ends
// with exactly that, the copy is skipped. Rendered text is append-only;
// observers never see a retraction.
func (c *Consumer) repairOverlap(text string) string {
	lw := c.lastWord
	if lw == "" || !strings.HasPrefix(text, lw) {
		return text
	}
	rendered := c.rendered.String()

	// extend past the whitespace run that follows the word
	end := len(lw)
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(r) {
			break
		}
		end += size
	}

	for ov := end; ov >= len(lw); ov-- {
		if !strings.HasSuffix(rendered, text[:ov]) {
			continue
		}
		// the match must cover a whole trailing word, not the tail of a
		// longer one
		if cut := len(rendered) - ov; cut > 0 {
			prev, _ := utf8.DecodeLastRuneInString(rendered[:cut])
			if !unicode.IsSpace(prev) {
				return text
			}
		}
		return text[ov:]
	}
	return text
}

func (c *Consumer) append(text string) {
	if text == "" {
		return
	}
	c.rendered.WriteString(text)
	if c.OnText != nil {
		c.OnText(text)
	}
}
