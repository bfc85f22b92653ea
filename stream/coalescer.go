package stream

import (
	"bufio"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultWordThreshold holds a flush back until the whitespace-complete
	// prefix has this many words. Rich retrieval flows use a higher value.
	DefaultWordThreshold = 6
	RichWordThreshold    = 15

	// maxHold force-flushes the buffer once it grows past this many
	// characters regardless of word count, so a long run of unbroken text
	// cannot stall the stream.
	maxHold = 200
)

// Coalescer converts an arbitrary-granularity token stream into word-safe,
// throttled wire events. It moves ACCUMULATING -> FLUSHING -> ACCUMULATING
// until the source ends or fails, then CLOSED. No retries: a backend
// failure is terminal for the stream.
type Coalescer struct {
	w         *bufio.Writer
	transport GenerationTransport
	threshold int

	buf    strings.Builder
	total  strings.Builder
	closed bool
}

type Option func(*Coalescer)

func WithThreshold(words int) Option {
	return func(c *Coalescer) {
		if words > 0 {
			c.threshold = words
		}
	}
}

func NewCoalescer(w *bufio.Writer, transport GenerationTransport, opts ...Option) *Coalescer {
	c := &Coalescer{
		w:         w,
		transport: transport,
		threshold: DefaultWordThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push appends one incoming token and attempts a flush. The flushable
// prefix runs up to the last whitespace in the buffer; it is emitted as one
// event once it holds at least threshold words, and the partial word after
// it stays buffered. A buffer past the length ceiling flushes early, with
// the word-safe prefix when one exists, so a single very long token cannot
// stall the stream.
func (c *Coalescer) Push(token string) error {
	if c.closed {
		return nil
	}
	c.buf.WriteString(token)
	c.total.WriteString(token)

	buf := c.buf.String()
	if cut := lastBoundary(buf); cut > 0 {
		prefix := buf[:cut]
		if len(strings.Fields(prefix)) >= c.threshold || len(buf) > maxHold {
			return c.flush(prefix, buf[cut:])
		}
		return nil
	}
	if len(buf) > maxHold {
		return c.flushAll(buf)
	}
	return nil
}

// lastBoundary returns the byte position just past the last whitespace rune
// in s, or 0 when s has none.
func lastBoundary(s string) int {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return 0
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size
}

// Close flushes whatever remains as the final event and writes the
// transport's end-of-stream marker.
func (c *Coalescer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if buf := c.buf.String(); buf != "" {
		ev := Event{Text: buf, Final: true}
		if c.transport.RetainOverlap() {
			ev.LastWord = trailingWord(buf)
		}
		if err := c.transport.WriteEvent(c.w, ev); err != nil {
			return err
		}
	}
	return c.transport.Close(c.w)
}

// Abort surfaces a mid-stream backend failure as one error event and closes
// the stream, so the connection is never left half-open.
func (c *Coalescer) Abort(reason error) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.transport.WriteError(c.w, reason); err != nil {
		return err
	}
	return c.transport.Close(c.w)
}

// Total returns everything pushed so far; the caller persists it as the
// assistant turn once the stream ends.
func (c *Coalescer) Total() string {
	return c.total.String()
}

// flush emits prefix as one event and carries rest over into the buffer.
// With overlap retention the final word of the prefix also stays buffered,
// so the next event re-sends it and the consumer can strip the duplicate.
func (c *Coalescer) flush(prefix, rest string) error {
	ev := Event{Text: prefix}
	c.buf.Reset()
	if c.transport.RetainOverlap() {
		tail := trailingRun(prefix)
		ev.LastWord = strings.TrimSpace(tail)
		c.buf.WriteString(tail)
	}
	c.buf.WriteString(rest)
	return c.transport.WriteEvent(c.w, ev)
}

// flushAll dumps the whole buffer in one event with no overlap retention;
// there is no word boundary to retain.
func (c *Coalescer) flushAll(buf string) error {
	c.buf.Reset()
	return c.transport.WriteEvent(c.w, Event{Text: buf})
}

// trailingRun returns the final word of s together with the whitespace that
// follows it. Both scans walk runes backwards so multi-byte words and
// multi-byte whitespace survive intact.
func trailingRun(s string) string {
	end := len(s)
	for end > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsSpace(r) {
			break
		}
		start -= size
	}
	return s[start:]
}

func trailingWord(s string) string {
	return strings.TrimSpace(trailingRun(s))
}
