package client

import (
	"context"
	"io"
	"sync"
	"time"
)

// DefaultTypeInterval is the pause between rendered characters. 18ms reads
// as fluent typing while staying clearly slower than network arrival.
const DefaultTypeInterval = 18 * time.Millisecond

// Typewriter reveals buffered text one character at a time at a fixed
// cadence, decoupling render speed from network burstiness. The ticker runs
// only while the queue is non-empty: it starts on the empty->non-empty
// transition and stops once drained.
type Typewriter struct {
	w        io.Writer
	interval time.Duration

	mu      sync.Mutex
	queue   []rune
	running bool
	stopped bool
}

func NewTypewriter(w io.Writer, interval time.Duration) *Typewriter {
	if interval <= 0 {
		interval = DefaultTypeInterval
	}
	return &Typewriter{w: w, interval: interval}
}

// Push queues text for rendering and starts the drain loop if it is idle.
func (t *Typewriter) Push(text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.queue = append(t.queue, []rune(text)...)
	if !t.running {
		t.running = true
		go t.drain()
	}
}

// Wait blocks until the queue is fully rendered. If ctx is cancelled first,
// the remaining queue is discarded without rendering further characters.
func (t *Typewriter) Wait(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
		t.mu.Lock()
		idle := !t.running && len(t.queue) == 0
		t.mu.Unlock()
		if idle {
			return nil
		}
	}
}

// Stop discards anything not yet rendered and refuses further pushes.
func (t *Typewriter) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.queue = nil
}

func (t *Typewriter) drain() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		if len(t.queue) == 0 {
			t.running = false
			t.mu.Unlock()
			return
		}
		r := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		io.WriteString(t.w, string(r))
	}
}
