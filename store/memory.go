package store

import (
	"context"
	"fmt"
	"sync"

	"ragchat/types"

	"github.com/google/uuid"
)

// MemoryStore keeps chunks and conversations in process memory. It backs
// tests and store-less development; the interfaces match PostgresStore.
type MemoryStore struct {
	mu            sync.RWMutex
	chunks        map[string]types.Chunk
	order         []string
	conversations map[uuid.UUID][]types.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:        make(map[string]types.Chunk),
		conversations: make(map[uuid.UUID][]types.Turn),
	}
}

func (m *MemoryStore) UpsertChunks(ctx context.Context, chunks []types.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if _, ok := m.chunks[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MemoryStore) FetchAll(ctx context.Context, namespace string) ([]types.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Chunk
	for _, id := range m.order {
		c := m.chunks[id]
		if namespace == "" || c.Metadata.Namespace == namespace {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteNamespace(ctx context.Context, namespace string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []string
	var removed int64
	for _, id := range m.order {
		if m.chunks[id].Metadata.Namespace == namespace {
			delete(m.chunks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed, nil
}

func (m *MemoryStore) CreateConversation(ctx context.Context) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.conversations[id] = nil
	return id, nil
}

func (m *MemoryStore) AppendTurns(ctx context.Context, id uuid.UUID, turns []types.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	m.conversations[id] = append(m.conversations[id], turns...)
	return nil
}

func (m *MemoryStore) GetConversation(ctx context.Context, id uuid.UUID) ([]types.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return append([]types.Turn(nil), turns...), nil
}
