package store

import (
	"context"
	"testing"

	"ragchat/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func memChunk(id, namespace, text string) types.Chunk {
	return types.Chunk{
		ID:        id,
		Text:      text,
		Embedding: []float32{1, 0},
		Metadata:  types.Metadata{Namespace: namespace, Source: "test"},
	}
}

func TestMemoryStoreUpsertAndFetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertChunks(ctx, []types.Chunk{
		memChunk("a-1-0", "docs", "first"),
		memChunk("a-1-1", "docs", "second"),
		memChunk("b-1-0", "website", "third"),
	}))

	docs, err := s.FetchAll(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "a-1-0", docs[0].ID)
	require.Equal(t, "a-1-1", docs[1].ID)

	all, err := s.FetchAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryStoreUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertChunks(ctx, []types.Chunk{memChunk("a-1-0", "docs", "old")}))
	require.NoError(t, s.UpsertChunks(ctx, []types.Chunk{memChunk("a-1-0", "docs", "new")}))

	all, err := s.FetchAll(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "new", all[0].Text)
}

func TestMemoryStoreDeleteNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertChunks(ctx, []types.Chunk{
		memChunk("a-1-0", "docs", "one"),
		memChunk("a-1-1", "docs", "two"),
		memChunk("b-1-0", "website", "three"),
	}))

	removed, err := s.DeleteNamespace(ctx, "docs")
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	rest, err := s.FetchAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "website", rest[0].Metadata.Namespace)
}

func TestMemoryStoreConversations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.CreateConversation(ctx)
	require.NoError(t, err)

	turns := []types.Turn{
		{Role: types.RoleUser, Message: "hello?"},
		{Role: types.RoleAssistant, Message: "hi."},
	}
	require.NoError(t, s.AppendTurns(ctx, id, turns))

	got, err := s.GetConversation(ctx, id)
	require.NoError(t, err)
	require.Equal(t, turns, got)

	_, err = s.GetConversation(ctx, uuid.New())
	require.Error(t, err)

	err = s.AppendTurns(ctx, uuid.New(), turns)
	require.Error(t, err)
}
